// Package skywalking implements a scheme factory that ships event batches
// to a SkyWalking OAP collector as trace segments, grounded on
// plugins/reporter/skywalkingtracing/sniffdata/segment_builder.go's
// SegmentBuilder (generalized from its SIP-session-specific span
// construction to a one-span-per-batch summary) and
// plugins/reporter/skywalkingtracing/reporter.go's report-loop shape.
package skywalking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	common "skywalking.apache.org/repo/goapi/collect/common/v3"
	agent "skywalking.apache.org/repo/goapi/collect/language/agent/v3"

	"github.com/firestige/arrowflow/pkg/operator"
)

const Name = "skywalking"

type Factory struct {
	ServiceName     string
	ServiceInstance string
	DialTimeout     time.Duration
}

func New() *Factory {
	return &Factory{ServiceName: "arrowflow", ServiceInstance: "arrowflow-0", DialTimeout: 5 * time.Second}
}

func (f *Factory) Name() string { return Name }

func (f *Factory) SaveProperties() operator.SaveProperties {
	return operator.SaveProperties{Schemes: []string{Name}, StripScheme: true}
}

func (f *Factory) Make(inv operator.Invocation) (operator.Operator, error) {
	target := strings.TrimPrefix(inv.Args[0], Name+"://")
	serviceName := f.ServiceName
	if v, ok := inv.Options["service_name"].(string); ok && v != "" {
		serviceName = v
	}
	serviceInstance := f.ServiceInstance
	if v, ok := inv.Options["service_instance"].(string); ok && v != "" {
		serviceInstance = v
	}
	return &sinkOp{
		target:          target,
		dialTimeout:     f.DialTimeout,
		serviceName:     serviceName,
		serviceInstance: serviceInstance,
	}, nil
}

type sinkOp struct {
	target          string
	dialTimeout     time.Duration
	serviceName     string
	serviceInstance string
}

func (s *sinkOp) Name() string            { return Name }
func (s *sinkOp) InputKind() operator.Kind  { return operator.KindEvents }
func (s *sinkOp) OutputKind() operator.Kind { return operator.KindVoid }

func (s *sinkOp) Run(ctx context.Context, io_ operator.IO) error {
	dialCtx, cancel := context.WithTimeout(ctx, s.dialTimeout)
	defer cancel()
	conn, err := grpc.DialContext(dialCtx, s.target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		return fmt.Errorf("skywalking: dial %s: %w", s.target, err)
	}
	defer conn.Close()

	client := agent.NewTraceSegmentReportServiceClient(conn)
	stream, err := client.Collect(ctx)
	if err != nil {
		return fmt.Errorf("skywalking: open collect stream: %w", err)
	}

	for {
		item, ok, err := io_.In.Receive(ctx)
		if err != nil {
			stream.CloseSend()
			return err
		}
		if !ok {
			_, err := stream.CloseAndRecv()
			return err
		}
		records, ok := item.Events.([]map[string]any)
		if !ok {
			return fmt.Errorf("skywalking: expected []map[string]any events, got %T", item.Events)
		}
		segment := s.buildSegment(records)
		if err := stream.Send(segment); err != nil {
			return fmt.Errorf("skywalking: send segment: %w", err)
		}
	}
}

// buildSegment wraps one batch of records as a single-span segment: each
// record becomes a log entry on the span rather than its own span, since
// the operator model has no notion of nested call-tree structure the way
// the original SIP dialog/transaction state machine tracked it.
func (s *sinkOp) buildSegment(records []map[string]any) *agent.SegmentObject {
	now := time.Now().UnixMilli()
	logs := make([]*agent.Log, 0, len(records))
	for _, rec := range records {
		var kvs []*common.KeyStringValuePair
		for k, v := range rec {
			kvs = append(kvs, &common.KeyStringValuePair{Key: k, Value: fmt.Sprint(v)})
		}
		logs = append(logs, &agent.Log{Time: now, Data: kvs})
	}
	span := &agent.SpanObject{
		SpanId:        0,
		ParentSpanId:  -1,
		StartTime:     now,
		EndTime:       now,
		OperationName: "arrowflow.batch",
		SpanType:      agent.SpanType_Local,
		SpanLayer:     agent.SpanLayer_Unknown,
		IsError:       false,
		Logs:          logs,
	}
	return &agent.SegmentObject{
		TraceId:         fmt.Sprintf("ARROWFLOW-%d", now),
		TraceSegmentId:  fmt.Sprintf("ARROWFLOW-SEG-%d", now),
		Spans:           []*agent.SpanObject{span},
		Service:         s.serviceName,
		ServiceInstance: s.serviceInstance,
		IsSizeLimited:   false,
	}
}

var _ operator.SaveFactory = (*Factory)(nil)
