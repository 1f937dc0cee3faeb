package skywalking

import (
	"testing"

	"github.com/firestige/arrowflow/pkg/operator"
)

func TestMakeTrimsSchemeAndAppliesDefaults(t *testing.T) {
	factory := New()
	op, err := factory.Make(operator.Invocation{Args: []string{"skywalking://collector:11800"}})
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	s := op.(*sinkOp)
	if s.target != "collector:11800" {
		t.Fatalf("expected scheme to be stripped, got %q", s.target)
	}
	if s.serviceName != "arrowflow" || s.serviceInstance != "arrowflow-0" {
		t.Fatalf("expected default service identity, got %q/%q", s.serviceName, s.serviceInstance)
	}
}

func TestMakeHonorsServiceOptions(t *testing.T) {
	factory := New()
	op, err := factory.Make(operator.Invocation{
		Args: []string{"skywalking://collector:11800"},
		Options: map[string]any{
			"service_name":     "custom-service",
			"service_instance": "custom-instance",
		},
	})
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	s := op.(*sinkOp)
	if s.serviceName != "custom-service" || s.serviceInstance != "custom-instance" {
		t.Fatalf("expected overridden service identity, got %q/%q", s.serviceName, s.serviceInstance)
	}
}

func TestSaveProperties(t *testing.T) {
	props := New().SaveProperties()
	if len(props.Schemes) != 1 || props.Schemes[0] != Name {
		t.Fatalf("expected scheme %q, got %v", Name, props.Schemes)
	}
	if !props.StripScheme {
		t.Fatal("expected StripScheme to be true")
	}
}

func TestBuildSegmentProducesOneSpanWithOneLogPerRecord(t *testing.T) {
	s := &sinkOp{serviceName: "svc", serviceInstance: "inst-0"}
	records := []map[string]any{
		{"call_id": "abc", "method": "INVITE"},
		{"call_id": "def", "status_code": float64(200)},
	}
	seg := s.buildSegment(records)

	if seg.Service != "svc" || seg.ServiceInstance != "inst-0" {
		t.Fatalf("expected segment to carry service identity, got %+v", seg)
	}
	if len(seg.Spans) != 1 {
		t.Fatalf("expected exactly one span per batch, got %d", len(seg.Spans))
	}
	if len(seg.Spans[0].Logs) != len(records) {
		t.Fatalf("expected one log per record, got %d", len(seg.Spans[0].Logs))
	}
	if seg.TraceId == "" || seg.TraceSegmentId == "" {
		t.Fatal("expected non-empty trace and segment identifiers")
	}
}
