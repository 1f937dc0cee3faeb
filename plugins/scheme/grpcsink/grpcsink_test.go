package grpcsink

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"

	"github.com/firestige/arrowflow/internal/dispatch"
	"github.com/firestige/arrowflow/pkg/operator"
)

// echoUnknownHandler answers any method with the raw bytes it received,
// exercising rawCodec's Marshal/Unmarshal round trip through a real
// connection instead of faking the wire format.
func echoUnknownHandler(_ any, stream grpc.ServerStream) error {
	var req []byte
	if err := stream.RecvMsg(&req); err != nil {
		return err
	}
	return stream.SendMsg(&req)
}

func TestSinkShipsTailOutputOverGRPC(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := grpc.NewServer(grpc.UnknownServiceHandler(echoUnknownHandler))
	go srv.Serve(lis)
	defer srv.Stop()

	sent := false
	source := operator.SourceFunc{
		OpName: "source",
		Out:    operator.KindBytes,
		Next: func(ctx context.Context) (operator.Item, bool, error) {
			if sent {
				return operator.Item{}, false, nil
			}
			sent = true
			return operator.BytesItem([]byte("payload")), true, nil
		},
	}

	factory := &Factory{DialTimeout: 2 * time.Second}
	op, err := factory.Make(operator.Invocation{
		Args: []string{"grpcsink://" + lis.Addr().String()},
		Options: map[string]any{
			"direction": dispatch.Save,
			"pipeline":  []operator.Operator{source},
		},
	})
	if err != nil {
		t.Fatalf("Make: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := op.Run(ctx, operator.IO{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestMakeRejectsLoadDirection(t *testing.T) {
	factory := New()
	if _, err := factory.Make(operator.Invocation{Options: map[string]any{"direction": dispatch.Load}}); err == nil {
		t.Fatal("expected an error for load direction")
	}
}
