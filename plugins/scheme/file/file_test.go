package file

import (
	"context"
	"testing"

	"github.com/spf13/afero"

	"github.com/firestige/arrowflow/internal/dispatch"
	"github.com/firestige/arrowflow/internal/pipeline"
	"github.com/firestige/arrowflow/pkg/operator"
)

func TestSaveThenLoadRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	factory := &Factory{Fs: fs}

	saveOp, err := factory.Make(operator.Invocation{
		Args:    []string{"/out.bin"},
		Options: map[string]any{"direction": dispatch.Save},
	})
	if err != nil {
		t.Fatalf("Make(save): %v", err)
	}

	in := pipeline.NewChannel()
	ctx := context.Background()
	go func() {
		in.Send(ctx, operator.BytesItem([]byte("hello ")))
		in.Send(ctx, operator.BytesItem([]byte("world")))
		in.Close()
	}()
	if err := saveOp.Run(ctx, operator.IO{In: in}); err != nil {
		t.Fatalf("save Run: %v", err)
	}

	content, err := afero.ReadFile(fs, "/out.bin")
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if string(content) != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", content)
	}

	loadOp, err := factory.Make(operator.Invocation{
		Args:    []string{"/out.bin"},
		Options: map[string]any{"direction": dispatch.Load},
	})
	if err != nil {
		t.Fatalf("Make(load): %v", err)
	}
	out := pipeline.NewChannel()
	done := make(chan error, 1)
	go func() {
		err := loadOp.Run(ctx, operator.IO{Out: out})
		out.Close()
		done <- err
	}()

	var read []byte
	for {
		item, ok, err := out.Receive(ctx)
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		if !ok {
			break
		}
		read = append(read, item.Bytes...)
	}
	if err := <-done; err != nil {
		t.Fatalf("load Run: %v", err)
	}
	if string(read) != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", read)
	}
}

func TestMakeRequiresExactlyOnePathArg(t *testing.T) {
	factory := &Factory{Fs: afero.NewMemMapFs()}
	if _, err := factory.Make(operator.Invocation{Args: nil}); err == nil {
		t.Fatal("expected an error with no path argument")
	}
}
