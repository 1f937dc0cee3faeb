package control

import (
	"context"
	"time"
)

// RunState is the subset of a running pipeline's state the status
// command reports: the pipeline's name, whether it is running, and when it
// started (reported as uptime).
type RunState struct {
	StartedAt time.Time
	PipelineName string
	Running   bool
}

// StatusHandler answers "status" and "stop" against a live pipeline run.
// Stop calls cancel to unwind the supervising async.Scope; the command
// loop (cmd/daemon.go) owns actually exiting the process once Start's
// context is done.
type StatusHandler struct {
	state  func() RunState
	cancel context.CancelFunc
}

func NewStatusHandler(state func() RunState, cancel context.CancelFunc) *StatusHandler {
	return &StatusHandler{state: state, cancel: cancel}
}

func (h *StatusHandler) Handle(ctx context.Context, cmd Command) Response {
	switch cmd.Method {
	case "status":
		s := h.state()
		return Response{Result: map[string]any{
			"pipeline": s.PipelineName,
			"running":  s.Running,
			"uptime":   time.Since(s.StartedAt).String(),
		}}
	case "stop":
		h.cancel()
		return Response{Result: map[string]any{"stopping": true}}
	default:
		return Response{Error: &ErrorInfo{Code: ErrCodeMethodNotFound, Message: "unknown method: " + cmd.Method}}
	}
}

var _ Handler = (*StatusHandler)(nil)
