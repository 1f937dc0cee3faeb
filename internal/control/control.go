// Package control implements the daemon control channel: a JSON-RPC
// server and client over a Unix domain socket, generalized from
// internal/command's UDSServer/UDSClient transport (itself
// already independent of any particular wire format beyond
// line-delimited JSON-RPC 2.0) from a task-management-specific
// CommandHandler to the small Status/Stop surface SPEC_FULL.md
// names (§10 supplement #2, mirroring cmd/status.go and cmd/stop.go's
// existing UDS dial idiom).
package control

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Command is one decoded JSON-RPC request, method plus raw params.
type Command struct {
	Method string
	Params json.RawMessage
	ID     string
}

// ErrorInfo mirrors JSON-RPC 2.0's error object.
type ErrorInfo struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response is a JSON-RPC 2.0 result, pre-envelope.
type Response struct {
	ID     string      `json:"id,omitempty"`
	Result interface{} `json:"result,omitempty"`
	Error  *ErrorInfo  `json:"error,omitempty"`
}

const (
	ErrCodeParseError     = -32700
	ErrCodeMethodNotFound = -32601
	ErrCodeInternalError  = -32603
)

type jsonrpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id"`
}

type jsonrpcResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// Handler dispatches a decoded Command to a Response. Server is
// transport-only; Handler carries the domain logic (see StatusHandler).
type Handler interface {
	Handle(ctx context.Context, cmd Command) Response
}

// Server is a JSON-RPC 2.0 server over a Unix domain socket.
type Server struct {
	socketPath string
	handler    Handler

	listener net.Listener
	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
	stopped  bool
}

func NewServer(socketPath string, handler Handler) *Server {
	return &Server{
		socketPath: socketPath,
		handler:    handler,
		conns:      make(map[net.Conn]struct{}),
	}
}

// Start listens on socketPath and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("control: removing stale socket: %w", err)
	}
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("control: listening on %s: %w", s.socketPath, err)
	}
	s.listener = listener
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("control: chmod socket: %w", err)
	}

	logrus.WithField("socket", s.socketPath).Info("control server listening")
	go s.acceptLoop(ctx)

	<-ctx.Done()
	return s.Stop()
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			stopped := s.stopped
			s.mu.Unlock()
			if stopped {
				return
			}
			logrus.WithError(err).Error("control: accept failed")
			continue
		}
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)
	for scanner.Scan() {
		var req jsonrpcRequest
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			encoder.Encode(jsonrpcResponse{
				JSONRPC: "2.0",
				Error:   &ErrorInfo{Code: ErrCodeParseError, Message: err.Error()},
			})
			continue
		}
		resp := s.handler.Handle(ctx, Command{
			Method: req.Method,
			Params: req.Params,
			ID:     fmt.Sprintf("%v", req.ID),
		})
		if err := encoder.Encode(jsonrpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  resp.Result,
			Error:   resp.Error,
		}); err != nil {
			logrus.WithError(err).Error("control: writing response")
			return
		}
	}
}

// Stop closes the listener, all live connections, and removes the socket
// file. Safe to call multiple times.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	os.RemoveAll(s.socketPath)
	return nil
}

// Client dials a running Server and issues JSON-RPC calls.
type Client struct {
	socketPath string
	timeout    time.Duration
}

func NewClient(socketPath string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{socketPath: socketPath, timeout: timeout}
}

func (c *Client) Call(ctx context.Context, method string, params interface{}) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("control: dial %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetDeadline(deadline)

	var paramsJSON json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("control: marshal params: %w", err)
		}
		paramsJSON = data
	}
	reqID := fmt.Sprintf("req-%d", time.Now().UnixNano())
	if err := json.NewEncoder(conn).Encode(jsonrpcRequest{
		JSONRPC: "2.0", Method: method, Params: paramsJSON, ID: reqID,
	}); err != nil {
		return nil, fmt.Errorf("control: send request: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("control: read response: %w", err)
		}
		return nil, fmt.Errorf("control: connection closed without response")
	}
	var resp jsonrpcResponse
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("control: parse response: %w", err)
	}
	return &Response{ID: fmt.Sprintf("%v", resp.ID), Result: resp.Result, Error: resp.Error}, nil
}

// Status issues the "status" call.
func (c *Client) Status(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "status", nil)
}

// Stop issues the "stop" call.
func (c *Client) Stop(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "stop", nil)
}
