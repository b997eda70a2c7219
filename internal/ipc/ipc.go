package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultSocketPath is used when no socket is configured
	DefaultSocketPath = "/tmp/cliplog.sock"

	defaultTimeout = 5 * time.Second
)

// ErrDaemonUnavailable means nothing is listening on the socket
var ErrDaemonUnavailable = errors.New("daemon not running")

// Handler answers one request
type Handler interface {
	Handle(ctx context.Context, req *Request) *Response
}

// Streamer is implemented by handlers that serve streaming requests. send
// writes one response to the client; Stream returns when ctx is done.
type Streamer interface {
	Stream(ctx context.Context, req *Request, send func(*Response) error) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, req *Request) *Response

func (f HandlerFunc) Handle(ctx context.Context, req *Request) *Response { return f(ctx, req) }

// Client talks to the daemon
type Client struct {
	SocketPath string
	Timeout    time.Duration
}

// NewClient returns a client for socketPath
func NewClient(socketPath string) *Client {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	return &Client{SocketPath: socketPath, Timeout: defaultTimeout}
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDaemonUnavailable, err)
	}
	return conn, nil
}

// Send connects to the daemon, sends a request, and returns the response.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// Ping reports whether a daemon answers on the socket
func (c *Client) Ping(ctx context.Context) bool {
	resp, err := c.Send(ctx, &Request{Command: CmdStatus})
	return err == nil && resp.Err() == nil
}

// Stream sends a streaming request and calls fn for each response until ctx
// is done, the daemon closes the stream, or fn returns an error.
func (c *Client) Stream(ctx context.Context, req *Request, fn func(*Response) error) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	req.Stream = true
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	dec := json.NewDecoder(conn)
	for {
		var resp Response
		if err := dec.Decode(&resp); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("stream closed: %w", err)
		}
		if err := resp.Err(); err != nil {
			return err
		}
		if err := fn(&resp); err != nil {
			return err
		}
	}
}

// Server serves requests on a unix socket
type Server struct {
	socketPath string
	handler    Handler
	logger     *zap.Logger

	wg sync.WaitGroup
}

// NewServer creates a server for socketPath
func NewServer(socketPath string, handler Handler, logger *zap.Logger) *Server {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{socketPath: socketPath, handler: handler, logger: logger}
}

// ListenAndServe serves until ctx is cancelled. A stale socket file is
// removed; a live one means another daemon is running.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o700); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}
	if NewClient(s.socketPath).Ping(ctx) {
		return fmt.Errorf("another daemon is listening on %s", s.socketPath)
	}
	os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}
	defer os.Remove(s.socketPath)

	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("failed to restrict socket: %w", err)
	}

	s.logger.Info("IPC server listening", zap.String("socket", s.socketPath))

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				s.logger.Info("IPC server stopped")
				return nil
			}
			s.logger.Warn("Failed to accept IPC connection", zap.Error(err))
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	var req Request
	if err := dec.Decode(&req); err != nil {
		enc.Encode(Errorf(CodeInvalid, "invalid request: %v", err))
		return
	}

	s.logger.Debug("IPC request", zap.String("command", req.Command), zap.Bool("stream", req.Stream))

	if !req.Stream {
		resp := s.handler.Handle(ctx, &req)
		if resp == nil {
			resp = Errorf(CodeInternal, "no response")
		}
		if err := enc.Encode(resp); err != nil {
			s.logger.Debug("Failed to write IPC response", zap.Error(err))
		}
		return
	}

	streamer, ok := s.handler.(Streamer)
	if !ok {
		enc.Encode(Errorf(CodeInvalid, "streaming not supported"))
		return
	}

	// The client never writes after its request; a decode returning means it hung up
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		var discard json.RawMessage
		dec.Decode(&discard)
		cancel()
	}()

	var mu sync.Mutex
	send := func(resp *Response) error {
		mu.Lock()
		defer mu.Unlock()
		return enc.Encode(resp)
	}
	if err := streamer.Stream(streamCtx, &req, send); err != nil && streamCtx.Err() == nil {
		send(Errorf(CodeInternal, "%v", err))
	}
}
