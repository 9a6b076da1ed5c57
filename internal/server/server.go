package server

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// acceptRetryBackoff is the pause after a transient accept failure before
// the loop tries again.
const acceptRetryBackoff = 100 * time.Millisecond

// Handler routes one decoded request to a response. It must not panic
// escape; the server converts handler panics into error responses.
type Handler interface {
	Handle(ctx context.Context, req Request) Response
}

// Server accepts request/response connections on a unix socket. Each
// connection carries exactly one request and one response.
type Server struct {
	handler  Handler
	logger   *logrus.Entry
	listener net.Listener

	mu   sync.Mutex
	done bool
}

// New creates a Server dispatching to handler.
func New(handler Handler, logger *logrus.Entry) *Server {
	return &Server{handler: handler, logger: logger}
}

// ListenAndServe binds the unix socket and serves until Shutdown or the
// context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, socketPath string) error {
	// Cleanup stale socket
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(socketPath), 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}

	// Set restrictive permissions on socket
	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	s.logger.WithField("socket", socketPath).Info("Daemon listening")
	return s.acceptLoop(ctx)
}

func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.done
			s.mu.Unlock()
			if closed || ctx.Err() != nil {
				return nil
			}
			s.logger.WithError(err).Warn("Accept failed, retrying")
			time.Sleep(acceptRetryBackoff)
			continue
		}
		go s.serveConn(ctx, conn)
	}
}

// serveConn handles a single connection: one request, one response.
func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	req, err := ReadRequest(conn)
	if err != nil {
		s.logger.WithError(err).Debug("Rejected request")
		s.writeAndClose(conn, ErrResponse(err))
		return
	}

	resp := s.safeHandle(ctx, req)
	s.writeAndClose(conn, resp)
}

// safeHandle converts a handler panic into an error response so one bad
// request never takes the daemon down.
func (s *Server) safeHandle(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("Handler panic for %s.%s: %v", req.Namespace, req.Cmd, r)
			resp = ErrResponse(fmt.Errorf("internal error handling %s.%s", req.Namespace, req.Cmd))
		}
	}()
	return s.handler.Handle(ctx, req)
}

func (s *Server) writeAndClose(conn net.Conn, resp Response) {
	if err := WriteResponse(conn, resp); err != nil {
		s.logger.WithError(err).Debug("Failed to write response")
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		_ = uc.CloseWrite()
	}
}

// Shutdown stops accepting connections and closes the listener.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	if s.listener != nil {
		s.logger.Info("Shutting down server...")
		_ = s.listener.Close()
	}
}
