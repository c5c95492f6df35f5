// Package daemon serves the engine over newline-delimited JSON-RPC
// 2.0 on a platform-native local socket, with a deterministic socket
// name derived from the repository's canonical path. It carries the
// long-lived daemon state the engine itself doesn't own: performance
// metrics, and the prefetch cache fed by IDE events.
package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/steeltroops-ai/omnicontext/internal/engine"
	"github.com/steeltroops-ai/omnicontext/internal/errs"
	"github.com/steeltroops-ai/omnicontext/internal/workspace"
)

// maxLineBytes bounds one request line; a line past this is a protocol
// violation, not a legitimate query.
const maxLineBytes = 4 << 20

// Server is one repository's daemon: the engine plus the daemon-side
// state (metrics, prefetch cache) and the transport loop.
type Server struct {
	engine   *engine.Engine
	prefetch *PrefetchCache
	metrics  *PerformanceMetrics
	started  time.Time

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	shutdown chan struct{}
}

// New wraps an opened engine in a daemon server.
func New(e *engine.Engine) *Server {
	return &Server{
		engine:   e,
		prefetch: NewPrefetchCache(0, 0),
		metrics:  &PerformanceMetrics{},
		started:  time.Now(),
		conns:    make(map[net.Conn]struct{}),
		shutdown: make(chan struct{}),
	}
}

// SocketPath returns the deterministic socket address for this
// server's repository.
func (s *Server) SocketPath() string {
	return workspace.SocketPath(s.engine.RepoRoot())
}

// ListenAndServe binds the repository's socket and serves until ctx is
// cancelled or a client calls `shutdown`. A stale socket file left by
// a crashed daemon is removed before binding.
func (s *Server) ListenAndServe(ctx context.Context) error {
	path := s.SocketPath()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("daemon: remove stale socket %s: %w", path, err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("daemon: listen on %s: %w", path, err)
	}
	defer os.Remove(path)
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or a client
// calls `shutdown`. Each connection is handled on its own goroutine;
// the engine serializes internally where it must.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.shutdown:
		}
		ln.Close()
		s.closeConns()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			wg.Wait()
			select {
			case <-ctx.Done():
				return nil
			case <-s.shutdown:
				return nil
			default:
				return fmt.Errorf("daemon: accept: %w", err)
			}
		}
		s.trackConn(conn)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer s.untrackConn(conn)
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) trackConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrackConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

// closeConns unblocks handler goroutines stuck reading from clients
// that outlive the listener.
func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}

// handleConn reads newline-delimited requests until the client hangs
// up, answering each on the same connection in order.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	connID := uuid.NewString()[:8]

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	writer := bufio.NewWriter(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var resp Response
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			resp = errorResponse(nil, errs.CodeParseError, fmt.Sprintf("invalid request: %v", err))
		} else {
			resp = s.dispatch(ctx, req)
		}

		payload, err := json.Marshal(resp)
		if err != nil {
			payload, _ = json.Marshal(errorResponse(req.ID, errs.CodeInternalError, "response serialization failed"))
		}
		payload = append(payload, '\n')
		if _, err := writer.Write(payload); err != nil {
			log.Printf("daemon: conn=%s write: %v", connID, err)
			return
		}
		if err := writer.Flush(); err != nil {
			log.Printf("daemon: conn=%s flush: %v", connID, err)
			return
		}

		select {
		case <-s.shutdown:
			return
		case <-ctx.Done():
			return
		default:
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Printf("daemon: conn=%s read: %v", connID, err)
	}
}

// requestShutdown closes the shutdown channel once; later calls are
// no-ops.
func (s *Server) requestShutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.shutdown:
	default:
		close(s.shutdown)
	}
}
