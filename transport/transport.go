// Package transport adapts the invocation state machine onto a real
// bidirectional byte stream (spec.md §2 component l): a thin net.Conn
// wrapper plus an in-memory duplex pipe for tests, so invocation/Machine
// itself never imports net.
package transport

import (
	"context"
	"errors"
	"net"

	"github.com/flowcraft/durable/durerr"
	"github.com/flowcraft/durable/internal/metrics"
	"github.com/flowcraft/durable/internal/ops"
	"github.com/flowcraft/durable/invocation"
)

// Server accepts connections on a net.Listener and drives one Machine per
// connection through handler.
type Server struct {
	Listener net.Listener
	Metrics  *metrics.Metrics
	Log      ops.Publisher
	Handler  invocation.HandlerFunc
}

// NewServer returns a Server that will drive handler for every accepted
// connection.
func NewServer(l net.Listener, m *metrics.Metrics, log ops.Publisher, handler invocation.HandlerFunc) *Server {
	return &Server{Listener: l, Metrics: m, Log: log, Handler: handler}
}

// Serve accepts connections until ctx is cancelled or Accept fails. Each
// connection is handled on its own goroutine and closed when its
// invocation completes.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.Listener.Close()
	}()

	for {
		conn, err := s.Listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.serveConn(ctx, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	var m = invocation.New(conn, conn, s.Metrics, s.Log)
	in, err := m.Start(ctx)
	if err != nil {
		if s.Log != nil {
			ops.Log(s.Log, ops.LevelError, "invocation handshake failed", "error", err)
		}
		return
	}
	if err := m.Run(ctx, s.Handler, in); err != nil {
		var suspended *durerr.Suspended
		if errors.As(err, &suspended) {
			if s.Log != nil {
				ops.Log(s.Log, ops.LevelInfo, "invocation suspended", "awaiting", suspended.AwaitingIndexes)
			}
			return
		}
		if s.Log != nil {
			ops.Log(s.Log, ops.LevelError, "invocation run failed", "error", err)
		}
	}
}
