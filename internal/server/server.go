package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/go-ozzo/ozzo-validation/is"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/sync/semaphore"
)

const (
	shutdownTimeout   = 5 * time.Second
	maxAcceptBackoff  = time.Second
	initAcceptBackoff = 5 * time.Millisecond
)

// ConnHandler serves a single accepted connection and is responsible for
// closing it.
type ConnHandler interface {
	Handle(ctx context.Context, conn net.Conn)
}

// HandlerFunc adapts a function to ConnHandler.
type HandlerFunc func(ctx context.Context, conn net.Conn)

func (f HandlerFunc) Handle(ctx context.Context, conn net.Conn) {
	f(ctx, conn)
}

type Config struct {
	Host           string
	Port           int
	TLSEnabled     bool
	CertFile       string
	KeyFile        string
	MaxConnections int
}

// Server accepts connections and spawns one goroutine per connection. Without
// MaxConnections the number of in-flight handlers is unbounded.
type Server struct {
	addr      string
	handler   ConnHandler
	logger    *slog.Logger
	tlsConfig *tls.Config
	limiter   *semaphore.Weighted

	mutex    sync.Mutex
	listener net.Listener
	stopLoop context.CancelFunc
	loopDone chan struct{}
	conns    sync.WaitGroup
}

// New validates the listen address and prepares TLS when enabled. TLS setup
// failures are returned here so the process can refuse to start.
func New(cfg Config, handler ConnHandler, logger *slog.Logger) (*Server, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	if err := validateHost(addr); err != nil {
		return nil, err
	}

	srv := &Server{
		addr:    addr,
		handler: handler,
		logger:  logger,
	}

	if cfg.TLSEnabled {
		tlsConfig, err := NewTLSConfig(cfg.CertFile, cfg.KeyFile, logger)
		if err != nil {
			return nil, err
		}
		srv.tlsConfig = tlsConfig
	} else {
		logger.Info("TLS is disabled")
	}

	if cfg.MaxConnections > 0 {
		srv.limiter = semaphore.NewWeighted(int64(cfg.MaxConnections))
	}

	return srv, nil
}

// Start binds the configured address and serves until ctx is cancelled or
// Shutdown is called. Bind failures are returned immediately.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve runs the accept loop on ln. It returns nil once the listener is closed
// by Shutdown or by cancellation of ctx.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.tlsConfig != nil {
		ln = tls.NewListener(ln, s.tlsConfig)
	}

	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()

	loopDone := make(chan struct{})
	s.mutex.Lock()
	s.listener = ln
	s.stopLoop = stopLoop
	s.loopDone = loopDone
	s.mutex.Unlock()
	defer close(loopDone)

	stop := context.AfterFunc(loopCtx, func() {
		ln.Close()
	})
	defer stop()

	s.logger.Info("Server listening",
		slog.String("addr", ln.Addr().String()),
		slog.Bool("tls", s.tlsConfig != nil))

	backoff := initAcceptBackoff
	for {
		if s.limiter != nil {
			if err := s.limiter.Acquire(loopCtx, 1); err != nil {
				return nil
			}
		}

		conn, err := ln.Accept()
		if err != nil {
			s.release()
			if errors.Is(err, net.ErrClosed) {
				return nil
			}

			s.logger.Warn("Accept failed", slog.Any("err", err), slog.Duration("retry_in", backoff))
			time.Sleep(backoff)
			backoff = min(backoff*2, maxAcceptBackoff)
			continue
		}
		backoff = initAcceptBackoff

		s.logger.Debug("Connection accepted", slog.String("remote", conn.RemoteAddr().String()))

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			defer s.release()
			s.handler.Handle(ctx, conn)
		}()
	}
}

// Addr returns the listener address, or nil before Serve has started.
func (s *Server) Addr() net.Addr {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting connections and waits up to five seconds for
// in-flight handlers to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	s.mutex.Lock()
	ln, stopLoop, loopDone := s.listener, s.stopLoop, s.loopDone
	s.mutex.Unlock()

	if ln == nil {
		return nil
	}

	stopLoop()
	if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}

	select {
	case <-loopDone:
	case <-shutdownCtx.Done():
		return shutdownCtx.Err()
	}

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-shutdownCtx.Done():
		return shutdownCtx.Err()
	}
}

func (s *Server) release() {
	if s.limiter != nil {
		s.limiter.Release(1)
	}
}

func validateHost(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cant be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}
