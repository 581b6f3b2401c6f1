// Package server runs the HTTP listener with production timeouts and a
// graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Timeouts bound how long a connection may spend in each phase
type Timeouts struct {
	ReadHeader time.Duration
	Read       time.Duration
	Write      time.Duration
	Idle       time.Duration
}

// DefaultTimeouts suit a JSON API whose requests finish in milliseconds
var DefaultTimeouts = Timeouts{
	ReadHeader: 5 * time.Second,
	Read:       15 * time.Second,
	Write:      30 * time.Second,
	Idle:       2 * time.Minute,
}

// Pool sizes the database/sql connection pool. Zero MaxOpen keeps the
// driver's unlimited default.
type Pool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// Option configures a Server
type Option func(*Server)

// WithTimeouts replaces DefaultTimeouts
func WithTimeouts(t Timeouts) Option {
	return func(s *Server) { s.timeouts = t }
}

// WithDatabase sizes db's pool and pings it before New returns
func WithDatabase(db *sql.DB, pool Pool) Option {
	return func(s *Server) {
		s.db = db
		s.pool = pool
	}
}

// Server is an HTTP server bound to an explicit listener, so the address is
// known once Listen returns
type Server struct {
	addr     string
	handler  http.Handler
	timeouts Timeouts
	db       *sql.DB
	pool     Pool

	http     *http.Server
	listener net.Listener
}

// New builds a server for addr. With WithDatabase the pool is configured and
// the database must answer a ping.
func New(addr string, handler http.Handler, opts ...Option) (*Server, error) {
	if handler == nil {
		return nil, errors.New("handler cannot be nil")
	}

	s := &Server{addr: addr, handler: handler, timeouts: DefaultTimeouts}
	for _, opt := range opts {
		opt(s)
	}

	if s.db != nil {
		if err := s.preparePool(); err != nil {
			return nil, err
		}
	}

	s.http = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: s.timeouts.ReadHeader,
		ReadTimeout:       s.timeouts.Read,
		WriteTimeout:      s.timeouts.Write,
		IdleTimeout:       s.timeouts.Idle,
		MaxHeaderBytes:    1 << 20,
	}
	return s, nil
}

func (s *Server) preparePool() error {
	if s.pool.MaxOpen > 0 {
		s.db.SetMaxOpenConns(s.pool.MaxOpen)
	}
	if s.pool.MaxIdle > 0 {
		s.db.SetMaxIdleConns(s.pool.MaxIdle)
	}
	s.db.SetConnMaxLifetime(s.pool.MaxLifetime)
	s.db.SetConnMaxIdleTime(s.pool.MaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

// Listen binds the address without accepting connections yet
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	return nil
}

// Serve accepts connections until Shutdown, binding first when Listen was
// not called. It returns http.ErrServerClosed after a clean shutdown.
func (s *Server) Serve() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	return s.http.Serve(s.listener)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Addr returns the bound address, or the configured one before Listen
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
