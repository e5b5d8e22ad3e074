package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nickyhof/SheetDB"
	"github.com/nickyhof/SheetDB/core"
	"github.com/nickyhof/SheetDB/db"
)

// Server exposes a SheetDB instance over TCP. Requests from all connections
// run one at a time.
type Server struct {
	listener   net.Listener
	metricsSrv *http.Server
	instance   *SheetDB.Instance
	identity   core.Identity
	auth       *AuthConfig
	tlsConfig  *tls.Config
	logger     *slog.Logger
	metrics    *Metrics

	mu      sync.Mutex
	engines map[string]*db.Engine

	connMu sync.Mutex
	conns  map[net.Conn]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type ServerOption func(*Server)

// WithAuth requires clients to authenticate with a JWT when cfg.Enabled.
func WithAuth(cfg AuthConfig) ServerOption {
	return func(s *Server) {
		s.auth = &cfg
	}
}

func WithTLS(cfg *tls.Config) ServerOption {
	return func(s *Server) {
		s.tlsConfig = cfg
	}
}

func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithMetrics(metrics *Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// NewServer creates a server. identity authors commits for connections
// that are not authenticated.
func NewServer(instance *SheetDB.Instance, identity core.Identity, opts ...ServerOption) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		instance: instance,
		identity: identity,
		logger:   slog.New(slog.DiscardHandler),
		engines:  make(map[string]*db.Engine),
		conns:    make(map[net.Conn]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	return s
}

// LoadTLSConfig loads the certificate pair named by cfg.
func LoadTLSConfig(cfg TLSConfig) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

func (s *Server) TLSEnabled() bool {
	return s.tlsConfig != nil
}

func (s *Server) AuthEnabled() bool {
	return s.auth != nil && s.auth.Enabled
}

// Start begins listening for connections on addr.
func (s *Server) Start(addr string) error {
	var (
		listener net.Listener
		err      error
	)
	if s.tlsConfig != nil {
		listener, err = tls.Listen("tcp", addr, s.tlsConfig)
	} else {
		listener, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener

	s.logger.Info("server listening", "addr", listener.Addr().String(), "tls", s.TLSEnabled(), "auth", s.AuthEnabled())

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// ServeMetrics exposes /metrics on a separate HTTP listener.
func (s *Server) ServeMetrics(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	s.metricsSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	s.logger.Info("metrics listening", "addr", listener.Addr().String())
	go func() {
		if err := s.metricsSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", "error", err)
		}
	}()
	return nil
}

// Stop closes the listener and every open connection, then waits for the
// connection handlers to return.
func (s *Server) Stop() error {
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}

	s.connMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()

	if s.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.metricsSrv.Shutdown(ctx)
	}
	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}

		s.connMu.Lock()
		s.conns[conn] = struct{}{}
		s.connMu.Unlock()

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.connMu.Lock()
		delete(s.conns, conn)
		s.connMu.Unlock()
		conn.Close()
	}()

	remote := conn.RemoteAddr().String()
	logger := s.logger.With("remote", remote)
	logger.Debug("client connected")
	s.metrics.activeConnections.Inc()
	defer s.metrics.activeConnections.Dec()

	state := &connState{}
	reader := bufio.NewReader(conn)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) && s.ctx.Err() == nil {
				logger.Warn("read failed", "error", err)
			}
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if cmd := strings.ToLower(line); cmd == "quit" || cmd == "exit" {
			logger.Debug("client disconnected")
			return
		}

		response := s.handleLine(logger, line, state)

		data, err := EncodeResponse(response)
		if err != nil {
			logger.Error("failed to encode response", "error", err)
			continue
		}
		if _, err := conn.Write(data); err != nil {
			logger.Warn("write failed", "error", err)
			return
		}
	}
}

func (s *Server) handleLine(logger *slog.Logger, line string, state *connState) Response {
	startTime := time.Now()

	req, err := DecodeRequest([]byte(line))
	if err != nil {
		resp := errorResponse("", fmt.Errorf("%w: %w", db.ErrInvalidRequest, err))
		s.metrics.observe("decode", resp, time.Since(startTime).Seconds())
		return resp
	}

	op := string(req.Op)
	var resp Response
	switch {
	case req.Op == opAuth:
		resp = s.handleAuth(req.Token, state)
	case s.AuthEnabled() && (!state.authenticated || state.expired(time.Now())):
		state.authenticated = false
		resp = errorResponse("", ErrAuthRequired)
	default:
		identity := s.identity
		if state.authenticated {
			identity = state.identity
		}
		resp = s.execute(identity, req.Request)
	}

	if !resp.Success {
		logger.Warn("request failed", "op", op, "table", req.Table, "code", resp.ErrorCode, "error", resp.Error)
	}
	s.metrics.observe(op, resp, time.Since(startTime).Seconds())
	return resp
}

// execute runs one request under the server lock with an engine bound to
// identity.
func (s *Server) execute(identity core.Identity, req db.Request) Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := identity.String()
	engine, ok := s.engines[key]
	if !ok {
		engine = s.instance.Engine(identity)
		s.engines[key] = engine
	}

	result, err := engine.Do(s.ctx, req)
	if err != nil {
		return errorResponse("", err)
	}
	return toResponse(result)
}
