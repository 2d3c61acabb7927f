// Package http provides the gin based HTTP server.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kart-io/sentinel-rag/pkg/infra/middleware"
	"github.com/kart-io/sentinel-rag/pkg/infra/middleware/observability"
	"github.com/kart-io/sentinel-rag/pkg/infra/middleware/resilience"
	mwopts "github.com/kart-io/sentinel-rag/pkg/options/middleware"
	options "github.com/kart-io/sentinel-rag/pkg/options/server/http"
	apierrors "github.com/kart-io/sentinel-rag/pkg/utils/errors"
	"github.com/kart-io/sentinel-rag/pkg/utils/response"
)

// Server is the HTTP server implementation.
type Server struct {
	opts    *options.Options
	mwOpts  *mwopts.Options
	engine  *gin.Engine
	health  *middleware.HealthManager
	metrics *prometheus.Registry

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// ServerOption configures runtime dependencies of a Server.
type ServerOption func(*Server)

// WithHealthManager sets the manager that backs the health endpoint.
func WithHealthManager(m *middleware.HealthManager) ServerOption {
	return func(s *Server) { s.health = m }
}

// WithMetricsRegistry sets the registry used for HTTP collectors and the /metrics endpoint.
func WithMetricsRegistry(reg *prometheus.Registry) ServerOption {
	return func(s *Server) { s.metrics = reg }
}

// NewServer creates a new HTTP server with the given options.
// 中间件在创建时应用, 之后注册的路由全部继承它们。
func NewServer(serverOpts *options.Options, middlewareOpts *mwopts.Options, opts ...ServerOption) *Server {
	if serverOpts == nil {
		serverOpts = options.NewOptions()
	}
	if middlewareOpts == nil {
		middlewareOpts = mwopts.NewOptions()
	}

	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		opts:   serverOpts,
		mwOpts: middlewareOpts,
		engine: gin.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.applyMiddleware(middlewareOpts)
	s.engine.NoRoute(func(c *gin.Context) {
		response.Fail(c, apierrors.ErrRouteNotFound)
	})
	return s
}

// Name returns the server name.
func (s *Server) Name() string {
	return "http[gin]"
}

// Engine returns the underlying gin.Engine for route registration.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Addr returns the bound listener address, or the configured address before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.opts.Addr
}

// Start binds the listen address and serves in the background.
// 端口占用等绑定错误同步返回。
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("http server already started")
	}

	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: s.opts.ReadHeaderTimeout,
		ReadTimeout:       s.opts.ReadTimeout,
		WriteTimeout:      s.opts.WriteTimeout,
		IdleTimeout:       s.opts.IdleTimeout,
	}

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("HTTP server stopped unexpectedly", "addr", ln.Addr().String(), "error", err)
		}
	}()

	logger.Infow("HTTP server listening", "addr", ln.Addr().String())
	return nil
}

// applyMiddleware applies configured middleware in the configured order.
func (s *Server) applyMiddleware(opts *mwopts.Options) {
	_ = opts.Complete()

	for _, name := range opts.Middleware {
		switch name {
		case mwopts.MiddlewareRecovery:
			s.engine.Use(resilience.RecoveryWithOptions(*opts.Recovery, nil))
		case mwopts.MiddlewareRequestID:
			s.engine.Use(middleware.RequestIDWithOptions(*opts.RequestID, nil))
		case mwopts.MiddlewareLogger:
			s.engine.Use(observability.LoggerWithOptions(*opts.Logger))
		case mwopts.MiddlewareTracing:
			s.engine.Use(observability.Tracing(opts.Health.Path, opts.Metrics.Path))
		case mwopts.MiddlewareMetrics:
			reg := s.metrics
			if reg == nil {
				reg = prometheus.NewRegistry()
				s.metrics = reg
			}
			collector := observability.NewMetricsCollector(*opts.Metrics, reg)
			s.engine.Use(collector.Middleware(*opts.Metrics))
			observability.RegisterMetricsRoutes(s.engine, *opts.Metrics, reg)
		case mwopts.MiddlewareHealth:
			middleware.RegisterHealthRoutes(s.engine, *opts.Health, s.health)
		default:
			logger.Warnw("Unknown middleware ignored", "name", name)
		}
	}
}

// Stop stops the HTTP server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
