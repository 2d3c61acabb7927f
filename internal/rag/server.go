package ragsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-rag/internal/rag/handler"
	"github.com/kart-io/sentinel-rag/internal/rag/router"
	"github.com/kart-io/sentinel-rag/pkg/infra/app"
	"github.com/kart-io/sentinel-rag/pkg/infra/middleware"
	"github.com/kart-io/sentinel-rag/pkg/infra/server"
	httpserver "github.com/kart-io/sentinel-rag/pkg/infra/server/transport/http"
	"github.com/kart-io/sentinel-rag/pkg/infra/tracing"
)

// Server represents the RAG server.
type Server struct {
	srv        *server.Manager
	components *components
	tracer     *tracing.Provider
}

// NewServer initializes and returns a new Server instance.
// 初始化顺序: 日志 -> 链路追踪 -> 依赖组件 -> HTTP 服务, 全部就绪后才开始监听。
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	printBanner(cfg)

	// 1. 初始化日志
	if err := app.InitLogger(cfg.LogOptions, Name); err != nil {
		return nil, err
	}
	logger.Info("Starting RAG service...")

	// 2. 初始化链路追踪
	tp, err := newTracer(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// 3. 初始化存储、供应商与业务层
	comps, err := newComponents(ctx, cfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	// 4. 初始化 HTTP 服务器
	health := middleware.NewHealthManager(app.GetVersion())
	comps.registerHealthCheckers(health)

	httpServer := httpserver.NewServer(cfg.ServerOptions.HTTP, cfg.MiddlewareOptions,
		httpserver.WithHealthManager(health),
		httpserver.WithMetricsRegistry(comps.registry),
	)

	// 5. 注册路由
	router.Register(httpServer.Engine(), handler.NewRAGHandler(comps.service))

	logger.Infow("RAG service is ready",
		"addr", cfg.ServerOptions.HTTP.Addr,
		"middleware", cfg.MiddlewareOptions.Middleware,
	)
	return &Server{
		srv:        server.NewManager(cfg.ServerOptions, httpServer),
		components: comps,
		tracer:     tp,
	}, nil
}

// Run starts the server and blocks until ctx is canceled or a termination signal arrives.
func (s *Server) Run(ctx context.Context) error {
	defer s.release()
	return s.srv.Run(ctx)
}

func (s *Server) release() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.components.close(ctx); err != nil {
		logger.Warnw("Failed to release resources", "error", err.Error())
	}
	if err := s.tracer.Shutdown(ctx); err != nil {
		logger.Warnw("Failed to shutdown tracer provider", "error", err.Error())
	}
	app.FlushLogger()
}

func newTracer(ctx context.Context, cfg *Config) (*tracing.Provider, error) {
	if cfg.TracingOptions.ServiceVersion == "" {
		cfg.TracingOptions.ServiceVersion = app.GetVersion()
	}
	tp, err := tracing.NewProvider(ctx, cfg.TracingOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if tp.Enabled() {
		logger.Infow("Tracing enabled",
			"exporter", cfg.TracingOptions.ExporterType,
			"endpoint", cfg.TracingOptions.Endpoint,
		)
	}
	return tp, nil
}

func printBanner(cfg *Config) {
	fmt.Printf("Starting %s...\n", Name)
	fmt.Printf("  Store: %s\n", cfg.RAGOptions.Store)
	fmt.Printf("  Embedding: %s (%s)\n", cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.Model)
	fmt.Printf("  Generation: %s (%s)\n", cfg.GenerationOptions.Provider, cfg.GenerationOptions.Model)
	fmt.Printf("  Enabled Middlewares: %v\n", cfg.MiddlewareOptions.Middleware)
}
