// Package app assembles the sentinel-rag command tree.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/sentinel-rag/cmd/rag/app/options"
	"github.com/kart-io/sentinel-rag/pkg/infra/app"
)

// Name 应用名, 同时用作环境变量前缀 (SENTINEL_RAG_) 与日志中的 service.name。
const Name = "sentinel-rag"

const commandDesc = `Sentinel RAG is a minimal retrieval-augmented question answering service.

Documents added through POST /add are embedded and stored.
Each question sent to POST /query is answered by the generation
model using the single closest document as context. When the store holds
nothing relevant the service answers 404 without calling the model.`

// NewApp 创建根命令, 默认动作是启动 HTTP 服务。
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(Name),
		app.WithShortDescription("Retrieval-augmented question answering over a small knowledge base"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			ctx, stop := signalContext()
			defer stop()
			return serve(ctx, opts)
		}),
		app.WithCommands(
			newIngestCommand(opts),
			newCheckCommand(opts),
		),
	)
}

func serve(ctx context.Context, opts *options.ServerOptions) error {
	cfg, err := opts.Config()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	srv, err := cfg.NewServer(ctx)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Run(ctx)
}

// signalContext 在收到 SIGINT 或 SIGTERM 时取消。
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
