package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/kart-io/logger"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// Runnable 由 Manager 托管的服务。Start 在开始接收请求后返回。
type Runnable interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Manager starts and stops a set of servers with a unified lifecycle.
type Manager struct {
	opts    *Options
	servers []Runnable
	mu      sync.Mutex
	started []Runnable
}

// NewManager creates a new server manager.
func NewManager(opts *Options, servers ...Runnable) *Manager {
	if opts == nil {
		opts = NewOptions()
	}
	return &Manager{
		opts:    opts,
		servers: servers,
	}
}

// AddServer adds a server to the manager. Servers start in the order they were added.
func (m *Manager) AddServer(server Runnable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.servers = append(m.servers, server)
}

// Start starts all servers. 任一启动失败时回滚已启动的服务器。
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started != nil {
		return fmt.Errorf("server manager already started")
	}
	if len(m.servers) == 0 {
		return fmt.Errorf("no servers configured")
	}

	started := make([]Runnable, 0, len(m.servers))
	for _, s := range m.servers {
		if err := s.Start(ctx); err != nil {
			for i := len(started) - 1; i >= 0; i-- {
				_ = started[i].Stop(ctx)
			}
			return fmt.Errorf("failed to start server %s: %w", s.Name(), err)
		}
		logger.Infow("Server started", "name", s.Name())
		started = append(started, s)
	}
	m.started = started
	return nil
}

// Stop stops all started servers in reverse order.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	started := m.started
	m.started = nil
	m.mu.Unlock()

	var errs []error
	for i := len(started) - 1; i >= 0; i-- {
		s := started[i]
		if err := s.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop server %s: %w", s.Name(), err))
			continue
		}
		logger.Infow("Server stopped", "name", s.Name())
	}
	return utilerrors.NewAggregate(errs)
}

// Run starts all servers and blocks until ctx is canceled or SIGINT/SIGTERM arrives,
// then shuts down within ShutdownTimeout.
func (m *Manager) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := m.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), m.opts.ShutdownTimeout)
	defer cancel()
	return m.Stop(shutdownCtx)
}
