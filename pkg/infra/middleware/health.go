package middleware

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	mwopts "github.com/kart-io/sentinel-rag/pkg/options/middleware"
)

// HealthStatus represents the health status.
type HealthStatus string

const (
	// HealthStatusUp indicates the service is healthy.
	HealthStatusUp HealthStatus = "UP"
	// HealthStatusDown indicates the service is unhealthy.
	HealthStatusDown HealthStatus = "DOWN"
)

// defaultCheckTimeout 单次健康检查的超时时间。
const defaultCheckTimeout = 3 * time.Second

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  HealthStatus           `json:"status"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
	Version string                 `json:"version,omitempty"`
}

// CheckResult represents an individual health check result.
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// HealthChecker is a function that performs a health check.
type HealthChecker func(ctx context.Context) error

// HealthManager manages health checks.
type HealthManager struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	version  string
	timeout  time.Duration
}

// NewHealthManager creates a new health manager.
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checkers: make(map[string]HealthChecker),
		version:  version,
		timeout:  defaultCheckTimeout,
	}
}

// RegisterChecker registers a health checker.
func (h *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// Check performs all health checks.
func (h *HealthManager) Check(ctx context.Context) HealthResponse {
	h.mu.RLock()
	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	checkers := make(map[string]HealthChecker, len(h.checkers))
	for k, v := range h.checkers {
		checkers[k] = v
	}
	h.mu.RUnlock()
	sort.Strings(names)

	resp := HealthResponse{
		Status:  HealthStatusUp,
		Version: h.version,
	}
	if len(names) == 0 {
		return resp
	}

	resp.Checks = make(map[string]CheckResult, len(names))
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
		err := checkers[name](checkCtx)
		cancel()

		if err != nil {
			resp.Status = HealthStatusDown
			resp.Checks[name] = CheckResult{Status: HealthStatusDown, Message: err.Error()}
			continue
		}
		resp.Checks[name] = CheckResult{Status: HealthStatusUp}
	}
	return resp
}

// RegisterHealthRoutes 在 engine 上注册健康检查端点。
// 任一检查失败时返回 503。
func RegisterHealthRoutes(engine *gin.Engine, opts mwopts.HealthOptions, manager *HealthManager) {
	if manager == nil {
		manager = NewHealthManager("")
	}
	engine.GET(opts.Path, func(c *gin.Context) {
		resp := manager.Check(c.Request.Context())
		status := http.StatusOK
		if resp.Status == HealthStatusDown {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, resp)
	})
}
