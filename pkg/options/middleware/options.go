// Package middleware 描述 HTTP 中间件的启用顺序与各自参数。
package middleware

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-rag/pkg/options"
)

// 中间件名称, 也是 middleware.enabled 中可用的取值。
const (
	MiddlewareRecovery  = "recovery"
	MiddlewareRequestID = "request-id"
	MiddlewareLogger    = "logger"
	MiddlewareTracing   = "tracing"
	MiddlewareMetrics   = "metrics"
	MiddlewareHealth    = "health"
)

// 请求 ID 生成器。
const (
	GeneratorHex  = "hex"
	GeneratorULID = "ulid"
)

var _ options.IOptions = (*Options)(nil)

// Options 聚合 HTTP 中间件配置。
// Middleware 决定启用哪些中间件以及应用顺序, 各子配置只描述参数。
type Options struct {
	Middleware []string `json:"middleware" mapstructure:"middleware"`

	Recovery  *RecoveryOptions  `json:"recovery" mapstructure:"recovery"`
	RequestID *RequestIDOptions `json:"request-id" mapstructure:"request-id"`
	Logger    *LoggerOptions    `json:"logger" mapstructure:"logger"`
	Metrics   *MetricsOptions   `json:"metrics" mapstructure:"metrics"`
	Health    *HealthOptions    `json:"health" mapstructure:"health"`
}

// RecoveryOptions panic 恢复。
type RecoveryOptions struct {
	// EnableStackTrace 在非生产环境下将堆栈写入错误响应。
	EnableStackTrace bool `json:"enable-stack-trace" mapstructure:"enable-stack-trace"`
}

// RequestIDOptions 请求 ID 透传与生成。
type RequestIDOptions struct {
	Header string `json:"header" mapstructure:"header"`
	// GeneratorType "hex" 为 32 位十六进制, "ulid" 为 26 位可排序 ID。
	GeneratorType string `json:"generator" mapstructure:"generator"`
}

// LoggerOptions 访问日志。
type LoggerOptions struct {
	SkipPaths []string `json:"skip-paths" mapstructure:"skip-paths"`
}

// MetricsOptions HTTP 指标, RAG 业务指标复用 Namespace。
type MetricsOptions struct {
	Path      string `json:"path" mapstructure:"path"`
	Namespace string `json:"namespace" mapstructure:"namespace"`
	Subsystem string `json:"subsystem" mapstructure:"subsystem"`
}

// HealthOptions 健康检查路由。
type HealthOptions struct {
	Path string `json:"path" mapstructure:"path"`
}

func NewRecoveryOptions() *RecoveryOptions { return &RecoveryOptions{} }

func NewRequestIDOptions() *RequestIDOptions {
	return &RequestIDOptions{Header: "X-Request-ID", GeneratorType: GeneratorHex}
}

func NewLoggerOptions() *LoggerOptions {
	return &LoggerOptions{SkipPaths: []string{"/healthz", "/metrics"}}
}

func NewMetricsOptions() *MetricsOptions {
	return &MetricsOptions{Path: "/metrics", Namespace: "sentinel", Subsystem: "http"}
}

func NewHealthOptions() *HealthOptions { return &HealthOptions{Path: "/healthz"} }

// NewOptions 创建默认中间件选项。
func NewOptions() *Options {
	return &Options{
		Middleware: DefaultMiddlewareOrder(),
		Recovery:   NewRecoveryOptions(),
		RequestID:  NewRequestIDOptions(),
		Logger:     NewLoggerOptions(),
		Metrics:    NewMetricsOptions(),
		Health:     NewHealthOptions(),
	}
}

// DefaultMiddlewareOrder 返回默认的中间件顺序。
// recovery 必须最先执行, request-id 需要先于 logger 和 tracing。
func DefaultMiddlewareOrder() []string {
	return []string{
		MiddlewareRecovery,
		MiddlewareRequestID,
		MiddlewareLogger,
		MiddlewareTracing,
		MiddlewareMetrics,
		MiddlewareHealth,
	}
}

// IsEnabled 判断中间件是否启用。
func (o *Options) IsEnabled(name string) bool {
	return o != nil && slices.Contains(o.Middleware, name)
}

// AddFlags adds flags for middleware options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "middleware."
	fs.StringSliceVar(&o.Middleware, p+"enabled", o.Middleware, "Ordered list of enabled HTTP middleware.")

	fs.BoolVar(&o.Recovery.EnableStackTrace, p+"recovery.enable-stack-trace", o.Recovery.EnableStackTrace,
		"Include the panic stack trace in error responses (ignored in production).")
	fs.StringVar(&o.RequestID.Header, p+"request-id.header", o.RequestID.Header, "Request ID header name.")
	fs.StringVar(&o.RequestID.GeneratorType, p+"request-id.generator", o.RequestID.GeneratorType,
		"ID generator type: hex (32 chars) or ulid (26 chars, sortable).")
	fs.StringSliceVar(&o.Logger.SkipPaths, p+"logger.skip-paths", o.Logger.SkipPaths, "Paths excluded from the access log.")
	fs.StringVar(&o.Metrics.Path, p+"metrics.path", o.Metrics.Path, "Prometheus scrape path.")
	fs.StringVar(&o.Metrics.Namespace, p+"metrics.namespace", o.Metrics.Namespace, "Metric name namespace.")
	fs.StringVar(&o.Metrics.Subsystem, p+"metrics.subsystem", o.Metrics.Subsystem, "Metric name subsystem for HTTP metrics.")
	fs.StringVar(&o.Health.Path, p+"health.path", o.Health.Path, "Health check path.")
}

// Validate validates the middleware options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	known := DefaultMiddlewareOrder()
	seen := make(map[string]struct{}, len(o.Middleware))
	for _, name := range o.Middleware {
		if !slices.Contains(known, name) {
			errs = append(errs, fmt.Errorf("unknown middleware: %q", name))
			continue
		}
		if _, dup := seen[name]; dup {
			errs = append(errs, fmt.Errorf("middleware %q listed more than once", name))
		}
		seen[name] = struct{}{}
	}
	if o.IsEnabled(MiddlewareRecovery) && o.Middleware[0] != MiddlewareRecovery {
		errs = append(errs, fmt.Errorf("middleware %q must be first", MiddlewareRecovery))
	}

	if o.RequestID.Header == "" {
		errs = append(errs, errors.New("middleware.request-id.header is required"))
	}
	switch o.RequestID.GeneratorType {
	case GeneratorHex, GeneratorULID, "":
	default:
		errs = append(errs, fmt.Errorf("middleware.request-id.generator %q must be hex or ulid", o.RequestID.GeneratorType))
	}
	if o.IsEnabled(MiddlewareMetrics) {
		if !strings.HasPrefix(o.Metrics.Path, "/") {
			errs = append(errs, errors.New("middleware.metrics.path must start with '/'"))
		}
		if o.Metrics.Namespace == "" {
			errs = append(errs, errors.New("middleware.metrics.namespace is required"))
		}
	}
	if o.IsEnabled(MiddlewareHealth) && !strings.HasPrefix(o.Health.Path, "/") {
		errs = append(errs, errors.New("middleware.health.path must start with '/'"))
	}
	return errs
}

// Complete 填充缺失的子配置。
func (o *Options) Complete() error {
	if o.Recovery == nil {
		o.Recovery = NewRecoveryOptions()
	}
	if o.RequestID == nil {
		o.RequestID = NewRequestIDOptions()
	}
	if o.RequestID.GeneratorType == "" {
		o.RequestID.GeneratorType = GeneratorHex
	}
	if o.Logger == nil {
		o.Logger = NewLoggerOptions()
	}
	if o.Metrics == nil {
		o.Metrics = NewMetricsOptions()
	}
	if o.Health == nil {
		o.Health = NewHealthOptions()
	}
	return nil
}
