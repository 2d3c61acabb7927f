// Package tracing 初始化 OpenTelemetry, 并为 HTTP 请求与检索流程提供 span 工具。
package tracing

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-rag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// SamplerType 采样策略。
type SamplerType string

const (
	SamplerAlwaysOn  SamplerType = "always_on"
	SamplerAlwaysOff SamplerType = "always_off"
	SamplerRatio     SamplerType = "ratio"
	// SamplerParentBased 有父 span 时沿用父 span 的决定, 否则按比例采样。
	SamplerParentBased SamplerType = "parent_based"
)

// ExporterType span 导出方式。
type ExporterType string

const (
	ExporterOTLPGRPC ExporterType = "otlp_grpc"
	ExporterOTLPHTTP ExporterType = "otlp_http"
	ExporterStdout   ExporterType = "stdout"
	// ExporterNoop 产生 trace id 但丢弃 span, 便于只在日志里关联请求。
	ExporterNoop ExporterType = "noop"
)

// envOTLPEndpoint 未配置 endpoint 时读取的标准环境变量。
const envOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"

// Options 链路追踪配置, 默认关闭。
type Options struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	ServiceName      string `json:"service-name" mapstructure:"service-name"`
	ServiceVersion   string `json:"service-version" mapstructure:"service-version"`
	ServiceNamespace string `json:"service-namespace" mapstructure:"service-namespace"`
	Environment      string `json:"environment" mapstructure:"environment"`

	ExporterType ExporterType `json:"exporter-type" mapstructure:"exporter-type"`
	// Endpoint gRPC 为 "host:4317", HTTP 为 "host:4318"。
	Endpoint string            `json:"endpoint" mapstructure:"endpoint"`
	Insecure bool              `json:"insecure" mapstructure:"insecure"`
	Headers  map[string]string `json:"headers" mapstructure:"headers"`

	SamplerType  SamplerType `json:"sampler-type" mapstructure:"sampler-type"`
	SamplerRatio float64     `json:"sampler-ratio" mapstructure:"sampler-ratio"`

	BatchTimeout  time.Duration `json:"batch-timeout" mapstructure:"batch-timeout"`
	BatchMaxSize  int           `json:"batch-max-size" mapstructure:"batch-max-size"`
	ExportTimeout time.Duration `json:"export-timeout" mapstructure:"export-timeout"`
	MaxQueueSize  int           `json:"max-queue-size" mapstructure:"max-queue-size"`

	ResourceAttributes map[string]string `json:"resource-attributes" mapstructure:"resource-attributes"`
}

// NewOptions creates default tracing options.
func NewOptions() *Options {
	return &Options{
		ServiceName:        "sentinel-rag",
		ServiceVersion:     "1.0.0",
		Environment:        "development",
		ExporterType:       ExporterOTLPGRPC,
		Endpoint:           "localhost:4317",
		Insecure:           true,
		Headers:            map[string]string{},
		SamplerType:        SamplerParentBased,
		SamplerRatio:       1.0,
		BatchTimeout:       5 * time.Second,
		BatchMaxSize:       512,
		ExportTimeout:      30 * time.Second,
		MaxQueueSize:       2048,
		ResourceAttributes: map[string]string{},
	}
}

// AddFlags adds flags for tracing options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "tracing."
	fs.BoolVar(&o.Enabled, p+"enabled", o.Enabled, "Export request and retrieval spans via OpenTelemetry.")
	fs.StringVar(&o.ServiceName, p+"service-name", o.ServiceName, "service.name resource attribute.")
	fs.StringVar(&o.ServiceNamespace, p+"service-namespace", o.ServiceNamespace, "service.namespace resource attribute.")
	fs.StringVar(&o.Environment, p+"environment", o.Environment, "deployment.environment resource attribute.")
	fs.StringVar((*string)(&o.ExporterType), p+"exporter-type", string(o.ExporterType), "Span exporter: otlp_grpc, otlp_http, stdout or noop.")
	fs.StringVar(&o.Endpoint, p+"endpoint", o.Endpoint, "OTLP collector endpoint. Falls back to "+envOTLPEndpoint+" when empty.")
	fs.BoolVar(&o.Insecure, p+"insecure", o.Insecure, "Connect to the collector without TLS.")
	fs.StringToStringVar(&o.Headers, p+"headers", o.Headers, "Extra headers sent with every OTLP export, e.g. authorization=token.")
	fs.StringVar((*string)(&o.SamplerType), p+"sampler-type", string(o.SamplerType), "Sampler: always_on, always_off, ratio or parent_based.")
	fs.Float64Var(&o.SamplerRatio, p+"sampler-ratio", o.SamplerRatio, "Sampling ratio in [0, 1] for ratio based samplers.")
	fs.DurationVar(&o.BatchTimeout, p+"batch-timeout", o.BatchTimeout, "Maximum delay before a batch of spans is exported.")
	fs.IntVar(&o.BatchMaxSize, p+"batch-max-size", o.BatchMaxSize, "Maximum number of spans per export.")
	fs.DurationVar(&o.ExportTimeout, p+"export-timeout", o.ExportTimeout, "Timeout of a single export call.")
	fs.IntVar(&o.MaxQueueSize, p+"max-queue-size", o.MaxQueueSize, "Spans buffered before new ones are dropped.")
	fs.StringToStringVar(&o.ResourceAttributes, p+"resource-attributes", o.ResourceAttributes, "Extra resource attributes attached to all spans.")
}

// Complete 初始化空 map, endpoint 为空时读取 OTEL_EXPORTER_OTLP_ENDPOINT。
func (o *Options) Complete() error {
	if o.Headers == nil {
		o.Headers = map[string]string{}
	}
	if o.ResourceAttributes == nil {
		o.ResourceAttributes = map[string]string{}
	}
	if o.Endpoint == "" {
		o.Endpoint = os.Getenv(envOTLPEndpoint)
	}
	return nil
}

// Validate 校验配置。关闭时不做任何检查。
func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	var errs []error
	if o.ServiceName == "" {
		errs = append(errs, errors.New("tracing.service-name is required when tracing is enabled"))
	}

	if _, ok := exporters[o.ExporterType]; !ok {
		errs = append(errs, fmt.Errorf("tracing.exporter-type %q is not supported", o.ExporterType))
	} else if o.remote() && o.Endpoint == "" {
		errs = append(errs, fmt.Errorf("tracing.endpoint is required for exporter %s", o.ExporterType))
	}

	switch o.SamplerType {
	case SamplerAlwaysOn, SamplerAlwaysOff, SamplerRatio, SamplerParentBased:
	default:
		errs = append(errs, fmt.Errorf("tracing.sampler-type %q is not supported", o.SamplerType))
	}
	if o.SamplerRatio < 0 || o.SamplerRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sampler-ratio must be within [0, 1], got %g", o.SamplerRatio))
	}

	positive := map[string]bool{
		"batch-timeout":  o.BatchTimeout > 0,
		"batch-max-size": o.BatchMaxSize > 0,
		"export-timeout": o.ExportTimeout > 0,
		"max-queue-size": o.MaxQueueSize > 0,
	}
	for _, name := range []string{"batch-timeout", "batch-max-size", "export-timeout", "max-queue-size"} {
		if !positive[name] {
			errs = append(errs, fmt.Errorf("tracing.%s must be positive", name))
		}
	}
	return errs
}

func (o *Options) remote() bool {
	return o.ExporterType == ExporterOTLPGRPC || o.ExporterType == ExporterOTLPHTTP
}
