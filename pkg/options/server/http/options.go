// Package http provides HTTP server configuration options.
package http

import (
	"errors"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-rag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options HTTP 监听配置。
type Options struct {
	// Addr 监听地址, 只写端口号时补全为 ":<port>"。
	Addr string `json:"addr" mapstructure:"addr"`

	ReadHeaderTimeout time.Duration `json:"read-header-timeout" mapstructure:"read-header-timeout"`
	ReadTimeout       time.Duration `json:"read-timeout" mapstructure:"read-timeout"`
	// WriteTimeout 需要覆盖一次完整的生成调用。
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`
	IdleTimeout  time.Duration `json:"idle-timeout" mapstructure:"idle-timeout"`
}

// NewOptions creates a new Options with default values.
func NewOptions() *Options {
	return &Options{
		Addr:              ":8000",
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// AddFlags adds flags for HTTP options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "http."
	fs.StringVar(&o.Addr, p+"addr", o.Addr, "HTTP bind address, e.g. :8000 or 127.0.0.1:8000.")
	fs.DurationVar(&o.ReadHeaderTimeout, p+"read-header-timeout", o.ReadHeaderTimeout, "Timeout for reading request headers.")
	fs.DurationVar(&o.ReadTimeout, p+"read-timeout", o.ReadTimeout, "Timeout for reading the entire request.")
	fs.DurationVar(&o.WriteTimeout, p+"write-timeout", o.WriteTimeout, "Timeout for writing the response, including answer generation.")
	fs.DurationVar(&o.IdleTimeout, p+"idle-timeout", o.IdleTimeout, "Keep-alive idle timeout.")
}

// Complete 将纯端口号补全为监听地址。
func (o *Options) Complete() error {
	if _, err := strconv.Atoi(o.Addr); err == nil {
		o.Addr = ":" + o.Addr
	}
	if o.ReadHeaderTimeout <= 0 {
		o.ReadHeaderTimeout = o.ReadTimeout
	}
	return nil
}

// Validate validates the HTTP options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Addr == "" {
		errs = append(errs, errors.New("http.addr cannot be empty"))
	}
	if o.ReadTimeout <= 0 {
		errs = append(errs, errors.New("http.read-timeout must be positive"))
	}
	if o.WriteTimeout <= 0 {
		errs = append(errs, errors.New("http.write-timeout must be positive"))
	}
	return errs
}
