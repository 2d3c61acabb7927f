// Package server provides server manager configuration and lifecycle management.
package server

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-rag/pkg/options"
	httpopts "github.com/kart-io/sentinel-rag/pkg/options/server/http"
)

var _ options.IOptions = (*Options)(nil)

// Options contains all configuration for the server manager.
type Options struct {
	// HTTP contains HTTP server options.
	HTTP *httpopts.Options `json:"http" mapstructure:"http"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewOptions creates a new Options with default values.
func NewOptions() *Options {
	return &Options{
		HTTP:            httpopts.NewOptions(),
		ShutdownTimeout: 30 * time.Second,
	}
}

// AddFlags adds flags for server options to the specified FlagSet.
// 生成的标志形如 server.http.addr 与 server.shutdown-timeout。
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := append(append([]string{}, prefixes...), "server")
	fs.DurationVar(&o.ShutdownTimeout, options.Join(prefix...)+"shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout.")
	o.HTTP.AddFlags(fs, prefix...)
}

// Validate validates all server options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.shutdown-timeout must be positive"))
	}
	errs = append(errs, o.HTTP.Validate()...)
	return errs
}

// Complete completes all server options with defaults.
func (o *Options) Complete() error {
	if o.HTTP == nil {
		o.HTTP = httpopts.NewOptions()
	}
	return o.HTTP.Complete()
}
