// Package sqlite provides options for the embedded SQLite document store.
package sqlite

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-rag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options SQLite 配置。
type Options struct {
	// Path 数据库文件路径, ":memory:" 表示内存库。
	Path string `json:"path" mapstructure:"path"`

	// LogLevel GORM 日志级别: 1=silent, 2=error, 3=warn, 4=info。
	LogLevel int `json:"log-level" mapstructure:"log-level"`

	// SlowThreshold 慢查询阈值。
	SlowThreshold time.Duration `json:"slow-threshold" mapstructure:"slow-threshold"`
}

// NewOptions creates default SQLite options.
func NewOptions() *Options {
	return &Options{
		Path:          "./db/rag.db",
		LogLevel:      2,
		SlowThreshold: 200 * time.Millisecond,
	}
}

// AddFlags adds flags for SQLite options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Path, options.Join(prefixes...)+"sqlite.path", o.Path, "SQLite database file path.")
	fs.IntVar(&o.LogLevel, options.Join(prefixes...)+"sqlite.log-level", o.LogLevel, "GORM log level (1=silent, 2=error, 3=warn, 4=info).")
	fs.DurationVar(&o.SlowThreshold, options.Join(prefixes...)+"sqlite.slow-threshold", o.SlowThreshold, "Slow query threshold.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.Path == "" {
		errs = append(errs, fmt.Errorf("sqlite path is required"))
	}
	if o.LogLevel < 1 || o.LogLevel > 4 {
		errs = append(errs, fmt.Errorf("sqlite log-level must be between 1 and 4"))
	}
	return errs
}
