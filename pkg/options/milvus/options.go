// Package milvusopts provides options for Milvus client configuration.
package milvusopts

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-rag/pkg/options"
)

// maxVarChar 是 Milvus VarChar 字段允许的最大长度。
const maxVarChar = 65535

var _ options.IOptions = (*Options)(nil)

// Options Milvus 文档存储配置。
type Options struct {
	Address  string        `json:"address" mapstructure:"address"`
	Database string        `json:"database" mapstructure:"database"`
	Username string        `json:"username" mapstructure:"username"`
	Password string        `json:"-" mapstructure:"password"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`

	// Collection 文档集合名, 不存在时按 rag.embedding-dim 创建。
	Collection string `json:"collection" mapstructure:"collection"`

	// MaxContentLength 文本字段的 VarChar 容量, 超长文档在写入前被拒绝。
	MaxContentLength int `json:"max-content-length" mapstructure:"max-content-length"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Address:          "localhost:19530",
		Database:         "default",
		Timeout:          30 * time.Second,
		Collection:       "docs",
		MaxContentLength: maxVarChar,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "milvus."
	fs.StringVar(&o.Address, p+"address", o.Address, "Milvus server address (host:port).")
	fs.StringVar(&o.Database, p+"database", o.Database, "Milvus database name.")
	fs.StringVar(&o.Username, p+"username", o.Username, "Milvus username.")
	fs.StringVar(&o.Password, p+"password", o.Password, "Milvus password.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Timeout for connecting and for each store operation.")
	fs.StringVar(&o.Collection, p+"collection", o.Collection, "Collection holding the knowledge documents.")
	fs.IntVar(&o.MaxContentLength, p+"max-content-length", o.MaxContentLength, "Capacity of the text field; longer documents are rejected.")
}

// Complete 去除地址两侧空白, 空数据库名回退为 "default"。
func (o *Options) Complete() error {
	o.Address = strings.TrimSpace(o.Address)
	if o.Database == "" {
		o.Database = "default"
	}
	return nil
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Address == "" {
		errs = append(errs, errors.New("milvus.address is required"))
	}
	if o.Collection == "" {
		errs = append(errs, errors.New("milvus.collection is required"))
	}
	if o.MaxContentLength <= 0 || o.MaxContentLength > maxVarChar {
		errs = append(errs, errors.New("milvus.max-content-length must be in (0, 65535]"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, errors.New("milvus.timeout must be positive"))
	}
	return errs
}
