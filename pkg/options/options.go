// Package options 定义各组件配置项的公共约定。
//
// 每个组件的 Options 通过 AddFlags 注册带前缀的命令行参数, 参数名与
// 配置文件中的 mapstructure 键一一对应, 例如 "rag.min-score"。
package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// IOptions 所有组件配置实现的接口。
type IOptions interface {
	// AddFlags 以 prefixes 为前缀注册参数。
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
	// Validate 返回全部校验错误, 不在第一个错误处停止。
	Validate() []error
}

// Completer 在校验之前补全默认值的配置。
type Completer interface {
	Complete() error
}

// Join 拼接前缀, 非空时末尾带 "."。
func Join(prefixes ...string) string {
	joined := strings.Join(prefixes, ".")
	if joined != "" {
		joined += "."
	}
	return joined
}

// Complete 依次补全实现了 Completer 的配置, 遇到第一个错误即返回。
func Complete(opts ...any) error {
	for _, o := range opts {
		if c, ok := o.(Completer); ok {
			if err := c.Complete(); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateAll 汇总多个配置的校验错误。
func ValidateAll(opts ...IOptions) []error {
	var errs []error
	for _, o := range opts {
		errs = append(errs, o.Validate()...)
	}
	return errs
}
