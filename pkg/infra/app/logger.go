package app

import (
	"fmt"

	"github.com/kart-io/logger"
	"github.com/kart-io/version"

	logopts "github.com/kart-io/sentinel-rag/pkg/options/logger"
)

// InitLogger 初始化全局日志, 并附带服务名与版本字段。
func InitLogger(opts *logopts.Options, serviceName string) error {
	if opts == nil {
		opts = logopts.NewOptions()
	}
	opts.AddInitialField("service.name", serviceName)
	opts.AddInitialField("service.version", GetVersion())
	if err := opts.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// GetVersion 返回构建时注入的 git 版本, 未注入时为 version 包的默认值。
func GetVersion() string {
	return version.Get().GitVersion
}

// FlushLogger flushes any buffered log entries.
func FlushLogger() {
	_ = logger.Flush()
}
