// Package sqlite 打开基于 glebarez/sqlite 的 GORM 连接。
package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	options "github.com/kart-io/sentinel-rag/pkg/options/sqlite"
)

// Client wraps a GORM connection to an SQLite file.
type Client struct {
	db   *gorm.DB
	opts *options.Options
}

// New opens the database, creating parent directories when needed.
func New(ctx context.Context, opts *options.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("sqlite options cannot be nil")
	}

	if opts.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(opts.Path), &gorm.Config{
		Logger: NewGormLogger(gormlogger.LogLevel(opts.LogLevel), opts.SlowThreshold, true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", opts.Path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// SQLite 只允许单写者
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}

	return &Client{
		db:   db,
		opts: opts,
	}, nil
}

// DB returns the GORM handle.
func (c *Client) DB() *gorm.DB {
	return c.db
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
