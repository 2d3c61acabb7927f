// Package id 提供文档 ID 与请求 ID 的生成器。
package id

// Generator generates string identifiers.
type Generator interface {
	Generate() string
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func() string

// Generate implements Generator.
func (f GeneratorFunc) Generate() string { return f() }

var (
	defaultUUID = NewUUIDGenerator()
	defaultULID = NewULIDGenerator()
)

// NewUUID returns a random UUID v4 string.
func NewUUID() string { return defaultUUID.Generate() }

// NewULID returns a monotonic ULID string.
func NewULID() string { return defaultULID.Generate() }
