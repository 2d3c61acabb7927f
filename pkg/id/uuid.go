package id

import (
	"io"

	"github.com/google/uuid"
)

// UUIDGenerator generates UUID v4 identifiers.
type UUIDGenerator struct {
	reader io.Reader
}

// UUIDOption is a functional option for UUIDGenerator.
type UUIDOption func(*UUIDGenerator)

// WithReader sets a custom random reader for UUID generation.
func WithReader(r io.Reader) UUIDOption {
	return func(g *UUIDGenerator) {
		g.reader = r
	}
}

// NewUUIDGenerator creates a new UUID v4 generator.
func NewUUIDGenerator(opts ...UUIDOption) *UUIDGenerator {
	g := &UUIDGenerator{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate creates a new UUID v4 string.
// Panics if the random source fails.
func (g *UUIDGenerator) Generate() string {
	s, err := g.GenerateE()
	if err != nil {
		panic("id: failed to generate UUID: " + err.Error())
	}
	return s
}

// GenerateE creates a new UUID v4 string, returning an error on failure.
func (g *UUIDGenerator) GenerateE() (string, error) {
	if g.reader == nil {
		u, err := uuid.NewRandom()
		if err != nil {
			return "", err
		}
		return u.String(), nil
	}
	u, err := uuid.NewRandomFromReader(g.reader)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// IsValidUUID checks if a string is a valid UUID.
func IsValidUUID(s string) bool {
	return uuid.Validate(s) == nil
}
