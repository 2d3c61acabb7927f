package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheNamespace(t *testing.T) {
	o := NewEmbeddingOptions()
	o.Provider = "ollama"
	assert.Equal(t, "ollama:nomic-embed-text", o.CacheNamespace())

	o.Model = "mxbai-embed-large"
	assert.Equal(t, "ollama:mxbai-embed-large", o.CacheNamespace())

	o.Provider = "hash"
	o.Dimension = 64
	assert.Equal(t, "hash:64", o.CacheNamespace())
}
