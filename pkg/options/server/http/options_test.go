package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletePortOnly(t *testing.T) {
	o := NewOptions()
	o.Addr = "9000"
	o.ReadHeaderTimeout = 0
	require.NoError(t, o.Complete())

	assert.Equal(t, ":9000", o.Addr)
	assert.Equal(t, 30*time.Second, o.ReadHeaderTimeout)
	assert.Empty(t, o.Validate())
}

func TestValidate(t *testing.T) {
	o := NewOptions()
	o.Addr = ""
	o.WriteTimeout = 0
	assert.Len(t, o.Validate(), 2)
}
