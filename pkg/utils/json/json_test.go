package json

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addRequest struct {
	Text string `json:"text"`
	ID   string `json:"id,omitempty"`
}

func TestMarshalUnmarshal(t *testing.T) {
	data, err := Marshal(addRequest{Text: "Kubernetes is a container orchestration platform."})
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"Kubernetes is a container orchestration platform."}`, string(data))

	var got addRequest
	require.NoError(t, Unmarshal(data, &got))
	assert.Equal(t, "Kubernetes is a container orchestration platform.", got.Text)
	assert.Empty(t, got.ID)
}

func TestEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).Encode(map[string]string{"answer": "ok"}))

	var out map[string]string
	require.NoError(t, NewDecoder(strings.NewReader(buf.String())).Decode(&out))
	assert.Equal(t, "ok", out["answer"])
}

func TestVector(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
		want []float32
	}{
		{name: "values", in: []float32{0.5, -0.25, 1}, want: []float32{0.5, -0.25, 1}},
		{name: "empty", in: []float32{}, want: []float32{}},
		{name: "nil", in: nil, want: []float32{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := MarshalVector(tt.in)
			require.NoError(t, err)

			got, err := UnmarshalVector(s)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnmarshalVectorInvalid(t *testing.T) {
	_, err := UnmarshalVector("not-json")
	assert.Error(t, err)
}
