// Package json 提供 JSON 编解码封装。
// amd64/arm64 上使用 sonic, 其他平台回退到 encoding/json。
package json

import (
	stdjson "encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/bytedance/sonic"
)

var (
	// Marshal encodes v into JSON bytes.
	Marshal func(v interface{}) ([]byte, error)

	// Unmarshal decodes JSON bytes into v.
	Unmarshal func(data []byte, v interface{}) error

	// NewEncoder creates a new JSON encoder for the writer.
	NewEncoder func(w io.Writer) Encoder

	// NewDecoder creates a new JSON decoder for the reader.
	NewDecoder func(r io.Reader) Decoder

	usingSonic bool
)

// Encoder is a JSON encoder interface.
type Encoder interface {
	Encode(v interface{}) error
}

// Decoder is a JSON decoder interface.
type Decoder interface {
	Decode(v interface{}) error
}

func init() {
	if runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64" {
		api := sonic.ConfigStd
		Marshal = api.Marshal
		Unmarshal = api.Unmarshal
		NewEncoder = func(w io.Writer) Encoder {
			return api.NewEncoder(w)
		}
		NewDecoder = func(r io.Reader) Decoder {
			return api.NewDecoder(r)
		}
		usingSonic = true
		return
	}

	Marshal = stdjson.Marshal
	Unmarshal = stdjson.Unmarshal
	NewEncoder = func(w io.Writer) Encoder {
		return stdjson.NewEncoder(w)
	}
	NewDecoder = func(r io.Reader) Decoder {
		return stdjson.NewDecoder(r)
	}
}

// IsUsingSonic returns true if sonic is being used for JSON operations.
func IsUsingSonic() bool {
	return usingSonic
}

// MarshalVector 将向量编码为 JSON 数组, 用于不支持向量类型的存储。
func MarshalVector(vec []float32) (string, error) {
	if vec == nil {
		vec = []float32{}
	}
	data, err := Marshal(vec)
	if err != nil {
		return "", fmt.Errorf("marshal vector: %w", err)
	}
	return string(data), nil
}

// UnmarshalVector 解码 MarshalVector 的输出。
func UnmarshalVector(s string) ([]float32, error) {
	var vec []float32
	if err := Unmarshal([]byte(s), &vec); err != nil {
		return nil, fmt.Errorf("unmarshal vector: %w", err)
	}
	return vec, nil
}
