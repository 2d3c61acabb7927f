// Package response provides unified API response structures.
// 所有错误响应都使用 Response 结构, 成功响应可以直接返回业务载荷。
package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/sentinel-rag/pkg/infra/middleware/common"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

// Response is the unified API response structure.
type Response struct {
	// Code is the business error code (0 = success)
	Code int `json:"code"`

	// HTTPCode is the HTTP status code (optional, for client convenience)
	HTTPCode int `json:"http_code,omitempty"`

	// Message is a human-readable message
	Message string `json:"message"`

	// Data contains the response payload (nil for errors)
	Data interface{} `json:"data,omitempty"`

	// RequestID is the unique request identifier for tracing
	RequestID string `json:"request_id,omitempty"`

	// Timestamp is the response timestamp (Unix milliseconds)
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Success creates a successful response with data.
func Success(data interface{}) *Response {
	return &Response{
		Code:     0,
		HTTPCode: http.StatusOK,
		Message:  "success",
		Data:     data,
	}
}

// Err creates an error response from an Errno type.
func Err(e *errors.Errno) *Response {
	if e == nil {
		return Success(nil)
	}
	return &Response{
		Code:     e.Code,
		HTTPCode: e.HTTPStatus(),
		Message:  e.MessageEN,
	}
}

// WithRequestID adds request ID to the response.
func (r *Response) WithRequestID(requestID string) *Response {
	r.RequestID = requestID
	return r
}

// WithTimestamp adds timestamp to the response.
func (r *Response) WithTimestamp(timestamp int64) *Response {
	r.Timestamp = timestamp
	return r
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Code == 0
}

// HTTPStatus returns the appropriate HTTP status code for this response.
// It looks up the registered errno to get the correct HTTP status.
func (r *Response) HTTPStatus() int {
	if r.HTTPCode != 0 {
		return r.HTTPCode
	}

	if r.Code == 0 {
		return http.StatusOK
	}

	if e, ok := errors.Lookup(r.Code); ok {
		return e.HTTPStatus()
	}

	return errors.StatusForCategory(errors.GetCategory(r.Code))
}

// OK 写入成功响应。
func OK(c *gin.Context, data interface{}) {
	write(c, Success(data))
}

// Fail 将 err 转换为 Errno 并写入错误响应。
// 非 Errno 错误按 ErrInternal 处理。
func Fail(c *gin.Context, err error) {
	e := errors.FromError(err)
	resp := Err(e)
	// 附带底层原因, 便于排障; 该字段不属于稳定契约
	if cause := e.Unwrap(); cause != nil {
		resp.Message = resp.Message + ": " + cause.Error()
	}
	write(c, resp)
}

func write(c *gin.Context, r *Response) {
	r.WithRequestID(common.GetRequestID(c.Request.Context())).
		WithTimestamp(time.Now().UnixMilli())
	c.JSON(r.HTTPStatus(), r)
}
