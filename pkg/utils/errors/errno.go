// Package errors 提供 sentinel-rag 统一的错误码体系。
//
// 错误码格式 AABBCCC: AA 为服务 (00 通用, 20 RAG), BB 为类别,
// CCC 为序号。类别决定默认的 HTTP 状态码, 个别错误可以显式覆盖。
//
// Errno 支持 errors.Is 按错误码比较, WithCause 包装底层错误后依然可以匹配:
//
//	err := errors.ErrRAGStoreUnavailable.WithCause(err)
//	errors.Is(err, errors.ErrRAGStoreUnavailable) // true
package errors

import (
	"fmt"
)

// Errno 带错误码与中英文消息的错误。注册后的 Errno 只读, 派生方法返回副本。
type Errno struct {
	Code      int    `json:"code"`
	HTTP      int    `json:"-"`
	MessageEN string `json:"message"`
	MessageZH string `json:"message_zh,omitempty"`

	cause error
}

// New 创建 Errno, httpStatus 为 0 时按类别推导。
func New(code, httpStatus int, messageEN, messageZH string) *Errno {
	if httpStatus == 0 {
		httpStatus = StatusForCategory(GetCategory(code))
	}
	return &Errno{Code: code, HTTP: httpStatus, MessageEN: messageEN, MessageZH: messageZH}
}

func (e *Errno) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("errno %d: %s: %v", e.Code, e.MessageEN, e.cause)
	}
	return fmt.Sprintf("errno %d: %s", e.Code, e.MessageEN)
}

func (e *Errno) Unwrap() error {
	return e.cause
}

// Is 按错误码匹配。
func (e *Errno) Is(target error) bool {
	t, ok := target.(*Errno)
	return ok && e.Code == t.Code
}

func (e *Errno) clone() *Errno {
	c := *e
	return &c
}

// WithCause 返回携带底层错误的副本。
func (e *Errno) WithCause(cause error) *Errno {
	c := e.clone()
	c.cause = cause
	return c
}

// WithMessage 返回替换英文消息的副本。
func (e *Errno) WithMessage(msg string) *Errno {
	c := e.clone()
	c.MessageEN = msg
	return c
}

func (e *Errno) WithMessagef(format string, args ...any) *Errno {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// Message 按语言返回消息, 缺少中文时回退英文。
func (e *Errno) Message(lang string) string {
	switch lang {
	case "zh", "zh-CN", "zh_CN":
		if e.MessageZH != "" {
			return e.MessageZH
		}
	}
	return e.MessageEN
}

// HTTPStatus returns the HTTP status code.
func (e *Errno) HTTPStatus() int {
	if e.HTTP != 0 {
		return e.HTTP
	}
	return StatusForCategory(GetCategory(e.Code))
}

// Format 支持 %+v 输出错误链。
func (e *Errno) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = fmt.Fprintf(s, "errno %d [HTTP %d]: %s", e.Code, e.HTTPStatus(), e.MessageEN)
			if e.cause != nil {
				_, _ = fmt.Fprintf(s, "\ncaused by: %+v", e.cause)
			}
			return
		}
		fallthrough
	case 's':
		_, _ = fmt.Fprint(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}
