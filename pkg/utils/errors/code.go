package errors

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
)

// 服务代码 (AA)
const (
	ServiceCommon = 0
	ServiceRAG    = 20
)

// 类别代码 (BB), 决定未显式指定时的 HTTP 状态码。
const (
	CategorySuccess   = 0
	CategoryRequest   = 1
	CategoryResource  = 4
	CategoryRateLimit = 6
	CategoryInternal  = 7
	CategoryDatabase  = 8
	CategoryCache     = 9
	CategoryNetwork   = 10
	CategoryTimeout   = 11
	CategoryConfig    = 12
)

// MakeCode 组合错误码, 格式 AABBCCC。
func MakeCode(service, category, sequence int) int {
	return service*100000 + category*1000 + sequence
}

// ParseCode 拆分错误码。
func ParseCode(code int) (service, category, sequence int) {
	return code / 100000, (code % 100000) / 1000, code % 1000
}

// GetCategory returns the category part of an error code.
func GetCategory(code int) int {
	_, category, _ := ParseCode(code)
	return category
}

// IsClientError reports whether code belongs to a 4xx category.
func IsClientError(code int) bool {
	c := GetCategory(code)
	return c >= CategoryRequest && c <= CategoryRateLimit
}

// IsServerError reports whether code belongs to a 5xx category.
func IsServerError(code int) bool {
	c := GetCategory(code)
	return c >= CategoryInternal && c <= CategoryConfig
}

// StatusForCategory 返回类别对应的默认 HTTP 状态码。
func StatusForCategory(category int) int {
	switch category {
	case CategorySuccess:
		return http.StatusOK
	case CategoryRequest:
		return http.StatusBadRequest
	case CategoryResource:
		return http.StatusNotFound
	case CategoryRateLimit:
		return http.StatusTooManyRequests
	case CategoryNetwork:
		return http.StatusServiceUnavailable
	case CategoryTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

var (
	catalogMu sync.RWMutex
	catalog   = make(map[int]*Errno)
)

// Register 登记错误码, 同一错误码重复登记会 panic。
func Register(e *Errno) *Errno {
	catalogMu.Lock()
	defer catalogMu.Unlock()

	if existing, ok := catalog[e.Code]; ok {
		panic(fmt.Sprintf("errno code %d already registered: %s", e.Code, existing.MessageEN))
	}
	catalog[e.Code] = e
	return e
}

// Lookup returns the registered Errno for code.
func Lookup(code int) (*Errno, bool) {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	e, ok := catalog[code]
	return e, ok
}

// Registered 按错误码升序返回全部已登记的错误。
func Registered() []*Errno {
	catalogMu.RLock()
	out := make([]*Errno, 0, len(catalog))
	for _, e := range catalog {
		out = append(out, e)
	}
	catalogMu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
