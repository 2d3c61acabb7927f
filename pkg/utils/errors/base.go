package errors

import "net/http"

// OK 成功。
var OK = Register(New(0, http.StatusOK, "Success", "成功"))

// 通用错误, 不属于具体业务。
var (
	ErrRouteNotFound      = Register(New(MakeCode(ServiceCommon, CategoryResource, 1), 0, "Route not found", "路由不存在"))
	ErrInternal           = Register(New(MakeCode(ServiceCommon, CategoryInternal, 0), 0, "Internal server error", "服务器内部错误"))
	ErrPanic              = Register(New(MakeCode(ServiceCommon, CategoryInternal, 1), 0, "Internal server panic", "服务器内部异常"))
	ErrServiceUnavailable = Register(New(MakeCode(ServiceCommon, CategoryNetwork, 0), 0, "Service unavailable", "服务不可用"))
)
