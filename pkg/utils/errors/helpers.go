package errors

import stderrors "errors"

// Is 与标准库 errors.Is 相同, 避免调用方同时导入两个 errors 包。
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

// FromError 返回错误链中最外层的 Errno, 链中没有 Errno 时包装为 ErrInternal。
func FromError(err error) *Errno {
	if err == nil {
		return nil
	}
	if e, ok := asErrno(err); ok {
		return e
	}
	return ErrInternal.WithCause(err)
}

// GetCode 返回错误链中的错误码, 没有 Errno 时返回 -1。
func GetCode(err error) int {
	if e, ok := asErrno(err); ok {
		return e.Code
	}
	return -1
}

func asErrno(err error) (*Errno, bool) {
	var e *Errno
	ok := stderrors.As(err, &e)
	return e, ok
}
