package service

import (
	"errors"
	"fmt"
)

// 业务操作错误类别
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrCapacity    = errors.New("capacity exceeded")
	ErrConsistency = errors.New("consistency violated")
	ErrStorage     = errors.New("storage failed")
)

// 账号与鉴权错误
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidPassword      = errors.New("invalid password")
	ErrWeakPassword         = errors.New("weak password")
	ErrOperatorExists       = errors.New("operator already exists")
	ErrInvalidRole          = errors.New("invalid role")
	ErrCaptchaRequired      = errors.New("captcha required")
	ErrCaptchaInvalid       = errors.New("captcha invalid")
	ErrCaptchaConfigInvalid = errors.New("captcha config invalid")
	ErrImageStoreDisabled   = errors.New("image store not configured")
	ErrInvalidImage         = errors.New("invalid image")
)

// OperationError 业务操作错误，Kind 为上面的类别之一
type OperationError struct {
	Kind    error
	Message string
	Cause   error
	// Details 批量操作逐条错误（已截断）
	Details []string
}

func (e *OperationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Kind.Error()
}

// Unwrap 同时支持 errors.Is(err, Kind) 与 errors.Is(err, Cause)
func (e *OperationError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func opError(kind error, format string, args ...interface{}) *OperationError {
	return &OperationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func validationError(format string, args ...interface{}) *OperationError {
	return opError(ErrValidation, format, args...)
}

func notFoundError(format string, args ...interface{}) *OperationError {
	return opError(ErrNotFound, format, args...)
}

func storageError(cause error, message string) *OperationError {
	return &OperationError{Kind: ErrStorage, Message: message, Cause: cause}
}

// asOperationError 将任意错误归一为 OperationError，未分类错误视为存储错误
func asOperationError(err error, fallbackMessage string) *OperationError {
	if err == nil {
		return nil
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr
	}
	return storageError(err, fallbackMessage)
}

// ErrorKind 返回错误所属类别，非业务错误返回 nil
func ErrorKind(err error) error {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return nil
}

// truncateDetails 截断逐条错误列表
func truncateDetails(details []string, limit int) []string {
	if limit <= 0 || len(details) <= limit {
		return details
	}
	return details[:limit]
}
