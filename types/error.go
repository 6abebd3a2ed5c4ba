package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the module.
type ErrorCode string

// Orchestration error codes
const (
	ErrValidation        ErrorCode = "VALIDATION"         // 输入非法，致命，不重试
	ErrGeneration        ErrorCode = "GENERATION"         // 后端输出在重试+降级耗尽后仍然无效
	ErrDependencyMissing ErrorCode = "DEPENDENCY_MISSING" // 上游工件缺失，编排 bug，始终致命
	ErrIterationLimit    ErrorCode = "ITERATION_LIMIT"    // 迭代上限，非致命，仅内部记录
	ErrCancelled         ErrorCode = "CANCELLED"          // 调用方取消
)

// Gateway error codes
const (
	ErrUpstreamError   ErrorCode = "UPSTREAM_ERROR"
	ErrUpstreamTimeout ErrorCode = "UPSTREAM_TIMEOUT"
	ErrRateLimited     ErrorCode = "RATE_LIMITED"
	ErrEmptyCompletion ErrorCode = "EMPTY_COMPLETION"
)

// Error represents a structured error with code, message, and diagnostics.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Role      Role      `json:"role,omitempty"`
	Phase     Phase     `json:"phase,omitempty"`
	Retryable bool      `json:"retryable"`
	RawOutput string    `json:"raw_output,omitempty"` // 生成失败时保留最后一次原始输出
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRole sets the role the error originated from.
func (e *Error) WithRole(role Role) *Error {
	e.Role = role
	return e
}

// WithPhase sets the phase the error occurred in.
func (e *Error) WithPhase(phase Phase) *Error {
	e.Phase = phase
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithRawOutput attaches the last raw backend output for diagnostics.
func (e *Error) WithRawOutput(raw string) *Error {
	e.RawOutput = raw
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
