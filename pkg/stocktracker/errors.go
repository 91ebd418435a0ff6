package stocktracker

import (
	"context"
	"errors"
	"fmt"

	"stocktracker/pkg/marketdata"
)

// ErrorCode defines error classification codes for structured error handling.
type ErrorCode string

// Error codes. INVALID_TRANSACTION is reserved for ledger input rejected at
// the store boundary; INVALID_INPUT covers every other bad request.
const (
	ErrCodeInvalidTransaction ErrorCode = "INVALID_TRANSACTION"
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeDataUnavailable    ErrorCode = "DATA_UNAVAILABLE"
	ErrCodeDatabase           ErrorCode = "DATABASE_ERROR"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with classification code.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Detail is the message and wrapped cause without the code prefix.
func (e *Error) Detail() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is and errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with classification code and additional context.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// IsErrorCode checks if an error matches a specific error code.
func IsErrorCode(err error, code ErrorCode) bool {
	return ErrorCodeOf(err) == code
}

// ErrorCodeOf returns the code of the outermost *Error in err's chain, or ""
// when there is none.
func ErrorCodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// classifyMarketError maps a market-data failure onto an error code. Bad
// ranges and unknown symbols are caller errors; everything else, including a
// cancelled or expired context, means the data is unavailable.
func classifyMarketError(op string, err error) *Error {
	switch {
	case errors.Is(err, marketdata.ErrInvalidRange):
		return WrapError(ErrCodeInvalidInput, op, err)
	case errors.Is(err, marketdata.ErrUnknownSymbol):
		return WrapError(ErrCodeNotFound, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return WrapError(ErrCodeDataUnavailable, op+" interrupted", err)
	}
	return WrapError(ErrCodeDataUnavailable, op, err)
}
