package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Error is a coded error carrying the resource it concerns.
type Error struct {
	// Code classifies the failure.
	Code ErrorCode

	// Message is the human-readable description.
	Message string

	// Context holds key/value details such as "path" or "target".
	Context map[string]interface{}

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
// The format is "<message> (k=v, ...): <cause>".
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
		}
		b.WriteString(")")
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
// This lets callers write errors.Is(err, &Error{Code: CodeNotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithContext adds a key/value pair to the error context and returns the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps err with a code and message. It returns nil if err is nil.
func Wrap(err error, code ErrorCode, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WrapWithContext wraps err with a code, message and context map.
// It returns nil if err is nil.
func WrapWithContext(err error, code ErrorCode, message string, ctx map[string]interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Context: ctx,
		Err:     err,
	}
}

// CodeOf returns the code of the outermost *Error in err's chain,
// or CodeUnknown if there is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	return stderrors.Is(err, &Error{Code: code})
}

// IsNotFound reports whether err is a NOT_FOUND error.
func IsNotFound(err error) bool { return HasCode(err, CodeNotFound) }

// IsAlreadyExists reports whether err is an ALREADY_EXISTS error.
func IsAlreadyExists(err error) bool { return HasCode(err, CodeAlreadyExists) }

// IsInvalidConfig reports whether err is an INVALID_CONFIGURATION error.
func IsInvalidConfig(err error) bool { return HasCode(err, CodeInvalidConfig) }

// IsParseFailed reports whether err is a PARSE_FAILED error.
func IsParseFailed(err error) bool { return HasCode(err, CodeParseFailed) }

// IsTransferFailed reports whether err is a TRANSFER_FAILED error.
func IsTransferFailed(err error) bool { return HasCode(err, CodeTransferFailed) }

// IsAborted reports whether err is an ABORTED error.
func IsAborted(err error) bool { return HasCode(err, CodeAborted) }
