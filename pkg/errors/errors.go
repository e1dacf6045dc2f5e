// Package errors provides structured errors with codes, context and stack
// traces for the loader and driver layers.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// Code identifies an error class for programmatic handling.
type Code string

const (
	// Input errors (1xx)
	CodeFileNotFound     Code = "E101"
	CodeFilePermission   Code = "E102"
	CodeInvalidFormat    Code = "E103"
	CodeMissingColumn    Code = "E104"
	CodeInvalidTimestamp Code = "E105"

	// Processing errors (2xx)
	CodeParseFailed      Code = "E201"
	CodeValidationFailed Code = "E203"

	// System errors (4xx)
	CodeContextCanceled Code = "E401"

	// Metric errors (6xx)
	CodeComputeFailed Code = "E601"

	// Remote source errors (7xx)
	CodeRemoteSource Code = "E701"

	CodeUnknown Code = "E999"
)

// Error is the structured error type shared by logvar packages.
type Error struct {
	Code       Code
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace []Frame
}

// Frame is one captured stack frame.
type Frame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface. Context keys are printed in sorted
// order so messages are stable.
func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", e.Code, e.Message)

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s=%v", k, e.Context[k])
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds a key-value pair to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates an Error.
func New(code Code, message string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		StackTrace: captureStack(2),
	}
}

// Wrap wraps err with a code and message. It returns nil for a nil err.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: captureStack(2),
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		Cause:      err,
		StackTrace: captureStack(2),
	}
}

func captureStack(skip int) []Frame {
	var frames []Frame
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)

	cf := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := cf.Next()
		frames = append(frames, Frame{
			Function: frame.Function,
			File:     frame.File,
			Line:     frame.Line,
		})
		if !more || len(frames) >= 10 {
			break
		}
	}
	return frames
}

// FormatStack returns the captured stack trace, one frame per entry.
func (e *Error) FormatStack() string {
	var sb strings.Builder
	for _, f := range e.StackTrace {
		fmt.Fprintf(&sb, "  at %s\n    %s:%d\n", f.Function, f.File, f.Line)
	}
	return sb.String()
}

// --- Convenience constructors ---

// FileNotFound creates a file not found error.
func FileNotFound(path string, cause error) *Error {
	e := New(CodeFileNotFound, "file not found").WithContext("path", path)
	e.Cause = cause
	return e
}

// MissingColumn creates a missing column error.
func MissingColumn(column string, available []string) *Error {
	return New(CodeMissingColumn, "required column not found").
		WithContext("column", column).
		WithContext("available", available)
}

// ParseError creates a parsing error with location.
func ParseError(format string, row int, err error) *Error {
	return Wrap(err, CodeParseFailed, "parse error").
		WithContext("format", format).
		WithContext("row", row)
}

// --- Error checking utilities ---

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// MultiError collects multiple errors.
type MultiError struct {
	Errors []error
}

// Error implements the error interface.
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors occurred:\n", len(m.Errors))
	for i, err := range m.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the collection. Nil errors are ignored.
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if any errors were collected.
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// Combined returns nil if no errors, the single error if one, or the MultiError.
func (m *MultiError) Combined() error {
	switch len(m.Errors) {
	case 0:
		return nil
	case 1:
		return m.Errors[0]
	default:
		return m
	}
}
