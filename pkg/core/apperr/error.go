// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     apperr
// Description: Coded errors with operation and detail context
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

// Package apperr provides the coded error type shared by all pipeline stages.
// Two errors match with errors.Is when their codes are equal, so callers test
// against the sentinel values regardless of how deeply an error was wrapped.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for errors.Is comparisons. Never call With* on them.
var (
	ErrEmptyInput        = &Error{code: CodeEmptyInput, message: "empty input"}
	ErrModelUnavailable  = &Error{code: CodeModelUnavailable, message: "model unavailable"}
	ErrRecognitionFailed = &Error{code: CodeRecognitionFailed, message: "recognition failed"}
	ErrTranslationFailed = &Error{code: CodeTranslationFailed, message: "translation failed"}
	ErrSynthesisFailed   = &Error{code: CodeSynthesisFailed, message: "synthesis failed"}
	ErrInvalidConfig     = &Error{code: CodeInvalidConfig, message: "invalid config"}
)

// Error is a coded error
type Error struct {
	code      Code
	message   string
	operation string
	details   map[string]any
	cause     error
}

// New creates a new coded error
func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Newf creates a new coded error with a formatted message
func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err with a code and message. A nil err yields nil.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{code: code, message: message, cause: err}
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	if e.operation != "" {
		b.WriteString(e.operation)
		b.WriteString(": ")
	}
	b.WriteString(e.message)
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error carrying the same code
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.code == e.code
}

// WithOperation sets the operation that caused the error
func (e *Error) WithOperation(operation string) *Error {
	e.operation = operation
	return e
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value any) *Error {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Code returns the error code
func (e *Error) Code() Code {
	return e.code
}

// Message returns the message without operation or cause
func (e *Error) Message() string {
	return e.message
}

// Operation returns the operation name
func (e *Error) Operation() string {
	return e.operation
}

// Details returns a copy of the details map
func (e *Error) Details() map[string]any {
	out := make(map[string]any, len(e.details))
	for k, v := range e.details {
		out[k] = v
	}
	return out
}

// LogValues returns the error as key-value pairs for structured logging
func (e *Error) LogValues() []any {
	kv := []any{"code", string(e.code)}
	if e.operation != "" {
		kv = append(kv, "operation", e.operation)
	}
	keys := make([]string, 0, len(e.details))
	for k := range e.details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		kv = append(kv, k, e.details[k])
	}
	return kv
}

// CodeOf returns the code of the outermost coded error in err's chain,
// CodeUnknown if there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return CodeUnknown
}

// HasCode reports whether err's chain carries code
func HasCode(err error, code Code) bool {
	return errors.Is(err, &Error{code: code})
}
