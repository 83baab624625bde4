// Package cowerrors provides the structured error taxonomy shared by every
// COWFS component: the object store, the metadata store, the versioning
// engine, the FUSE adapter, and the CLI.
package cowerrors

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Code is a structured error code for a COWFS operation.
type Code string

// The error kinds the versioning engine raises, per the engine's API
// contract. Each maps to a POSIX errno at the FUSE adapter and a process
// exit code at the CLI; several codes share the same errno or exit code.
const (
	NotFound           Code = "NOT_FOUND"
	AlreadyExists      Code = "ALREADY_EXISTS"
	NotEmpty           Code = "NOT_EMPTY"
	IsDir              Code = "IS_DIR"
	NotDir             Code = "NOT_DIR"
	OutOfRange         Code = "OUT_OF_RANGE"
	AmbiguousSelector  Code = "AMBIGUOUS_SELECTOR"
	MissingBlob        Code = "MISSING_BLOB"
	StillReferenced    Code = "STILL_REFERENCED"
	TransactionFailed  Code = "TRANSACTION_FAILED"
	CorruptStore       Code = "CORRUPT_STORE"
	InvalidArgument    Code = "INVALID_ARGUMENT"
	Internal           Code = "INTERNAL_ERROR"
)

// Category groups codes for logging and metrics purposes.
type Category string

const (
	CategoryLookup      Category = "lookup"
	CategoryState       Category = "state"
	CategorySelector    Category = "selector"
	CategoryStorage     Category = "storage"
	CategoryTransaction Category = "transaction"
	CategoryInternal    Category = "internal"
)

var categoryByCode = map[Code]Category{
	NotFound:          CategoryLookup,
	AlreadyExists:     CategoryState,
	NotEmpty:          CategoryState,
	IsDir:             CategoryState,
	NotDir:            CategoryState,
	OutOfRange:        CategorySelector,
	AmbiguousSelector: CategorySelector,
	MissingBlob:       CategoryStorage,
	StillReferenced:   CategoryStorage,
	TransactionFailed: CategoryTransaction,
	CorruptStore:      CategoryStorage,
	InvalidArgument:   CategorySelector,
	Internal:          CategoryInternal,
}

// CowfsError is the structured error type every COWFS component returns.
type CowfsError struct {
	Code      Code                   `json:"code"`
	Category  Category               `json:"category"`
	Message   string                 `json:"message"`
	Component string                 `json:"component,omitempty"`
	Operation string                 `json:"operation,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Cause     error                  `json:"-"`
	Timestamp time.Time              `json:"timestamp"`
	Retryable bool                   `json:"retryable"`
}

// Error implements the error interface.
func (e *CowfsError) Error() string {
	if e.Component != "" && e.Operation != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Code, e.Message)
	}
	if e.Component != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Component, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As compatibility.
func (e *CowfsError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *CowfsError with the same Code.
func (e *CowfsError) Is(target error) bool {
	other, ok := target.(*CowfsError)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// JSON renders the error as a JSON string, for CLI/API error responses.
func (e *CowfsError) JSON() string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(data)
}

// New creates a CowfsError with category and retryability defaulted from code.
func New(code Code, message string) *CowfsError {
	return &CowfsError{
		Code:      code,
		Category:  categoryByCode[code],
		Message:   message,
		Timestamp: time.Now(),
		Retryable: code == TransactionFailed,
	}
}

// Newf is New with fmt.Sprintf-style formatting of the message.
func Newf(code Code, format string, args ...interface{}) *CowfsError {
	return New(code, fmt.Sprintf(format, args...))
}

// WithComponent sets the component that raised the error (e.g. "engine").
func (e *CowfsError) WithComponent(component string) *CowfsError {
	e.Component = component
	return e
}

// WithOperation sets the operation being performed (e.g. "write").
func (e *CowfsError) WithOperation(operation string) *CowfsError {
	e.Operation = operation
	return e
}

// WithCause attaches an underlying cause error.
func (e *CowfsError) WithCause(cause error) *CowfsError {
	e.Cause = cause
	return e
}

// WithDetail attaches a structured detail value for logging/diagnostics.
func (e *CowfsError) WithDetail(key string, value interface{}) *CowfsError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// CodeOf extracts the Code from err if it is (or wraps) a *CowfsError, and
// Internal otherwise.
func CodeOf(err error) Code {
	var ce *CowfsError
	if ok := asCowfsError(err, &ce); ok {
		return ce.Code
	}
	return Internal
}

func asCowfsError(err error, target **CowfsError) bool {
	for err != nil {
		if ce, ok := err.(*CowfsError); ok {
			*target = ce
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// String implements fmt.Stringer for richer %v logging.
func (e *CowfsError) String() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	parts = append(parts, fmt.Sprintf("category=%s", e.Category))
	if e.Component != "" {
		parts = append(parts, fmt.Sprintf("component=%s", e.Component))
	}
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("operation=%s", e.Operation))
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%q", e.Cause.Error()))
	}
	return fmt.Sprintf("CowfsError{%s}", strings.Join(parts, ", "))
}
