package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeGraph represents graph database errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeQuery represents query validation and lookup errors
	ErrorTypeQuery ErrorType = "query"
	// ErrorTypeIngest represents source record ingestion errors
	ErrorTypeIngest ErrorType = "ingest"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// Kind returns the error category; promoted to every typed wrapper
func (e *BaseError) Kind() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Query Errors

// ErrNotFound is returned when a referenced entity does not exist in the graph
type ErrNotFound struct {
	*BaseError
	Entity string
	ID     string
}

func NewNotFound(entity, id string) *ErrNotFound {
	return &ErrNotFound{
		BaseError: NewBaseError(ErrorTypeQuery, fmt.Sprintf("%s not found: %s", entity, id), nil),
		Entity:    entity,
		ID:        id,
	}
}

// NewProductNotFound is the common case of a missing reference product
func NewProductNotFound(productID string) *ErrNotFound {
	return NewNotFound("product", productID)
}

// ErrInvalidArgument is returned for unknown query types, category or axis
// names and other caller input that is rejected rather than coerced.
type ErrInvalidArgument struct {
	*BaseError
	Field  string
	Value  string
	Reason string
}

func NewInvalidArgument(field, value, reason string) *ErrInvalidArgument {
	return &ErrInvalidArgument{
		BaseError: NewBaseError(ErrorTypeQuery, fmt.Sprintf("invalid %s %q: %s", field, value, reason), nil),
		Field:     field,
		Value:     value,
		Reason:    reason,
	}
}

// Ingest Errors

// ErrInvalidRecord is returned when a source product record fails validation
type ErrInvalidRecord struct {
	*ErrInvalidArgument
	ProductID string
}

func NewInvalidRecord(productID, reason string) *ErrInvalidRecord {
	inv := NewInvalidArgument("record", productID, reason)
	inv.Type = ErrorTypeIngest
	return &ErrInvalidRecord{
		ErrInvalidArgument: inv,
		ProductID:          productID,
	}
}

// Graph Errors

// ErrGraphConnectionFailed is returned when Neo4j connection fails
type ErrGraphConnectionFailed struct {
	*BaseError
	URI string
}

func NewGraphConnectionFailed(uri string, err error) *ErrGraphConnectionFailed {
	return &ErrGraphConnectionFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to connect to Neo4j: %s", uri), err),
		URI:       uri,
	}
}

// ErrGraphQueryFailed is returned when a graph query fails
type ErrGraphQueryFailed struct {
	*BaseError
	Operation string
}

func NewGraphQueryFailed(operation string, err error) *ErrGraphQueryFailed {
	return &ErrGraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("query failed: %s", operation), err),
		Operation: operation,
	}
}

// Context Errors

// ErrContextTimeout is returned when context times out
type ErrContextTimeout struct {
	*BaseError
	Operation string
	Timeout   time.Duration
}

func NewContextTimeout(operation string, timeout time.Duration) *ErrContextTimeout {
	return &ErrContextTimeout{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context timeout: %s (timeout: %v)", operation, timeout), nil),
		Operation: operation,
		Timeout:   timeout,
	}
}

// ErrContextCancelled is returned when context is cancelled
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context cancelled: %s", operation), err),
		Operation: operation,
	}
}

// Helper functions

// IsErrorType checks if an error (or anything it wraps) is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if k, ok := err.(interface{ Kind() ErrorType }); ok && k.Kind() == errType {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsNotFound reports whether err is or wraps an ErrNotFound
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return stderrors.As(err, &nf)
}

// IsInvalidArgument reports whether err is or wraps an ErrInvalidArgument
func IsInvalidArgument(err error) bool {
	var inv *ErrInvalidArgument
	if stderrors.As(err, &inv) {
		return true
	}
	var rec *ErrInvalidRecord
	return stderrors.As(err, &rec)
}

// IsTimeout reports whether err is or wraps an ErrContextTimeout
func IsTimeout(err error) bool {
	var to *ErrContextTimeout
	return stderrors.As(err, &to)
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Caller errors never succeed on retry
	if IsNotFound(err) || IsInvalidArgument(err) {
		return false
	}
	// Graph connection errors are retryable
	var connErr *ErrGraphConnectionFailed
	if stderrors.As(err, &connErr) {
		return true
	}
	return IsErrorType(err, ErrorTypeGraph)
}
