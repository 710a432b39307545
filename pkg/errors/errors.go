// Package errors provides custom error types for the catalogsync system.
// These errors enable programmatic error checking across the reconciliation
// engine, its collaborators, and the CLI.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is and As re-export the standard library helpers so callers need only
// one errors import.
var (
	Is = errors.Is
	As = errors.As
)

// Common sentinel errors for the catalogsync system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnreachable indicates the remote catalog could not be reached (TransportFailure)
	ErrUnreachable = errors.New("remote unreachable")

	// ErrUnauthorized indicates the credential was rejected (AuthFailure)
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMalformed indicates the remote catalog answered with an undecodable payload
	ErrMalformed = errors.New("malformed response")

	// ErrRejected indicates the remote catalog refused a create (RemoteRejected)
	ErrRejected = errors.New("rejected by remote")

	// ErrConstraint indicates a local storage invariant was violated (LocalConstraintViolation)
	ErrConstraint = errors.New("local constraint violation")

	// ErrSessionBusy indicates a reconciliation pass is already running
	ErrSessionBusy = errors.New("reconciliation session busy")

	// ErrStale indicates a conditional write lost against a concurrent local change
	ErrStale = errors.New("stale record")

	// ErrAlreadyLinked indicates a record already carries a different remote id
	ErrAlreadyLinked = errors.New("already linked")

	// ErrFatal marks an error that aborted a reconciliation pass
	ErrFatal = errors.New("reconciliation aborted")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// TransportError represents a network or remote-side failure. It is
// retryable by re-running the pass later.
type TransportError struct {
	Operation  string // "fetch", "create"
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport error during %s %s (status %d): %s", e.Operation, e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("transport error during %s %s: %s", e.Operation, e.Endpoint, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *TransportError) Is(target error) bool {
	return target == ErrUnreachable
}

// NewTransportError creates a new TransportError
func NewTransportError(operation, endpoint string, statusCode int, err error) *TransportError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &TransportError{
		Operation:  operation,
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// AuthenticationError represents an invalid or expired credential.
// It is surfaced to the caller and never retried internally.
type AuthenticationError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("authentication error for %s (status %d): %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("authentication error for %s: %s", e.Endpoint, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrUnauthorized
}

// NewAuthenticationError creates a new AuthenticationError
func NewAuthenticationError(endpoint string, statusCode int, message string) *AuthenticationError {
	return &AuthenticationError{
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Message:    message,
	}
}

// RejectedError represents the remote catalog refusing a create, e.g. on
// validation. It is recorded per item and never aborts a pass.
type RejectedError struct {
	StatusCode int
	Reason     string
}

// Error implements the error interface
func (e *RejectedError) Error() string {
	return fmt.Sprintf("remote rejected record (status %d): %s", e.StatusCode, e.Reason)
}

// Is implements errors.Is support
func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

// NewRejectedError creates a new RejectedError
func NewRejectedError(statusCode int, reason string) *RejectedError {
	return &RejectedError{StatusCode: statusCode, Reason: reason}
}

// ConstraintError represents a storage-layer invariant violation, such as
// two local records sharing one remote id.
type ConstraintError struct {
	Constraint string
	Value      string
	LocalIDs   []int64
	Err        error
}

// Error implements the error interface
func (e *ConstraintError) Error() string {
	if len(e.LocalIDs) > 0 {
		return fmt.Sprintf("constraint %s violated for value %s (local records %v)", e.Constraint, e.Value, e.LocalIDs)
	}
	return fmt.Sprintf("constraint %s violated for value %s", e.Constraint, e.Value)
}

// Unwrap implements errors.Unwrap
func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ConstraintError) Is(target error) bool {
	return target == ErrConstraint
}

// NewConstraintError creates a new ConstraintError
func NewConstraintError(constraint, value string, localIDs []int64, err error) *ConstraintError {
	return &ConstraintError{
		Constraint: constraint,
		Value:      value,
		LocalIDs:   localIDs,
		Err:        err,
	}
}

// FatalError wraps the cause of an aborted reconciliation pass.
type FatalError struct {
	SessionID string
	Stage     string // "fetch-remote", "fetch-local", "index", "apply"
	Err       error
}

// Error implements the error interface
func (e *FatalError) Error() string {
	return fmt.Sprintf("reconciliation %s aborted during %s: %v", e.SessionID, e.Stage, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *FatalError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *FatalError) Is(target error) bool {
	return target == ErrFatal
}

// NewFatalError creates a new FatalError
func NewFatalError(sessionID, stage string, err error) *FatalError {
	return &FatalError{SessionID: sessionID, Stage: stage, Err: err}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when decoding a wire or storage format
type ParseError struct {
	Format  string // "json", "timestamp", "decimal"
	Source  string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("parse error in %s from %s: %s", e.Format, e.Source, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformed
}

// NewParseError creates a new ParseError
func NewParseError(format, source, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		Source:  source,
		Message: message,
		Err:     err,
	}
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "insert", "update", "link", "fetch"
	Resource  string // "record", "catalog", "conflict"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsAuth checks if an error is an authentication failure
func IsAuth(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsBusy checks if an error reports an overlapping reconciliation pass
func IsBusy(err error) bool {
	return errors.Is(err, ErrSessionBusy)
}

// IsFatal checks if an error aborted a reconciliation pass
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}

// IsRejected checks if an error is a remote rejection
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}

// IsStale checks if an error is a lost conditional write
func IsStale(err error) bool {
	return errors.Is(err, ErrStale)
}

// IsRetryable reports whether re-running the pass later may succeed.
// Auth failures need fresh credentials, and rejections and constraint
// violations need a change in data, so none of them are retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsAuth(err) || IsRejected(err) || errors.Is(err, ErrConstraint) {
		return false
	}
	return errors.Is(err, ErrUnreachable) || errors.Is(err, ErrSessionBusy) || errors.Is(err, ErrStale)
}

// Kind returns the taxonomy name of an error for reports and logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsBusy(err):
		return "SessionBusy"
	case IsAuth(err):
		return "AuthFailure"
	case IsRejected(err):
		return "RemoteRejected"
	case errors.Is(err, ErrConstraint):
		return "LocalConstraintViolation"
	case errors.Is(err, ErrMalformed):
		return "Malformed"
	case errors.Is(err, ErrUnreachable):
		return "TransportFailure"
	case IsStale(err):
		return "Stale"
	case errors.Is(err, ErrAlreadyLinked):
		return "AlreadyLinked"
	case IsNotFound(err):
		return "NotFound"
	default:
		return "Unknown"
	}
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, source string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, source, err.Error(), err)
}

// WrapTransport wraps an error as a TransportError
func WrapTransport(operation, endpoint string, err error) error {
	if err == nil {
		return nil
	}
	return NewTransportError(operation, endpoint, 0, err)
}
