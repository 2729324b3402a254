/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when an entity is not found
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists is returned when attempting to create an entity that already exists
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConditionFailed is returned when a conditional write fails
	ErrConditionFailed = errors.New("condition check failed")

	// ErrConfiguration is returned for caller bugs: unknown entity types,
	// missing keys, record types that lack a required capability
	ErrConfiguration = errors.New("configuration error")

	// ErrTypeMismatch is returned when a record type cannot be stored in the
	// requested kind of store
	ErrTypeMismatch = errors.New("record type mismatch")

	// ErrSerialization is returned when a payload cannot be encoded or decoded
	ErrSerialization = errors.New("serialization error")

	// ErrCircuitOpen is returned when a circuit breaker short-circuits a call
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrRetryExhausted is returned when every retry attempt failed transiently
	ErrRetryExhausted = errors.New("retries exhausted")

	// ErrCopyTimeout is returned when a blob copy did not complete in time
	ErrCopyTimeout = errors.New("copy timed out")
)

// NotFoundError represents an error when an entity is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents an error when an entity already exists
type AlreadyExistsError struct {
	Type string
	Key  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Type, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConditionFailedError represents a failed conditional operation
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

// ConfigurationError reports a caller bug. It is never retried and never
// counted against a circuit breaker.
type ConfigurationError struct {
	EntityType string
	Message    string
}

func (e *ConfigurationError) Error() string {
	if e.EntityType != "" {
		return fmt.Sprintf("configuration error for entity type %q: %s", e.EntityType, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// TypeMismatchError is a configuration error raised when a record type lacks
// the capability a storage kind needs.
type TypeMismatchError struct {
	EntityType string
	RecordType string
	Capability string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("record type %s for entity type %q does not implement %s", e.RecordType, e.EntityType, e.Capability)
}

func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch || target == ErrConfiguration
}

// SerializationError wraps an encode or decode failure for a named record
type SerializationError struct {
	Name string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("failed to serialize %q: %v", e.Name, e.Err)
}

func (e *SerializationError) Is(target error) bool {
	return target == ErrSerialization
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// CircuitOpenError is returned instead of calling the store while the
// breaker for Name is open or probing.
type CircuitOpenError struct {
	Name  string
	State string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is %s", e.Name, e.State)
}

func (e *CircuitOpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// RetryExhaustedError carries every attempt's error in attempt order.
type RetryExhaustedError struct {
	Name string
	Errs []error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Name, len(e.Errs), multierr.Combine(e.Errs...))
}

func (e *RetryExhaustedError) Is(target error) bool {
	return target == ErrRetryExhausted
}

func (e *RetryExhaustedError) Unwrap() []error {
	return e.Errs
}

// CopyTimeoutError reports a blob copy that was still pending when the
// caller's timeout elapsed.
type CopyTimeoutError struct {
	Source      string
	Destination string
	Timeout     time.Duration
}

func (e *CopyTimeoutError) Error() string {
	return fmt.Sprintf("copy from %q to %q did not complete within %s", e.Source, e.Destination, e.Timeout)
}

func (e *CopyTimeoutError) Is(target error) bool {
	return target == ErrCopyTimeout
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entityType, key string) error {
	return &NotFoundError{Type: entityType, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(entityType, key string) error {
	return &AlreadyExistsError{Type: entityType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(entityType, message string) error {
	return &ConfigurationError{EntityType: entityType, Message: message}
}

// NewTypeMismatchError creates a new TypeMismatchError
func NewTypeMismatchError(entityType, recordType, capability string) error {
	return &TypeMismatchError{EntityType: entityType, RecordType: recordType, Capability: capability}
}

// NewSerializationError creates a new SerializationError
func NewSerializationError(name string, err error) error {
	return &SerializationError{Name: name, Err: err}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsConfiguration checks if an error is a configuration error
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsSerialization checks if an error is a serialization error
func IsSerialization(err error) bool {
	return errors.Is(err, ErrSerialization)
}

// IsCircuitOpen checks if an error came from an open circuit breaker
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// IsRetryExhausted checks if an error is an exhausted retry aggregate
func IsRetryExhausted(err error) bool {
	return errors.Is(err, ErrRetryExhausted)
}

// IsCopyTimeout checks if an error is a blob copy timeout
func IsCopyTimeout(err error) bool {
	return errors.Is(err, ErrCopyTimeout)
}

// IsCallerError reports errors caused by the request rather than the store.
// These are not retried and do not trip circuit breakers.
func IsCallerError(err error) bool {
	return IsNotFound(err) ||
		IsAlreadyExists(err) ||
		IsValidationError(err) ||
		IsConditionFailed(err) ||
		IsConfiguration(err) ||
		IsSerialization(err)
}
