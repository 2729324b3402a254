/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("User", "123")

	// Test error message
	expected := `User with key "123" not found`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	// Test Is method
	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundError should match ErrNotFound")
	}

	// Test helper function
	if !IsNotFound(err) {
		t.Error("IsNotFound should return true for NotFoundError")
	}
}

func TestAlreadyExistsError(t *testing.T) {
	err := NewAlreadyExistsError("Product", "ABC")

	// Test error message
	expected := `Product with key "ABC" already exists`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	// Test Is method
	if !errors.Is(err, ErrAlreadyExists) {
		t.Error("AlreadyExistsError should match ErrAlreadyExists")
	}

	// Test helper function
	if !IsAlreadyExists(err) {
		t.Error("IsAlreadyExists should return true for AlreadyExistsError")
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		message  string
		expected string
	}{
		{
			name:     "with field",
			field:    "email",
			message:  "invalid format",
			expected: `validation failed for field "email": invalid format`,
		},
		{
			name:     "without field",
			field:    "",
			message:  "missing required fields",
			expected: "validation failed: missing required fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.field, tt.message)

			if err.Error() != tt.expected {
				t.Errorf("Expected error message %q, got %q", tt.expected, err.Error())
			}

			if !errors.Is(err, ErrInvalidInput) {
				t.Error("ValidationError should match ErrInvalidInput")
			}

			if !IsValidationError(err) {
				t.Error("IsValidationError should return true for ValidationError")
			}
		})
	}
}

func TestConditionFailedError(t *testing.T) {
	err := NewConditionFailedError("update", "version = :oldVersion")

	// Test error message
	expected := "condition check failed for update operation: version = :oldVersion"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	// Test Is method
	if !errors.Is(err, ErrConditionFailed) {
		t.Error("ConditionFailedError should match ErrConditionFailed")
	}

	// Test helper function
	if !IsConditionFailed(err) {
		t.Error("IsConditionFailed should return true for ConditionFailedError")
	}
}

func TestErrorWrapping(t *testing.T) {
	// Test that wrapped errors still match
	original := NewNotFoundError("User", "123")
	wrapped := fmt.Errorf("database operation failed: %w", original)

	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("Wrapped NotFoundError should still match ErrNotFound")
	}

	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should work with wrapped errors")
	}
}

func TestSentinelErrors(t *testing.T) {
	// Ensure sentinel errors are distinct
	sentinels := []error{
		ErrNotFound,
		ErrAlreadyExists,
		ErrInvalidInput,
		ErrConditionFailed,
		ErrConfiguration,
		ErrTypeMismatch,
		ErrSerialization,
		ErrCircuitOpen,
		ErrRetryExhausted,
		ErrCopyTimeout,
	}

	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v matches %v", err1, err2)
			}
		}
	}
}

func TestTypeMismatchIsConfiguration(t *testing.T) {
	err := NewTypeMismatchError("blogimages", "blogmodels.Image", "datastore.TableRecord")

	if !errors.Is(err, ErrTypeMismatch) {
		t.Error("TypeMismatchError should match ErrTypeMismatch")
	}
	if !IsConfiguration(err) {
		t.Error("TypeMismatchError should be a configuration error")
	}
	if KindOf(err) != KindConfiguration {
		t.Errorf("Expected KindConfiguration, got %s", KindOf(err))
	}
}

func TestRetryExhaustedError(t *testing.T) {
	first := errors.New("attempt 1")
	second := errors.New("attempt 2")
	err := &RetryExhaustedError{Name: "table:blog:GetEntity", Errs: []error{first, second}}

	if !IsRetryExhausted(err) {
		t.Error("IsRetryExhausted should return true")
	}
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Error("RetryExhaustedError should unwrap to every attempt error")
	}

	expected := "table:blog:GetEntity failed after 2 attempts: attempt 1; attempt 2"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
	if KindOf(err) != KindTransient {
		t.Errorf("Expected KindTransient, got %s", KindOf(err))
	}
}

func TestSerializationErrorUnwrap(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := NewSerializationError("posts/1.json", cause)

	if !IsSerialization(err) {
		t.Error("IsSerialization should return true")
	}
	if !errors.Is(err, cause) {
		t.Error("SerializationError should unwrap to its cause")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		kind Kind
	}{
		{nil, KindUnknown},
		{errors.New("boom"), KindUnknown},
		{NewNotFoundError("Post", "a|b"), KindNotFound},
		{NewAlreadyExistsError("Post", "a|b"), KindConflict},
		{&CircuitOpenError{Name: "x", State: "open"}, KindBreakerOpen},
		{NewConfigurationError("nope", "unknown entity type"), KindConfiguration},
		{NewSerializationError("x", errors.New("bad")), KindSerialization},
		{NewValidationError("RowKey", "required"), KindValidation},
		{NewConditionFailedError("update", "attribute_exists"), KindConditionFailed},
		{&CopyTimeoutError{Source: "a", Destination: "b"}, KindTimeout},
		{fmt.Errorf("wrapped: %w", &CircuitOpenError{Name: "y"}), KindBreakerOpen},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.kind {
			t.Errorf("KindOf(%v) = %s, want %s", tt.err, got, tt.kind)
		}
	}
}

func TestIsCallerError(t *testing.T) {
	if !IsCallerError(NewAlreadyExistsError("Post", "k")) {
		t.Error("conflicts are caller errors")
	}
	if IsCallerError(errors.New("connection reset by peer")) {
		t.Error("plain store failures are not caller errors")
	}
	if IsCallerError(&CircuitOpenError{Name: "x"}) {
		t.Error("circuit open is not a caller error")
	}
}
