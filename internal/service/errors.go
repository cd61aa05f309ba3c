// Package service provides business logic for the application.
package service

import (
	"errors"
	"sort"
	"strings"
)

// Service errors.
var (
	// ErrNotFound covers both missing records and records owned by another user.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials is returned by token issuance for a bad email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidImage is returned when an upload is not a supported image.
	ErrInvalidImage = errors.New("invalid image")
)

// NonFieldErrors is the field key used for errors not tied to one input field.
const NonFieldErrors = "non_field_errors"

// Validation messages.
const (
	msgRequired  = "This field is required."
	msgBlank     = "This field may not be blank."
	msgMaxLength = "Ensure this field has no more than 255 characters."
	msgMinZero   = "Ensure this value is greater than or equal to 0."
	msgMaxInt32  = "Ensure this value is less than or equal to 2147483647."
)

// ValidationError carries per-field messages for a rejected write.
type ValidationError struct {
	Fields map[string][]string
	cause  error
}

// Unwrap exposes the sentinel behind the failure, if any.
func (e *ValidationError) Unwrap() error {
	return e.cause
}

// Error implements error.
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a message for field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Has reports whether field already has a message.
func (e *ValidationError) Has(field string) bool {
	return len(e.Fields[field]) > 0
}

// Err returns e when it holds at least one message, or nil.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// fieldError builds a single-field ValidationError.
func fieldError(field, message string) error {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// credentialsError is the validation failure returned for a bad login.
func credentialsError() error {
	v := &ValidationError{cause: ErrInvalidCredentials}
	v.Add(NonFieldErrors, "Unable to authenticate with provided credentials.")
	return v
}

// AsValidationError unwraps err into a ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
