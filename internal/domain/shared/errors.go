// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has no infrastructure
// dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("state conflict")

	// Invariant errors. A derived value (percentage, refund tier) computed
	// outside its valid range aborts the whole unit of work.
	ErrInvariantViolation = errors.New("invariant violation")

	// Configuration errors
	ErrNoPolicy = errors.New("no policy defined")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrLockNotAcquired        = errors.New("row lock not acquired")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")

	// Storage errors
	ErrStorage = errors.New("storage error")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "enrollment", "progress", "dropout"
	Op      string // Operation that failed, e.g., "Enroll", "Withdraw"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Enrollment domain errors
var (
	ErrNotEnrolled     = NewDomainError("enrollment", "Lookup", ErrNotFound, "not currently enrolled in this course")
	ErrAlreadyEnrolled = NewDomainError("enrollment", "Enroll", ErrAlreadyExists, "already enrolled in this course")
)

// Progress domain errors
var (
	ErrProgressNotFound  = NewDomainError("progress", "Get", ErrNotFound, "no progress record for this enrollment")
	ErrInvalidPercentage = NewDomainError("progress", "Recompute", ErrInvariantViolation, "completion percentage outside [0,100]")
)

// Certificate domain errors
var (
	ErrCertificateNotFound = NewDomainError("certificate", "Find", ErrNotFound, "certificate not found")
	ErrInvalidCertType     = NewDomainError("certificate", "Validate", ErrInvalidInput, "invalid certificate type")
)

// Dropout domain errors
var (
	ErrInvalidRefund   = NewDomainError("dropout", "ComputeRefund", ErrInvariantViolation, "refund outside valid range")
	ErrInvalidDuration = NewDomainError("dropout", "Validate", ErrValueOutOfRange, "course duration must be positive")
)

// Semester gate errors
var (
	ErrNoPolicyDefined = NewDomainError("semester", "CanAdvance", ErrNoPolicy, "no prerequisite policy for this course and semester")
)

// External collaborator errors
var (
	ErrCourseNotFound     = NewDomainError("catalog", "GetCourse", ErrNotFound, "course not found in catalog")
	ErrCatalogUnavailable = NewDomainError("catalog", "Request", ErrServiceUnavailable, "catalog service is unavailable")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if the error is a duplicate/conflict error.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrConflict)
}

// IsInvariantViolation checks if the error is an internal invariant failure.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}

// IsRetryable checks if the operation can be retried. Semantic errors
// (NotEnrolled, AlreadyEnrolled, NoPolicyDefined) are never retryable;
// transient lock conflicts and external outages are.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrLockNotAcquired)
}
