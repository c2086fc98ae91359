package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is a generic sentinel for invalid input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrComplianceViolation marks a record that failed the privacy
	// self-check; such a record must never reach a durable store.
	ErrComplianceViolation = errors.New("compliance violation")
)
