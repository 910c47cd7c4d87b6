package domain

import (
	"errors"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrPermissionDeny  = errors.New("permission denied")
	ErrVersionConflict = errors.New("version conflict")
)

// ValidationFailedError carries the messages produced while validating a
// permission document. It matches ErrInvalidInput with errors.Is.
type ValidationFailedError struct {
	Errors []string
}

func (e *ValidationFailedError) Error() string {
	return "invalid permissions: " + strings.Join(e.Errors, "; ")
}

func (e *ValidationFailedError) Unwrap() error { return ErrInvalidInput }
