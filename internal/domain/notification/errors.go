package notification

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("invalid notification")
	ErrConflict   = errors.New("notification already exists")
	ErrNotFound   = errors.New("notification not found")
	ErrForbidden  = errors.New("notification belongs to another recipient")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid notification: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
