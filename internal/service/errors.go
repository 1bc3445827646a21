package service

import (
	"errors"
	"fmt"
)

// Error kinds returned by the reservation service.  Every error carries a
// message meant for the client and matches exactly one kind via errors.Is.
// Anything that matches none of them is unexpected.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrValidation        = errors.New("validation failed")
)

type opError struct {
	kind error
	msg  string
}

func (e *opError) Error() string        { return e.msg }
func (e *opError) Is(target error) bool { return target == e.kind }

func fail(kind error, format string, args ...any) error {
	return &opError{kind: kind, msg: fmt.Sprintf(format, args...)}
}
