package core

import (
	"errors"
	"fmt"
)

// PersistenceError is returned by every store operation that fails,
// whatever the cause (connectivity, constraint, malformed query).
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError wraps err for operation op. A nil err yields nil.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsPersistence reports whether err is, or wraps, a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
