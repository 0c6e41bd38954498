package errs

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the lending core matches exactly one of them via errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failure")
	ErrStore      = errors.New("store failure")
)

var (
	ErrResourceUnavailable = fmt.Errorf("%w: resource is not available", ErrConflict)
	ErrTeachersOnly        = fmt.Errorf("%w: only teachers may borrow laptops", ErrConflict)
	ErrNoLaptopAvailable   = fmt.Errorf("%w: no laptop available", ErrConflict)
	ErrNoOpenLoan          = fmt.Errorf("%w: no open loan for resource", ErrConflict)
	ErrResourceOnLoan      = fmt.Errorf("%w: resource has an open loan", ErrConflict)

	ErrUnknownKind  = fmt.Errorf("%w: unknown resource kind", ErrValidation)
	ErrUnknownField = fmt.Errorf("%w: unknown search field", ErrValidation)
)

func Validation(err error) error {
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// StoreError wraps a backing store failure with the operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStore, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

type ValidationErrorResponse struct {
	Message string `json:"message"`
}
