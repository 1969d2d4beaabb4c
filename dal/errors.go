package dal

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when a parent or target entity doesn't exist.
	ErrNotFound = errors.New("artcatalog: entity not found")

	// ErrInvalidInput is returned when required fields are missing or disallowed fields are supplied.
	ErrInvalidInput = errors.New("artcatalog: invalid input")

	// ErrWrongUser is returned when the acting user does not own the entity being mutated.
	ErrWrongUser = errors.New("artcatalog: acting user does not own entity")

	// ErrWriteConflict is returned when a conditional write fails because the version token changed.
	ErrWriteConflict = errors.New("artcatalog: entity was modified concurrently")

	// ErrStore matches every *StoreError via errors.Is.
	ErrStore = errors.New("artcatalog: backing store failure")
)

// StoreError wraps a failure from an underlying backing store.
// It is the only error kind that carries an opaque nested cause.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("artcatalog: %s: backing store failure", e.Op)
	}
	return fmt.Sprintf("artcatalog: %s: %v", e.Op, e.Err)
}

// Unwrap returns the original store cause.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrStore.
func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// Wrap resolves err into the taxonomy. Taxonomy errors pass through untouched,
// anything else becomes a *StoreError for op. Wrap(op, nil) is nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindStore {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// Invalid returns an ErrInvalidInput error with a formatted reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Kind classifies an error into the taxonomy.
type Kind int

const (
	KindNone Kind = iota
	KindNotFound
	KindInvalidInput
	KindWrongUser
	KindWriteConflict
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindWrongUser:
		return "wrong_user"
	case KindWriteConflict:
		return "write_conflict"
	default:
		return "store_error"
	}
}

// KindOf returns the taxonomy kind of err. Unknown errors classify as KindStore.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrWrongUser):
		return KindWrongUser
	case errors.Is(err, ErrWriteConflict):
		return KindWriteConflict
	default:
		return KindStore
	}
}

// StatusCode maps err to the HTTP status an API layer would answer with.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindNone:
		return http.StatusOK
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindWrongUser:
		return http.StatusForbidden
	case KindWriteConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
