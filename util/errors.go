package util

import (
	"fmt"

	"github.com/pkg/errors"
)

type StoreError struct {
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

var (
	// ErrNotFound is returned when no tuple is stored under the requested key.
	ErrNotFound = errors.New("tuple not found")

	// ErrPrimaryKeyPresent is returned when a non-overwriting insert finds an existing tuple.
	ErrPrimaryKeyPresent = errors.New("couldn't insert tuple, primary key already present")

	// ErrPoisoned is returned when a page lock is acquired after a holder panicked.
	ErrPoisoned = errors.New("page lock poisoned")

	// ErrClosed is returned when a closed or dropped store is used.
	ErrClosed = errors.New("storage closed")
)

// IncorrectTypesError lists the attribute positions whose values do not match the
// declared types.
type IncorrectTypesError struct {
	Positions []int
}

func (e *IncorrectTypesError) Error() string {
	return fmt.Sprintf("invalid types at indexes %v", e.Positions)
}

// PoisonedError carries the page whose lock was poisoned.
type PoisonedError struct {
	*StoreError
	Block int
}

func NewPoisonedError(block int, cause any) *PoisonedError {
	return &PoisonedError{
		StoreError: &StoreError{
			Message: fmt.Sprintf("block %d: holder panicked: %v", block, cause),
			Err:     ErrPoisoned,
		},
		Block: block,
	}
}
