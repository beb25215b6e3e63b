package aggregation

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingParent is returned when an event references a pair, token,
	// user, factory or bundle that has not been stored yet.
	ErrMissingParent = errors.New("missing parent entity")

	// ErrUnknownEventKind is returned for events whose kind has no handler.
	ErrUnknownEventKind = errors.New("unknown event kind")
)

// MissingParentError names the absent parent. It matches ErrMissingParent
// under errors.Is.
type MissingParentError struct {
	Entity string // pair | token | user | factory | bundle
	ID     string
}

func (e *MissingParentError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %s", ErrMissingParent, e.Entity)
	}
	return fmt.Sprintf("%s: %s %s", ErrMissingParent, e.Entity, e.ID)
}

func (e *MissingParentError) Unwrap() error {
	return ErrMissingParent
}
