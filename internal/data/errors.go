package data

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeMismatch is returned when a value is read, written or assigned
	// as a kind it does not hold, or when a reference target has an
	// incompatible type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrOutOfRange is returned for table indices or names that do not exist.
	ErrOutOfRange = errors.New("out of range")

	// ErrDuplicateName is returned when a named table entry would shadow an existing one.
	ErrDuplicateName = errors.New("duplicate property name")
)

func mismatch(want, got Kind) error {
	return fmt.Errorf("%w: requested %s, value holds %s", ErrTypeMismatch, want, got)
}

func outOfRange(index, size int) error {
	return fmt.Errorf("%w: index %d, size %d", ErrOutOfRange, index, size)
}
