package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownType is returned by the factory for unregistered type names.
	ErrUnknownType = errors.New("unknown type")

	// ErrNotInProject is returned when an operation names an object that is
	// not part of the live project, for example one that was already deleted.
	ErrNotInProject = errors.New("object not in project")

	// ErrDuplicateID is returned when an object ID is already taken.
	ErrDuplicateID = errors.New("duplicate object id")

	// ErrCycle is returned when a non-weak link would close a loop.
	ErrCycle = errors.New("link creates a loop")

	// ErrOwnershipCycle is returned when an object would become its own ancestor.
	ErrOwnershipCycle = errors.New("object cannot own itself")

	// ErrReadOnly is returned for writes to snapshot objects and to objectID.
	ErrReadOnly = errors.New("read-only")

	// ErrInvalidHandle is returned for handles that do not resolve to a value.
	ErrInvalidHandle = errors.New("invalid property handle")

	// ErrNullArrayReference is returned when a null reference would be
	// stored in an array-semantic table.
	ErrNullArrayReference = errors.New("null reference in array")
)

// GraphError reports a graph-consistency failure together with the path
// that caused it.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func cycleError(start, end PropertyDescriptor, path []*Object) error {
	names := make([]string, 0, len(path))
	for _, o := range path {
		names = append(names, o.Name())
	}
	msg := fmt.Sprintf("%s -> %s", start, end)
	if len(names) > 1 {
		msg += " closes " + strings.Join(names, " -> ")
	}
	return &GraphError{Kind: ErrCycle, Msg: msg}
}

func notInProject(o *Object) error {
	if o == nil {
		return fmt.Errorf("%w: nil object", ErrNotInProject)
	}
	return fmt.Errorf("%w: %s (%s)", ErrNotInProject, o.Name(), o.ObjectID())
}
