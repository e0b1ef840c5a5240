package tasks

import (
	"errors"
	"fmt"

	"colonybot/internal/host"
)

// ErrInvalid reports that a task precondition no longer holds. The task must
// be discarded.
var ErrInvalid = errors.New("tasks: task invalid")

// ErrMissingValue reports an unresolved or vanished target. It matches
// ErrInvalid as well.
var ErrMissingValue = fmt.Errorf("%w: missing value", ErrInvalid)

// ConversionError reports a target identifier the host could not turn into a
// handle.
type ConversionError struct {
	Task string
	ID   string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("tasks: %s: convert %q: %v", e.Task, e.ID, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Class is the error taxonomy bucket of a task error.
type Class int

// Error classes.
const (
	ClassNone Class = iota
	ClassInvalid
	ClassMissingValue
	ClassConversion
	ClassUnclassified
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassInvalid:
		return "invalid"
	case ClassMissingValue:
		return "missing_value"
	case ClassConversion:
		return "conversion"
	default:
		return "unclassified"
	}
}

// Classify maps err onto the task error taxonomy.
func Classify(err error) Class {
	var conv *ConversionError
	switch {
	case err == nil:
		return ClassNone
	case errors.As(err, &conv):
		return ClassConversion
	case errors.Is(err, ErrMissingValue):
		return ClassMissingValue
	case errors.Is(err, ErrInvalid):
		return ClassInvalid
	default:
		return ClassUnclassified
	}
}

// Discard reports whether the caller should drop the task that returned err.
func Discard(err error) bool {
	return errors.Is(err, ErrInvalid)
}

// lookupErr translates a host lookup failure.
func lookupErr(task, id string, err error) error {
	var conv *host.ConversionError
	switch {
	case errors.As(err, &conv):
		return &ConversionError{Task: task, ID: id, Err: err}
	case errors.Is(err, host.ErrNotFound):
		return fmt.Errorf("%s target %s: %w", task, id, ErrMissingValue)
	default:
		return fmt.Errorf("%s lookup %s: %w", task, id, err)
	}
}
