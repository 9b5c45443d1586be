// Package apperr defines the error categories shared by the search and enrichment paths.
//
// Categories are attached with errors.Mark so that callers can test them with errors.Is
// regardless of how many times the error was wrapped on its way up.
package apperr

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrNotFound marks lookups of an unknown company id. Surfaced, never retried.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks unusable model output (e.g. a translation that is not JSON).
	ErrValidation = errors.New("validation failure")
	// ErrTransient marks enrichment failures the job queue should retry.
	ErrTransient = errors.New("transient external failure")
)

// NotFound returns a NotFound error for the given entity and id.
func NotFound(entity, id string) error {
	return errors.Mark(errors.Newf("%s %q not found", entity, id), ErrNotFound)
}

// Validation wraps err as a ValidationFailure.
func Validation(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrValidation)
}

// Transient wraps err as a retryable failure.
func Transient(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrTransient)
}

// IsNotFound reports whether err is marked NotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidation reports whether err is marked as a ValidationFailure.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsTransient reports whether err is marked retryable.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }
