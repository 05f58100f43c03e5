// Package apperr holds the error taxonomy shared by the engine and its surfaces.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrDuplicateIdentity = errors.New("duplicate identity")
	ErrInvalidInterval   = errors.New("invalid interval")
	ErrParse             = errors.New("unrecognized date expression")
	ErrMissingIdentity   = errors.New("event has no identity")

	// ErrAlreadyExists is kept for callers that speak in terms of resources.
	ErrAlreadyExists = ErrDuplicateIdentity
)

// ParseError reports a phrase the resolver could not turn into a date range.
type ParseError struct {
	Phrase string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %q", ErrParse, e.Phrase)
	}
	return fmt.Sprintf("%s: %q: %s", ErrParse, e.Phrase, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrParse }
