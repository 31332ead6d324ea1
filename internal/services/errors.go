package services

import "errors"

// Engine error taxonomy. Handlers translate these to typed HTTP responses;
// anything else is an internal failure.
var (
	// ErrNoEligibleQuestions means the candidate pool was empty even after
	// progressive filter relaxation. Not a crash: the caller decides the
	// fallback.
	ErrNoEligibleQuestions = errors.New("no eligible questions")

	// ErrUnknownUser covers malformed or missing user identifiers only.
	// A user with zero history is the cold-start path, never this error.
	ErrUnknownUser = errors.New("unknown user")

	// ErrScheduleConflict means a concurrent write touched the same
	// (user, question) schedule row. The submission layer retries once.
	ErrScheduleConflict = errors.New("schedule conflict")
)
