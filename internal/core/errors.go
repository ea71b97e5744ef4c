package core

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrProfileNotFound is returned when a profile document does not exist.
var ErrProfileNotFound = errors.New("profile not found")

// ErrStoreTimeout is returned when a store round-trip exceeds the
// configured budget (subscribe-and-wait-for-first-snapshot or
// write-then-await-acknowledgment).
var ErrStoreTimeout = errors.New("profile store timed out")

// ErrStorePermissionDenied is returned when the store rejects access.
// Terminal for the session until resolved; the client shows a blocking
// error with retry and sign-out options.
var ErrStorePermissionDenied = errors.New("profile store permission denied")

// ErrSessionNotStarted is returned when a profile read is attempted
// before Start, or after Stop.
var ErrSessionNotStarted = errors.New("reconciliation session not started")

// ValidationError is a rejected user action: no state change occurred
// and the Notice is safe to surface verbatim as a transient message.
type ValidationError struct {
	Notice string
}

func (e *ValidationError) Error() string { return e.Notice }

// Validation errors raised by the progression rules.
var (
	ErrUnknownLanguage   = &ValidationError{Notice: "That language is not supported."}
	ErrUnknownLevel      = &ValidationError{Notice: "Lesson not found."}
	ErrLevelLocked       = &ValidationError{Notice: "Complete the previous level first."}
	ErrInsufficientCoins = &ValidationError{Notice: "Not enough coins! You get 5 free coins every day."}
	ErrSkipNotAvailable  = &ValidationError{Notice: "Skip unlocks after two wrong answers."}
	ErrAttemptNotFound   = &ValidationError{Notice: "No lesson attempt in progress."}
	ErrWrongPhase        = &ValidationError{Notice: "That action does not fit the current lesson phase."}
)

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// classifyStoreError maps raw store failures onto the error taxonomy.
// Permission and deadline failures get dedicated sentinels so the API
// layer can distinguish "fix your rules" from "check your network";
// everything else passes through for wrapping by the caller.
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.PermissionDenied:
		return ErrStorePermissionDenied
	case codes.DeadlineExceeded:
		return ErrStoreTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrStoreTimeout
	}
	return err
}
