package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("lpr: validation failed")
	// ErrDuplicateSubmission is returned when the same plate and event type were
	// already recorded within the current minute.
	ErrDuplicateSubmission = errors.New("lpr: duplicate event")
	// ErrInvalidTransition is the parent of ErrEntryAlreadyOpen and ErrExitWithoutEntry.
	ErrInvalidTransition = errors.New("lpr: invalid session transition")
	// ErrEntryAlreadyOpen rejects an entry while the plate has an open session.
	ErrEntryAlreadyOpen = fmt.Errorf("%w: entry already happened", ErrInvalidTransition)
	// ErrExitWithoutEntry rejects an exit while the plate has no open session.
	ErrExitWithoutEntry = fmt.Errorf("%w: exit without entry", ErrInvalidTransition)
	// ErrSessionRaceLost means the open session disappeared between check and close.
	ErrSessionRaceLost = errors.New("lpr: session not found or already ended")
	// ErrStorage matches every *StorageError.
	ErrStorage = errors.New("lpr: storage failure")
)

// Reason codes reported to clients alongside a rejection.
const (
	ReasonValidation        = "validation_error"
	ReasonDuplicate         = "duplicate_submission"
	ReasonInvalidTransition = "invalid_transition"
	ReasonSessionRaceLost   = "session_race_lost"
	ReasonStorage           = "storage_failure"
)

// Validation messages.
const (
	MsgRequiredFields   = "plate number and event type are required"
	MsgInvalidEventType = "must be entry or exit"
)

// ValidationError describes a malformed request; no storage was touched.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("lpr: invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StorageError wraps a persistence failure with the operation that failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("lpr: storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// Reason maps an error returned by LPRService to its reason code.
// Unknown errors are reported as storage failures.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return ReasonValidation
	case errors.Is(err, ErrDuplicateSubmission):
		return ReasonDuplicate
	case errors.Is(err, ErrInvalidTransition):
		return ReasonInvalidTransition
	case errors.Is(err, ErrSessionRaceLost):
		return ReasonSessionRaceLost
	default:
		return ReasonStorage
	}
}

// IsRejection reports whether err is an expected, user-facing outcome rather
// than a system failure.
func IsRejection(err error) bool {
	return Reason(err) != ReasonStorage && err != nil
}
