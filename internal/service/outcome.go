package service

import "errors"

// Outcome classifies the result of a store operation.
type Outcome int

const (
	OutcomeOK Outcome = iota
	// OutcomeNotFound means no credential record matched.
	OutcomeNotFound
	// OutcomeConflict means the email is already registered.
	OutcomeConflict
	OutcomeStorageError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeConflict:
		return "conflict"
	default:
		return "storage_error"
	}
}

// OutcomeOf maps an error returned by the store onto an Outcome.
// Errors the store does not produce are treated as storage errors.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrInvalidCredentials):
		return OutcomeNotFound
	case errors.Is(err, ErrUserAlreadyExists):
		return OutcomeConflict
	default:
		return OutcomeStorageError
	}
}
