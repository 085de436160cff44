package services

import "errors"

// Engine error taxonomy shared across services and the HTTP mapping.
//
// Validation errors are the caller's to fix and are never retried
// automatically. Concurrency conflicts (ErrGenerationInProgress,
// ErrConcurrentModification) are transient and safe to retry with backoff.
// State-machine violations surface immediately; the engine never guesses
// intent.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation
	ErrValidationFailed = errors.New("validation failed")
	ErrDrawNotAllowed   = errors.New("a tied score is not a valid result for an elimination match")
	ErrNotAParticipant  = errors.New("submitter is not a participant of this match")

	// Concurrency
	ErrGenerationInProgress   = errors.New("bracket generation already in progress for this tournament")
	ErrConcurrentModification = errors.New("concurrent modification detected, retry the operation")

	// State machine and finalization
	ErrInvalidStateTransition = errors.New("invalid match state transition")
	ErrMatchAlreadyFinalized  = errors.New("match result already finalized")
	ErrDisputeAlreadyOpen     = errors.New("a dispute is already open for this match")
	ErrDisputeAlreadyClosed   = errors.New("dispute has already reached a terminal status")
	ErrMatchNotDisputed       = errors.New("match is not in the disputed state")
	ErrWinnerNotInMatch       = errors.New("resolved winner is not a participant of the match")
)
