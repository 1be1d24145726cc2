package domain

import "errors"

var (
	// ErrAssessmentNotFound indicates the assessment content could not be loaded.
	ErrAssessmentNotFound = errors.New("assessment not found")
	// ErrUnknownQuestion is returned when a submission references a question
	// that is not in the assessment's question set. The whole submission is
	// rejected; there is no partial scoring.
	ErrUnknownQuestion = errors.New("submission references unknown question")
	// ErrPaymentRequired denies access to a paid assessment without a purchase.
	ErrPaymentRequired = errors.New("payment required")
	// ErrNoAttemptsLeft denies a submission beyond the attempt limit.
	ErrNoAttemptsLeft = errors.New("no attempts left")
	// ErrNotYetOpen denies a submission before the window opens.
	ErrNotYetOpen = errors.New("submission window not yet open")
	// ErrWindowClosed denies a submission at or after the window close.
	ErrWindowClosed = errors.New("submission window closed")
	// ErrDuplicateSubmission is the unique-constraint violation of the atomic
	// attempt insert, surfaced as "already submitted" rather than a 500.
	ErrDuplicateSubmission = errors.New("attempt already submitted")
	// ErrResultNotFound is returned when no submission exists for the user.
	ErrResultNotFound = errors.New("result not found")
	// ErrInvalidReviewTransition rejects out-of-order review actions.
	ErrInvalidReviewTransition = errors.New("invalid review transition")
	// ErrVersionConflict means a concurrent review action won the optimistic
	// version check; the caller should reload and retry.
	ErrVersionConflict = errors.New("result modified concurrently")
)
