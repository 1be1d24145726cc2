package domain

import "fmt"

// ReviewStatus is the state of a Result in the human-review workflow.
type ReviewStatus string

const (
	ReviewPending          ReviewStatus = "pending"
	ReviewUnderReview      ReviewStatus = "under_review"
	ReviewApproved         ReviewStatus = "approved"
	ReviewRejected         ReviewStatus = "rejected"
	ReviewNeedsRevision    ReviewStatus = "needs_revision"
	ReviewRecheckRequested ReviewStatus = "recheck_requested"
	ReviewRechecked        ReviewStatus = "rechecked"
	ReviewFinalized        ReviewStatus = "finalized"
)

// ReviewAction is a named edge of the review state machine.
type ReviewAction string

const (
	ReviewAssign          ReviewAction = "assign"
	ReviewApprove         ReviewAction = "approve"
	ReviewReject          ReviewAction = "reject"
	ReviewRequestRevision ReviewAction = "request_revision"
	ReviewDispute         ReviewAction = "dispute"
	ReviewRecheck         ReviewAction = "recheck"
	ReviewFinalize        ReviewAction = "finalize"
)

// reviewTransitions is the single source of truth for allowed transitions.
// Anything not listed here fails with ErrInvalidReviewTransition.
var reviewTransitions = map[ReviewAction]map[ReviewStatus]ReviewStatus{
	ReviewAssign:          {ReviewPending: ReviewUnderReview},
	ReviewApprove:         {ReviewUnderReview: ReviewApproved},
	ReviewReject:          {ReviewUnderReview: ReviewRejected},
	ReviewRequestRevision: {ReviewUnderReview: ReviewNeedsRevision},
	ReviewDispute:         {ReviewApproved: ReviewRecheckRequested},
	ReviewRecheck:         {ReviewRecheckRequested: ReviewRechecked},
	ReviewFinalize: {
		ReviewRechecked: ReviewFinalized,
		ReviewApproved:  ReviewFinalized,
	},
}

// scoringActions are the reviewer actions allowed to carry a manual score.
var scoringActions = map[ReviewAction]bool{
	ReviewApprove: true,
	ReviewRecheck: true,
}

// Apply returns the successor state for the given action, or
// ErrInvalidReviewTransition if the edge is not part of the machine.
func (s ReviewStatus) Apply(action ReviewAction) (ReviewStatus, error) {
	next, ok := reviewTransitions[action][s]
	if !ok {
		return s, fmt.Errorf("%w: %s from %s", ErrInvalidReviewTransition, action, s)
	}
	return next, nil
}

// Terminal reports whether no further review actions are possible.
func (s ReviewStatus) Terminal() bool {
	return s == ReviewFinalized || s == ReviewRejected
}

// AllowsManualScore reports whether the action may set ManualScoreOverride.
func (a ReviewAction) AllowsManualScore() bool {
	return scoringActions[a]
}
