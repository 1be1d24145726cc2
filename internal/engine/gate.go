package engine

import (
	"context"
	"fmt"
	"time"

	"assessment-engine/internal/domain"
)

// AccessChecker asks the external purchase/access service whether the user
// may take a paid assessment.
type AccessChecker interface {
	HasAccess(ctx context.Context, userID, assessmentID string) (bool, error)
}

// AttemptCounter counts committed submissions for a (user, assessment) pair.
// In-flight attempts must not be counted; the store's unique constraint
// closes the remaining race.
type AttemptCounter interface {
	CountSubmissions(ctx context.Context, userID, assessmentID string) (int, error)
}

// Gate decides whether a user may submit an assessment right now. It is a
// pure decision function over its collaborators; it never mutates state.
// The caller must pair Authorize with an atomic submission insert.
type Gate struct {
	access   AccessChecker
	attempts AttemptCounter
}

func NewGate(access AccessChecker, attempts AttemptCounter) *Gate {
	return &Gate{access: access, attempts: attempts}
}

// Authorize runs the checks in order, short-circuiting on the first denial:
// purchase, attempt limit, submission window. On success it returns the
// attempt number the submission should claim (count + 1).
//
// Window boundaries: OpensAt is inclusive, ClosesAt is exclusive. The caller
// passes the submission's received timestamp as now, so a submission inside
// the window is never rejected because evaluation finished after close.
func (g *Gate) Authorize(ctx context.Context, userID string, assessment domain.Assessment, now time.Time) (int, error) {
	if !assessment.IsFree {
		ok, err := g.access.HasAccess(ctx, userID, assessment.ID)
		if err != nil {
			return 0, fmt.Errorf("check access: %w", err)
		}
		if !ok {
			return 0, domain.ErrPaymentRequired
		}
	}

	count, err := g.attempts.CountSubmissions(ctx, userID, assessment.ID)
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	if assessment.AttemptLimit != nil && count >= *assessment.AttemptLimit {
		return 0, domain.ErrNoAttemptsLeft
	}

	if w := assessment.Window; w != nil {
		if now.Before(w.OpensAt) {
			return 0, domain.ErrNotYetOpen
		}
		if !now.Before(w.ClosesAt) {
			return 0, domain.ErrWindowClosed
		}
	}

	return count + 1, nil
}
