package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"assessment-engine/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

type submissionRow struct {
	bun.BaseModel `bun:"table:submissions"`

	ID               string           `bun:"id,pk"`
	UserID           string           `bun:"user_id"`
	AssessmentID     string           `bun:"assessment_id"`
	AttemptNumber    int              `bun:"attempt_number"`
	Answers          map[string][]int `bun:"answers,type:jsonb"`
	SubmittedAt      time.Time        `bun:"submitted_at"`
	TimeTakenSeconds int              `bun:"time_taken_seconds"`
}

// SubmissionStore persists attempts in Postgres. The unique constraint on
// (user_id, assessment_id, attempt_number) makes the insert the atomic half
// of the gate's check-then-act: the loser of a race gets
// domain.ErrDuplicateSubmission, never a second counted attempt.
type SubmissionStore struct {
	db *bun.DB
}

func NewSubmissionStore(db *bun.DB) *SubmissionStore {
	return &SubmissionStore{db: db}
}

func (s *SubmissionStore) CreateSubmission(ctx context.Context, sub domain.Submission) error {
	row := submissionRow{
		ID:               sub.ID,
		UserID:           sub.UserID,
		AssessmentID:     sub.AssessmentID,
		AttemptNumber:    sub.AttemptNumber,
		Answers:          sub.Answers,
		SubmittedAt:      sub.SubmittedAt,
		TimeTakenSeconds: sub.TimeTakenSeconds,
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateSubmission
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (s *SubmissionStore) CountSubmissions(ctx context.Context, userID, assessmentID string) (int, error) {
	count, err := s.db.NewSelect().
		Model((*submissionRow)(nil)).
		Where("user_id = ?", userID).
		Where("assessment_id = ?", assessmentID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return count, nil
}

// isUniqueViolation reports SQLSTATE 23505 from the pgdriver.
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}
