package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"assessment-engine/internal/domain"
	"github.com/uptrace/bun"
)

type resultRow struct {
	bun.BaseModel `bun:"table:results"`

	SubmissionID          string                   `bun:"submission_id,pk"`
	UserID                string                   `bun:"user_id"`
	AssessmentID          string                   `bun:"assessment_id"`
	AttemptNumber         int                      `bun:"attempt_number"`
	TotalQuestions        int                      `bun:"total_questions"`
	Correct               int                      `bun:"correct"`
	Wrong                 int                      `bun:"wrong"`
	Skipped               int                      `bun:"skipped"`
	PositiveMarksEarned   float64                  `bun:"positive_marks_earned"`
	NegativeMarksDeducted float64                  `bun:"negative_marks_deducted"`
	TotalScore            float64                  `bun:"total_score"`
	Accuracy              float64                  `bun:"accuracy"`
	TimeTakenSeconds      int                      `bun:"time_taken_seconds"`
	Answers               []domain.AnswerBreakdown `bun:"answers,type:jsonb"`
	ReviewStatus          string                   `bun:"review_status"`
	ReviewComment         string                   `bun:"review_comment"`
	ManualScoreOverride   *float64                 `bun:"manual_score_override"`
	Version               int                      `bun:"version"`
}

func toRow(r domain.Result) resultRow {
	return resultRow{
		SubmissionID:          r.SubmissionID,
		UserID:                r.UserID,
		AssessmentID:          r.AssessmentID,
		AttemptNumber:         r.AttemptNumber,
		TotalQuestions:        r.TotalQuestions,
		Correct:               r.Correct,
		Wrong:                 r.Wrong,
		Skipped:               r.Skipped,
		PositiveMarksEarned:   r.PositiveMarksEarned,
		NegativeMarksDeducted: r.NegativeMarksDeducted,
		TotalScore:            r.TotalScore,
		Accuracy:              r.Accuracy,
		TimeTakenSeconds:      r.TimeTakenSeconds,
		Answers:               r.Answers,
		ReviewStatus:          string(r.ReviewStatus),
		ReviewComment:         r.ReviewComment,
		ManualScoreOverride:   r.ManualScoreOverride,
		Version:               r.Version,
	}
}

func (row resultRow) toDomain() domain.Result {
	return domain.Result{
		SubmissionID:          row.SubmissionID,
		UserID:                row.UserID,
		AssessmentID:          row.AssessmentID,
		AttemptNumber:         row.AttemptNumber,
		TotalQuestions:        row.TotalQuestions,
		Correct:               row.Correct,
		Wrong:                 row.Wrong,
		Skipped:               row.Skipped,
		PositiveMarksEarned:   row.PositiveMarksEarned,
		NegativeMarksDeducted: row.NegativeMarksDeducted,
		TotalScore:            row.TotalScore,
		Accuracy:              row.Accuracy,
		TimeTakenSeconds:      row.TimeTakenSeconds,
		Answers:               row.Answers,
		ReviewStatus:          domain.ReviewStatus(row.ReviewStatus),
		ReviewComment:         row.ReviewComment,
		ManualScoreOverride:   row.ManualScoreOverride,
		Version:               row.Version,
	}
}

// ResultStore persists evaluated results. Results are amended in place by
// the review workflow, never replaced; the version column serializes
// concurrent review actions.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) SaveResult(ctx context.Context, result domain.Result) error {
	row := toRow(result)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *ResultStore) GetResult(ctx context.Context, submissionID string) (domain.Result, error) {
	var row resultRow
	err := s.db.NewSelect().Model(&row).
		Where("submission_id = ?", submissionID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Result{}, domain.ErrResultNotFound
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("get result: %w", err)
	}
	return row.toDomain(), nil
}

func (s *ResultStore) LatestResult(ctx context.Context, userID, assessmentID string) (domain.Result, error) {
	var row resultRow
	err := s.db.NewSelect().Model(&row).
		Where("user_id = ?", userID).
		Where("assessment_id = ?", assessmentID).
		Order("attempt_number DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Result{}, domain.ErrResultNotFound
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("latest result: %w", err)
	}
	return row.toDomain(), nil
}

// LatestResults returns each user's highest-attempt result for the
// assessment; that attempt is the one the merit list counts.
func (s *ResultStore) LatestResults(ctx context.Context, assessmentID string) ([]domain.Result, error) {
	var rows []resultRow
	err := s.db.NewSelect().Model(&rows).
		Where("assessment_id = ?", assessmentID).
		DistinctOn("user_id").
		OrderExpr("user_id, attempt_number DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest results: %w", err)
	}

	results := make([]domain.Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, row.toDomain())
	}
	return results, nil
}

// UpdateReview applies an amended result only if the stored row still
// carries the previous version.
func (s *ResultStore) UpdateReview(ctx context.Context, result domain.Result) error {
	row := toRow(result)
	res, err := s.db.NewUpdate().Model(&row).
		Column("review_status", "review_comment", "manual_score_override", "version").
		Where("submission_id = ?", result.SubmissionID).
		Where("version = ?", result.Version-1).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if affected == 0 {
		exists, err := s.db.NewSelect().Model((*resultRow)(nil)).
			Where("submission_id = ?", result.SubmissionID).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("update review: %w", err)
		}
		if !exists {
			return domain.ErrResultNotFound
		}
		return domain.ErrVersionConflict
	}
	return nil
}
