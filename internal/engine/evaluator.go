// Package engine holds the pure scoring, gating, and ranking logic. Nothing
// here touches the network or a store; collaborators are injected.
package engine

import (
	"fmt"
	"sort"

	"assessment-engine/internal/domain"
)

// Evaluate scores one submission against one question set and marking
// scheme. It is a pure function: re-running it on the same inputs yields an
// identical Result, which the review workflow relies on when it re-triggers
// auto-evaluation.
//
// A submission key that does not resolve to a question in the set fails the
// whole evaluation with domain.ErrUnknownQuestion; stale clients must not be
// able to corrupt scores silently.
func Evaluate(questions []domain.Question, sub domain.Submission) (domain.Result, error) {
	known := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		known[q.ID] = struct{}{}
	}
	for questionID := range sub.Answers {
		if _, ok := known[questionID]; !ok {
			return domain.Result{}, fmt.Errorf("%w: %s", domain.ErrUnknownQuestion, questionID)
		}
	}

	result := domain.Result{
		SubmissionID:     sub.ID,
		UserID:           sub.UserID,
		AssessmentID:     sub.AssessmentID,
		AttemptNumber:    sub.AttemptNumber,
		TotalQuestions:   len(questions),
		TimeTakenSeconds: sub.TimeTakenSeconds,
		Answers:          make([]domain.AnswerBreakdown, 0, len(questions)),
	}

	// Breakdown follows the question-set order so output is deterministic.
	for _, q := range questions {
		selected := normalizeSet(sub.Answers[q.ID])
		correct := normalizeSet(q.CorrectOptions)
		breakdown := domain.AnswerBreakdown{
			QuestionID: q.ID,
			Selected:   selected,
			Correct:    correct,
		}

		switch {
		case len(selected) == 0:
			result.Skipped++
		case equalSets(selected, correct):
			breakdown.IsCorrect = true
			breakdown.ScoreDelta = q.PositiveMarks
			result.Correct++
			result.PositiveMarksEarned += q.PositiveMarks
		default:
			// Exact set equality only: a partially-correct multi-select
			// subset is wrong, never partial credit.
			breakdown.ScoreDelta = -q.NegativeMark
			result.Wrong++
			result.NegativeMarksDeducted += q.NegativeMark
		}

		result.TotalScore += breakdown.ScoreDelta
		result.Answers = append(result.Answers, breakdown)
	}

	if result.TotalQuestions > 0 {
		result.Accuracy = float64(result.Correct) / float64(result.TotalQuestions) * 100
	}
	return result, nil
}

// normalizeSet returns a sorted, deduplicated copy so set comparison is
// order-independent and repeated selections do not double-count.
func normalizeSet(indices []int) []int {
	out := make([]int, 0, len(indices))
	out = append(out, indices...)
	sort.Ints(out)
	deduped := out[:0]
	for i, v := range out {
		if i == 0 || v != out[i-1] {
			deduped = append(deduped, v)
		}
	}
	return deduped
}

func equalSets(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
