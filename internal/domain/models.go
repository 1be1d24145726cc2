package domain

import (
	"fmt"
	"time"
)

// QuestionType distinguishes single-choice from multi-select questions.
type QuestionType string

const (
	QuestionSingle   QuestionType = "single"
	QuestionMultiple QuestionType = "multiple"
)

// Question is one item of an assessment's question set. CorrectOptions holds
// indices into Options; NegativeMark is a positive magnitude subtracted on a
// wrong answer.
type Question struct {
	ID             string       `json:"id"`
	Type           QuestionType `json:"type"`
	Prompt         string       `json:"prompt"`
	Options        []string     `json:"options"`
	CorrectOptions []int        `json:"correctOptions"`
	PositiveMarks  float64      `json:"positiveMarks"`
	NegativeMark   float64      `json:"negativeMark"`
}

// Validate checks the invariants the persistence boundary must uphold:
// correct indices in range, single-choice has exactly one correct option.
func (q Question) Validate() error {
	if len(q.CorrectOptions) == 0 {
		return fmt.Errorf("question %s: no correct options", q.ID)
	}
	if q.Type == QuestionSingle && len(q.CorrectOptions) != 1 {
		return fmt.Errorf("question %s: single-choice must have exactly one correct option, got %d", q.ID, len(q.CorrectOptions))
	}
	for _, idx := range q.CorrectOptions {
		if idx < 0 || idx >= len(q.Options) {
			return fmt.Errorf("question %s: correct option index %d out of range (%d options)", q.ID, idx, len(q.Options))
		}
	}
	return nil
}

// AssessmentKind tells which product flow an assessment belongs to.
type AssessmentKind string

const (
	KindQuiz        AssessmentKind = "quiz"
	KindScholarship AssessmentKind = "scholarship"
	KindTestSeries  AssessmentKind = "test_series"
)

// SubmissionWindow is the interval during which answers are accepted:
// OpensAt inclusive, ClosesAt exclusive.
type SubmissionWindow struct {
	OpensAt  time.Time `json:"opensAt"`
	ClosesAt time.Time `json:"closesAt"`
}

// Assessment is a quiz, scholarship test, or test-series instance together
// with its question set and marking scheme. Authored externally and
// read-only here.
type Assessment struct {
	ID              string            `json:"id"`
	Kind            AssessmentKind    `json:"kind"`
	Title           string            `json:"title"`
	Questions       []Question        `json:"questions"`
	DurationSeconds int               `json:"durationSeconds"`
	AttemptLimit    *int              `json:"attemptLimit,omitempty"`
	IsFree          bool              `json:"isFree"`
	Price           *float64          `json:"price,omitempty"`
	Window          *SubmissionWindow `json:"submissionWindow,omitempty"`
}

// Validate checks question invariants and window ordering.
func (a Assessment) Validate() error {
	for _, q := range a.Questions {
		if err := q.Validate(); err != nil {
			return err
		}
	}
	if a.Window != nil && !a.Window.OpensAt.Before(a.Window.ClosesAt) {
		return fmt.Errorf("assessment %s: submission window opens at or after it closes", a.ID)
	}
	return nil
}

// Reviewable reports whether results of this assessment go through the
// human-review workflow (uploaded answer sheets in test series).
func (a Assessment) Reviewable() bool {
	return a.Kind == KindTestSeries
}

// Submission is one learner attempt: a mapping from question ID to the set
// of selected option indices (empty or absent means skipped). Immutable
// after creation; a resubmission is a new Submission with the next attempt
// number.
type Submission struct {
	ID               string           `json:"id"`
	UserID           string           `json:"userId"`
	AssessmentID     string           `json:"assessmentId"`
	AttemptNumber    int              `json:"attemptNumber"`
	Answers          map[string][]int `json:"answers"`
	SubmittedAt      time.Time        `json:"submittedAt"`
	TimeTakenSeconds int              `json:"timeTakenSeconds"`
}

// AnswerBreakdown records how a single question was scored.
type AnswerBreakdown struct {
	QuestionID string  `json:"questionId"`
	Selected   []int   `json:"selected"`
	Correct    []int   `json:"correct"`
	IsCorrect  bool    `json:"isCorrect"`
	ScoreDelta float64 `json:"scoreDelta"`
}

// Result is the scored outcome of one Submission. The auto-computed
// breakdown is retained even when a reviewer overrides the score.
type Result struct {
	SubmissionID          string            `json:"submissionId"`
	UserID                string            `json:"userId"`
	AssessmentID          string            `json:"assessmentId"`
	AttemptNumber         int               `json:"attemptNumber"`
	TotalQuestions        int               `json:"totalQuestions"`
	Correct               int               `json:"correct"`
	Wrong                 int               `json:"wrong"`
	Skipped               int               `json:"skipped"`
	PositiveMarksEarned   float64           `json:"positiveMarksEarned"`
	NegativeMarksDeducted float64           `json:"negativeMarksDeducted"`
	TotalScore            float64           `json:"totalScore"`
	Accuracy              float64           `json:"accuracy"`
	TimeTakenSeconds      int               `json:"timeTakenSeconds"`
	Answers               []AnswerBreakdown `json:"answers"`

	ReviewStatus        ReviewStatus `json:"reviewStatus,omitempty"`
	ReviewComment       string       `json:"reviewComment,omitempty"`
	ManualScoreOverride *float64     `json:"manualScoreOverride,omitempty"`
	Version             int          `json:"version"`
}

// EffectiveScore is the score used for ranking and display: the manual
// override when a reviewer assigned one, the auto-computed total otherwise.
func (r Result) EffectiveScore() float64 {
	if r.ManualScoreOverride != nil {
		return *r.ManualScoreOverride
	}
	return r.TotalScore
}

// MeritListEntry is one row of a ranked leaderboard. Transient: always
// recomputed from the Result set, never persisted as authoritative state.
type MeritListEntry struct {
	Rank             int     `json:"rank"`
	UserID           string  `json:"userId"`
	TotalScore       float64 `json:"totalScore"`
	Accuracy         float64 `json:"accuracy"`
	TimeTakenSeconds int     `json:"timeTakenSeconds"`
}
