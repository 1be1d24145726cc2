package domain

import (
	"testing"
	"time"
)

func TestQuestionValidate(t *testing.T) {
	q := Question{ID: "q1", Type: QuestionSingle, Options: []string{"a", "b"}, CorrectOptions: []int{1}}
	if err := q.Validate(); err != nil {
		t.Fatalf("valid question rejected: %v", err)
	}

	q.CorrectOptions = []int{2}
	if err := q.Validate(); err == nil {
		t.Fatalf("expected out-of-range index to fail")
	}

	q.Type = QuestionSingle
	q.CorrectOptions = []int{0, 1}
	if err := q.Validate(); err == nil {
		t.Fatalf("expected multi-correct single-choice to fail")
	}
}

func TestAssessmentValidateWindowOrder(t *testing.T) {
	now := time.Now()
	a := Assessment{
		ID:     "a1",
		Window: &SubmissionWindow{OpensAt: now, ClosesAt: now},
	}
	if err := a.Validate(); err == nil {
		t.Fatalf("expected zero-length window to fail")
	}
	a.Window.ClosesAt = now.Add(time.Hour)
	if err := a.Validate(); err != nil {
		t.Fatalf("valid window rejected: %v", err)
	}
}
