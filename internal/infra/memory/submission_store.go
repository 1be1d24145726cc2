package memory

import (
	"context"
	"sync"

	"assessment-engine/internal/domain"
)

// SubmissionStore is an in-memory implementation of app.SubmissionStore.
// The attempt-key map plays the role of the database's unique constraint on
// (user, assessment, attempt number): concurrent inserts of the same attempt
// collapse to one winner and domain.ErrDuplicateSubmission for the rest.
type SubmissionStore struct {
	mu       sync.RWMutex
	attempts map[attemptKey]domain.Submission
	counts   map[string]int
}

type attemptKey struct {
	userID       string
	assessmentID string
	attempt      int
}

func NewSubmissionStore() *SubmissionStore {
	return &SubmissionStore{
		attempts: make(map[attemptKey]domain.Submission),
		counts:   make(map[string]int),
	}
}

func (s *SubmissionStore) CreateSubmission(_ context.Context, sub domain.Submission) error {
	key := attemptKey{sub.UserID, sub.AssessmentID, sub.AttemptNumber}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.attempts[key]; exists {
		return domain.ErrDuplicateSubmission
	}
	s.attempts[key] = sub
	s.counts[sub.UserID+"/"+sub.AssessmentID]++
	return nil
}

func (s *SubmissionStore) CountSubmissions(_ context.Context, userID, assessmentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts[userID+"/"+assessmentID], nil
}
