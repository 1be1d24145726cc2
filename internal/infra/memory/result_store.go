package memory

import (
	"context"
	"sync"

	"assessment-engine/internal/domain"
)

// ResultStore is an in-memory implementation of app.ResultStore with the
// same optimistic-version semantics as the Postgres store.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]domain.Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]domain.Result)}
}

func (s *ResultStore) SaveResult(_ context.Context, result domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.SubmissionID] = result
	return nil
}

func (s *ResultStore) GetResult(_ context.Context, submissionID string) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.results[submissionID]; ok {
		return r, nil
	}
	return domain.Result{}, domain.ErrResultNotFound
}

// LatestResult returns the highest-attempt result for the user.
func (s *ResultStore) LatestResult(_ context.Context, userID, assessmentID string) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest domain.Result
	found := false
	for _, r := range s.results {
		if r.UserID != userID || r.AssessmentID != assessmentID {
			continue
		}
		if !found || r.AttemptNumber > latest.AttemptNumber {
			latest = r
			found = true
		}
	}
	if !found {
		return domain.Result{}, domain.ErrResultNotFound
	}
	return latest, nil
}

// LatestResults returns each user's highest-attempt result for the
// assessment; that attempt is the one the merit list counts.
func (s *ResultStore) LatestResults(_ context.Context, assessmentID string) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]domain.Result)
	for _, r := range s.results {
		if r.AssessmentID != assessmentID {
			continue
		}
		if prev, ok := latest[r.UserID]; !ok || r.AttemptNumber > prev.AttemptNumber {
			latest[r.UserID] = r
		}
	}

	out := make([]domain.Result, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	return out, nil
}

// UpdateReview applies an amended result only if the stored row still
// carries the previous version.
func (s *ResultStore) UpdateReview(_ context.Context, result domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.results[result.SubmissionID]
	if !ok {
		return domain.ErrResultNotFound
	}
	if current.Version != result.Version-1 {
		return domain.ErrVersionConflict
	}
	s.results[result.SubmissionID] = result
	return nil
}
