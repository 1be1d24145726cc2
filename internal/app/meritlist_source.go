package app

import (
	"context"

	"assessment-engine/internal/domain"
	"assessment-engine/internal/engine"
)

// MeritListSource recomputes a merit list from the result store on demand.
// The cache implementations (memory, redis) wrap it as their loader, so
// ranking stays stateless and a late or corrected result shows up on the
// next read.
type MeritListSource struct {
	results ResultStore
}

func NewMeritListSource(results ResultStore) *MeritListSource {
	return &MeritListSource{results: results}
}

func (s *MeritListSource) LoadMeritList(ctx context.Context, assessmentID string) ([]domain.MeritListEntry, error) {
	results, err := s.results.LatestResults(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	return engine.Rank(results), nil
}
