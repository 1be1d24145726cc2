package memory

import (
	"context"

	"assessment-engine/internal/domain"
)

// StaticAssessmentRepository serves assessments from an in-memory map
// (useful for tests/demos and redis-less deploys).
type StaticAssessmentRepository struct {
	assessments map[string]domain.Assessment
}

func NewStaticAssessmentRepository(assessments map[string]domain.Assessment) *StaticAssessmentRepository {
	return &StaticAssessmentRepository{assessments: assessments}
}

func (r *StaticAssessmentRepository) GetAssessment(_ context.Context, assessmentID string) (domain.Assessment, error) {
	if a, ok := r.assessments[assessmentID]; ok {
		return a, nil
	}
	return domain.Assessment{}, domain.ErrAssessmentNotFound
}
