package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"assessment-engine/internal/domain"
	"assessment-engine/internal/engine"
)

// AssessmentRepository loads assessment content (from cache/backing store).
type AssessmentRepository interface {
	GetAssessment(ctx context.Context, assessmentID string) (domain.Assessment, error)
}

// SubmissionStore persists attempts. CreateSubmission must be atomic:
// a unique constraint on (user, assessment, attempt number) turns the
// check-then-act race into domain.ErrDuplicateSubmission.
type SubmissionStore interface {
	CreateSubmission(ctx context.Context, sub domain.Submission) error
	CountSubmissions(ctx context.Context, userID, assessmentID string) (int, error)
}

// ResultStore persists evaluated results and review amendments.
// UpdateReview takes the amended result with Version already incremented and
// must apply it only if the stored row still carries Version-1, returning
// domain.ErrVersionConflict otherwise.
type ResultStore interface {
	SaveResult(ctx context.Context, result domain.Result) error
	GetResult(ctx context.Context, submissionID string) (domain.Result, error)
	LatestResult(ctx context.Context, userID, assessmentID string) (domain.Result, error)
	LatestResults(ctx context.Context, assessmentID string) ([]domain.Result, error)
	UpdateReview(ctx context.Context, result domain.Result) error
}

// MeritListProvider serves ranked merit lists, typically through a cache
// that must be invalidated whenever a result is created or amended.
type MeritListProvider interface {
	MeritList(ctx context.Context, assessmentID string) ([]domain.MeritListEntry, error)
	Invalidate(ctx context.Context, assessmentID string) error
}

// SubmitRequest is one learner attempt as received by the submit endpoint.
type SubmitRequest struct {
	UserID           string           `json:"userId"`
	AssessmentID     string           `json:"assessmentId"`
	Answers          map[string][]int `json:"answers"`
	TimeTakenSeconds int              `json:"timeTaken"`
}

// ReviewRequest is one admin review action on a result.
type ReviewRequest struct {
	SubmissionID string              `json:"resultId"`
	Action       domain.ReviewAction `json:"action"`
	Comment      string              `json:"comment,omitempty"`
	ManualScore  *float64            `json:"manualScore,omitempty"`
}

// AssessmentService contains the core submit/score/rank/review use cases.
type AssessmentService struct {
	assessments AssessmentRepository
	submissions SubmissionStore
	results     ResultStore
	meritLists  MeritListProvider
	gate        *engine.Gate
	now         func() time.Time

	mu    sync.RWMutex
	feeds map[string]*feed
}

func NewAssessmentService(
	assessments AssessmentRepository,
	submissions SubmissionStore,
	results ResultStore,
	meritLists MeritListProvider,
	access engine.AccessChecker,
) *AssessmentService {
	return &AssessmentService{
		assessments: assessments,
		submissions: submissions,
		results:     results,
		meritLists:  meritLists,
		gate:        engine.NewGate(access, submissions),
		now:         time.Now,
		feeds:       make(map[string]*feed),
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *AssessmentService) WithClock(now func() time.Time) *AssessmentService {
	s.now = now
	return s
}

// Submit gates, evaluates, and persists one attempt, then refreshes the
// merit list. The received timestamp is stamped once on entry and used for
// both the window check and Submission.SubmittedAt, so a submission inside
// the window survives evaluation finishing after close.
func (s *AssessmentService) Submit(ctx context.Context, req SubmitRequest) (domain.Result, error) {
	receivedAt := s.now()

	assessment, err := s.assessments.GetAssessment(ctx, req.AssessmentID)
	if err != nil {
		return domain.Result{}, err
	}

	attempt, err := s.gate.Authorize(ctx, req.UserID, assessment, receivedAt)
	if err != nil {
		return domain.Result{}, err
	}

	sub := domain.Submission{
		ID:               fmt.Sprintf("%s/%s/%d", req.AssessmentID, req.UserID, attempt),
		UserID:           req.UserID,
		AssessmentID:     req.AssessmentID,
		AttemptNumber:    attempt,
		Answers:          req.Answers,
		SubmittedAt:      receivedAt,
		TimeTakenSeconds: req.TimeTakenSeconds,
	}

	// Evaluate before the insert: a malformed submission must not burn an
	// attempt.
	result, err := engine.Evaluate(assessment.Questions, sub)
	if err != nil {
		return domain.Result{}, err
	}
	if assessment.Reviewable() {
		result.ReviewStatus = domain.ReviewPending
	}

	if err := s.submissions.CreateSubmission(ctx, sub); err != nil {
		return domain.Result{}, err
	}
	if err := s.results.SaveResult(ctx, result); err != nil {
		return domain.Result{}, err
	}

	s.refresh(ctx, req.AssessmentID)
	return result, nil
}

// GetResult returns the latest attempt's result for the user.
func (s *AssessmentService) GetResult(ctx context.Context, userID, assessmentID string) (domain.Result, error) {
	return s.results.LatestResult(ctx, userID, assessmentID)
}

// MeritList returns the ranked leaderboard for an assessment.
func (s *AssessmentService) MeritList(ctx context.Context, assessmentID string) ([]domain.MeritListEntry, error) {
	return s.meritLists.MeritList(ctx, assessmentID)
}

// Review applies one review action to a result. Concurrent actions on the
// same result are serialized by the store's optimistic version check; on
// domain.ErrVersionConflict the caller reloads and retries.
func (s *AssessmentService) Review(ctx context.Context, req ReviewRequest) (domain.Result, error) {
	current, err := s.results.GetResult(ctx, req.SubmissionID)
	if err != nil {
		return domain.Result{}, err
	}

	next, err := current.ReviewStatus.Apply(req.Action)
	if err != nil {
		return domain.Result{}, err
	}

	updated := current
	updated.ReviewStatus = next
	if req.Comment != "" {
		updated.ReviewComment = req.Comment
	}
	if req.ManualScore != nil {
		if !req.Action.AllowsManualScore() {
			return domain.Result{}, fmt.Errorf("%w: action %s may not set a manual score", domain.ErrInvalidReviewTransition, req.Action)
		}
		updated.ManualScoreOverride = req.ManualScore
	}
	updated.Version++

	if err := s.results.UpdateReview(ctx, updated); err != nil {
		return domain.Result{}, err
	}

	s.refresh(ctx, updated.AssessmentID)
	return updated, nil
}

// SubscribeMeritList returns a channel that receives merit-list snapshots
// for an assessment, starting with the current one. The caller must invoke
// the returned cancel function to avoid leaks.
func (s *AssessmentService) SubscribeMeritList(ctx context.Context, assessmentID string) (<-chan []domain.MeritListEntry, func(), error) {
	// Subscribers cannot watch unknown assessments.
	if _, err := s.assessments.GetAssessment(ctx, assessmentID); err != nil {
		return nil, nil, err
	}

	initial, err := s.meritLists.MeritList(ctx, assessmentID)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	f, ok := s.feeds[assessmentID]
	if !ok {
		f = newFeed()
		s.feeds[assessmentID] = f
	}
	s.mu.Unlock()

	ch, cancel := f.subscribe()
	ch <- initial
	return ch, cancel, nil
}

// refresh invalidates the cached merit list and pushes a fresh snapshot to
// subscribers. Feed delivery is best effort.
func (s *AssessmentService) refresh(ctx context.Context, assessmentID string) {
	_ = s.meritLists.Invalidate(ctx, assessmentID)

	s.mu.RLock()
	f, ok := s.feeds[assessmentID]
	s.mu.RUnlock()
	if !ok {
		return
	}

	entries, err := s.meritLists.MeritList(ctx, assessmentID)
	if err != nil {
		return
	}
	f.broadcast(entries)
}

// feed fans merit-list snapshots out to subscribers of one assessment.
type feed struct {
	mu          sync.Mutex
	subscribers map[chan []domain.MeritListEntry]struct{}
}

func newFeed() *feed {
	return &feed{subscribers: make(map[chan []domain.MeritListEntry]struct{})}
}

func (f *feed) subscribe() (chan []domain.MeritListEntry, func()) {
	ch := make(chan []domain.MeritListEntry, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

func (f *feed) broadcast(entries []domain.MeritListEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- entries:
		default:
			// Drop the stale snapshot so a slow client never blocks the rest.
			select {
			case <-ch:
			default:
			}
			ch <- entries
		}
	}
}
