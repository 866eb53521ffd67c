package service

import (
	"context"
	"fmt"

	"ioccore/internal/cache"
	"ioccore/internal/config"
	"ioccore/internal/model"
)

// SubmissionStore persists rater submissions
// (implemented by repository.AssessmentRepo)
type SubmissionStore interface {
	CreateSubmission(ctx context.Context, submission *model.Submission) error
}

// IntakeService receives rater submissions and tracks completion progress so
// callers know when a subject crosses the aggregation threshold.
type IntakeService struct {
	store      SubmissionStore
	completion cache.CompletionCache
	cfg        config.ScoringConfig
}

// NewIntakeService creates a new submission intake service
func NewIntakeService(store SubmissionStore, completion cache.CompletionCache, cfg config.ScoringConfig) (*IntakeService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scoring config: %w", err)
	}
	return &IntakeService{store: store, completion: completion, cfg: cfg}, nil
}

// Assign registers how many raters were invited for a subject
func (s *IntakeService) Assign(ctx context.Context, assessmentID, subjectID string, raters int) error {
	if raters < 1 {
		return fmt.Errorf("at least one rater must be assigned: %w", model.ErrInsufficientData)
	}
	return s.completion.SetAssigned(ctx, assessmentID, subjectID, raters)
}

// Submit persists one rater's responses, advances the completion counter and
// reports whether the subject is now eligible for 360 aggregation
func (s *IntakeService) Submit(ctx context.Context, submission *model.Submission) (bool, error) {
	if len(submission.Responses) == 0 {
		return false, fmt.Errorf("empty submission from rater %s: %w", submission.RaterID, model.ErrInsufficientData)
	}

	if err := s.store.CreateSubmission(ctx, submission); err != nil {
		return false, fmt.Errorf("store submission: %w", err)
	}
	if _, err := s.completion.IncrSubmitted(ctx, submission.AssessmentID, submission.SubjectID); err != nil {
		return false, fmt.Errorf("advance completion counter: %w", err)
	}

	fraction, err := s.completion.Completion(ctx, submission.AssessmentID, submission.SubjectID)
	if err != nil {
		return false, fmt.Errorf("read completion: %w", err)
	}
	return fraction >= s.cfg.CompletionThreshold, nil
}
