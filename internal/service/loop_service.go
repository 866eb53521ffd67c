package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ioccore/internal/cache"
	"ioccore/internal/config"
	"ioccore/internal/model"
)

// LoopStore persists loop state and the append-only iteration history
// (avoids a repository import cycle, implemented by repository.LoopRepo)
type LoopStore interface {
	CreateLoop(ctx context.Context, loop *model.FeedbackLoop) error
	UpdateLoop(ctx context.Context, loop *model.FeedbackLoop) error
	AppendIteration(ctx context.Context, iteration *model.Iteration) error
	RecordDisagreement(ctx context.Context, d *model.Disagreement) error
}

// LoopService drives bounded iterative refinement between a Generator and a
// Validator until convergence or a stopping condition. Sequential within one
// loop; independent loop instances share nothing but the content cache.
type LoopService struct {
	store     LoopStore
	generator Generator
	validator Validator

	fallbackGenerator Generator
	fallbackValidator Validator
	degradedGenerator *HeuristicGenerator
	degradedValidator *HeuristicValidator

	cache    cache.ContentCache
	resolver DisagreementResolver

	cfg    config.LoopConfig
	logger *zap.Logger
}

// NewLoopService creates a new feedback-loop orchestrator
func NewLoopService(store LoopStore, generator Generator, validator Validator, cfg config.LoopConfig, logger *zap.Logger) (*LoopService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("loop config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoopService{
		store:             store,
		generator:         generator,
		validator:         validator,
		degradedGenerator: NewHeuristicGenerator(),
		degradedValidator: NewHeuristicValidator(),
		cfg:               cfg,
		logger:            logger,
	}, nil
}

// SetFallbacks installs secondary collaborators for the fallback cascade
func (s *LoopService) SetFallbacks(generator Generator, validator Validator) {
	s.fallbackGenerator = generator
	s.fallbackValidator = validator
}

// SetCache installs the shared content/result cache
func (s *LoopService) SetCache(c cache.ContentCache) {
	s.cache = c
}

// SetResolver installs the disagreement resolution strategy
func (s *LoopService) SetResolver(r DisagreementResolver) {
	s.resolver = r
}

// Run executes one feedback loop to termination. Completed iterations are
// always recorded before the loop record is finalized, so cancellation and
// errors never lose history.
func (s *LoopService) Run(ctx context.Context, req *model.LoopRequest) (*model.FeedbackLoop, error) {
	settings := s.effectiveSettings(req.Settings)

	now := time.Now()
	loop := &model.FeedbackLoop{
		ID:        uuid.NewString(),
		RequestID: req.ID,
		Status:    model.LoopStatusActive,
		Settings:  settings,
		Context:   req.Context,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateLoop(ctx, loop); err != nil {
		return nil, fmt.Errorf("create loop: %w", err)
	}

	start := time.Now()
	var history []float64
	var feedback []model.FeedbackMessage
	improvementStreak := 0

	for number := 1; number <= settings.MaxIterations; number++ {
		// Cooperative checks at the top of each iteration
		if ctx.Err() != nil {
			return s.finalize(ctx, loop, model.LoopStatusCancelled, model.ReasonCancelled, "")
		}
		if time.Since(start) > settings.Timeout {
			return s.finalize(ctx, loop, model.LoopStatusTimeout, model.ReasonTimedOut, "")
		}

		gen, err := s.generateWithFallback(ctx, req.Context, feedback)
		if err != nil {
			return s.failOrCancel(ctx, loop, err)
		}
		val, err := s.validateWithFallback(ctx, gen.Content, req.Context)
		if err != nil {
			return s.failOrCancel(ctx, loop, err)
		}
		nodeVals, err := s.validateNodes(ctx, gen.Nodes, req.Context)
		if err != nil {
			return s.failOrCancel(ctx, loop, err)
		}

		delta := 0.0
		if len(history) > 0 {
			delta = val.Scores.Overall - history[len(history)-1]
		}
		feedback = buildFeedback(val, nodeVals)

		iteration := &model.Iteration{
			ID:              uuid.NewString(),
			LoopID:          loop.ID,
			Number:          number,
			Generation:      *gen,
			Validation:      *val,
			NodeValidations: nodeVals,
			Feedback:        feedback,
			ConfidenceDelta: delta,
			CreatedAt:       time.Now(),
		}
		if err := s.store.AppendIteration(ctx, iteration); err != nil {
			return s.failOrCancel(ctx, loop, fmt.Errorf("append iteration %d: %w", number, err))
		}

		loop.CurrentIteration = number
		loop.FinalConfidence = val.Scores.Overall
		loop.UpdatedAt = time.Now()
		if err := s.store.UpdateLoop(ctx, loop); err != nil {
			return s.failOrCancel(ctx, loop, fmt.Errorf("update loop: %w", err))
		}
		history = append(history, val.Scores.Overall)

		s.logger.Debug("iteration recorded",
			zap.String("loopId", loop.ID),
			zap.Int("iteration", number),
			zap.Float64("confidence", val.Scores.Overall),
			zap.String("status", string(val.Status)),
			zap.String("generationTier", string(gen.FallbackTier)))

		s.checkDisagreement(ctx, loop, number, gen, val)

		// Convergence requires both the score threshold and an approved
		// status; a high score on a rejected draft is not convergence
		if val.Scores.Overall >= settings.ConfidenceThreshold && val.Status == model.ValidationApproved {
			return s.finalize(ctx, loop, model.LoopStatusCompleted, model.ReasonConverged, "")
		}

		if oscillating(history, s.cfg.OscillationWindow) {
			return s.finalize(ctx, loop, model.LoopStatusCompleted, model.ReasonOscillation, "")
		}

		if number >= 2 && s.cfg.ImprovementEpsilon > 0 {
			if math.Abs(delta) < s.cfg.ImprovementEpsilon {
				improvementStreak++
			} else {
				improvementStreak = 0
			}
			if improvementStreak >= s.cfg.ImprovementStreak {
				return s.finalize(ctx, loop, model.LoopStatusCompleted, model.ReasonMinimalImprovement, "")
			}
		}
	}

	return s.finalize(ctx, loop, model.LoopStatusCompleted, model.ReasonMaxIterations, "")
}

// validateNodes reviews content nodes of one iteration concurrently.
// Cross-iteration work stays strictly sequential.
func (s *LoopService) validateNodes(ctx context.Context, nodes []model.ContentNode, gc model.GenerationContext) ([]model.NodeValidation, error) {
	if len(nodes) == 0 {
		return nil, nil
	}

	results := make([]model.NodeValidation, len(nodes))
	g, gctx := errgroup.WithContext(ctx)
	for i, node := range nodes {
		i, node := i, node
		g.Go(func() error {
			val, err := s.validateWithFallback(gctx, node.Content, gc)
			if err != nil {
				return err
			}
			results[i] = model.NodeValidation{
				NodeID:     node.ID,
				NodeType:   node.Type,
				Status:     val.Status,
				Confidence: val.Scores.Overall,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// checkDisagreement raises a Disagreement record when the validator rejects
// content the generator was confident about, instead of silently retrying
func (s *LoopService) checkDisagreement(ctx context.Context, loop *model.FeedbackLoop, number int, gen *model.Generation, val *model.Validation) {
	if val.Status != model.ValidationRejected && val.Status != model.ValidationHumanReview {
		return
	}
	gap := gen.Confidence - val.Scores.Overall
	if gap <= s.cfg.DisagreementGap {
		return
	}

	d := &model.Disagreement{
		ID:              uuid.NewString(),
		LoopID:          loop.ID,
		IterationNumber: number,
		GeneratorScore:  gen.Confidence,
		ValidatorScore:  val.Scores.Overall,
		Gap:             gap,
		Status:          val.Status,
		CreatedAt:       time.Now(),
	}
	if s.resolver != nil {
		resolution, err := s.resolver.Resolve(ctx, d)
		if err != nil {
			s.logger.Warn("disagreement resolver failed", zap.String("loopId", loop.ID), zap.Error(err))
		} else {
			d.Resolution = resolution
		}
	}
	if err := s.store.RecordDisagreement(ctx, d); err != nil {
		s.logger.Warn("disagreement record failed", zap.String("loopId", loop.ID), zap.Error(err))
	}
}

// failOrCancel distinguishes external cancellation from collaborator failure
func (s *LoopService) failOrCancel(ctx context.Context, loop *model.FeedbackLoop, err error) (*model.FeedbackLoop, error) {
	if ctx.Err() != nil {
		cancelled, _ := s.finalize(ctx, loop, model.LoopStatusCancelled, model.ReasonCancelled, "")
		return cancelled, nil
	}
	return s.finalize(ctx, loop, model.LoopStatusError, model.ReasonError, err.Error())
}

// finalize marks the loop terminal. Runs the store update on a
// cancellation-immune context so cancelled loops still persist their state.
func (s *LoopService) finalize(ctx context.Context, loop *model.FeedbackLoop, status model.LoopStatus, reason model.ConvergenceReason, errMsg string) (*model.FeedbackLoop, error) {
	if loop.Status.Terminal() {
		return loop, model.ErrLoopTerminal
	}

	now := time.Now()
	loop.Status = status
	loop.Reason = reason
	loop.Error = errMsg
	loop.UpdatedAt = now
	loop.CompletedAt = &now

	if err := s.store.UpdateLoop(context.WithoutCancel(ctx), loop); err != nil {
		s.logger.Error("loop finalize update failed", zap.String("loopId", loop.ID), zap.Error(err))
	}

	s.logger.Info("loop terminated",
		zap.String("loopId", loop.ID),
		zap.String("status", string(status)),
		zap.String("reason", string(reason)),
		zap.Int("iterations", loop.CurrentIteration),
		zap.Float64("confidence", loop.FinalConfidence))

	if status == model.LoopStatusError {
		return loop, fmt.Errorf("loop %s failed: %s", loop.ID, errMsg)
	}
	return loop, nil
}

// effectiveSettings fills request settings from service defaults and clamps
// the iteration budget to the hard cap
func (s *LoopService) effectiveSettings(settings model.LoopSettings) model.LoopSettings {
	if settings.ConfidenceThreshold <= 0 {
		settings.ConfidenceThreshold = s.cfg.ConfidenceThreshold
	}
	if settings.MaxIterations <= 0 {
		settings.MaxIterations = s.cfg.MaxIterations
	}
	if settings.MaxIterations > config.MaxLoopIterations {
		settings.MaxIterations = config.MaxLoopIterations
	}
	if settings.Timeout <= 0 {
		settings.Timeout = s.cfg.Timeout
	}
	if settings.Priority == "" {
		settings.Priority = s.cfg.Priority
	}
	return settings
}

// oscillating reports confidence alternating up/down across the last window
// deltas with no net improvement. A quality-control escape valve distinct
// from the iteration cap.
func oscillating(history []float64, window int) bool {
	if len(history) < window+1 {
		return false
	}
	deltas := make([]float64, window)
	offset := len(history) - window - 1
	for i := 0; i < window; i++ {
		deltas[i] = history[offset+i+1] - history[offset+i]
	}
	for i, d := range deltas {
		if d == 0 {
			return false
		}
		if i > 0 && (d > 0) == (deltas[i-1] > 0) {
			return false
		}
	}
	net := history[len(history)-1] - history[offset]
	return net <= 0
}

// buildFeedback turns a validation into structured improvement requests for
// the next generation
func buildFeedback(val *model.Validation, nodeVals []model.NodeValidation) []model.FeedbackMessage {
	var messages []model.FeedbackMessage
	for i, issue := range val.Issues {
		msg := model.FeedbackMessage{Issue: issue}
		if i < len(val.Suggestions) {
			msg.Suggestion = val.Suggestions[i]
		}
		messages = append(messages, msg)
	}
	for _, nv := range nodeVals {
		if nv.Status == model.ValidationApproved {
			continue
		}
		messages = append(messages, model.FeedbackMessage{
			NodeID:     nv.NodeID,
			Issue:      fmt.Sprintf("%s node held at %s", nv.NodeType, nv.Status),
			Suggestion: "revise this node before the next pass",
		})
	}
	return messages
}
