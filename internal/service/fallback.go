package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ioccore/internal/cache"
	"ioccore/internal/model"
)

// Fallback cascade for collaborator failures: retry with backoff, then the
// fallback collaborator, then a cached similar response, then graceful
// degradation via the heuristic built-ins. Tiers are attempted in strict
// order and the tier actually used is recorded on the result.

func (s *LoopService) generateWithFallback(ctx context.Context, gc model.GenerationContext, feedback []model.FeedbackMessage) (*model.Generation, error) {
	key := cache.HashKey("gen", gc.SubjectID, string(gc.NodeType), gc.Seed)

	gen, err := s.callGenerator(ctx, s.generator, gc, feedback)
	if err == nil {
		gen.FallbackTier = model.TierPrimary
		s.cacheGeneration(ctx, key, gen)
		return gen, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	firstErr := err
	s.logger.Warn("primary generator failed", zap.Error(err))

	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		if err := s.backoff(ctx, attempt); err != nil {
			return nil, err
		}
		gen, err = s.callGenerator(ctx, s.generator, gc, feedback)
		if err == nil {
			gen.FallbackTier = model.TierRetry
			s.cacheGeneration(ctx, key, gen)
			return gen, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
	}

	if s.fallbackGenerator != nil {
		gen, err = s.callGenerator(ctx, s.fallbackGenerator, gc, feedback)
		if err == nil {
			gen.FallbackTier = model.TierFallbackModel
			return gen, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warn("fallback generator failed", zap.Error(err))
	}

	if s.cache != nil {
		cached, cacheErr := s.cache.GetGeneration(ctx, key)
		if cacheErr == nil && cached != nil {
			cached.FallbackTier = model.TierCached
			return cached, nil
		}
	}

	gen, err = s.degradedGenerator.Generate(ctx, gc, feedback)
	if err != nil {
		return nil, fmt.Errorf("generation cascade exhausted: %w", firstErr)
	}
	gen.FallbackTier = model.TierDegraded
	return gen, nil
}

func (s *LoopService) validateWithFallback(ctx context.Context, content string, gc model.GenerationContext) (*model.Validation, error) {
	key := cache.HashKey("val", content)

	val, err := s.callValidator(ctx, s.validator, content, gc)
	if err == nil {
		val.FallbackTier = model.TierPrimary
		s.cacheValidation(ctx, key, val)
		return val, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	firstErr := err
	s.logger.Warn("primary validator failed", zap.Error(err))

	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		if err := s.backoff(ctx, attempt); err != nil {
			return nil, err
		}
		val, err = s.callValidator(ctx, s.validator, content, gc)
		if err == nil {
			val.FallbackTier = model.TierRetry
			s.cacheValidation(ctx, key, val)
			return val, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
	}

	if s.fallbackValidator != nil {
		val, err = s.callValidator(ctx, s.fallbackValidator, content, gc)
		if err == nil {
			val.FallbackTier = model.TierFallbackModel
			return val, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warn("fallback validator failed", zap.Error(err))
	}

	if s.cache != nil {
		cached, cacheErr := s.cache.GetValidation(ctx, key)
		if cacheErr == nil && cached != nil {
			cached.FallbackTier = model.TierCached
			return cached, nil
		}
	}

	val, err = s.degradedValidator.Validate(ctx, content, gc)
	if err != nil {
		return nil, fmt.Errorf("validation cascade exhausted: %w", firstErr)
	}
	val.FallbackTier = model.TierDegraded
	return val, nil
}

// callGenerator maps deadline errors into the typed timeout failure
func (s *LoopService) callGenerator(ctx context.Context, g Generator, gc model.GenerationContext, feedback []model.FeedbackMessage) (*model.Generation, error) {
	gen, err := g.Generate(ctx, gc, feedback)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %v", model.ErrGenerationTimeout, err)
	}
	return gen, err
}

func (s *LoopService) callValidator(ctx context.Context, v Validator, content string, gc model.GenerationContext) (*model.Validation, error) {
	val, err := v.Validate(ctx, content, gc)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %v", model.ErrValidationTimeout, err)
	}
	return val, err
}

// backoff waits before a retry, aborting early on cancellation
func (s *LoopService) backoff(ctx context.Context, attempt int) error {
	wait := s.cfg.RetryBackoff * time.Duration(attempt)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// Cache writes are best effort; the loop never depends on them
func (s *LoopService) cacheGeneration(ctx context.Context, key string, gen *model.Generation) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetGeneration(ctx, key, gen); err != nil {
		s.logger.Debug("generation cache write failed", zap.Error(err))
	}
}

func (s *LoopService) cacheValidation(ctx context.Context, key string, val *model.Validation) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetValidation(ctx, key, val); err != nil {
		s.logger.Debug("validation cache write failed", zap.Error(err))
	}
}
