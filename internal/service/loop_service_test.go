package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ioccore/internal/config"
	"ioccore/internal/model"
)

// memStore is an in-memory LoopStore recording every write
type memStore struct {
	mu            sync.Mutex
	loops         map[string]model.FeedbackLoop
	iterations    []model.Iteration
	disagreements []model.Disagreement
}

func newMemStore() *memStore {
	return &memStore{loops: make(map[string]model.FeedbackLoop)}
}

func (m *memStore) CreateLoop(ctx context.Context, loop *model.FeedbackLoop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loops[loop.ID] = *loop
	return nil
}

func (m *memStore) UpdateLoop(ctx context.Context, loop *model.FeedbackLoop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loops[loop.ID] = *loop
	return nil
}

func (m *memStore) AppendIteration(ctx context.Context, iteration *model.Iteration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.iterations = append(m.iterations, *iteration)
	return nil
}

func (m *memStore) RecordDisagreement(ctx context.Context, d *model.Disagreement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disagreements = append(m.disagreements, *d)
	return nil
}

func (m *memStore) iterationsFor(loopID string) []model.Iteration {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Iteration
	for _, it := range m.iterations {
		if it.LoopID == loopID {
			out = append(out, it)
		}
	}
	return out
}

// scriptedGenerator hands each call (1-based) to fn
type scriptedGenerator struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, gc model.GenerationContext, feedback []model.FeedbackMessage) (*model.Generation, error)
}

func (g *scriptedGenerator) Generate(ctx context.Context, gc model.GenerationContext, feedback []model.FeedbackMessage) (*model.Generation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.calls++
	call := g.calls
	g.mu.Unlock()
	return g.fn(call, gc, feedback)
}

// scriptedValidator hands each call (1-based) plus the content to fn
type scriptedValidator struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, content string, gc model.GenerationContext) (*model.Validation, error)
}

func (v *scriptedValidator) Validate(ctx context.Context, content string, gc model.GenerationContext) (*model.Validation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.mu.Lock()
	v.calls++
	call := v.calls
	v.mu.Unlock()
	return v.fn(call, content, gc)
}

// memCache is an in-memory ContentCache for cascade tests
type memCache struct {
	mu          sync.Mutex
	generations map[string]*model.Generation
	validations map[string]*model.Validation
}

func newMemCache() *memCache {
	return &memCache{
		generations: make(map[string]*model.Generation),
		validations: make(map[string]*model.Validation),
	}
}

func (c *memCache) GetGeneration(ctx context.Context, key string) (*model.Generation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen, ok := c.generations[key]; ok {
		cp := *gen
		return &cp, nil
	}
	return nil, nil
}

func (c *memCache) SetGeneration(ctx context.Context, key string, gen *model.Generation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *gen
	c.generations[key] = &cp
	return nil
}

func (c *memCache) GetValidation(ctx context.Context, key string) (*model.Validation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if val, ok := c.validations[key]; ok {
		cp := *val
		return &cp, nil
	}
	return nil, nil
}

func (c *memCache) SetValidation(ctx context.Context, key string, val *model.Validation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *val
	c.validations[key] = &cp
	return nil
}

type stubResolver struct{ resolution string }

func (r *stubResolver) Resolve(ctx context.Context, d *model.Disagreement) (string, error) {
	return r.resolution, nil
}

func draftGeneration(confidence float64) *model.Generation {
	return &model.Generation{
		Content:    "assessment insight draft with enough substance to review",
		Confidence: confidence,
		Model:      "scripted",
	}
}

func approvedValidation(overall float64) *model.Validation {
	return &model.Validation{
		Status: model.ValidationApproved,
		Scores: model.DimensionScores{Overall: overall},
	}
}

func needsWorkValidation(overall float64) *model.Validation {
	return &model.Validation{
		Status:      model.ValidationNeedsImprovement,
		Scores:      model.DimensionScores{Overall: overall},
		Issues:      []string{"insight lacks supporting evidence"},
		Suggestions: []string{"tie claims back to trait scores"},
	}
}

func fastLoopConfig() config.LoopConfig {
	cfg := config.DefaultLoopConfig()
	cfg.MaxRetries = 0
	cfg.RetryBackoff = time.Millisecond
	return cfg
}

func newLoopHarness(t *testing.T, gen Generator, val Validator, cfg config.LoopConfig) (*LoopService, *memStore) {
	t.Helper()
	store := newMemStore()
	svc, err := NewLoopService(store, gen, val, cfg, zap.NewNop())
	require.NoError(t, err)
	return svc, store
}

func loopRequest(settings model.LoopSettings) *model.LoopRequest {
	return &model.LoopRequest{
		ID:       "req-1",
		Context:  model.GenerationContext{SubjectID: "subject", NodeType: model.NodeInsight, Seed: "baseline insight"},
		Settings: settings,
	}
}

func TestRunConvergesInOneIteration(t *testing.T) {
	gen := &scriptedGenerator{fn: func(call int, gc model.GenerationContext, fb []model.FeedbackMessage) (*model.Generation, error) {
		return draftGeneration(0.9), nil
	}}
	// Overall exactly at the threshold converges; the bound is inclusive
	val := &scriptedValidator{fn: func(call int, content string, gc model.GenerationContext) (*model.Validation, error) {
		return approvedValidation(0.85), nil
	}}
	svc, store := newLoopHarness(t, gen, val, fastLoopConfig())

	loop, err := svc.Run(context.Background(), loopRequest(model.LoopSettings{}))
	require.NoError(t, err)

	assert.Equal(t, model.LoopStatusCompleted, loop.Status)
	assert.Equal(t, model.ReasonConverged, loop.Reason)
	assert.Equal(t, 1, loop.CurrentIteration)
	assert.InDelta(t, 0.85, loop.FinalConfidence, 1e-9)
	require.NotNil(t, loop.CompletedAt)

	iterations := store.iterationsFor(loop.ID)
	require.Len(t, iterations, 1)
	assert.Equal(t, 1, iterations[0].Number)
	assert.Zero(t, iterations[0].ConfidenceDelta)
	assert.Equal(t, model.TierPrimary, iterations[0].Generation.FallbackTier)
}

func TestRunApprovalRequiredForConvergence(t *testing.T) {
	gen := &scriptedGenerator{fn: func(call int, gc model.GenerationContext, fb []model.FeedbackMessage) (*model.Generation, error) {
		return draftGeneration(0.9), nil
	}}
	// High score but held for human review must not converge
	val := &scriptedValidator{fn: func(call int, content string, gc model.GenerationContext) (*model.Validation, error) {
		return &model.Validation{
			Status: model.ValidationHumanReview,
			Scores: model.DimensionScores{Overall: 0.95},
		}, nil
	}}
	cfg := fastLoopConfig()
	cfg.ImprovementEpsilon = 0
	svc, store := newLoopHarness(t, gen, val, cfg)

	loop, err := svc.Run(context.Background(), loopRequest(model.LoopSettings{MaxIterations: 2, Timeout: time.Minute}))
	require.NoError(t, err)

	assert.Equal(t, model.ReasonMaxIterations, loop.Reason)
	assert.Len(t, store.iterationsFor(loop.ID), 2)
}

func TestRunExhaustsMaxIterations(t *testing.T) {
	var feedbackSeen [][]model.FeedbackMessage
	gen := &scriptedGenerator{fn: func(call int, gc model.GenerationContext, fb []model.FeedbackMessage) (*model.Generation, error) {
		feedbackSeen = append(feedbackSeen, fb)
		return draftGeneration(0.6), nil
	}}
	val := &scriptedValidator{fn: func(call int, content string, gc model.GenerationContext) (*model.Validation, error) {
		return needsWorkValidation(0.5), nil
	}}
	svc, store := newLoopHarness(t, gen, val, fastLoopConfig())

	loop, err := svc.Run(context.Background(), loopRequest(model.LoopSettings{MaxIterations: 3, Timeout: time.Minute}))
	require.NoError(t, err)

	assert.Equal(t, model.LoopStatusCompleted, loop.Status)
	assert.Equal(t, model.ReasonMaxIterations, loop.Reason)
	assert.Equal(t, 3, loop.CurrentIteration)

	iterations := store.iterationsFor(loop.ID)
	require.Len(t, iterations, 3)
	for i, it := range iterations {
		assert.Equal(t, i+1, it.Number)
		assert.Equal(t, model.ValidationNeedsImprovement, it.Validation.Status)
	}

	// Validator feedback reaches the generator from the second round on
	require.Len(t, feedbackSeen, 3)
	assert.Empty(t, feedbackSeen[0])
	require.NotEmpty(t, feedbackSeen[1])
	assert.Equal(t, "insight lacks supporting evidence", feedbackSeen[1][0].Issue)
	assert.Equal(t, "tie claims back to trait scores", feedbackSeen[1][0].Suggestion)
}

func TestRunCancellationPreservesHistory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gen := &scriptedGenerator{fn: func(call int, gc model.GenerationContext, fb []model.FeedbackMessage) (*model.Generation, error) {
		if call == 3 {
			cancel()
			return nil, ctx.Err()
		}
		return draftGeneration(0.6), nil
	}}
	scores := []float64{0.3, 0.5}
	val := &scriptedValidator{fn: func(call int, content string, gc model.GenerationContext) (*model.Validation, error) {
		return needsWorkValidation(scores[call-1]), nil
	}}
	svc, store := newLoopHarness(t, gen, val, fastLoopConfig())

	loop, err := svc.Run(ctx, loopRequest(model.LoopSettings{MaxIterations: 10, Timeout: time.Minute}))
	require.NoError(t, err)

	// The two completed iterations survive the mid-flight cancellation
	assert.Equal(t, model.LoopStatusCancelled, loop.Status)
	assert.Equal(t, model.ReasonCancelled, loop.Reason)
	assert.Equal(t, 2, loop.CurrentIteration)
	require.NotNil(t, loop.CompletedAt)
	assert.Len(t, store.iterationsFor(loop.ID), 2)
}

func TestRunOscillationDetected(t *testing.T) {
	gen := &scriptedGenerator{fn: func(call int, gc model.GenerationContext, fb []model.FeedbackMessage) (*model.Generation, error) {
		return draftGeneration(0.6), nil
	}}
	scores := []float64{0.6, 0.5, 0.6, 0.5}
	val := &scriptedValidator{fn: func(call int, content string, gc model.GenerationContext) (*model.Validation, error) {
		return needsWorkValidation(scores[call-1]), nil
	}}
	svc, store := newLoopHarness(t, gen, val, fastLoopConfig())

	loop, err := svc.Run(context.Background(), loopRequest(model.LoopSettings{MaxIterations: 10, Timeout: time.Minute}))
	require.NoError(t, err)

	assert.Equal(t, model.LoopStatusCompleted, loop.Status)
	assert.Equal(t, model.ReasonOscillation, loop.Reason)
	assert.Len(t, store.iterationsFor(loop.ID), 4)
}

func TestRunMinimalImprovement(t *testing.T) {
	gen := &scriptedGenerator{fn: func(call int, gc model.GenerationContext, fb []model.FeedbackMessage) (*model.Generation, error) {
		return draftGeneration(0.6), nil
	}}
	scores := []float64{0.5, 0.505, 0.508, 0.510}
	val := &scriptedValidator{fn: func(call int, content string, gc model.GenerationContext) (*model.Validation, error) {
		return needsWorkValidation(scores[call-1]), nil
	}}
	svc, store := newLoopHarness(t, gen, val, fastLoopConfig())

	loop, err := svc.Run(context.Background(), loopRequest(model.LoopSettings{MaxIterations: 10, Timeout: time.Minute}))
	require.NoError(t, err)

	// Three consecutive sub-epsilon gains end the loop early
	assert.Equal(t, model.ReasonMinimalImprovement, loop.Reason)
	assert.Len(t, store.iterationsFor(loop.ID), 4)
}

func TestRunTimeout(t *testing.T) {
	gen := &scriptedGenerator{fn: func(call int, gc model.GenerationContext, fb []model.FeedbackMessage) (*model.Generation, error) {
		return draftGeneration(0.6), nil
	}}
	val := &scriptedValidator{fn: func(call int, content string, gc model.GenerationContext) (*model.Validation, error) {
		time.Sleep(40 * time.Millisecond)
		return needsWorkValidation(0.5), nil
	}}
	svc, store := newLoopHarness(t, gen, val, fastLoopConfig())

	loop, err := svc.Run(context.Background(), loopRequest(model.LoopSettings{MaxIterations: 10, Timeout: 30 * time.Millisecond}))
	require.NoError(t, err)

	// Wall clock expires at the top of iteration 2; iteration 1 is preserved
	assert.Equal(t, model.LoopStatusTimeout, loop.Status)
	assert.Equal(t, model.ReasonTimedOut, loop.Reason)
	assert.Len(t, store.iterationsFor(loop.ID), 1)
}

func TestRunRecordsDisagreement(t *testing.T) {
	gen := &scriptedGenerator{fn: func(call int, gc model.GenerationContext, fb []model.FeedbackMessage) (*model.Generation, error) {
		return draftGeneration(0.95), nil
	}}
	val := &scriptedValidator{fn: func(call int, content string, gc model.GenerationContext) (*model.Validation, error) {
		return &model.Validation{
			Status: model.ValidationRejected,
			Scores: model.DimensionScores{Overall: 0.3},
			Issues: []string{"unsupported conclusions"},
		}, nil
	}}
	svc, store := newLoopHarness(t, gen, val, fastLoopConfig())
	svc.SetResolver(&stubResolver{resolution: "escalate to human review"})

	loop, err := svc.Run(context.Background(), loopRequest(model.LoopSettings{MaxIterations: 1, Timeout: time.Minute}))
	require.NoError(t, err)
	assert.Equal(t, model.ReasonMaxIterations, loop.Reason)

	require.Len(t, store.disagreements, 1)
	d := store.disagreements[0]
	assert.Equal(t, loop.ID, d.LoopID)
	assert.Equal(t, 1, d.IterationNumber)
	assert.InDelta(t, 0.95, d.GeneratorScore, 1e-9)
	assert.InDelta(t, 0.3, d.ValidatorScore, 1e-9)
	assert.InDelta(t, 0.65, d.Gap, 1e-9)
	assert.Equal(t, model.ValidationRejected, d.Status)
	assert.Equal(t, "escalate to human review", d.Resolution)
}

func TestRunNoDisagreementBelowGap(t *testing.T) {
	gen := &scriptedGenerator{fn: func(call int, gc model.GenerationContext, fb []model.FeedbackMessage) (*model.Generation, error) {
		return draftGeneration(0.45), nil
	}}
	val := &scriptedValidator{fn: func(call int, content string, gc model.GenerationContext) (*model.Validation, error) {
		return &model.Validation{
			Status: model.ValidationRejected,
			Scores: model.DimensionScores{Overall: 0.3},
		}, nil
	}}
	svc, store := newLoopHarness(t, gen, val, fastLoopConfig())

	_, err := svc.Run(context.Background(), loopRequest(model.LoopSettings{MaxIterations: 1, Timeout: time.Minute}))
	require.NoError(t, err)

	// Rejection with a modest confidence gap is ordinary iteration, not conflict
	assert.Empty(t, store.disagreements)
}

func TestGeneratorRetryTierRecorded(t *testing.T) {
	gen := &scriptedGenerator{fn: func(call int, gc model.GenerationContext, fb []model.FeedbackMessage) (*model.Generation, error) {
		if call == 1 {
			return nil, errors.New("transient provider error")
		}
		return draftGeneration(0.9), nil
	}}
	val := &scriptedValidator{fn: func(call int, content string, gc model.GenerationContext) (*model.Validation, error) {
		return approvedValidation(0.9), nil
	}}
	cfg := fastLoopConfig()
	cfg.MaxRetries = 1
	svc, store := newLoopHarness(t, gen, val, cfg)

	loop, err := svc.Run(context.Background(), loopRequest(model.LoopSettings{}))
	require.NoError(t, err)

	iterations := store.iterationsFor(loop.ID)
	require.Len(t, iterations, 1)
	assert.Equal(t, model.TierRetry, iterations[0].Generation.FallbackTier)
}

func TestGeneratorFallbackModelTier(t *testing.T) {
	primary := &scriptedGenerator{fn: func(call int, gc model.GenerationContext, fb []model.FeedbackMessage) (*model.Generation, error) {
		return nil, errors.New("provider unavailable")
	}}
	secondary := &scriptedGenerator{fn: func(call int, gc model.GenerationContext, fb []model.FeedbackMessage) (*model.Generation, error) {
		return draftGeneration(0.8), nil
	}}
	val := &scriptedValidator{fn: func(call int, content string, gc model.GenerationContext) (*model.Validation, error) {
		return approvedValidation(0.9), nil
	}}
	svc, store := newLoopHarness(t, primary, val, fastLoopConfig())
	svc.SetFallbacks(secondary, nil)

	loop, err := svc.Run(context.Background(), loopRequest(model.LoopSettings{}))
	require.NoError(t, err)

	iterations := store.iterationsFor(loop.ID)
	require.Len(t, iterations, 1)
	assert.Equal(t, model.TierFallbackModel, iterations[0].Generation.FallbackTier)
}

func TestGeneratorCachedTier(t *testing.T) {
	calls := 0
	gen := &scriptedGenerator{fn: func(call int, gc model.GenerationContext, fb []model.FeedbackMessage) (*model.Generation, error) {
		calls++
		if calls == 1 {
			return draftGeneration(0.9), nil
		}
		return nil, errors.New("provider unavailable")
	}}
	val := &scriptedValidator{fn: func(call int, content string, gc model.GenerationContext) (*model.Validation, error) {
		return approvedValidation(0.9), nil
	}}
	svc, store := newLoopHarness(t, gen, val, fastLoopConfig())
	svc.SetCache(newMemCache())

	// First run primes the cache with the successful generation
	first, err := svc.Run(context.Background(), loopRequest(model.LoopSettings{}))
	require.NoError(t, err)
	require.Equal(t, model.TierPrimary, store.iterationsFor(first.ID)[0].Generation.FallbackTier)

	// Second run for the same context survives the outage from cache
	second, err := svc.Run(context.Background(), loopRequest(model.LoopSettings{}))
	require.NoError(t, err)
	iterations := store.iterationsFor(second.ID)
	require.Len(t, iterations, 1)
	assert.Equal(t, model.TierCached, iterations[0].Generation.FallbackTier)
	assert.Equal(t, draftGeneration(0.9).Content, iterations[0].Generation.Content)
}

func TestGeneratorDegradesToHeuristic(t *testing.T) {
	gen := &scriptedGenerator{fn: func(call int, gc model.GenerationContext, fb []model.FeedbackMessage) (*model.Generation, error) {
		return nil, errors.New("provider unavailable")
	}}
	val := &scriptedValidator{fn: func(call int, content string, gc model.GenerationContext) (*model.Validation, error) {
		return approvedValidation(0.9), nil
	}}
	svc, store := newLoopHarness(t, gen, val, fastLoopConfig())

	loop, err := svc.Run(context.Background(), loopRequest(model.LoopSettings{}))
	require.NoError(t, err)

	iterations := store.iterationsFor(loop.ID)
	require.Len(t, iterations, 1)
	assert.Equal(t, model.TierDegraded, iterations[0].Generation.FallbackTier)
	assert.Equal(t, "heuristic-generator-v1", iterations[0].Generation.Model)
	assert.Contains(t, iterations[0].Generation.Content, "baseline insight")
}

func TestRunValidatesNodesAndFeedsBackHeldOnes(t *testing.T) {
	gen := &scriptedGenerator{fn: func(call int, gc model.GenerationContext, fb []model.FeedbackMessage) (*model.Generation, error) {
		g := draftGeneration(0.6)
		g.Nodes = []model.ContentNode{
			{ID: "node-a", Type: model.NodeScoring, Content: "solid scoring node"},
			{ID: "node-b", Type: model.NodeInsight, Content: "weak insight node"},
		}
		return g, nil
	}}
	val := &scriptedValidator{fn: func(call int, content string, gc model.GenerationContext) (*model.Validation, error) {
		switch content {
		case "weak insight node":
			return needsWorkValidation(0.4), nil
		default:
			return &model.Validation{
				Status: model.ValidationApproved,
				Scores: model.DimensionScores{Overall: 0.6},
			}, nil
		}
	}}
	cfg := fastLoopConfig()
	cfg.ImprovementEpsilon = 0
	svc, store := newLoopHarness(t, gen, val, cfg)

	loop, err := svc.Run(context.Background(), loopRequest(model.LoopSettings{MaxIterations: 1, Timeout: time.Minute}))
	require.NoError(t, err)

	iterations := store.iterationsFor(loop.ID)
	require.Len(t, iterations, 1)
	require.Len(t, iterations[0].NodeValidations, 2)

	byNode := make(map[string]model.NodeValidation)
	for _, nv := range iterations[0].NodeValidations {
		byNode[nv.NodeID] = nv
	}
	assert.Equal(t, model.ValidationApproved, byNode["node-a"].Status)
	assert.Equal(t, model.ValidationNeedsImprovement, byNode["node-b"].Status)

	// Only the held node produces feedback for the next round
	require.Len(t, iterations[0].Feedback, 1)
	assert.Equal(t, "node-b", iterations[0].Feedback[0].NodeID)
}

func TestEffectiveSettingsDefaultsAndClamp(t *testing.T) {
	svc, _ := newLoopHarness(t, NewHeuristicGenerator(), NewHeuristicValidator(), fastLoopConfig())

	defaults := svc.effectiveSettings(model.LoopSettings{})
	assert.InDelta(t, 0.85, defaults.ConfidenceThreshold, 1e-9)
	assert.Equal(t, 10, defaults.MaxIterations)
	assert.Equal(t, 2*time.Minute, defaults.Timeout)

	clamped := svc.effectiveSettings(model.LoopSettings{MaxIterations: 500})
	assert.Equal(t, config.MaxLoopIterations, clamped.MaxIterations)
}

func TestOscillating(t *testing.T) {
	// Alternating deltas with no net gain
	assert.True(t, oscillating([]float64{0.6, 0.5, 0.6, 0.5}, 3))
	// Alternating but netting an improvement is progress, not oscillation
	assert.False(t, oscillating([]float64{0.5, 0.7, 0.6, 0.8}, 3))
	// A zero delta breaks the alternation
	assert.False(t, oscillating([]float64{0.6, 0.6, 0.5, 0.6}, 3))
	// Monotone decline is not oscillation
	assert.False(t, oscillating([]float64{0.8, 0.7, 0.6, 0.5}, 3))
	// Too little history
	assert.False(t, oscillating([]float64{0.6, 0.5, 0.6}, 3))
}
