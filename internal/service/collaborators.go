package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ioccore/internal/model"
)

// Generator proposes content for a generation context, optionally refining
// prior content based on validator feedback. External AI providers implement
// this; the heuristic built-in serves as degradation tier and test double.
type Generator interface {
	Generate(ctx context.Context, gc model.GenerationContext, feedback []model.FeedbackMessage) (*model.Generation, error)
}

// Validator reviews generated content for quality, bias and compliance
type Validator interface {
	Validate(ctx context.Context, content string, gc model.GenerationContext) (*model.Validation, error)
}

// DisagreementResolver decides what happens when generator and validator
// confidence conflict. Pluggable: automatic heuristic or escalate-to-human.
type DisagreementResolver interface {
	Resolve(ctx context.Context, d *model.Disagreement) (string, error)
}

// HeuristicGenerator is the deterministic built-in generator. It seeds from
// the generation context and appends a revision note per feedback round,
// mirroring how a model would fold suggestions into the next draft.
type HeuristicGenerator struct {
	ModelName string
}

// NewHeuristicGenerator creates the built-in generator
func NewHeuristicGenerator() *HeuristicGenerator {
	return &HeuristicGenerator{ModelName: "heuristic-generator-v1"}
}

// Generate produces the next content draft
func (g *HeuristicGenerator) Generate(ctx context.Context, gc model.GenerationContext, feedback []model.FeedbackMessage) (*model.Generation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	var sb strings.Builder
	sb.WriteString(gc.Seed)
	for _, fb := range feedback {
		sb.WriteString(fmt.Sprintf(" Revised to address: %s.", fb.Issue))
		if fb.Suggestion != "" {
			sb.WriteString(fmt.Sprintf(" Applied: %s.", fb.Suggestion))
		}
	}

	confidence := 0.6 + 0.1*float64(len(feedback))
	if confidence > 0.95 {
		confidence = 0.95
	}

	return &model.Generation{
		Content:      sb.String(),
		Confidence:   confidence,
		Model:        g.ModelName,
		ProcessingMS: time.Since(start).Milliseconds(),
	}, nil
}

// HeuristicValidator is the deterministic built-in validator. Scores are a
// function of response length and structure (same shape as the platform's
// offline evaluation path).
type HeuristicValidator struct {
	ApprovalFloor float64
}

// NewHeuristicValidator creates the built-in validator
func NewHeuristicValidator() *HeuristicValidator {
	return &HeuristicValidator{ApprovalFloor: 0.7}
}

// Validate scores content quality heuristically
func (v *HeuristicValidator) Validate(ctx context.Context, content string, gc model.GenerationContext) (*model.Validation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words := len(strings.Fields(content))
	quality := float64(words) / 50.0
	if quality > 1.0 {
		quality = 1.0
	}

	scores := model.DimensionScores{
		Accuracy:   quality,
		Clarity:    quality,
		Bias:       0.9,
		Ethics:     0.9,
		Compliance: 0.9,
	}
	scores.Overall = (scores.Accuracy + scores.Clarity + scores.Bias + scores.Ethics + scores.Compliance) / 5

	result := &model.Validation{Scores: scores}
	if scores.Overall >= v.ApprovalFloor {
		result.Status = model.ValidationApproved
		return result, nil
	}

	result.Status = model.ValidationNeedsImprovement
	result.Issues = append(result.Issues, "content too thin to assess")
	result.Suggestions = append(result.Suggestions, "expand with concrete specifics")
	return result, nil
}
