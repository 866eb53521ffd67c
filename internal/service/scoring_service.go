package service

import (
	"fmt"
	"strconv"
	"strings"

	"ioccore/internal/config"
	"ioccore/internal/model"
)

// ScoringService converts raw questionnaire responses into OCEAN trait and
// facet scores. Pure: no side effects, referentially transparent given a
// fixed mapping set and normative table.
type ScoringService struct {
	cfg   config.ScoringConfig
	norms *config.NormTable
}

// NewScoringService creates a new scoring service
func NewScoringService(cfg config.ScoringConfig, norms *config.NormTable) (*ScoringService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scoring config: %w", err)
	}
	if err := norms.Validate(); err != nil {
		return nil, fmt.Errorf("norm table: %w", err)
	}
	return &ScoringService{cfg: cfg, norms: norms}, nil
}

type traitAccumulator struct {
	weightedSum float64
	weightSum   float64
	count       int
}

// Score maps (responses, question mappings) to raw, percentile, stanine and
// facet scores. Responses whose question has no mapping are ignored and
// surfaced through UnmappedCount (fixed policy). Traits nothing mapped to
// default to the scale midpoint and report a zero TraitCounts entry.
func (s *ScoringService) Score(responses []model.Response, mappings map[string]model.QuestionMapping) (*model.OceanScoreDetails, error) {
	if len(responses) == 0 {
		return nil, fmt.Errorf("no responses: %w", model.ErrInsufficientData)
	}

	traitAcc := make(map[model.Trait]*traitAccumulator)
	for _, trait := range model.Traits() {
		traitAcc[trait] = &traitAccumulator{}
	}
	facetValues := make(map[model.Facet][]float64)
	facetTrait := make(map[model.Facet]model.Trait)

	unmapped := 0
	for _, resp := range responses {
		mapping, ok := mappings[resp.QuestionID]
		if !ok {
			unmapped++
			continue
		}

		value := s.normalizeAnswer(resp.Answer)
		if mapping.Reverse {
			value = s.cfg.Scale.Reverse(value)
		}

		weight := mapping.Weight
		if weight == 0 {
			weight = 1
		}

		acc := traitAcc[mapping.Trait]
		acc.weightedSum += weight * value
		acc.weightSum += weight
		acc.count++

		if mapping.SecondaryTrait != "" {
			sec := traitAcc[mapping.SecondaryTrait]
			sw := weight * s.cfg.SecondaryWeight
			sec.weightedSum += sw * value
			sec.weightSum += sw
			sec.count++
		}

		if mapping.Facet != "" {
			facetValues[mapping.Facet] = append(facetValues[mapping.Facet], value)
			facetTrait[mapping.Facet] = mapping.Trait
		}
	}

	if unmapped == len(responses) {
		return nil, fmt.Errorf("all %d responses unmapped: %w", unmapped, model.ErrUnmappedResponse)
	}

	details := &model.OceanScoreDetails{
		ResponseCount: len(responses),
		UnmappedCount: unmapped,
		TraitCounts:   make(map[model.Trait]int),
	}

	for _, trait := range model.Traits() {
		acc := traitAcc[trait]
		details.TraitCounts[trait] = acc.count

		raw := s.cfg.Scale.Midpoint()
		if acc.weightSum > 0 {
			raw = acc.weightedSum / acc.weightSum
		}
		raw = s.cfg.Scale.Clamp(raw)

		percentile := s.norms.Percentile(trait, raw)
		details.Raw.Set(trait, raw)
		details.Percentile.Set(trait, percentile)
		details.Stanine.Set(trait, s.norms.Stanine(percentile))
	}

	details.Facets = s.facetMeans(facetValues, facetTrait)
	return details, nil
}

// facetMeans averages within each facet, omitting facets below the
// configured response minimum rather than defaulting them to zero
func (s *ScoringService) facetMeans(values map[model.Facet][]float64, parents map[model.Facet]model.Trait) model.FacetScores {
	facets := make(model.FacetScores)
	for facet, vals := range values {
		if len(vals) < s.cfg.FacetMinResponses {
			continue
		}
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		trait := parents[facet]
		if facets[trait] == nil {
			facets[trait] = make(map[model.Facet]float64)
		}
		facets[trait][facet] = sum / float64(len(vals))
	}
	return facets
}

// normalizeAnswer coerces an answer into a value on the configured scale.
// Accepts numbers, lettered options a-e, numeric strings, and {"value": ...}
// objects; anything unrecognized falls back to the scale midpoint (documented
// lenient behavior).
func (s *ScoringService) normalizeAnswer(answer interface{}) float64 {
	switch v := answer.(type) {
	case float64:
		return s.cfg.Scale.Clamp(v)
	case float32:
		return s.cfg.Scale.Clamp(float64(v))
	case int:
		return s.cfg.Scale.Clamp(float64(v))
	case int32:
		return s.cfg.Scale.Clamp(float64(v))
	case int64:
		return s.cfg.Scale.Clamp(float64(v))
	case string:
		return s.normalizeString(v)
	case map[string]interface{}:
		if inner, ok := v["value"]; ok {
			return s.normalizeAnswer(inner)
		}
	}
	return s.cfg.Scale.Midpoint()
}

func (s *ScoringService) normalizeString(answer string) float64 {
	trimmed := strings.ToLower(strings.TrimSpace(answer))
	if len(trimmed) == 1 && trimmed[0] >= 'a' && trimmed[0] <= 'e' {
		// Spread a-e evenly across the scale
		step := (s.cfg.Scale.Max - s.cfg.Scale.Min) / 4
		return s.cfg.Scale.Min + float64(trimmed[0]-'a')*step
	}
	if parsed, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return s.cfg.Scale.Clamp(parsed)
	}
	return s.cfg.Scale.Midpoint()
}
