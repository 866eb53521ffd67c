package service

import (
	"fmt"
	"time"

	"ioccore/internal/config"
	"ioccore/internal/model"
)

// RiskService flags trait extremity as behavioral derailment risk, amplified
// by current stress. Risk level is monotonic non-decreasing in both trait
// extremity and stress. No persistence; callers snapshot via ResultRepo.
type RiskService struct {
	cfg config.ScoringConfig
}

// NewRiskService creates a new dark-side risk assessor
func NewRiskService(cfg config.ScoringConfig) (*RiskService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scoring config: %w", err)
	}
	return &RiskService{cfg: cfg}, nil
}

// Band boundaries on the amplified extremity score
const (
	riskModerateFloor = 0.35
	riskHighFloor     = 0.70
	riskCriticalFloor = 1.05
)

// Assess classifies each trait's extremity and bands the stress-amplified
// result. Overall risk is the worst per-trait level, not an average: one
// severe derailment behavior dominates regardless of the other traits.
func (s *RiskService) Assess(subjectID string, traits model.TraitScores, stressLevel int) (*model.DarkSideProfile, error) {
	if stressLevel < 1 || stressLevel > 10 {
		return nil, fmt.Errorf("stress level %d: %w", stressLevel, model.ErrInvalidStressLevel)
	}

	multiplier := 1 + 0.1*float64(stressLevel-1)
	profile := &model.DarkSideProfile{
		SubjectID:        subjectID,
		StressLevel:      stressLevel,
		StressMultiplier: multiplier,
		Overall:          model.RiskLow,
		AssessedAt:       time.Now(),
	}

	for _, trait := range model.Traits() {
		risk := s.assessTrait(trait, traits.Get(trait), multiplier)
		profile.Traits = append(profile.Traits, risk)
		profile.Overall = model.MaxRiskLevel(profile.Overall, risk.Level)
	}
	return profile, nil
}

func (s *RiskService) assessTrait(trait model.Trait, raw, multiplier float64) model.TraitRisk {
	manifestation := model.ManifestationNone
	extremity := 0.0

	switch {
	case raw > s.cfg.HighExtremeThreshold:
		manifestation = model.ManifestationHighExtreme
		extremity = (raw - s.cfg.HighExtremeThreshold) / (s.cfg.Scale.Max - s.cfg.HighExtremeThreshold)
	case raw < s.cfg.LowExtremeThreshold:
		manifestation = model.ManifestationLowExtreme
		extremity = (s.cfg.LowExtremeThreshold - raw) / (s.cfg.LowExtremeThreshold - s.cfg.Scale.Min)
	}
	extremity = clamp01(extremity)
	amplified := extremity * multiplier

	risk := model.TraitRisk{
		Trait:          trait,
		Manifestation:  manifestation,
		Extremity:      extremity,
		AmplifiedScore: amplified,
		Level:          bandFor(amplified),
	}
	if manifestation != model.ManifestationNone {
		risk.Concerns = derailmentConcerns[trait][manifestation]
		risk.Impacts = derailmentImpacts[trait][manifestation]
	}
	return risk
}

func bandFor(amplified float64) model.RiskLevel {
	switch {
	case amplified >= riskCriticalFloor:
		return model.RiskCritical
	case amplified >= riskHighFloor:
		return model.RiskHigh
	case amplified >= riskModerateFloor:
		return model.RiskModerate
	}
	return model.RiskLow
}

// Derailment behavior reference lists, keyed by trait and manifestation
var derailmentConcerns = map[model.Trait]map[model.Manifestation][]string{
	model.TraitOpenness: {
		model.ManifestationHighExtreme: {"chasing novelty over delivery", "impractical strategic bets"},
		model.ManifestationLowExtreme:  {"rigidity in the face of change", "dismissing unfamiliar ideas"},
	},
	model.TraitConscientiousness: {
		model.ManifestationHighExtreme: {"perfectionism and micromanagement", "analysis paralysis on decisions"},
		model.ManifestationLowExtreme:  {"missed commitments", "unreliable follow-through"},
	},
	model.TraitExtraversion: {
		model.ManifestationHighExtreme: {"dominating discussions", "attention-seeking over substance"},
		model.ManifestationLowExtreme:  {"withdrawal from stakeholders", "under-communicating direction"},
	},
	model.TraitAgreeableness: {
		model.ManifestationHighExtreme: {"conflict avoidance", "over-accommodating poor performance"},
		model.ManifestationLowExtreme:  {"abrasive interpersonal style", "win-lose framing of collaboration"},
	},
	model.TraitNeuroticism: {
		model.ManifestationHighExtreme: {"volatility under pressure", "catastrophizing setbacks"},
		model.ManifestationLowExtreme:  {"underestimating real threats", "complacency about risk signals"},
	},
}

var derailmentImpacts = map[model.Trait]map[model.Manifestation][]string{
	model.TraitOpenness: {
		model.ManifestationHighExtreme: {"teams whipsawed by shifting priorities"},
		model.ManifestationLowExtreme:  {"stalled innovation and talent attrition"},
	},
	model.TraitConscientiousness: {
		model.ManifestationHighExtreme: {"bottlenecked decisions, burned-out reports"},
		model.ManifestationLowExtreme:  {"erosion of trust in leadership commitments"},
	},
	model.TraitExtraversion: {
		model.ManifestationHighExtreme: {"quieter voices disengage"},
		model.ManifestationLowExtreme:  {"ambiguity about priorities across the org"},
	},
	model.TraitAgreeableness: {
		model.ManifestationHighExtreme: {"unresolved performance issues accumulate"},
		model.ManifestationLowExtreme:  {"elevated team conflict and turnover"},
	},
	model.TraitNeuroticism: {
		model.ManifestationHighExtreme: {"anxiety cascades through the team"},
		model.ManifestationLowExtreme:  {"late reaction to genuine crises"},
	},
}
