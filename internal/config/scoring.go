package config

import (
	"fmt"

	"ioccore/internal/model"
)

// ScoringConfig enumerates every knob of the scoring and aggregation
// pipeline. Validated at construction; no free-form settings blobs.
type ScoringConfig struct {
	Scale model.AnswerScale `json:"scale" yaml:"scale"`

	// SecondaryWeight scales a mapping's weight when the trait is the
	// question's secondary assignment
	SecondaryWeight float64 `json:"secondaryWeight" yaml:"secondaryWeight"`

	// FacetMinResponses is the minimum responses a facet needs before a
	// mean is reported; facets below it are omitted, not zeroed
	FacetMinResponses int `json:"facetMinResponses" yaml:"facetMinResponses"`

	// RoleWeights is the cross-role weighting table. Weights of absent
	// roles are excluded and the rest renormalized to sum 1.0
	RoleWeights map[model.RaterRole]float64 `json:"roleWeights" yaml:"roleWeights"`

	// BlindSpotThreshold is the |self - others| raw-scale gap that emits
	// a blind-spot record
	BlindSpotThreshold float64 `json:"blindSpotThreshold" yaml:"blindSpotThreshold"`

	// AgreementNormalization divides observer variance when computing
	// per-trait agreement: agreement = max(0, 1 - variance/norm)
	AgreementNormalization float64 `json:"agreementNormalization" yaml:"agreementNormalization"`

	// SingleObserverAgreement is reported when fewer than 2 non-self
	// observers rated a trait. Business policy pending product
	// confirmation; kept configurable.
	SingleObserverAgreement float64 `json:"singleObserverAgreement" yaml:"singleObserverAgreement"`

	// CompletionThreshold is the assigned-rater completion fraction that
	// makes an assessment eligible for 360 aggregation
	CompletionThreshold float64 `json:"completionThreshold" yaml:"completionThreshold"`

	// Dark-side extremity bounds on the raw scale
	HighExtremeThreshold float64 `json:"highExtremeThreshold" yaml:"highExtremeThreshold"`
	LowExtremeThreshold  float64 `json:"lowExtremeThreshold" yaml:"lowExtremeThreshold"`
}

// DefaultScoringConfig returns the observed platform defaults
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Scale:             model.AnswerScale{Min: 1, Max: 5},
		SecondaryWeight:   0.5,
		FacetMinResponses: 2,
		RoleWeights: map[model.RaterRole]float64{
			model.RoleSelf:         0.25,
			model.RoleManager:      0.30,
			model.RolePeer:         0.20,
			model.RoleDirectReport: 0.20,
			model.RoleExternal:     0.05,
		},
		BlindSpotThreshold:      0.5,
		AgreementNormalization:  2.5,
		SingleObserverAgreement: 1.0,
		CompletionThreshold:     0.80,
		HighExtremeThreshold:    4.2,
		LowExtremeThreshold:     1.8,
	}
}

// Validate rejects configurations that would produce meaningless scores
func (c ScoringConfig) Validate() error {
	if c.Scale.Min >= c.Scale.Max {
		return fmt.Errorf("scale min %.2f must be below max %.2f", c.Scale.Min, c.Scale.Max)
	}
	if c.SecondaryWeight < 0 || c.SecondaryWeight > 1 {
		return fmt.Errorf("secondary weight %.2f out of [0,1]", c.SecondaryWeight)
	}
	if c.FacetMinResponses < 1 {
		return fmt.Errorf("facet minimum responses must be at least 1")
	}
	if len(c.RoleWeights) == 0 {
		return fmt.Errorf("role weights missing")
	}
	sum := 0.0
	for role, w := range c.RoleWeights {
		if w < 0 {
			return fmt.Errorf("negative weight for role %s", role)
		}
		sum += w
	}
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("role weights sum to %.3f, want 1.0", sum)
	}
	if c.AgreementNormalization <= 0 {
		return fmt.Errorf("agreement normalization must be positive")
	}
	if c.CompletionThreshold <= 0 || c.CompletionThreshold > 1 {
		return fmt.Errorf("completion threshold %.2f out of (0,1]", c.CompletionThreshold)
	}
	if c.HighExtremeThreshold <= c.LowExtremeThreshold {
		return fmt.Errorf("high extreme threshold must exceed low extreme threshold")
	}
	if c.LowExtremeThreshold < c.Scale.Min || c.HighExtremeThreshold > c.Scale.Max {
		return fmt.Errorf("extremity thresholds must sit inside the answer scale")
	}
	return nil
}
