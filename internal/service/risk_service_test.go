package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ioccore/internal/config"
	"ioccore/internal/model"
)

func newRiskAssessor(t *testing.T) *RiskService {
	t.Helper()
	r, err := NewRiskService(config.DefaultScoringConfig())
	require.NoError(t, err)
	return r
}

func traitRiskFor(t *testing.T, profile *model.DarkSideProfile, trait model.Trait) model.TraitRisk {
	t.Helper()
	for _, tr := range profile.Traits {
		if tr.Trait == trait {
			return tr
		}
	}
	t.Fatalf("no risk entry for trait %s", trait)
	return model.TraitRisk{}
}

func TestAssessRejectsInvalidStress(t *testing.T) {
	r := newRiskAssessor(t)
	for _, stress := range []int{0, -1, 11} {
		_, err := r.Assess("subject", flatVector(3.0), stress)
		assert.ErrorIs(t, err, model.ErrInvalidStressLevel)
	}
}

func TestAssessNoExtremityIsLowRisk(t *testing.T) {
	r := newRiskAssessor(t)
	profile, err := r.Assess("subject", flatVector(3.0), 10)
	require.NoError(t, err)

	// Maximum stress cannot manufacture risk out of mid-range traits
	assert.Equal(t, model.RiskLow, profile.Overall)
	assert.InDelta(t, 1.9, profile.StressMultiplier, 1e-9)
	for _, tr := range profile.Traits {
		assert.Equal(t, model.ManifestationNone, tr.Manifestation)
		assert.Zero(t, tr.Extremity)
		assert.Empty(t, tr.Concerns)
	}
}

func TestAssessWorstTraitDominatesOverall(t *testing.T) {
	r := newRiskAssessor(t)

	traits := flatVector(3.0)
	traits.Neuroticism = 5.0 // extremity 1.0

	profile, err := r.Assess("subject", traits, 10)
	require.NoError(t, err)

	n := traitRiskFor(t, profile, model.TraitNeuroticism)
	assert.Equal(t, model.ManifestationHighExtreme, n.Manifestation)
	assert.InDelta(t, 1.0, n.Extremity, 1e-9)
	assert.InDelta(t, 1.9, n.AmplifiedScore, 1e-9)
	assert.Equal(t, model.RiskCritical, n.Level)
	assert.NotEmpty(t, n.Concerns)
	assert.NotEmpty(t, n.Impacts)

	// Four calm traits do not dilute the one critical derailer
	assert.Equal(t, model.RiskCritical, profile.Overall)
}

func TestAssessLowExtremeManifestation(t *testing.T) {
	r := newRiskAssessor(t)

	traits := flatVector(3.0)
	traits.Agreeableness = 1.0

	profile, err := r.Assess("subject", traits, 1)
	require.NoError(t, err)

	a := traitRiskFor(t, profile, model.TraitAgreeableness)
	assert.Equal(t, model.ManifestationLowExtreme, a.Manifestation)
	assert.InDelta(t, 1.0, a.Extremity, 1e-9)
	// Stress 1 leaves the extremity unamplified
	assert.InDelta(t, 1.0, a.AmplifiedScore, 1e-9)
	assert.Equal(t, model.RiskHigh, a.Level)
}

func TestAssessMonotonicInStress(t *testing.T) {
	r := newRiskAssessor(t)

	traits := flatVector(3.0)
	traits.Conscientiousness = 4.6 // moderate extremity

	prev := model.RiskLow
	for stress := 1; stress <= 10; stress++ {
		profile, err := r.Assess("subject", traits, stress)
		require.NoError(t, err)

		level := traitRiskFor(t, profile, model.TraitConscientiousness).Level
		assert.GreaterOrEqual(t, level.Rank(), prev.Rank(), "stress %d", stress)
		prev = level
	}
}

func TestAssessMonotonicInExtremity(t *testing.T) {
	r := newRiskAssessor(t)

	prev := model.RiskLow
	for raw := 4.2; raw <= 5.0; raw += 0.1 {
		traits := flatVector(3.0)
		traits.Extraversion = raw

		profile, err := r.Assess("subject", traits, 7)
		require.NoError(t, err)

		level := traitRiskFor(t, profile, model.TraitExtraversion).Level
		assert.GreaterOrEqual(t, level.Rank(), prev.Rank(), "raw %.1f", raw)
		prev = level
	}
}

func TestRiskBandBoundaries(t *testing.T) {
	assert.Equal(t, model.RiskLow, bandFor(0.34))
	assert.Equal(t, model.RiskModerate, bandFor(0.35))
	assert.Equal(t, model.RiskModerate, bandFor(0.69))
	assert.Equal(t, model.RiskHigh, bandFor(0.70))
	assert.Equal(t, model.RiskHigh, bandFor(1.04))
	assert.Equal(t, model.RiskCritical, bandFor(1.05))
	assert.Equal(t, model.RiskCritical, bandFor(1.9))
}
