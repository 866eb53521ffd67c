package service

import (
	"fmt"
	"math"
	"sort"

	"ioccore/internal/config"
	"ioccore/internal/model"
)

// ProfileService derives executive and organizational interpretive layers
// atop base trait vectors. Every derivation is a fixed linear or threshold
// function of the five traits; the constants below are part of the contract
// (placeholder weights pending psychometric validation, see DESIGN.md).
type ProfileService struct {
	cfg config.ScoringConfig
}

// NewProfileService creates a new profile composer
func NewProfileService(cfg config.ScoringConfig) (*ProfileService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scoring config: %w", err)
	}
	return &ProfileService{cfg: cfg}, nil
}

// Leadership style names
const (
	StyleTransformational = "transformational"
	StyleTransactional    = "transactional"
	StyleServant          = "servant"
	StyleAuthentic        = "authentic"
	StyleCharismatic      = "charismatic"
)

// Influence tactic names (Yukl taxonomy)
const (
	TacticRationalPersuasion  = "rational_persuasion"
	TacticInspirationalAppeal = "inspirational_appeals"
	TacticConsultation        = "consultation"
	TacticIngratiation        = "ingratiation"
	TacticPersonalAppeal      = "personal_appeals"
	TacticExchange            = "exchange"
	TacticCoalition           = "coalition"
	TacticLegitimating        = "legitimating"
	TacticPressure            = "pressure"
)

// Team outcome prediction names
const (
	PredictionEngagement  = "engagement"
	PredictionCohesion    = "cohesion"
	PredictionInnovation  = "innovation"
	PredictionPerformance = "performance"
)

// normalized holds the trait vector rescaled to 0-1 plus emotional stability
type normalized struct {
	o, c, e, a, n float64
	stability     float64
}

func (s *ProfileService) normalize(t model.TraitScores) normalized {
	span := s.cfg.Scale.Max - s.cfg.Scale.Min
	norm := func(v float64) float64 {
		return clamp01((v - s.cfg.Scale.Min) / span)
	}
	n := normalized{
		o: norm(t.Openness),
		c: norm(t.Conscientiousness),
		e: norm(t.Extraversion),
		a: norm(t.Agreeableness),
		n: norm(t.Neuroticism),
	}
	n.stability = 1 - n.n
	return n
}

// ComposeExecutive derives the leadership interpretive layer for one subject
func (s *ProfileService) ComposeExecutive(subjectID string, traits model.TraitScores, role model.RoleMetadata) *model.ExecutiveProfile {
	v := s.normalize(traits)

	return &model.ExecutiveProfile{
		SubjectID: subjectID,
		Role:      role,
		LeadershipStyles: map[string]float64{
			StyleTransformational: 0.35*v.o + 0.30*v.e + 0.20*v.a + 0.15*v.c,
			StyleTransactional:    0.45*v.c + 0.25*v.stability + 0.20*v.e + 0.10*v.a,
			StyleServant:          0.40*v.a + 0.25*v.c + 0.20*v.stability + 0.15*v.o,
			StyleAuthentic:        0.30*v.a + 0.25*v.c + 0.25*v.stability + 0.20*v.o,
			StyleCharismatic:      0.40*v.e + 0.30*v.o + 0.20*v.a + 0.10*v.stability,
		},
		InfluenceTactics: map[string]float64{
			TacticRationalPersuasion:  0.55*v.c + 0.45*v.o,
			TacticInspirationalAppeal: 0.55*v.e + 0.45*v.o,
			TacticConsultation:        0.55*v.a + 0.45*v.e,
			TacticIngratiation:        0.65*v.a + 0.35*v.e,
			TacticPersonalAppeal:      0.70*v.a + 0.30*v.e,
			TacticExchange:            0.55*v.c + 0.45*v.e,
			TacticCoalition:           0.55*v.e + 0.45*v.a,
			TacticLegitimating:        0.60*v.c + 0.40*v.stability,
			TacticPressure:            0.60*v.e + 0.40*(1-v.a),
		},
		TeamPredictions: map[string]float64{
			PredictionEngagement:  0.50*v.e + 0.50*v.a,
			PredictionCohesion:    0.55*v.a + 0.45*v.stability,
			PredictionInnovation:  0.60*v.o + 0.40*v.e,
			PredictionPerformance: 0.60*v.c + 0.40*v.stability,
		},
		StressResponse: s.stressResponse(v),
	}
}

// stressResponse applies threshold rules on stability and conscientiousness
func (s *ProfileService) stressResponse(v normalized) model.StressResponse {
	resilience := 0.6*v.stability + 0.4*v.c

	recovery := "slow"
	switch {
	case resilience >= 0.7:
		recovery = "fast"
	case resilience >= 0.4:
		recovery = "moderate"
	}

	impact := "destabilizing"
	switch {
	case v.stability >= 0.6 && v.a >= 0.5:
		impact = "stabilizing"
	case v.stability >= 0.4:
		impact = "neutral"
	}

	var coping []string
	if v.n >= 0.6 {
		coping = append(coping, "structured recovery routines between high-pressure periods")
	}
	if v.c >= 0.6 {
		coping = append(coping, "planning and prioritization under load")
	}
	if v.e >= 0.6 {
		coping = append(coping, "processing pressure through trusted peers")
	}
	if v.o >= 0.6 {
		coping = append(coping, "reframing setbacks as learning opportunities")
	}
	if len(coping) == 0 {
		coping = append(coping, "maintaining steady routines under pressure")
	}

	return model.StressResponse{
		Resilience:       resilience,
		RecoverySpeed:    recovery,
		TeamImpact:       impact,
		CopingStrategies: coping,
	}
}

// ComposeOrganizational derives the collective profile of a member group
func (s *ProfileService) ComposeOrganizational(members []model.TraitScores) (*model.OrganizationalProfile, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("no member vectors: %w", model.ErrInsufficientData)
	}

	means := meanVectors(members)
	var diversity model.TraitScores
	for _, trait := range model.Traits() {
		variance := 0.0
		for _, m := range members {
			d := m.Get(trait) - means.Get(trait)
			variance += d * d
		}
		diversity.Set(trait, math.Sqrt(variance/float64(len(members))))
	}

	v := s.normalize(means)
	return &model.OrganizationalProfile{
		MemberCount: len(members),
		Means:       means,
		Diversity:   diversity,
		CultureType: s.cultureType(v),
		Health: model.HealthMetrics{
			PsychologicalSafety: 0.50*v.a + 0.50*v.stability,
			InnovationClimate:   0.60*v.o + 0.40*v.e,
			Resilience:          0.60*v.stability + 0.40*v.c,
			PerformanceCulture:  0.70*v.c + 0.30*v.e,
		},
	}, nil
}

// cultureType picks the label whose aggregate dimension dominates.
// Ties break lexically on the label, so the choice is deterministic.
func (s *ProfileService) cultureType(v normalized) model.CultureType {
	scores := map[model.CultureType]float64{
		model.CultureInnovation:    v.o,
		model.CulturePerformance:   v.c,
		model.CultureCollaborative: v.a,
		model.CultureAdaptive:      (v.o + v.e) / 2,
	}

	labels := make([]model.CultureType, 0, len(scores))
	for label := range scores {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	best := labels[0]
	for _, label := range labels[1:] {
		if scores[label] > scores[best] {
			best = label
		}
	}
	return best
}

// Fit scores an executive vector against an org collective vector
func (s *ProfileService) Fit(executive model.TraitScores, org *model.OrganizationalProfile) *model.FitResult {
	span := s.cfg.Scale.Max - s.cfg.Scale.Min
	execNorm := s.normalize(executive)
	orgNorm := s.normalize(org.Means)

	result := &model.FitResult{
		Alignment:     make(map[model.Trait]float64),
		Complementary: make(map[model.Trait]float64),
	}

	execByTrait := map[model.Trait]float64{
		model.TraitOpenness:          execNorm.o,
		model.TraitConscientiousness: execNorm.c,
		model.TraitExtraversion:      execNorm.e,
		model.TraitAgreeableness:     execNorm.a,
		model.TraitNeuroticism:       execNorm.n,
	}
	orgByTrait := map[model.Trait]float64{
		model.TraitOpenness:          orgNorm.o,
		model.TraitConscientiousness: orgNorm.c,
		model.TraitExtraversion:      orgNorm.e,
		model.TraitAgreeableness:     orgNorm.a,
		model.TraitNeuroticism:       orgNorm.n,
	}

	sum := 0.0
	for _, trait := range model.Traits() {
		alignment := 1 - math.Abs(executive.Get(trait)-org.Means.Get(trait))/span
		result.Alignment[trait] = alignment
		sum += alignment

		// High where the executive is strong and the collective is weak
		result.Complementary[trait] = clamp01(execByTrait[trait] * (1 - orgByTrait[trait]) * 2)
	}
	result.Overall = sum / float64(len(model.Traits()))
	result.Recommendations = s.fitRecommendations(result)
	return result
}

func (s *ProfileService) fitRecommendations(fit *model.FitResult) []string {
	var recs []string
	switch {
	case fit.Overall >= 0.8:
		recs = append(recs, "Strong overall alignment; onboarding can focus on relationship building.")
	case fit.Overall >= 0.6:
		recs = append(recs, "Workable alignment; agree on operating norms early for the lower-fit traits.")
	default:
		recs = append(recs, "Significant style gap; plan structured expectation-setting with the leadership team.")
	}

	for _, trait := range model.Traits() {
		if fit.Alignment[trait] < 0.5 {
			recs = append(recs, fmt.Sprintf("Large %s gap between the executive and the collective profile; make the difference explicit in team charters.", trait))
		}
		if fit.Complementary[trait] >= 0.8 {
			recs = append(recs, fmt.Sprintf("The executive's %s can cover a collective weak spot; assign ownership accordingly.", trait))
		}
	}
	return recs
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
