package service

import (
	"fmt"
	"math"
	"time"

	"ioccore/internal/config"
	"ioccore/internal/model"
)

// AggregationService combines multiple raters' trait vectors for one subject
// into a weighted composite with agreement and blind-spot analysis. Pure;
// the 80% completion trigger is enforced by the caller (see CompletionCache).
type AggregationService struct {
	cfg config.ScoringConfig
}

// NewAggregationService creates a new 360 aggregation service
func NewAggregationService(cfg config.ScoringConfig) (*AggregationService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scoring config: %w", err)
	}
	return &AggregationService{cfg: cfg}, nil
}

// Aggregate builds the 360 composite from per-role trait vectors. A role may
// carry any number of raters; roles with none are excluded and the remaining
// role weights renormalized to sum 1.0.
func (s *AggregationService) Aggregate(assessmentID, subjectID string, byRole map[model.RaterRole][]model.TraitScores) (*model.Aggregated360Result, error) {
	total := 0
	for _, vectors := range byRole {
		total += len(vectors)
	}
	if total == 0 {
		return nil, fmt.Errorf("no rater vectors for subject %s: %w", subjectID, model.ErrInsufficientData)
	}

	result := &model.Aggregated360Result{
		AssessmentID: assessmentID,
		SubjectID:    subjectID,
		RoleMeans:    make(map[model.RaterRole]model.TraitScores),
		RoleCounts:   make(map[model.RaterRole]int),
		Agreement:    make(map[model.Trait]float64),
		ComputedAt:   time.Now(),
	}

	for role, vectors := range byRole {
		if len(vectors) == 0 {
			continue
		}
		result.RoleMeans[role] = meanVectors(vectors)
		result.RoleCounts[role] = len(vectors)
	}

	weights := s.renormalizedWeights(result.RoleMeans)
	for _, trait := range model.Traits() {
		weighted := 0.0
		for role, mean := range result.RoleMeans {
			weighted += weights[role] * mean.Get(trait)
		}
		result.Weighted.Set(trait, weighted)
		result.Agreement[trait] = s.agreement(trait, byRole)
	}

	result.BlindSpots = s.blindSpots(result.RoleMeans)
	return result, nil
}

// renormalizedWeights drops absent roles and rescales the remaining weights
// to sum 1.0. Silent under-weighting is never allowed.
func (s *AggregationService) renormalizedWeights(present map[model.RaterRole]model.TraitScores) map[model.RaterRole]float64 {
	sum := 0.0
	for role := range present {
		sum += s.cfg.RoleWeights[role]
	}
	weights := make(map[model.RaterRole]float64, len(present))
	if sum == 0 {
		// All present roles unweighted in the table; treat them equally
		for role := range present {
			weights[role] = 1.0 / float64(len(present))
		}
		return weights
	}
	for role := range present {
		weights[role] = s.cfg.RoleWeights[role] / sum
	}
	return weights
}

// agreement computes max(0, 1 - variance/normalization) over all non-self
// observer scores for a trait. With fewer than 2 observers disagreement
// cannot be measured; the configured default applies.
func (s *AggregationService) agreement(trait model.Trait, byRole map[model.RaterRole][]model.TraitScores) float64 {
	var observers []float64
	for role, vectors := range byRole {
		if role == model.RoleSelf {
			continue
		}
		for _, v := range vectors {
			observers = append(observers, v.Get(trait))
		}
	}
	if len(observers) < 2 {
		return s.cfg.SingleObserverAgreement
	}

	mean := 0.0
	for _, v := range observers {
		mean += v
	}
	mean /= float64(len(observers))

	variance := 0.0
	for _, v := range observers {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(observers))

	return math.Max(0, 1-variance/s.cfg.AgreementNormalization)
}

// blindSpots emits a record per trait whose |self - aggregated others| gap
// meets the configured threshold. Requires both a self rating and at least
// one observer role.
func (s *AggregationService) blindSpots(roleMeans map[model.RaterRole]model.TraitScores) []model.BlindSpot {
	selfMean, hasSelf := roleMeans[model.RoleSelf]
	if !hasSelf {
		return nil
	}

	observerMeans := make(map[model.RaterRole]model.TraitScores, len(roleMeans))
	for role, mean := range roleMeans {
		if role != model.RoleSelf {
			observerMeans[role] = mean
		}
	}
	if len(observerMeans) == 0 {
		return nil
	}
	weights := s.renormalizedWeights(observerMeans)

	var spots []model.BlindSpot
	for _, trait := range model.Traits() {
		others := 0.0
		for role, mean := range observerMeans {
			others += weights[role] * mean.Get(trait)
		}

		self := selfMean.Get(trait)
		gap := self - others
		if math.Abs(gap) < s.cfg.BlindSpotThreshold {
			continue
		}

		direction := model.DirectionUnderestimated
		if gap > 0 {
			direction = model.DirectionOverestimated
		}
		spots = append(spots, model.BlindSpot{
			Trait:         trait,
			SelfScore:     self,
			ObserverScore: others,
			Gap:           gap,
			Direction:     direction,
			Insight:       blindSpotInsight(trait, direction, math.Abs(gap)),
		})
	}
	return spots
}

func blindSpotInsight(trait model.Trait, direction model.BlindSpotDirection, magnitude float64) string {
	if direction == model.DirectionOverestimated {
		return fmt.Sprintf("Self-rating on %s runs %.1f points above how others experience it; worth exploring in a debrief.", trait, magnitude)
	}
	return fmt.Sprintf("Others rate %s %.1f points higher than the self-rating; this may be an unrecognized strength.", trait, magnitude)
}

func meanVectors(vectors []model.TraitScores) model.TraitScores {
	var mean model.TraitScores
	for _, trait := range model.Traits() {
		sum := 0.0
		for _, v := range vectors {
			sum += v.Get(trait)
		}
		mean.Set(trait, sum/float64(len(vectors)))
	}
	return mean
}
