package model

import "time"

// RiskLevel is an ordered derailment risk band
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Rank returns the ordering of a risk level (low=0 .. critical=3)
func (r RiskLevel) Rank() int {
	switch r {
	case RiskModerate:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	}
	return 0
}

// MaxRiskLevel returns the worse of two levels
func MaxRiskLevel(a, b RiskLevel) RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Manifestation classifies how a trait's extremity shows up
type Manifestation string

const (
	ManifestationHighExtreme Manifestation = "high_extreme"
	ManifestationLowExtreme  Manifestation = "low_extreme"
	ManifestationNone        Manifestation = "none"
)

// TraitRisk is the dark-side assessment of one trait
type TraitRisk struct {
	Trait         Trait         `json:"trait" bson:"trait"`
	Level         RiskLevel     `json:"level" bson:"level"`
	Manifestation Manifestation `json:"manifestation" bson:"manifestation"`

	// Extremity is how far past the threshold the raw score sits, 0-1
	Extremity float64 `json:"extremity" bson:"extremity"`
	// AmplifiedScore is extremity * stress multiplier, the band input
	AmplifiedScore float64 `json:"amplifiedScore" bson:"amplifiedScore"`

	Concerns []string `json:"concerns,omitempty" bson:"concerns,omitempty"`
	Impacts  []string `json:"impacts,omitempty" bson:"impacts,omitempty"`
}

// DarkSideProfile flags trait extremity as derailment risk under stress
type DarkSideProfile struct {
	SubjectID   string `json:"subjectId,omitempty" bson:"subjectId,omitempty"`
	StressLevel int    `json:"stressLevel" bson:"stressLevel"` // 1-10

	// StressMultiplier is reported explicitly so callers can audit how much
	// stress contributed to the banding
	StressMultiplier float64 `json:"stressMultiplier" bson:"stressMultiplier"`

	Overall RiskLevel   `json:"overall" bson:"overall"` // worst per-trait level
	Traits  []TraitRisk `json:"traits" bson:"traits"`

	AssessedAt time.Time `json:"assessedAt" bson:"assessedAt"`
}
