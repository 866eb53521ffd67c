package model

import "time"

// BlindSpotDirection labels which way self-perception diverges from observers
type BlindSpotDirection string

const (
	DirectionOverestimated  BlindSpotDirection = "overestimated"  // self > others
	DirectionUnderestimated BlindSpotDirection = "underestimated" // self < others
)

// BlindSpot records a significant self/observer gap on one trait
type BlindSpot struct {
	Trait         Trait              `json:"trait" bson:"trait"`
	SelfScore     float64            `json:"selfScore" bson:"selfScore"`
	ObserverScore float64            `json:"observerScore" bson:"observerScore"`
	Gap           float64            `json:"gap" bson:"gap"` // signed: self - observers
	Direction     BlindSpotDirection `json:"direction" bson:"direction"`
	Insight       string             `json:"insight" bson:"insight"`
}

// Aggregated360Result combines all raters' submissions for one subject.
// Recomputed results supersede earlier ones; records are never mutated.
type Aggregated360Result struct {
	ID           string `json:"id" bson:"_id,omitempty"`
	AssessmentID string `json:"assessmentId" bson:"assessmentId"`
	SubjectID    string `json:"subjectId" bson:"subjectId"`

	Weighted   TraitScores               `json:"weighted" bson:"weighted"`
	RoleMeans  map[RaterRole]TraitScores `json:"roleMeans" bson:"roleMeans"`
	RoleCounts map[RaterRole]int         `json:"roleCounts" bson:"roleCounts"`

	// Agreement is per-trait inter-rater agreement over non-self observers, 0-1
	Agreement  map[Trait]float64 `json:"agreement" bson:"agreement"`
	BlindSpots []BlindSpot       `json:"blindSpots" bson:"blindSpots"`

	ComputedAt time.Time `json:"computedAt" bson:"computedAt"`
}
