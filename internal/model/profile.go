package model

// RoleMetadata describes the executive's position for profile composition
type RoleMetadata struct {
	Level    string `json:"level" bson:"level"`       // e.g. "director", "vp", "c-suite"
	Function string `json:"function" bson:"function"` // e.g. "engineering", "sales"
}

// StressResponse is the executive's predicted behavior under load
type StressResponse struct {
	Resilience       float64  `json:"resilience" bson:"resilience"` // 0-1
	RecoverySpeed    string   `json:"recoverySpeed" bson:"recoverySpeed"`
	TeamImpact       string   `json:"teamImpact" bson:"teamImpact"`
	CopingStrategies []string `json:"copingStrategies" bson:"copingStrategies"`
}

// ExecutiveProfile is the leadership interpretive layer over a trait vector.
// All scores are deterministic linear/threshold functions of the five traits.
type ExecutiveProfile struct {
	SubjectID string       `json:"subjectId,omitempty" bson:"subjectId,omitempty"`
	Role      RoleMetadata `json:"role" bson:"role"`

	LeadershipStyles map[string]float64 `json:"leadershipStyles" bson:"leadershipStyles"` // 5 styles, 0-1
	InfluenceTactics map[string]float64 `json:"influenceTactics" bson:"influenceTactics"` // 9 tactics, 0-1
	TeamPredictions  map[string]float64 `json:"teamPredictions" bson:"teamPredictions"`   // 4 outcome metrics, 0-1
	StressResponse   StressResponse     `json:"stressResponse" bson:"stressResponse"`
}

// CultureType is the dominant collective orientation of an organization
type CultureType string

const (
	CultureAdaptive      CultureType = "adaptive"
	CultureCollaborative CultureType = "collaborative"
	CultureInnovation    CultureType = "innovation"
	CulturePerformance   CultureType = "performance"
)

// HealthMetrics are derived org health scores, 0-1
type HealthMetrics struct {
	PsychologicalSafety float64 `json:"psychologicalSafety" bson:"psychologicalSafety"`
	InnovationClimate   float64 `json:"innovationClimate" bson:"innovationClimate"`
	Resilience          float64 `json:"resilience" bson:"resilience"`
	PerformanceCulture  float64 `json:"performanceCulture" bson:"performanceCulture"`
}

// OrganizationalProfile is the collective layer over member trait vectors
type OrganizationalProfile struct {
	MemberCount int         `json:"memberCount" bson:"memberCount"`
	Means       TraitScores `json:"means" bson:"means"`
	Diversity   TraitScores `json:"diversity" bson:"diversity"` // per-trait standard deviation

	CultureType CultureType   `json:"cultureType" bson:"cultureType"`
	Health      HealthMetrics `json:"health" bson:"health"`
}

// FitResult scores how an executive fits an organization's collective profile
type FitResult struct {
	Alignment     map[Trait]float64 `json:"alignment" bson:"alignment"`         // 1 - normalized |diff|
	Complementary map[Trait]float64 `json:"complementary" bson:"complementary"` // strength where the org is weak
	Overall       float64           `json:"overall" bson:"overall"`             // mean of alignments

	Recommendations []string `json:"recommendations" bson:"recommendations"`
}
