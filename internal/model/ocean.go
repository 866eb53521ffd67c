package model

// Trait is one of the Big Five personality dimensions
type Trait string

const (
	TraitOpenness          Trait = "openness"
	TraitConscientiousness Trait = "conscientiousness"
	TraitExtraversion      Trait = "extraversion"
	TraitAgreeableness     Trait = "agreeableness"
	TraitNeuroticism       Trait = "neuroticism"
)

// Traits lists the five dimensions in canonical order
func Traits() []Trait {
	return []Trait{
		TraitOpenness,
		TraitConscientiousness,
		TraitExtraversion,
		TraitAgreeableness,
		TraitNeuroticism,
	}
}

// TraitScores holds one value per Big Five trait
type TraitScores struct {
	Openness          float64 `json:"openness" bson:"openness"`
	Conscientiousness float64 `json:"conscientiousness" bson:"conscientiousness"`
	Extraversion      float64 `json:"extraversion" bson:"extraversion"`
	Agreeableness     float64 `json:"agreeableness" bson:"agreeableness"`
	Neuroticism       float64 `json:"neuroticism" bson:"neuroticism"`
}

// Get returns the score for a trait
func (t TraitScores) Get(trait Trait) float64 {
	switch trait {
	case TraitOpenness:
		return t.Openness
	case TraitConscientiousness:
		return t.Conscientiousness
	case TraitExtraversion:
		return t.Extraversion
	case TraitAgreeableness:
		return t.Agreeableness
	case TraitNeuroticism:
		return t.Neuroticism
	}
	return 0
}

// Set assigns the score for a trait
func (t *TraitScores) Set(trait Trait, v float64) {
	switch trait {
	case TraitOpenness:
		t.Openness = v
	case TraitConscientiousness:
		t.Conscientiousness = v
	case TraitExtraversion:
		t.Extraversion = v
	case TraitAgreeableness:
		t.Agreeableness = v
	case TraitNeuroticism:
		t.Neuroticism = v
	}
}

// TraitStanines holds one stanine band (1-9) per trait
type TraitStanines struct {
	Openness          int `json:"openness" bson:"openness"`
	Conscientiousness int `json:"conscientiousness" bson:"conscientiousness"`
	Extraversion      int `json:"extraversion" bson:"extraversion"`
	Agreeableness     int `json:"agreeableness" bson:"agreeableness"`
	Neuroticism       int `json:"neuroticism" bson:"neuroticism"`
}

// Get returns the stanine for a trait
func (t TraitStanines) Get(trait Trait) int {
	switch trait {
	case TraitOpenness:
		return t.Openness
	case TraitConscientiousness:
		return t.Conscientiousness
	case TraitExtraversion:
		return t.Extraversion
	case TraitAgreeableness:
		return t.Agreeableness
	case TraitNeuroticism:
		return t.Neuroticism
	}
	return 0
}

// Set assigns the stanine for a trait
func (t *TraitStanines) Set(trait Trait, v int) {
	switch trait {
	case TraitOpenness:
		t.Openness = v
	case TraitConscientiousness:
		t.Conscientiousness = v
	case TraitExtraversion:
		t.Extraversion = v
	case TraitAgreeableness:
		t.Agreeableness = v
	case TraitNeuroticism:
		t.Neuroticism = v
	}
}

// Facet is a sub-dimension of a trait
type Facet string

const (
	// Openness facets
	FacetFantasy    Facet = "fantasy"
	FacetAesthetics Facet = "aesthetics"
	FacetFeelings   Facet = "feelings"
	FacetActions    Facet = "actions"
	FacetIdeas      Facet = "ideas"
	FacetValues     Facet = "values"

	// Conscientiousness facets
	FacetCompetence     Facet = "competence"
	FacetOrder          Facet = "order"
	FacetDutifulness    Facet = "dutifulness"
	FacetAchievement    Facet = "achievement_striving"
	FacetSelfDiscipline Facet = "self_discipline"
	FacetDeliberation   Facet = "deliberation"

	// Extraversion facets
	FacetWarmth           Facet = "warmth"
	FacetGregariousness   Facet = "gregariousness"
	FacetAssertiveness    Facet = "assertiveness"
	FacetActivity         Facet = "activity"
	FacetExcitementSeeker Facet = "excitement_seeking"
	FacetPositiveEmotions Facet = "positive_emotions"

	// Agreeableness facets
	FacetTrust            Facet = "trust"
	FacetStraightforward  Facet = "straightforwardness"
	FacetAltruism         Facet = "altruism"
	FacetCompliance       Facet = "compliance"
	FacetModesty          Facet = "modesty"
	FacetTenderMindedness Facet = "tender_mindedness"

	// Neuroticism facets
	FacetAnxiety         Facet = "anxiety"
	FacetAngryHostility  Facet = "angry_hostility"
	FacetDepression      Facet = "depression"
	FacetSelfConscious   Facet = "self_consciousness"
	FacetImpulsiveness   Facet = "impulsiveness"
	FacetVulnerability   Facet = "vulnerability"
)

// TraitFacets maps each trait to its six facets
var TraitFacets = map[Trait][]Facet{
	TraitOpenness:          {FacetFantasy, FacetAesthetics, FacetFeelings, FacetActions, FacetIdeas, FacetValues},
	TraitConscientiousness: {FacetCompetence, FacetOrder, FacetDutifulness, FacetAchievement, FacetSelfDiscipline, FacetDeliberation},
	TraitExtraversion:      {FacetWarmth, FacetGregariousness, FacetAssertiveness, FacetActivity, FacetExcitementSeeker, FacetPositiveEmotions},
	TraitAgreeableness:     {FacetTrust, FacetStraightforward, FacetAltruism, FacetCompliance, FacetModesty, FacetTenderMindedness},
	TraitNeuroticism:       {FacetAnxiety, FacetAngryHostility, FacetDepression, FacetSelfConscious, FacetImpulsiveness, FacetVulnerability},
}

// FacetScores maps facet -> mean score, grouped by parent trait
type FacetScores map[Trait]map[Facet]float64

// OceanScoreDetails is the full scoring output for one submission
type OceanScoreDetails struct {
	Raw        TraitScores   `json:"raw" bson:"raw"`
	Percentile TraitScores   `json:"percentile" bson:"percentile"`
	Stanine    TraitStanines `json:"stanine" bson:"stanine"`
	Facets     FacetScores   `json:"facets,omitempty" bson:"facets,omitempty"`

	// Coverage stats
	ResponseCount int           `json:"responseCount" bson:"responseCount"`
	UnmappedCount int           `json:"unmappedCount" bson:"unmappedCount"` // responses with no known mapping (ignored)
	TraitCounts   map[Trait]int `json:"traitCounts" bson:"traitCounts"`     // responses contributing per trait
}
