package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"ioccore/internal/model"
)

// TraitNorm is the normative distribution of one trait's raw scores
type TraitNorm struct {
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"stdDev" yaml:"stdDev"`
}

// NormTable converts raw trait scores to percentiles and stanines. Static
// reference data, supplied at startup or bundled as defaults.
type NormTable struct {
	Traits map[model.Trait]TraitNorm `json:"traits" yaml:"traits"`
}

// Cumulative percentile lower bounds of stanine bands 2..9
var stanineCuts = [8]float64{4, 11, 23, 40, 60, 77, 89, 96}

// DefaultNormTable returns the bundled adult working-population norms
func DefaultNormTable() *NormTable {
	return &NormTable{
		Traits: map[model.Trait]TraitNorm{
			model.TraitOpenness:          {Mean: 3.2, StdDev: 0.65},
			model.TraitConscientiousness: {Mean: 3.5, StdDev: 0.60},
			model.TraitExtraversion:      {Mean: 3.1, StdDev: 0.70},
			model.TraitAgreeableness:     {Mean: 3.4, StdDev: 0.60},
			model.TraitNeuroticism:       {Mean: 2.8, StdDev: 0.75},
		},
	}
}

// LoadNormTable reads a YAML normative table from disk
func LoadNormTable(path string) (*NormTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read norm table: %w", err)
	}
	var table NormTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse norm table: %w", err)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &table, nil
}

// Validate checks the table covers all five traits with usable spreads
func (t *NormTable) Validate() error {
	for _, trait := range model.Traits() {
		norm, ok := t.Traits[trait]
		if !ok {
			return fmt.Errorf("norm table missing trait %s", trait)
		}
		if norm.StdDev <= 0 {
			return fmt.Errorf("norm table trait %s has non-positive std dev", trait)
		}
	}
	return nil
}

// Percentile converts a raw score to a 0-100 percentile via the normal CDF.
// Monotonic non-decreasing in the raw score for a fixed table.
func (t *NormTable) Percentile(trait model.Trait, raw float64) float64 {
	norm := t.Traits[trait]
	z := (raw - norm.Mean) / norm.StdDev
	return 100 * 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

// Stanine buckets a percentile into the nine fixed bands
func (t *NormTable) Stanine(percentile float64) int {
	stanine := 1
	for _, cut := range stanineCuts {
		if percentile >= cut {
			stanine++
		}
	}
	return stanine
}
