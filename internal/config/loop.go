package config

import (
	"fmt"
	"time"
)

// MaxLoopIterations is the hard cap on any loop's iteration budget
const MaxLoopIterations = 50

// LoopConfig enumerates every knob of the feedback-loop orchestrator
type LoopConfig struct {
	// ConfidenceThreshold is the validator overall score required, together
	// with an approved status, for convergence
	ConfidenceThreshold float64 `json:"confidenceThreshold" yaml:"confidenceThreshold"`

	// MaxIterations bounds the loop, 1..50
	MaxIterations int `json:"maxIterations" yaml:"maxIterations"`

	// Timeout is wall-clock budget, checked cooperatively at the top of
	// each iteration
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// OscillationWindow is how many consecutive alternating confidence
	// deltas (without net improvement) trigger OscillationDetected
	OscillationWindow int `json:"oscillationWindow" yaml:"oscillationWindow"`

	// ImprovementEpsilon and ImprovementStreak drive MinimalImprovement:
	// |delta| < epsilon for streak consecutive iterations terminates the
	// loop. Epsilon 0 disables the check.
	ImprovementEpsilon float64 `json:"improvementEpsilon" yaml:"improvementEpsilon"`
	ImprovementStreak  int     `json:"improvementStreak" yaml:"improvementStreak"`

	// DisagreementGap is the generator-confidence minus validator-score gap
	// that raises a Disagreement record on rejected/human-review statuses
	DisagreementGap float64 `json:"disagreementGap" yaml:"disagreementGap"`

	// Retries per collaborator call before falling through the cascade
	MaxRetries   int           `json:"maxRetries" yaml:"maxRetries"`
	RetryBackoff time.Duration `json:"retryBackoff" yaml:"retryBackoff"`

	Priority string `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// DefaultLoopConfig returns the platform defaults
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		ConfidenceThreshold: 0.85,
		MaxIterations:       10,
		Timeout:             2 * time.Minute,
		OscillationWindow:   3,
		ImprovementEpsilon:  0.01,
		ImprovementStreak:   3,
		DisagreementGap:     0.2,
		MaxRetries:          1,
		RetryBackoff:        500 * time.Millisecond,
	}
}

// Validate rejects loop configurations outside the contract
func (c LoopConfig) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold %.2f out of [0,1]", c.ConfidenceThreshold)
	}
	if c.MaxIterations < 1 || c.MaxIterations > MaxLoopIterations {
		return fmt.Errorf("max iterations %d out of 1..%d", c.MaxIterations, MaxLoopIterations)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.OscillationWindow < 2 {
		return fmt.Errorf("oscillation window must be at least 2")
	}
	if c.ImprovementEpsilon < 0 {
		return fmt.Errorf("improvement epsilon must not be negative")
	}
	if c.ImprovementEpsilon > 0 && c.ImprovementStreak < 1 {
		return fmt.Errorf("improvement streak must be at least 1")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative")
	}
	return nil
}
