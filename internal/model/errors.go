package model

import "errors"

// Typed failures surfaced to callers. Pure scoring errors are recovered
// locally only where a documented default exists (facet omission, answer
// midpoint fallback); everything else propagates wrapped around one of these.
var (
	// ErrInsufficientData means scoring or aggregation was attempted with
	// no usable responses. Never silently zero-filled.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrUnmappedResponse means a response referenced an unknown question.
	// The scorer's fixed policy is to ignore and count such responses; this
	// error is returned only when every response is unmapped.
	ErrUnmappedResponse = errors.New("unmapped response")

	// ErrGenerationTimeout means the Generator exceeded its deadline.
	ErrGenerationTimeout = errors.New("generation timeout")

	// ErrValidationTimeout means the Validator exceeded its deadline.
	ErrValidationTimeout = errors.New("validation timeout")

	// ErrLoopTerminal means an operation targeted a loop already in a
	// terminal state.
	ErrLoopTerminal = errors.New("feedback loop is terminal")

	// ErrInvalidStressLevel means a stress level outside 1-10 was supplied.
	ErrInvalidStressLevel = errors.New("stress level must be between 1 and 10")
)
