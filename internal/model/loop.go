package model

import "time"

// LoopStatus is the lifecycle state of a feedback loop
type LoopStatus string

const (
	LoopStatusActive    LoopStatus = "active"
	LoopStatusCompleted LoopStatus = "completed"
	LoopStatusCancelled LoopStatus = "cancelled"
	LoopStatusError     LoopStatus = "error"
	LoopStatusTimeout   LoopStatus = "timeout"
)

// Terminal reports whether the status admits no further iterations
func (s LoopStatus) Terminal() bool {
	return s != LoopStatusActive
}

// ConvergenceReason records why a loop stopped iterating. Reasons are
// mutually exclusive; exactly one is set on termination.
type ConvergenceReason string

const (
	ReasonConverged          ConvergenceReason = "converged"
	ReasonMaxIterations      ConvergenceReason = "max_iterations_reached"
	ReasonTimedOut           ConvergenceReason = "timed_out"
	ReasonOscillation        ConvergenceReason = "oscillation_detected"
	ReasonMinimalImprovement ConvergenceReason = "minimal_improvement"
	ReasonCancelled          ConvergenceReason = "cancelled"
	ReasonError              ConvergenceReason = "error"
)

// LoopSettings is the validated per-loop configuration snapshot stored on
// the loop record (explicit struct, not a free-form settings blob)
type LoopSettings struct {
	ConfidenceThreshold float64       `json:"confidenceThreshold" bson:"confidenceThreshold"` // 0-1
	MaxIterations       int           `json:"maxIterations" bson:"maxIterations"`             // <= 50
	Timeout             time.Duration `json:"timeout" bson:"timeout"`
	Priority            string        `json:"priority,omitempty" bson:"priority,omitempty"`
}

// NodeType classifies a content node within a generation
type NodeType string

const (
	NodeScoring        NodeType = "scoring"
	NodeInsight        NodeType = "insight"
	NodeRecommendation NodeType = "recommendation"
	NodeContext        NodeType = "context"
)

// ContentNode is one independently validatable fragment of generated content
type ContentNode struct {
	ID      string   `json:"id" bson:"id"`
	Type    NodeType `json:"type" bson:"type"`
	Content string   `json:"content" bson:"content"`
}

// GenerationContext is the plain-data input handed to the Generator
type GenerationContext struct {
	SubjectID string                 `json:"subjectId,omitempty" bson:"subjectId,omitempty"`
	NodeType  NodeType               `json:"nodeType,omitempty" bson:"nodeType,omitempty"`
	Seed      string                 `json:"seed,omitempty" bson:"seed,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty" bson:"data,omitempty"`
}

// FallbackTier names which tier of the error-handling cascade produced a
// result. Recorded for observability; "primary" means no fallback was needed.
type FallbackTier string

const (
	TierPrimary       FallbackTier = "primary"
	TierRetry         FallbackTier = "retry"
	TierFallbackModel FallbackTier = "fallback_model"
	TierCached        FallbackTier = "cached"
	TierDegraded      FallbackTier = "degraded"
)

// Generation is one Generator output
type Generation struct {
	Content      string        `json:"content" bson:"content"`
	Nodes        []ContentNode `json:"nodes,omitempty" bson:"nodes,omitempty"`
	Confidence   float64       `json:"confidence" bson:"confidence"` // generator's self-reported confidence, 0-1
	Model        string        `json:"model" bson:"model"`
	ProcessingMS int64         `json:"processingMs" bson:"processingMs"`
	FallbackTier FallbackTier  `json:"fallbackTier" bson:"fallbackTier"`
}

// ValidationStatus is the Validator's verdict
type ValidationStatus string

const (
	ValidationApproved         ValidationStatus = "approved"
	ValidationNeedsImprovement ValidationStatus = "needs_improvement"
	ValidationRejected         ValidationStatus = "rejected"
	ValidationHumanReview      ValidationStatus = "requires_human_review"
)

// DimensionScores are the Validator's per-dimension quality scores, 0-1
type DimensionScores struct {
	Accuracy   float64 `json:"accuracy" bson:"accuracy"`
	Clarity    float64 `json:"clarity" bson:"clarity"`
	Bias       float64 `json:"bias" bson:"bias"`
	Ethics     float64 `json:"ethics" bson:"ethics"`
	Compliance float64 `json:"compliance" bson:"compliance"`
	Overall    float64 `json:"overall" bson:"overall"`
}

// Validation is one Validator output
type Validation struct {
	Status       ValidationStatus `json:"status" bson:"status"`
	Scores       DimensionScores  `json:"scores" bson:"scores"`
	Issues       []string         `json:"issues,omitempty" bson:"issues,omitempty"`
	Suggestions  []string         `json:"suggestions,omitempty" bson:"suggestions,omitempty"`
	FallbackTier FallbackTier     `json:"fallbackTier" bson:"fallbackTier"`
}

// NodeValidation scopes a verdict to one content node, permitting partial
// convergence (some nodes approved while others iterate further)
type NodeValidation struct {
	NodeID     string           `json:"nodeId" bson:"nodeId"`
	NodeType   NodeType         `json:"nodeType" bson:"nodeType"`
	Status     ValidationStatus `json:"status" bson:"status"`
	Confidence float64          `json:"confidence" bson:"confidence"`
}

// FeedbackMessage is a structured improvement request for one content node
type FeedbackMessage struct {
	NodeID     string `json:"nodeId,omitempty" bson:"nodeId,omitempty"`
	Issue      string `json:"issue" bson:"issue"`
	Suggestion string `json:"suggestion,omitempty" bson:"suggestion,omitempty"`
}

// Iteration is one generate/validate round. Immutable once recorded.
type Iteration struct {
	ID     string `json:"id" bson:"_id,omitempty"`
	LoopID string `json:"loopId" bson:"loopId"`
	Number int    `json:"number" bson:"number"` // 1-based

	Generation      Generation        `json:"generation" bson:"generation"`
	Validation      Validation        `json:"validation" bson:"validation"`
	NodeValidations []NodeValidation  `json:"nodeValidations,omitempty" bson:"nodeValidations,omitempty"`
	Feedback        []FeedbackMessage `json:"feedback,omitempty" bson:"feedback,omitempty"`

	// ConfidenceDelta is validator overall minus previous iteration's, 0 on first
	ConfidenceDelta float64   `json:"confidenceDelta" bson:"confidenceDelta"`
	CreatedAt       time.Time `json:"createdAt" bson:"createdAt"`
}

// Disagreement records a generator/validator confidence conflict. Distinct
// from an ordinary validation failure; resolution strategy is external.
type Disagreement struct {
	ID              string           `json:"id" bson:"_id,omitempty"`
	LoopID          string           `json:"loopId" bson:"loopId"`
	IterationNumber int              `json:"iterationNumber" bson:"iterationNumber"`
	GeneratorScore  float64          `json:"generatorScore" bson:"generatorScore"`
	ValidatorScore  float64          `json:"validatorScore" bson:"validatorScore"`
	Gap             float64          `json:"gap" bson:"gap"`
	Status          ValidationStatus `json:"status" bson:"status"`
	Resolution      string           `json:"resolution,omitempty" bson:"resolution,omitempty"`
	CreatedAt       time.Time        `json:"createdAt" bson:"createdAt"`
}

// FeedbackLoop is the stateful loop process record
type FeedbackLoop struct {
	ID        string `json:"id" bson:"_id,omitempty"`
	RequestID string `json:"requestId,omitempty" bson:"requestId,omitempty"`

	Status LoopStatus        `json:"status" bson:"status"`
	Reason ConvergenceReason `json:"reason,omitempty" bson:"reason,omitempty"`
	Error  string            `json:"error,omitempty" bson:"error,omitempty"`

	Settings         LoopSettings      `json:"settings" bson:"settings"`
	Context          GenerationContext `json:"context" bson:"context"`
	CurrentIteration int               `json:"currentIteration" bson:"currentIteration"`
	FinalConfidence  float64           `json:"finalConfidence" bson:"finalConfidence"`

	CreatedAt   time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" bson:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

// LoopRequestStatus is the queue state of a pending loop request
type LoopRequestStatus string

const (
	RequestPending LoopRequestStatus = "pending"
	RequestClaimed LoopRequestStatus = "claimed"
	RequestDone    LoopRequestStatus = "done"
)

// LoopRequest is a queued ask for the loop worker
type LoopRequest struct {
	ID        string            `json:"id" bson:"_id,omitempty"`
	Status    LoopRequestStatus `json:"status" bson:"status"`
	Context   GenerationContext `json:"context" bson:"context"`
	Settings  LoopSettings      `json:"settings" bson:"settings"`
	CreatedAt time.Time         `json:"createdAt" bson:"createdAt"`
	ClaimedAt *time.Time        `json:"claimedAt,omitempty" bson:"claimedAt,omitempty"`
}
