package model

import "time"

// AnswerScale defines the bounds of the raw answer scale (e.g. 1-5 Likert)
type AnswerScale struct {
	Min float64 `json:"min" bson:"min"`
	Max float64 `json:"max" bson:"max"`
}

// Midpoint returns the neutral value of the scale
func (s AnswerScale) Midpoint() float64 {
	return (s.Min + s.Max) / 2
}

// Reverse flips a value for reverse-keyed questions
func (s AnswerScale) Reverse(v float64) float64 {
	return s.Max + s.Min - v
}

// Clamp bounds a value to the scale
func (s AnswerScale) Clamp(v float64) float64 {
	if v < s.Min {
		return s.Min
	}
	if v > s.Max {
		return s.Max
	}
	return v
}

// QuestionMapping associates a question with its trait assignments.
// Created at template authoring time, immutable for a given assessment.
type QuestionMapping struct {
	QuestionID     string  `json:"questionId" bson:"questionId"`
	AssessmentID   string  `json:"assessmentId" bson:"assessmentId"`
	Trait          Trait   `json:"trait" bson:"trait"`
	Weight         float64 `json:"weight" bson:"weight"`
	SecondaryTrait Trait   `json:"secondaryTrait,omitempty" bson:"secondaryTrait,omitempty"`
	Facet          Facet   `json:"facet,omitempty" bson:"facet,omitempty"`
	Reverse        bool    `json:"reverse" bson:"reverse"`
}

// Response is a single (question, answer) pair. Answer accepts a numeric
// value, a lettered option ("a"-"e"), or a {"value": ...} object.
type Response struct {
	QuestionID string      `json:"questionId" bson:"questionId"`
	Answer     interface{} `json:"answer" bson:"answer"`
}

// RaterRole identifies the relationship of a rater to the subject
type RaterRole string

const (
	RoleSelf         RaterRole = "self"
	RoleManager      RaterRole = "manager"
	RolePeer         RaterRole = "peer"
	RoleDirectReport RaterRole = "direct-report"
	RoleExternal     RaterRole = "external"
)

// RaterRoles lists all roles in canonical order
func RaterRoles() []RaterRole {
	return []RaterRole{RoleSelf, RoleManager, RolePeer, RoleDirectReport, RoleExternal}
}

// Submission is one rater's ordered response set for an assessment instance
type Submission struct {
	ID           string     `json:"id" bson:"_id,omitempty"`
	AssessmentID string     `json:"assessmentId" bson:"assessmentId"`
	SubjectID    string     `json:"subjectId" bson:"subjectId"`
	RaterID      string     `json:"raterId" bson:"raterId"`
	Role         RaterRole  `json:"role" bson:"role"`
	Responses    []Response `json:"responses" bson:"responses"`
	SubmittedAt  time.Time  `json:"submittedAt" bson:"submittedAt"`
}
