package models

import "time"

// Outcome records how a remediation action turned out.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomePartial Outcome = "partial"
)

// Feedback is an outcome report for an action taken on a dimension.
type Feedback struct {
	Timestamp time.Time         `json:"timestamp" yaml:"timestamp"`
	Dimension Dimension         `json:"dimension" yaml:"dimension"`
	Action    string            `json:"action" yaml:"action"`
	Outcome   Outcome           `json:"outcome" yaml:"outcome"`
	Impact    float64           `json:"impact" yaml:"impact"`
	Lessons   []string          `json:"lessons,omitempty" yaml:"lessons,omitempty"`
	Context   map[string]string `json:"context,omitempty" yaml:"context,omitempty"`
}

// LearnedPattern is a recurring (dimension, action, outcome) combination.
type LearnedPattern struct {
	ID        string    `json:"id"`
	Dimension Dimension `json:"dimension"`
	Action    string    `json:"action"`
	Outcome   Outcome   `json:"outcome"`
	Frequency int       `json:"frequency"`
	AvgImpact float64   `json:"avg_impact"`
	Lessons   []string  `json:"lessons,omitempty"`
	LastSeen  time.Time `json:"last_seen"`
}
