package models

import "time"

// StepType distinguishes how a remediation step is executed.
type StepType string

const (
	StepAutomated StepType = "automated"
	StepManual    StepType = "manual"
	StepReview    StepType = "review"
)

// RemediationStep is one unit of remediation work.
type RemediationStep struct {
	ID           string        `json:"id" yaml:"id"`
	IssueID      string        `json:"issue_id" yaml:"issueId"`
	Description  string        `json:"description" yaml:"description"`
	Type         StepType      `json:"type" yaml:"type"`
	Duration     time.Duration `json:"duration" yaml:"duration"`
	Dependencies []string      `json:"dependencies" yaml:"dependencies"`
	Resources    []string      `json:"resources,omitempty" yaml:"resources,omitempty"`
}

// RemediationPlan is an ordered, dependency-validated set of steps.
type RemediationPlan struct {
	ID                   string            `json:"id"`
	Steps                []RemediationStep `json:"steps"`
	EstimatedDuration    time.Duration     `json:"estimated_duration"`
	ResourceRequirements []string          `json:"resource_requirements"`
	SuccessCriteria      []string          `json:"success_criteria"`
	RollbackPlan         string            `json:"rollback_plan,omitempty"`
	Confidence           float64           `json:"confidence"`
}

// RemediationContext describes where and how a remediation would run.
type RemediationContext struct {
	Environment        string   `json:"environment" yaml:"environment"`
	Urgency            Severity `json:"urgency" yaml:"urgency"`
	AvailableResources []string `json:"available_resources" yaml:"availableResources"`
	Constraints        []string `json:"constraints" yaml:"constraints"`
}
