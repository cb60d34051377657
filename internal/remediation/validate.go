package remediation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/miradorstack/mirador-quality/internal/models"
)

// IssueKind classifies a validation finding.
type IssueKind string

const (
	IssueMissingDependency  IssueKind = "missing_dependency"
	IssueCircularDependency IssueKind = "circular_dependency"
	IssueDuplicateStep      IssueKind = "duplicate_step"
	IssueNoResources        IssueKind = "no_resources"
)

// ValidationIssue is one itemised reason a plan is invalid.
type ValidationIssue struct {
	Kind    IssueKind `json:"kind"`
	StepID  string    `json:"step_id,omitempty"`
	Message string    `json:"message"`
}

// Validation is the outcome of ValidatePlan. Recommendations are advisory.
type Validation struct {
	IsValid         bool              `json:"is_valid"`
	Issues          []ValidationIssue `json:"issues"`
	Recommendations []string          `json:"recommendations"`
}

// HasCycle reports whether a circular dependency was found.
func (v Validation) HasCycle() bool {
	for _, issue := range v.Issues {
		if issue.Kind == IssueCircularDependency {
			return true
		}
	}
	return false
}

// ValidateOptions tunes the advisory checks.
type ValidateOptions struct {
	MaxDuration        time.Duration
	MaxManualRatio     float64
	AvailableResources []string
	Constraints        []string
}

// DefaultValidateOptions returns the advisory thresholds used when none are configured.
func DefaultValidateOptions() ValidateOptions {
	return ValidateOptions{MaxDuration: 8 * time.Hour, MaxManualRatio: 2}
}

// ValidatePlan checks dependency references, cycles and resources. Missing
// references and cycles make the plan invalid; long plans, manual-heavy plans
// and unavailable resources only add recommendations.
func ValidatePlan(plan models.RemediationPlan, opts ValidateOptions) Validation {
	v := Validation{IsValid: true}
	fail := func(kind IssueKind, step, msg string) {
		v.IsValid = false
		v.Issues = append(v.Issues, ValidationIssue{Kind: kind, StepID: step, Message: msg})
	}

	g := NewGraph()
	for _, step := range plan.Steps {
		if _, exists := g.Lookup(step.ID); exists {
			fail(IssueDuplicateStep, step.ID, fmt.Sprintf("step %q is defined more than once", step.ID))
			continue
		}
		g.AddNode(step.ID)
	}
	for _, step := range plan.Steps {
		from, _ := g.Lookup(step.ID)
		for _, dep := range step.Dependencies {
			to, ok := g.Lookup(dep)
			if !ok {
				fail(IssueMissingDependency, step.ID, fmt.Sprintf("missing dependency: step %q depends on unknown step %q", step.ID, dep))
				continue
			}
			if _, err := g.AddDependency(from, to); err != nil {
				fail(IssueCircularDependency, step.ID, fmt.Sprintf("circular dependency: step %q depends on itself", step.ID))
			}
		}
	}
	if _, err := g.TopologicalOrder(); err != nil {
		var cycle *CycleError
		if errors.As(err, &cycle) {
			fail(IssueCircularDependency, cycle.Path[0], cycle.Error())
		}
	}

	if len(plan.ResourceRequirements) == 0 {
		fail(IssueNoResources, "", "plan has no resource requirements")
	}

	automated, manual := 0, 0
	for _, step := range plan.Steps {
		switch step.Type {
		case models.StepAutomated:
			automated++
		case models.StepManual:
			manual++
		}
	}
	if opts.MaxDuration > 0 && plan.EstimatedDuration > opts.MaxDuration {
		v.Recommendations = append(v.Recommendations, fmt.Sprintf("estimated duration %s exceeds %s; consider splitting the plan into phases", plan.EstimatedDuration, opts.MaxDuration))
	}
	if opts.MaxManualRatio > 0 && manual > 0 {
		ratio := float64(manual)
		if automated > 0 {
			ratio = float64(manual) / float64(automated)
		}
		if ratio > opts.MaxManualRatio {
			v.Recommendations = append(v.Recommendations, fmt.Sprintf("manual to automated ratio %.1f is high; automate repetitive steps", ratio))
		}
	}
	if len(opts.AvailableResources) > 0 {
		available := make(map[string]struct{}, len(opts.AvailableResources))
		for _, r := range opts.AvailableResources {
			available[strings.ToLower(r)] = struct{}{}
		}
		for _, r := range plan.ResourceRequirements {
			if _, ok := available[strings.ToLower(r)]; !ok {
				v.Recommendations = append(v.Recommendations, fmt.Sprintf("resource %q is not currently available", r))
			}
		}
	}
	for _, c := range opts.Constraints {
		if strings.EqualFold(strings.TrimSpace(c), "automated-only") && manual > 0 {
			v.Recommendations = append(v.Recommendations, fmt.Sprintf("%d manual steps conflict with the automated-only constraint", manual))
		}
	}
	return v
}

// CriticalPath returns the longest chain of step durations through the
// dependency graph of ordered steps (dependencies first).
func CriticalPath(ordered []models.RemediationStep) time.Duration {
	finish := make(map[string]time.Duration, len(ordered))
	var longest time.Duration
	for _, step := range ordered {
		var start time.Duration
		for _, dep := range step.Dependencies {
			if f := finish[dep]; f > start {
				start = f
			}
		}
		finish[step.ID] = start + step.Duration
		if finish[step.ID] > longest {
			longest = finish[step.ID]
		}
	}
	return longest
}
