package remediation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-quality/internal/models"
)

// DefaultRuleTableVersion identifies the built-in rule table.
const DefaultRuleTableVersion = "2025.1"

// CausalRule states that issues in Cause tend to produce issues in Effect.
// With Sequence set the cause's remediation must finish before the effect's starts.
type CausalRule struct {
	Cause    models.Dimension `yaml:"cause"`
	Effect   models.Dimension `yaml:"effect"`
	Sequence bool             `yaml:"sequence"`
	Note     string           `yaml:"note"`
}

// RootCauseRule maps description keywords to a likely root cause.
type RootCauseRule struct {
	Dimension models.Dimension `yaml:"dimension"`
	Keywords  []string         `yaml:"keywords"`
	Cause     string           `yaml:"cause"`
}

// StepTemplate is a canned remediation step. "{dimension}" in the
// description is replaced with the issue's dimension.
type StepTemplate struct {
	Description string          `yaml:"description"`
	Type        models.StepType `yaml:"type"`
	Duration    time.Duration   `yaml:"duration"`
	Resources   []string        `yaml:"resources"`
}

// RuleTable is the versioned set of heuristics the orchestrator applies.
type RuleTable struct {
	Version         string                              `yaml:"version"`
	Causal          []CausalRule                        `yaml:"causal"`
	RootCauses      []RootCauseRule                     `yaml:"rootCauses"`
	Templates       map[models.Dimension][]StepTemplate `yaml:"templates"`
	DefaultTemplate []StepTemplate                      `yaml:"defaultTemplate"`
}

// DefaultRuleTable returns the built-in rule table.
func DefaultRuleTable() *RuleTable {
	return &RuleTable{
		Version: DefaultRuleTableVersion,
		Causal: []CausalRule{
			{Cause: models.DimensionCode, Effect: models.DimensionPerformance, Note: "inefficient code degrades performance"},
			{Cause: models.DimensionCode, Effect: models.DimensionSecurity, Note: "unmaintained code hides vulnerabilities"},
			{Cause: models.DimensionArchitecture, Effect: models.DimensionScalability, Note: "coupling limits horizontal scaling"},
			{Cause: models.DimensionArchitecture, Effect: models.DimensionPerformance, Note: "chatty boundaries add latency"},
			{Cause: models.DimensionTesting, Effect: models.DimensionCode, Note: "low coverage lets regressions in"},
		},
		RootCauses: []RootCauseRule{
			{Dimension: models.DimensionCode, Keywords: []string{"complexity"}, Cause: "high cyclomatic complexity"},
			{Dimension: models.DimensionCode, Keywords: []string{"maintainability", "duplication"}, Cause: "accumulated technical debt"},
			{Dimension: models.DimensionPerformance, Keywords: []string{"latency", "slow"}, Cause: "inefficient hot paths"},
			{Dimension: models.DimensionPerformance, Keywords: []string{"memory", "allocation"}, Cause: "memory pressure"},
			{Dimension: models.DimensionSecurity, Keywords: []string{"vulnerab", "cve", "dependenc"}, Cause: "outdated or vulnerable dependencies"},
			{Dimension: models.DimensionAccessibility, Keywords: []string{"contrast", "aria", "label"}, Cause: "missing accessible markup"},
			{Dimension: models.DimensionTesting, Keywords: []string{"coverage"}, Cause: "insufficient test coverage"},
		},
		Templates: map[models.Dimension][]StepTemplate{
			models.DimensionCode: {
				{Description: "Review {dimension} quality findings", Type: models.StepReview, Duration: 15 * time.Minute, Resources: []string{"reviewer"}},
				{Description: "Refactor affected modules", Type: models.StepManual, Duration: time.Hour, Resources: []string{"engineer"}},
				{Description: "Run linters and formatters", Type: models.StepAutomated, Duration: 10 * time.Minute, Resources: []string{"ci-runner"}},
			},
			models.DimensionPerformance: {
				{Description: "Profile hot paths", Type: models.StepReview, Duration: 20 * time.Minute, Resources: []string{"reviewer"}},
				{Description: "Optimise bottlenecks", Type: models.StepManual, Duration: 90 * time.Minute, Resources: []string{"engineer"}},
				{Description: "Run performance regression suite", Type: models.StepAutomated, Duration: 15 * time.Minute, Resources: []string{"ci-runner"}},
			},
			models.DimensionSecurity: {
				{Description: "Triage vulnerability report", Type: models.StepReview, Duration: 15 * time.Minute, Resources: []string{"security-reviewer"}},
				{Description: "Patch vulnerable code paths", Type: models.StepManual, Duration: 45 * time.Minute, Resources: []string{"engineer"}},
				{Description: "Update dependencies and rescan", Type: models.StepAutomated, Duration: 10 * time.Minute, Resources: []string{"ci-runner"}},
			},
			models.DimensionAccessibility: {
				{Description: "Audit accessibility violations", Type: models.StepReview, Duration: 20 * time.Minute, Resources: []string{"reviewer"}},
				{Description: "Fix markup, labels and contrast", Type: models.StepManual, Duration: 45 * time.Minute, Resources: []string{"engineer"}},
				{Description: "Run automated accessibility checks", Type: models.StepAutomated, Duration: 10 * time.Minute, Resources: []string{"ci-runner"}},
			},
		},
		DefaultTemplate: []StepTemplate{
			{Description: "Review {dimension} issue", Type: models.StepReview, Duration: 30 * time.Minute, Resources: []string{"reviewer"}},
		},
	}
}

// LoadRuleTable reads a YAML rule table. An empty path or missing file yields
// the built-in table; sections omitted from the file fall back to it.
func LoadRuleTable(path string, logger *slog.Logger) (*RuleTable, error) {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultRuleTable()
	if path == "" {
		return defaults, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("rule table not found, using built-in rules", slog.String("path", path))
			return defaults, nil
		}
		return nil, fmt.Errorf("read rule table: %w", err)
	}

	var table RuleTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse rule table: %w", err)
	}
	if len(table.Templates) == 0 {
		table.Templates = defaults.Templates
	}
	if len(table.DefaultTemplate) == 0 {
		table.DefaultTemplate = defaults.DefaultTemplate
	}
	if table.RootCauses == nil {
		table.RootCauses = defaults.RootCauses
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	logger.Info("rule table loaded", slog.String("path", path), slog.String("version", table.Version))
	return &table, nil
}

// Validate rejects tables the orchestrator cannot apply.
func (t *RuleTable) Validate() error {
	if strings.TrimSpace(t.Version) == "" {
		return fmt.Errorf("rule table: version is required: %w", models.ErrConfiguration)
	}
	check := func(name string, steps []StepTemplate) error {
		for i, s := range steps {
			if s.Duration <= 0 {
				return fmt.Errorf("rule table: template %s step %d: duration must be positive: %w", name, i+1, models.ErrConfiguration)
			}
			switch s.Type {
			case models.StepAutomated, models.StepManual, models.StepReview:
			default:
				return fmt.Errorf("rule table: template %s step %d: unknown type %q: %w", name, i+1, s.Type, models.ErrConfiguration)
			}
		}
		return nil
	}
	for dim, steps := range t.Templates {
		if err := check(string(dim), steps); err != nil {
			return err
		}
	}
	if len(t.DefaultTemplate) == 0 {
		return fmt.Errorf("rule table: default template is empty: %w", models.ErrConfiguration)
	}
	if err := check("default", t.DefaultTemplate); err != nil {
		return err
	}
	for _, r := range t.Causal {
		if r.Cause == r.Effect {
			return fmt.Errorf("rule table: causal rule %s -> %s is self-referencing: %w", r.Cause, r.Effect, models.ErrConfiguration)
		}
	}
	return nil
}

// LookupCausal returns the rule linking cause to effect, if any.
func (t *RuleTable) LookupCausal(cause, effect models.Dimension) (CausalRule, bool) {
	for _, r := range t.Causal {
		if r.Cause == cause && r.Effect == effect {
			return r, true
		}
	}
	return CausalRule{}, false
}

// Template returns the step templates for dim, falling back to the default template.
func (t *RuleTable) Template(dim models.Dimension) []StepTemplate {
	if steps, ok := t.Templates[dim]; ok && len(steps) > 0 {
		return steps
	}
	return t.DefaultTemplate
}

// MatchRootCause returns the first root cause whose keywords appear in the description.
func (t *RuleTable) MatchRootCause(dim models.Dimension, description string) (RootCauseRule, string, bool) {
	text := strings.ToLower(description)
	for _, rule := range t.RootCauses {
		if rule.Dimension != dim {
			continue
		}
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
				return rule, kw, true
			}
		}
	}
	return RootCauseRule{}, "", false
}
