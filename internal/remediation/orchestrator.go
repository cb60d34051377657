package remediation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-quality/internal/models"
	"github.com/miradorstack/mirador-quality/internal/utils"
)

const targetScore = 85

// Result bundles everything produced while planning a remediation.
type Result struct {
	Relationships []Relationship         `json:"relationships"`
	RootCauses    []RootCause            `json:"root_causes"`
	Strategies    []Strategy             `json:"strategies"`
	Workflow      *Workflow              `json:"workflow,omitempty"`
	Plan          models.RemediationPlan `json:"plan"`
	Validation    Validation             `json:"validation"`
	Impact        Impact                 `json:"impact"`
}

// Orchestrator turns quality issues into validated, ordered remediation plans.
type Orchestrator struct {
	logger *slog.Logger
	rules  *RuleTable
	opts   ValidateOptions
}

// NewOrchestrator constructs an Orchestrator. A nil rule table uses the built-in rules.
func NewOrchestrator(logger *slog.Logger, rules *RuleTable, opts ValidateOptions) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if rules == nil {
		rules = DefaultRuleTable()
	}
	defaults := DefaultValidateOptions()
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = defaults.MaxDuration
	}
	if opts.MaxManualRatio <= 0 {
		opts.MaxManualRatio = defaults.MaxManualRatio
	}
	return &Orchestrator{logger: logger, rules: rules, opts: opts}
}

// Rules exposes the active rule table.
func (o *Orchestrator) Rules() *RuleTable {
	return o.rules
}

// Plan builds a remediation plan for issues. When the workflow contains a
// cycle the returned error wraps models.ErrCycleDetected and the Result still
// carries the invalid Validation so callers can report it.
func (o *Orchestrator) Plan(ctx context.Context, issues []models.QualityIssue, rc models.RemediationContext) (Result, error) {
	var result Result
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if len(issues) == 0 {
		return result, utils.NewOpError("remediation.plan", "no issues supplied", nil)
	}

	result.Relationships, result.RootCauses = AnalyzeRelationships(issues, o.rules)

	result.Strategies = make([]Strategy, 0, len(issues))
	for _, issue := range issues {
		result.Strategies = append(result.Strategies, BuildStrategy(issue, o.rules))
	}

	workflow, err := BuildWorkflow(result.Strategies, result.Relationships)
	if err != nil {
		return result, utils.NewOpError("remediation.plan", "build workflow", err)
	}
	result.Workflow = workflow

	ordered, err := workflow.ExecutionOrder()
	if err != nil {
		result.Validation = Validation{
			IsValid: false,
			Issues:  []ValidationIssue{{Kind: IssueCircularDependency, Message: err.Error()}},
		}
		o.logger.Error("remediation blocked by circular dependency",
			slog.String("workflow_id", workflow.ID),
			slog.String("rule_table", o.rules.Version),
			slog.Any("error", err),
		)
		return result, utils.NewOpError("remediation.plan", "order workflow", err)
	}

	result.Plan = o.assemblePlan(issues, ordered, rc)

	vopts := o.opts
	vopts.AvailableResources = rc.AvailableResources
	vopts.Constraints = rc.Constraints
	result.Validation = ValidatePlan(result.Plan, vopts)
	result.Impact = EstimateImpact(result.Plan.Steps)

	o.logger.Info("remediation plan built",
		slog.String("plan_id", result.Plan.ID),
		slog.Int("issues", len(issues)),
		slog.Int("steps", len(result.Plan.Steps)),
		slog.Duration("estimated_duration", result.Plan.EstimatedDuration),
		slog.Bool("valid", result.Validation.IsValid),
	)
	return result, nil
}

// Validate re-checks an externally supplied plan with the orchestrator's thresholds.
func (o *Orchestrator) Validate(plan models.RemediationPlan, rc models.RemediationContext) Validation {
	vopts := o.opts
	vopts.AvailableResources = rc.AvailableResources
	vopts.Constraints = rc.Constraints
	return ValidatePlan(plan, vopts)
}

func (o *Orchestrator) assemblePlan(issues []models.QualityIssue, ordered []models.RemediationStep, rc models.RemediationContext) models.RemediationPlan {
	plan := models.RemediationPlan{
		ID:                uuid.NewString(),
		Steps:             ordered,
		EstimatedDuration: CriticalPath(ordered),
	}

	resources := make(map[string]struct{})
	manual := 0
	for _, step := range ordered {
		for _, r := range step.Resources {
			resources[r] = struct{}{}
		}
		if step.Type == models.StepManual {
			manual++
		}
	}
	for r := range resources {
		plan.ResourceRequirements = append(plan.ResourceRequirements, r)
	}
	sort.Strings(plan.ResourceRequirements)

	seen := make(map[models.Dimension]struct{})
	for _, issue := range issues {
		if _, ok := seen[issue.Dimension]; ok {
			continue
		}
		seen[issue.Dimension] = struct{}{}
		plan.SuccessCriteria = append(plan.SuccessCriteria, fmt.Sprintf("%s score reaches %d", issue.Dimension, targetScore))
	}
	plan.SuccessCriteria = append(plan.SuccessCriteria, "no critical quality issues remain open")

	if rc.Environment == "production" || rc.Urgency == models.SeverityCritical || manual > 0 {
		plan.RollbackPlan = "Revert to the last known good revision and re-run the quality gates"
	}
	plan.Confidence = utils.Clamp(0.9-0.03*float64(manual), 0.5, 0.95)
	return plan
}
