package decision

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/miradorstack/mirador-quality/internal/models"
	"github.com/miradorstack/mirador-quality/internal/utils"
)

// Option is a candidate course of action.
type Option struct {
	ID              string   `json:"id" yaml:"id"`
	Description     string   `json:"description" yaml:"description"`
	Pros            []string `json:"pros" yaml:"pros"`
	Cons            []string `json:"cons" yaml:"cons"`
	EstimatedImpact float64  `json:"estimated_impact" yaml:"estimatedImpact"`
	EstimatedRisk   float64  `json:"estimated_risk" yaml:"estimatedRisk"`
}

// HistoricalOutcome records how an option fared previously.
type HistoricalOutcome struct {
	OptionID string `json:"option_id" yaml:"optionId"`
	Success  bool   `json:"success" yaml:"success"`
}

// Context is everything the engine weighs for one decision.
type Context struct {
	Situation   string              `json:"situation" yaml:"situation"`
	Options     []Option            `json:"options" yaml:"options"`
	Constraints []string            `json:"constraints" yaml:"constraints"`
	Preferences []string            `json:"preferences" yaml:"preferences"`
	Resources   []string            `json:"resources" yaml:"resources"`
	Urgency     models.Severity     `json:"urgency" yaml:"urgency"`
	History     []HistoricalOutcome `json:"history" yaml:"history"`
}

// PredictedOutcome is the expected result of executing an option.
type PredictedOutcome struct {
	Outcome    models.Outcome `json:"outcome"`
	Confidence float64        `json:"confidence"`
}

// Evaluation is the scored view of one option.
type Evaluation struct {
	Option      Option           `json:"option"`
	Feasibility float64          `json:"feasibility"`
	Score       float64          `json:"score"`
	Prediction  PredictedOutcome `json:"prediction"`
}

// RiskAssessment describes the chosen option's risk.
type RiskAssessment struct {
	Level      models.Severity `json:"level"`
	Mitigation string          `json:"mitigation"`
}

// Result is the engine's decision.
type Result struct {
	Chosen       Evaluation     `json:"chosen"`
	Confidence   float64        `json:"confidence"`
	Reasoning    string         `json:"reasoning"`
	Alternatives []Evaluation   `json:"alternatives"`
	Risk         RiskAssessment `json:"risk"`
}

// Engine scores and ranks options under constraints, preferences and urgency.
type Engine struct {
	logger *slog.Logger
}

// NewEngine constructs a decision Engine.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Decide picks the highest scoring option. Ties go to the earlier option.
func (e *Engine) Decide(dc Context) (Result, error) {
	if len(dc.Options) == 0 {
		return Result{}, models.ErrNoOptions
	}

	evals := make([]Evaluation, 0, len(dc.Options))
	for _, opt := range dc.Options {
		evals = append(evals, Evaluate(opt, dc))
	}
	sort.SliceStable(evals, func(i, j int) bool {
		return evals[i].Score > evals[j].Score
	})

	chosen := evals[0]
	result := Result{
		Chosen:       chosen,
		Confidence:   utils.Clamp(chosen.Score/100*0.7+chosen.Prediction.Confidence*0.3, 0, 1),
		Reasoning:    reasoning(chosen),
		Alternatives: append([]Evaluation(nil), evals[1:]...),
		Risk:         AssessRisk(chosen.Option.EstimatedRisk),
	}

	e.logger.Debug("decision made",
		slog.String("option", chosen.Option.ID),
		slog.Float64("score", chosen.Score),
		slog.Int("alternatives", len(result.Alternatives)),
	)
	return result, nil
}

// Evaluate computes feasibility, score and predicted outcome for one option.
func Evaluate(opt Option, dc Context) Evaluation {
	feasibility := Feasibility(opt, dc)
	return Evaluation{
		Option:      opt,
		Feasibility: feasibility,
		Score:       Score(opt, feasibility, dc),
		Prediction:  PredictOutcome(opt),
	}
}

// Feasibility is 0.5 base, +0.3 scaled by satisfied constraints, +0.2 when
// automation resources are available, +0.2 scaled by historical success,
// clamped to [0,1]. With no constraints the constraint term contributes nothing.
func Feasibility(opt Option, dc Context) float64 {
	feasibility := 0.5
	if len(dc.Constraints) > 0 {
		satisfied := 0
		for _, c := range dc.Constraints {
			if satisfiesConstraint(opt, c) {
				satisfied++
			}
		}
		feasibility += 0.3 * float64(satisfied) / float64(len(dc.Constraints))
	}
	if automationAvailable(dc.Resources) {
		feasibility += 0.2
	}
	if ratio, ok := successRatio(opt.ID, dc.History); ok {
		feasibility += 0.2 * ratio
	}
	return utils.Clamp(feasibility, 0, 1)
}

// Score is clamp(min(40, impact*10) + (5-risk)*2 + feasibility*20 + bonuses, 0, 100).
func Score(opt Option, feasibility float64, dc Context) float64 {
	score := minFloat(40, opt.EstimatedImpact*10) + (5-opt.EstimatedRisk)*2 + feasibility*20
	if dc.Urgency == models.SeverityHigh && opt.EstimatedRisk < 3 {
		score += 10
	}
	if hasPreference(dc.Preferences, "speed") && feasibility > 0.8 {
		score += 5
	}
	return utils.Clamp(score, 0, 100)
}

// PredictOutcome applies impact/risk rules and nudges confidence by the
// pros/cons balance.
func PredictOutcome(opt Option) PredictedOutcome {
	outcome := models.OutcomePartial
	switch {
	case opt.EstimatedImpact > 7 && opt.EstimatedRisk < 3:
		outcome = models.OutcomeSuccess
	case opt.EstimatedImpact < 3 || opt.EstimatedRisk > 7:
		outcome = models.OutcomeFailure
	}

	confidence := 0.6
	switch {
	case len(opt.Pros) > len(opt.Cons):
		confidence += 0.1
	case len(opt.Pros) < len(opt.Cons):
		confidence -= 0.1
	}
	return PredictedOutcome{Outcome: outcome, Confidence: confidence}
}

// AssessRisk buckets an estimated risk with a canned mitigation.
func AssessRisk(risk float64) RiskAssessment {
	switch {
	case risk > 7:
		return RiskAssessment{Level: models.SeverityHigh, Mitigation: "Stage the rollout behind a feature flag and prepare an immediate rollback"}
	case risk > 4:
		return RiskAssessment{Level: models.SeverityMedium, Mitigation: "Run in a staging environment first and monitor key metrics closely"}
	default:
		return RiskAssessment{Level: models.SeverityLow, Mitigation: "Proceed with standard monitoring"}
	}
}

func reasoning(ev Evaluation) string {
	factors := make([]string, 0, 4)
	if ev.Score > 70 {
		factors = append(factors, fmt.Sprintf("high overall score (%.1f)", ev.Score))
	}
	if ev.Feasibility > 0.8 {
		factors = append(factors, fmt.Sprintf("high feasibility (%.2f)", ev.Feasibility))
	}
	if ev.Option.EstimatedRisk < 4 {
		factors = append(factors, fmt.Sprintf("low risk (%.1f)", ev.Option.EstimatedRisk))
	}
	if ev.Prediction.Outcome == models.OutcomeSuccess {
		factors = append(factors, "predicted success")
	}
	if len(factors) == 0 {
		return fmt.Sprintf("Selected %q as the best available option by weighted score (%.1f)", ev.Option.ID, ev.Score)
	}
	return fmt.Sprintf("Selected %q: %s", ev.Option.ID, strings.Join(factors, ", "))
}

func satisfiesConstraint(opt Option, constraint string) bool {
	c := strings.ToLower(strings.TrimSpace(constraint))
	if c == "" {
		return false
	}
	if strings.Contains(strings.ToLower(opt.Description), c) {
		return true
	}
	for _, pro := range opt.Pros {
		if strings.Contains(strings.ToLower(pro), c) {
			return true
		}
	}
	return false
}

func automationAvailable(resources []string) bool {
	for _, r := range resources {
		if strings.Contains(strings.ToLower(r), "automation") {
			return true
		}
	}
	return false
}

func successRatio(optionID string, history []HistoricalOutcome) (float64, bool) {
	total, success := 0, 0
	for _, h := range history {
		if h.OptionID != optionID {
			continue
		}
		total++
		if h.Success {
			success++
		}
	}
	if total == 0 {
		return 0, false
	}
	return float64(success) / float64(total), true
}

func hasPreference(prefs []string, want string) bool {
	for _, p := range prefs {
		if strings.EqualFold(strings.TrimSpace(p), want) {
			return true
		}
	}
	return false
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
