package engine

import (
	"context"
	"time"

	"github.com/miradorstack/mirador-quality/internal/analysis"
	"github.com/miradorstack/mirador-quality/internal/decision"
	"github.com/miradorstack/mirador-quality/internal/forecast"
	"github.com/miradorstack/mirador-quality/internal/learning"
	"github.com/miradorstack/mirador-quality/internal/models"
	"github.com/miradorstack/mirador-quality/internal/remediation"
)

// Component names used for health tracking and action records.
const (
	ComponentAnalyzer    = "analyzer"
	ComponentForecaster  = "forecaster"
	ComponentDecision    = "decision"
	ComponentRemediation = "remediation"
	ComponentLearning    = "learning"
	ComponentOverall     = "overall"
)

// Analyzer produces the per-cycle quality report.
type Analyzer interface {
	Analyze(ctx context.Context, dimensions []models.Dimension) (analysis.Report, error)
}

// Forecaster projects analyzer output forward.
type Forecaster interface {
	Forecast(in forecast.Input) forecast.Result
}

// DecisionMaker ranks candidate options.
type DecisionMaker interface {
	Decide(dc decision.Context) (decision.Result, error)
}

// Remediator turns issues into validated remediation plans.
type Remediator interface {
	Plan(ctx context.Context, issues []models.QualityIssue, rc models.RemediationContext) (remediation.Result, error)
}

// Learner mines outcome feedback.
type Learner interface {
	Learn(ctx context.Context, feedback []models.Feedback) (learning.Result, error)
}

// FeedbackSource supplies recent outcome feedback.
type FeedbackSource interface {
	CollectFeedback(ctx context.Context, window time.Duration) ([]models.Feedback, error)
}

// SelfTester is implemented by components that can probe their own readiness.
type SelfTester interface {
	SelfTest(ctx context.Context) error
}

// AlertNotifier delivers newly raised alerts. It reports whether the alert was sent.
type AlertNotifier interface {
	Dispatch(ctx context.Context, alert models.Alert) bool
}

// HealthObserver is told about every component health change.
type HealthObserver interface {
	ObserveHealth(component string, state models.HealthState)
}

// HealthObserverFunc adapts a function to HealthObserver.
type HealthObserverFunc func(component string, state models.HealthState)

// ObserveHealth implements HealthObserver.
func (f HealthObserverFunc) ObserveHealth(component string, state models.HealthState) {
	f(component, state)
}

// Components wires the controller's collaborators. Analyzer and Forecaster
// are required; the rest are optional unless an option depends on them.
type Components struct {
	Analyzer   Analyzer
	Forecaster Forecaster
	Decisions  DecisionMaker
	Remediator Remediator
	Learner    Learner
	Feedback   FeedbackSource
	Notifier   AlertNotifier
	Observers  []HealthObserver
}
