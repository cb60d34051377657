package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/miradorstack/mirador-quality/internal/analysis"
	"github.com/miradorstack/mirador-quality/internal/decision"
	"github.com/miradorstack/mirador-quality/internal/forecast"
	"github.com/miradorstack/mirador-quality/internal/learning"
	"github.com/miradorstack/mirador-quality/internal/metrics"
	"github.com/miradorstack/mirador-quality/internal/models"
	"github.com/miradorstack/mirador-quality/internal/remediation"
	"github.com/miradorstack/mirador-quality/internal/utils"
)

var tracer = otel.Tracer("github.com/miradorstack/mirador-quality/internal/engine")

// CycleReport is everything one orchestration cycle produced.
type CycleReport struct {
	ID           string               `json:"id"`
	StartedAt    time.Time            `json:"started_at"`
	Duration     time.Duration        `json:"duration"`
	Analysis     analysis.Report      `json:"analysis"`
	Forecast     *forecast.Result     `json:"forecast,omitempty"`
	Alerts       []models.Alert       `json:"alerts"`
	Remediations []remediation.Result `json:"remediations,omitempty"`
	Learning     *learning.Result     `json:"learning,omitempty"`
	Degraded     []string             `json:"degraded,omitempty"`
}

// Controller schedules orchestration cycles and owns alert, action and
// health state. All exported methods are safe for concurrent use.
type Controller struct {
	logger  *slog.Logger
	comps   Components
	opts    Options
	now     func() time.Time
	latency *utils.LatencyTracker

	cycling atomic.Bool

	// healthMu orders health writes with their observer notifications.
	healthMu sync.Mutex

	mu           sync.RWMutex
	active       bool
	cancel       context.CancelFunc
	done         chan struct{}
	health       map[string]models.HealthState
	alerts       []models.Alert
	actions      map[string]*models.Action
	actionIDs    []string
	perf         models.PerformanceMetrics
	lastAnalysis time.Time
	overallScore float64
	overallRisk  models.Severity
	nextFocus    []string
}

// NewController validates opts and wires the collaborators. Invalid
// configuration fails with an error wrapping models.ErrConfiguration.
func NewController(logger *slog.Logger, comps Components, opts Options) (*Controller, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	switch {
	case comps.Analyzer == nil:
		return nil, fmt.Errorf("analyzer is required: %w", models.ErrConfiguration)
	case comps.Forecaster == nil:
		return nil, fmt.Errorf("forecaster is required: %w", models.ErrConfiguration)
	case opts.AutoRemediation && comps.Remediator == nil:
		return nil, fmt.Errorf("auto-remediation needs a remediator: %w", models.ErrConfiguration)
	case opts.LearningEnabled && (comps.Learner == nil || comps.Feedback == nil):
		return nil, fmt.Errorf("learning needs a learner and a feedback source: %w", models.ErrConfiguration)
	}

	return &Controller{
		logger:  logger,
		comps:   comps,
		opts:    opts,
		now:     time.Now,
		latency: utils.NewLatencyTracker(256),
		health:  make(map[string]models.HealthState),
		actions: make(map[string]*models.Action),
	}, nil
}

// Start self-tests every component, runs one cycle immediately and then
// schedules a cycle every interval. Component failures are recorded in the
// health map and never abort startup.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return models.ErrAlreadyActive
	}
	c.active = true
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	c.logger.Info("orchestration starting",
		slog.Duration("interval", c.opts.Interval),
		slog.Int("dimensions", len(c.opts.Dimensions)),
		slog.Bool("auto_remediation", c.opts.AutoRemediation),
		slog.Bool("learning", c.opts.LearningEnabled),
	)

	c.selfTest(ctx)
	if _, err := c.RunCycle(ctx); err != nil {
		c.logger.Warn("initial cycle failed", slog.Any("error", err))
	}

	go c.schedule(runCtx, done)
	return nil
}

// Stop prevents further ticks and cancels actions that have not finished.
// A cycle already running is not interrupted. Stop waits for the scheduler
// to exit or ctx to end.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return models.ErrNotActive
	}
	c.active = false
	c.cancel()
	done := c.done
	cancelled := c.cancelOpenActionsLocked(c.now())
	c.mu.Unlock()

	c.logger.Info("orchestration stopped", slog.Int("cancelled_actions", cancelled))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Active reports whether the controller has been started and not stopped.
func (c *Controller) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

func (c *Controller) schedule(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go c.tick(ctx)
		}
	}
}

// tick runs one scheduled cycle unless ctx, the scheduler context, is already
// cancelled. The check and the cycle claim happen under mu, which Stop holds
// while cancelling, so no scheduled cycle begins once Stop has cancelled.
func (c *Controller) tick(ctx context.Context) {
	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		c.logger.Debug("dropping tick after stop")
		return
	}
	if !c.cycling.CompareAndSwap(false, true) {
		c.perf.CyclesSkipped++
		c.mu.Unlock()
		metrics.ObserveSkippedCycle()
		c.logger.Warn("skipping tick, previous cycle still running")
		return
	}
	c.mu.Unlock()

	if _, err := c.runCycle(context.WithoutCancel(ctx)); err != nil {
		c.logger.Error("scheduled cycle failed", slog.Any("error", err))
	}
}

// RunCycle executes analysis, forecasting, alerting, optional
// auto-remediation and optional learning in order. It returns
// models.ErrCycleInProgress if another cycle is running. When analysis
// produces nothing the partial report is returned with an error; later
// stage failures only mark the report degraded.
func (c *Controller) RunCycle(ctx context.Context) (CycleReport, error) {
	if !c.cycling.CompareAndSwap(false, true) {
		return CycleReport{}, models.ErrCycleInProgress
	}
	return c.runCycle(ctx)
}

// runCycle requires the cycling flag to be held and releases it.
func (c *Controller) runCycle(ctx context.Context) (CycleReport, error) {
	defer c.cycling.Store(false)

	start := c.now()
	report := CycleReport{ID: uuid.NewString(), StartedAt: start.UTC()}

	ctx, span := tracer.Start(ctx, "orchestration.cycle", trace.WithAttributes(attribute.String("cycle.id", report.ID)))
	defer span.End()

	analysed, err := c.analyze(ctx)
	report.Analysis = analysed
	if err != nil {
		report.Degraded = append(report.Degraded, ComponentAnalyzer)
		report.Duration = c.now().Sub(start)
		c.finishCycle(report, metrics.OutcomeError)
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		return report, utils.NewOpError("engine.cycle", "analysis stage failed", err)
	}
	if analysed.Degraded() {
		report.Degraded = append(report.Degraded, ComponentAnalyzer)
	}

	if fc, ok := c.forecast(ctx, analysed); ok {
		report.Forecast = &fc
	} else {
		report.Degraded = append(report.Degraded, ComponentForecaster)
	}

	report.Alerts = c.raiseAlerts(ctx, generateAlerts(analysed, report.Forecast, c.opts.Thresholds, c.now()))

	if c.opts.AutoRemediation {
		var blocked bool
		report.Remediations, blocked = c.autoRemediate(ctx, report.Alerts, analysed.Issues)
		if blocked {
			report.Degraded = append(report.Degraded, ComponentRemediation)
		}
	}

	if c.opts.LearningEnabled {
		if lr, ok := c.learn(ctx); ok {
			report.Learning = &lr
		} else {
			report.Degraded = append(report.Degraded, ComponentLearning)
		}
	}

	report.Duration = c.now().Sub(start)
	outcome := metrics.OutcomeSuccess
	if len(report.Degraded) > 0 {
		outcome = metrics.OutcomeDegraded
		span.SetAttributes(attribute.StringSlice("cycle.degraded", report.Degraded))
	}
	c.finishCycle(report, outcome)
	return report, nil
}

func (c *Controller) analyze(ctx context.Context) (analysis.Report, error) {
	var report analysis.Report
	err := c.runStage(ctx, ComponentAnalyzer, "analysis", "analyse quality dimensions", models.SeverityHigh, func(ctx context.Context) error {
		var err error
		report, err = c.comps.Analyzer.Analyze(ctx, c.opts.Dimensions)
		return err
	})
	switch {
	case err != nil:
		c.setHealth(ComponentAnalyzer, healthFor(err))
	case report.Degraded():
		c.setHealth(ComponentAnalyzer, models.HealthDegraded)
	default:
		c.setHealth(ComponentAnalyzer, models.HealthHealthy)
	}
	return report, err
}

func (c *Controller) forecast(ctx context.Context, report analysis.Report) (forecast.Result, bool) {
	var result forecast.Result
	err := c.runStage(ctx, ComponentForecaster, "forecast", "forecast quality risk", models.SeverityHigh, func(ctx context.Context) error {
		result = c.comps.Forecaster.Forecast(forecast.Input{
			Dimensions: report.Dimensions,
			Metrics:    report.Metrics,
			Trends:     report.Trends,
		})
		return nil
	})
	c.setHealth(ComponentForecaster, healthFor(err))
	if err != nil {
		c.logger.Error("forecast stage failed", slog.Any("error", err))
		return result, false
	}
	return result, true
}

// autoRemediate plans one remediation per critical alert, sequentially.
// Alerts on the same component and issues already planned this cycle are
// skipped. The second result reports whether any plan was blocked.
func (c *Controller) autoRemediate(ctx context.Context, alerts []models.Alert, issues []models.QualityIssue) ([]remediation.Result, bool) {
	var results []remediation.Result
	blocked := false
	planned := make(map[string]struct{})
	components := make(map[string]struct{})

	for _, alert := range alerts {
		if alert.Level != models.SeverityCritical {
			continue
		}
		if _, seen := components[alert.Component]; seen {
			continue
		}
		components[alert.Component] = struct{}{}

		batch := issuesForAlert(alert, issues, planned)
		if len(batch) == 0 {
			continue
		}
		for _, issue := range batch {
			planned[issue.ID] = struct{}{}
		}

		rc := c.opts.RemediationContext
		rc.Urgency = models.SeverityCritical
		res, err := c.remediate(ctx, fmt.Sprintf("plan remediation for %s", alert.Component), batch, rc)
		if err != nil {
			blocked = true
			c.logger.Error("auto-remediation blocked", slog.String("component", alert.Component), slog.Any("error", err))
			if res.Validation.HasCycle() {
				results = append(results, res)
			}
			continue
		}
		if !res.Validation.IsValid {
			c.logger.Warn("auto-remediation plan is invalid",
				slog.String("plan_id", res.Plan.ID),
				slog.Int("issues", len(res.Validation.Issues)),
			)
		}
		results = append(results, res)
	}
	return results, blocked
}

func (c *Controller) remediate(ctx context.Context, description string, issues []models.QualityIssue, rc models.RemediationContext) (remediation.Result, error) {
	var res remediation.Result
	err := c.runStage(ctx, ComponentRemediation, "remediation", description, rc.Urgency, func(ctx context.Context) error {
		var err error
		res, err = c.comps.Remediator.Plan(ctx, issues, rc)
		return err
	})
	switch {
	case err == nil:
		c.setHealth(ComponentRemediation, models.HealthHealthy)
		metrics.ObserveRemediationPlan(res.Validation.IsValid)
		c.mu.Lock()
		c.perf.Remediations++
		c.mu.Unlock()
	case errors.Is(err, models.ErrCycleDetected):
		c.setHealth(ComponentRemediation, models.HealthDegraded)
		metrics.ObserveRemediationPlan(false)
	default:
		c.setHealth(ComponentRemediation, healthFor(err))
	}
	return res, err
}

func (c *Controller) learn(ctx context.Context) (learning.Result, bool) {
	var result learning.Result
	err := c.runStage(ctx, ComponentLearning, "learning", "learn from recent feedback", models.SeverityLow, func(ctx context.Context) error {
		feedback, err := c.comps.Feedback.CollectFeedback(ctx, c.opts.FeedbackWindow)
		if err != nil {
			return fmt.Errorf("collect feedback: %w", err)
		}
		result, err = c.comps.Learner.Learn(ctx, feedback)
		return err
	})
	c.setHealth(ComponentLearning, healthFor(err))
	if err != nil {
		c.logger.Warn("learning stage failed", slog.Any("error", err))
		return result, false
	}

	c.mu.Lock()
	c.nextFocus = append([]string(nil), result.NextFocus...)
	c.mu.Unlock()
	return result, true
}

func (c *Controller) finishCycle(report CycleReport, outcome string) {
	c.latency.Observe(report.Duration)

	c.mu.Lock()
	c.perf.LastCycleTime = report.Duration
	c.perf.CycleTimeP95 = c.latency.Percentile(95)
	if outcome == metrics.OutcomeError {
		c.perf.CyclesFailed++
	} else {
		c.perf.CyclesCompleted++
		c.lastAnalysis = report.Analysis.GeneratedAt
		c.overallScore = report.Analysis.Insights.OverallScore
		if report.Forecast != nil {
			c.overallRisk = report.Forecast.OverallRisk
		}
	}
	c.mu.Unlock()

	metrics.ObserveCycle(report.Duration, outcome)
	c.logger.Info("cycle complete",
		slog.String("cycle_id", report.ID),
		slog.String("outcome", outcome),
		slog.Duration("duration", report.Duration),
		slog.Int("alerts", len(report.Alerts)),
		slog.Int("remediations", len(report.Remediations)),
	)
}

// runStage tracks fn as an action inside a span. A panic in fn is returned
// as an error.
func (c *Controller) runStage(ctx context.Context, component, actionType, description string, priority models.Severity, fn func(ctx context.Context) error) (err error) {
	ctx, span := tracer.Start(ctx, "orchestration."+actionType, trace.WithAttributes(attribute.String("component", component)))
	defer span.End()

	id := c.beginAction(actionType, component, description, priority)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s stage panicked: %v", component, r)
		}
		c.endAction(id, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()
	return fn(ctx)
}

func (c *Controller) setHealth(component string, state models.HealthState) {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()

	c.applyHealth(component, state)
	if component != ComponentOverall {
		c.applyHealth(ComponentOverall, c.overallHealth())
	}
}

// applyHealth records state and notifies observers on change. Callers hold healthMu.
func (c *Controller) applyHealth(component string, state models.HealthState) {
	c.mu.Lock()
	prev, known := c.health[component]
	c.health[component] = state
	c.mu.Unlock()

	metrics.SetComponentHealth(component, state)
	if known && prev == state {
		return
	}
	if state != models.HealthHealthy {
		c.logger.Warn("component health changed", slog.String("component", component), slog.String("state", string(state)))
	}
	for _, observer := range c.comps.Observers {
		observer.ObserveHealth(component, state)
	}
}

// overallHealth is failed when the analyzer has failed, since no cycle can
// then produce a report, and degraded when any other component is unhealthy.
func (c *Controller) overallHealth() models.HealthState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.health[ComponentAnalyzer] == models.HealthFailed {
		return models.HealthFailed
	}
	for component, state := range c.health {
		if component != ComponentOverall && state != models.HealthHealthy {
			return models.HealthDegraded
		}
	}
	return models.HealthHealthy
}

func healthFor(err error) models.HealthState {
	switch {
	case err == nil:
		return models.HealthHealthy
	case errors.Is(err, models.ErrDataUnavailable):
		return models.HealthDegraded
	default:
		return models.HealthFailed
	}
}

// Decide runs the decision engine on demand.
func (c *Controller) Decide(ctx context.Context, dc decision.Context) (decision.Result, error) {
	if c.comps.Decisions == nil {
		return decision.Result{}, fmt.Errorf("decision engine not configured: %w", models.ErrConfiguration)
	}
	var result decision.Result
	priority := dc.Urgency
	if priority == "" {
		priority = models.SeverityMedium
	}
	err := c.runStage(ctx, ComponentDecision, "decision", dc.Situation, priority, func(ctx context.Context) error {
		var err error
		result, err = c.comps.Decisions.Decide(dc)
		return err
	})
	if !errors.Is(err, models.ErrNoOptions) {
		c.setHealth(ComponentDecision, healthFor(err))
	}
	return result, err
}

// Remediate plans a remediation on demand.
func (c *Controller) Remediate(ctx context.Context, issues []models.QualityIssue, rc models.RemediationContext) (remediation.Result, error) {
	if c.comps.Remediator == nil {
		return remediation.Result{}, fmt.Errorf("remediator not configured: %w", models.ErrConfiguration)
	}
	return c.remediate(ctx, fmt.Sprintf("plan remediation for %d issues", len(issues)), issues, rc)
}

// GetStatus returns a snapshot of the controller state.
func (c *Controller) GetStatus() models.OrchestrationStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	health := make(map[string]models.HealthState, len(c.health))
	for k, v := range c.health {
		health[k] = v
	}
	active := make([]models.Alert, 0, len(c.alerts))
	for _, a := range c.alerts {
		if !a.Acknowledged {
			active = append(active, a)
		}
	}
	return models.OrchestrationStatus{
		Active:             c.active,
		LastAnalysis:       c.lastAnalysis,
		OverallScore:       c.overallScore,
		OverallRisk:        c.overallRisk,
		ComponentHealth:    health,
		ActiveAlerts:       active,
		PerformanceMetrics: c.perf,
		NextFocus:          append([]string(nil), c.nextFocus...),
	}
}
