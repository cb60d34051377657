package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-quality/internal/analysis"
	"github.com/miradorstack/mirador-quality/internal/decision"
	"github.com/miradorstack/mirador-quality/internal/forecast"
	"github.com/miradorstack/mirador-quality/internal/learning"
	"github.com/miradorstack/mirador-quality/internal/models"
	"github.com/miradorstack/mirador-quality/internal/remediation"
)

type fakeSource struct {
	scores map[models.Dimension]float64
}

func (f *fakeSource) GetCurrentMetrics(ctx context.Context, dim models.Dimension) (models.DimensionMetrics, error) {
	score, ok := f.scores[dim]
	if !ok {
		return models.DimensionMetrics{}, fmt.Errorf("%s: %w", dim, models.ErrDataUnavailable)
	}
	return models.DimensionMetrics{Dimension: dim, Score: score, Timestamp: time.Now()}, nil
}

func (f *fakeSource) GetHistoricalMetrics(ctx context.Context, dim models.Dimension, window time.Duration) ([]models.DimensionMetrics, error) {
	return nil, models.ErrDataUnavailable
}

// gatedAnalyzer blocks inside Analyze until gate is closed.
type gatedAnalyzer struct {
	inner   Analyzer
	entered chan struct{}
	gate    chan struct{}
	once    sync.Once
}

func (g *gatedAnalyzer) Analyze(ctx context.Context, dims []models.Dimension) (analysis.Report, error) {
	if g.gate != nil {
		g.once.Do(func() { close(g.entered) })
		<-g.gate
	}
	return g.inner.Analyze(ctx, dims)
}

type panickingForecaster struct{}

func (panickingForecaster) Forecast(forecast.Input) forecast.Result {
	panic("forecast model unavailable")
}

type fakeFeedback struct {
	items []models.Feedback
	err   error
}

func (f *fakeFeedback) CollectFeedback(ctx context.Context, window time.Duration) ([]models.Feedback, error) {
	return f.items, f.err
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []models.Alert
}

func (r *recordingNotifier) Dispatch(ctx context.Context, alert models.Alert) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
	return true
}

var testDims = []models.Dimension{models.DimensionCode, models.DimensionSecurity, models.DimensionPerformance}

func newAnalyzer(scores map[models.Dimension]float64) *analysis.Analyzer {
	return analysis.NewAnalyzer(nil, &fakeSource{scores: scores}, nil, analysis.Options{})
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Interval = time.Hour
	opts.Dimensions = testDims
	return opts
}

func newTestController(t *testing.T, comps Components, opts Options) *Controller {
	t.Helper()
	if comps.Analyzer == nil {
		comps.Analyzer = newAnalyzer(map[models.Dimension]float64{
			models.DimensionCode:        90,
			models.DimensionSecurity:    45,
			models.DimensionPerformance: 60,
		})
	}
	if comps.Forecaster == nil {
		comps.Forecaster = forecast.NewForecaster(nil)
	}
	c, err := NewController(nil, comps, opts)
	require.NoError(t, err)
	return c
}

func alertsByComponent(alerts []models.Alert) map[string][]models.Severity {
	out := make(map[string][]models.Severity)
	for _, a := range alerts {
		out[a.Component] = append(out[a.Component], a.Level)
	}
	return out
}

func TestStartTwiceKeepsState(t *testing.T) {
	c := newTestController(t, Components{}, testOptions())
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Stop(context.Background()) })

	alerts := c.Alerts()
	status := c.GetStatus()
	require.NotEmpty(t, alerts)
	require.True(t, status.Active)

	err := c.Start(context.Background())
	require.ErrorIs(t, err, models.ErrAlreadyActive)

	after := c.GetStatus()
	assert.Equal(t, alerts, c.Alerts())
	assert.Equal(t, status.ComponentHealth, after.ComponentHealth)
	assert.Equal(t, status.PerformanceMetrics.CyclesCompleted, after.PerformanceMetrics.CyclesCompleted)
}

func TestCycleAlertRules(t *testing.T) {
	notifier := &recordingNotifier{}
	c := newTestController(t, Components{Notifier: notifier}, testOptions())

	report, err := c.RunCycle(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report.Forecast)
	assert.Equal(t, models.SeverityCritical, report.Forecast.OverallRisk)
	assert.InDelta(t, 65, report.Analysis.Insights.OverallScore, 1e-9)

	byComponent := alertsByComponent(report.Alerts)
	assert.Equal(t, []models.Severity{models.SeverityHigh}, byComponent[ComponentOverall])
	assert.Equal(t, []models.Severity{models.SeverityCritical, models.SeverityCritical}, byComponent["security"])
	assert.Equal(t, []models.Severity{models.SeverityHigh}, byComponent["performance"])
	assert.NotContains(t, byComponent, "code")
	assert.Len(t, report.Alerts, 4)
	assert.Len(t, notifier.alerts, 4)

	status := c.GetStatus()
	assert.Equal(t, 4, status.PerformanceMetrics.AlertsRaised)
	assert.Equal(t, 1, status.PerformanceMetrics.CyclesCompleted)
	assert.Equal(t, models.SeverityCritical, status.OverallRisk)
	assert.Equal(t, models.HealthHealthy, status.ComponentHealth[ComponentAnalyzer])
	assert.Equal(t, models.HealthHealthy, status.ComponentHealth[ComponentForecaster])
	assert.Len(t, status.ActiveAlerts, 4)
}

func TestMediumOverallAlert(t *testing.T) {
	analyzer := newAnalyzer(map[models.Dimension]float64{
		models.DimensionCode:        80,
		models.DimensionSecurity:    80,
		models.DimensionPerformance: 80,
	})
	c := newTestController(t, Components{Analyzer: analyzer}, testOptions())

	report, err := c.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Alerts, 1)
	assert.Equal(t, models.SeverityMedium, report.Alerts[0].Level)
	assert.Equal(t, ComponentOverall, report.Alerts[0].Component)
}

func TestAutoRemediationPlansOncePerComponent(t *testing.T) {
	opts := testOptions()
	opts.AutoRemediation = true
	comps := Components{Remediator: remediation.NewOrchestrator(nil, nil, remediation.ValidateOptions{})}
	c := newTestController(t, comps, opts)

	report, err := c.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Remediations, 1)

	res := report.Remediations[0]
	require.Len(t, res.Strategies, 1)
	assert.Equal(t, "security-score", res.Strategies[0].IssueID)
	assert.True(t, res.Validation.IsValid)
	assert.NotEmpty(t, res.Plan.RollbackPlan, "critical urgency requires a rollback plan")

	status := c.GetStatus()
	assert.Equal(t, 1, status.PerformanceMetrics.Remediations)
	assert.Equal(t, models.HealthHealthy, status.ComponentHealth[ComponentRemediation])

	var types []string
	for _, a := range c.Actions() {
		assert.Equal(t, models.ActionCompleted, a.Status, a.Type)
		types = append(types, a.Type)
	}
	assert.Equal(t, []string{"analysis", "forecast", "remediation"}, types)
}

func TestAnalysisUnavailableFailsCycle(t *testing.T) {
	c := newTestController(t, Components{Analyzer: newAnalyzer(nil)}, testOptions())

	_, err := c.RunCycle(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDataUnavailable)

	status := c.GetStatus()
	assert.Equal(t, models.HealthDegraded, status.ComponentHealth[ComponentAnalyzer])
	assert.Equal(t, 1, status.PerformanceMetrics.CyclesFailed)
	assert.Zero(t, status.PerformanceMetrics.CyclesCompleted)

	actions := c.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionFailed, actions[0].Status)
	assert.NotEmpty(t, actions[0].Error)
}

func TestPartialDataDegradesAnalyzer(t *testing.T) {
	analyzer := newAnalyzer(map[models.Dimension]float64{models.DimensionCode: 90})
	c := newTestController(t, Components{Analyzer: analyzer}, testOptions())

	report, err := c.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Contains(t, report.Degraded, ComponentAnalyzer)
	assert.ElementsMatch(t, []models.Dimension{models.DimensionSecurity, models.DimensionPerformance}, report.Analysis.Unavailable)
	assert.Equal(t, models.HealthDegraded, c.GetStatus().ComponentHealth[ComponentAnalyzer])
}

func TestForecasterPanicDegradesCycle(t *testing.T) {
	c := newTestController(t, Components{Forecaster: panickingForecaster{}}, testOptions())

	report, err := c.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Nil(t, report.Forecast)
	assert.Contains(t, report.Degraded, ComponentForecaster)
	assert.Equal(t, models.HealthFailed, c.GetStatus().ComponentHealth[ComponentForecaster])

	// Score based alerts still fire without a forecast.
	byComponent := alertsByComponent(report.Alerts)
	assert.Equal(t, []models.Severity{models.SeverityCritical}, byComponent["security"])
	assert.Equal(t, []models.Severity{models.SeverityHigh}, byComponent[ComponentOverall])
}

func TestSelfTestFailureDoesNotAbortStart(t *testing.T) {
	var mu sync.Mutex
	changes := make(map[string]models.HealthState)
	observer := HealthObserverFunc(func(component string, state models.HealthState) {
		mu.Lock()
		defer mu.Unlock()
		changes[component] = state
	})
	c := newTestController(t, Components{Forecaster: panickingForecaster{}, Observers: []HealthObserver{observer}}, testOptions())

	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Stop(context.Background()) })

	status := c.GetStatus()
	assert.True(t, status.Active)
	assert.Equal(t, models.HealthFailed, status.ComponentHealth[ComponentForecaster])
	assert.Equal(t, models.HealthHealthy, status.ComponentHealth[ComponentAnalyzer])

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, models.HealthFailed, changes[ComponentForecaster])
	assert.Equal(t, models.HealthHealthy, changes[ComponentAnalyzer])
	assert.Equal(t, models.HealthDegraded, changes[ComponentOverall])
}

func TestRunCycleRejectsOverlap(t *testing.T) {
	gated := &gatedAnalyzer{
		inner:   newAnalyzer(map[models.Dimension]float64{models.DimensionCode: 90}),
		entered: make(chan struct{}),
		gate:    make(chan struct{}),
	}
	c := newTestController(t, Components{Analyzer: gated}, testOptions())

	done := make(chan error, 1)
	go func() {
		_, err := c.RunCycle(context.Background())
		done <- err
	}()
	<-gated.entered

	_, err := c.RunCycle(context.Background())
	assert.ErrorIs(t, err, models.ErrCycleInProgress)

	close(gated.gate)
	require.NoError(t, <-done)

	c.tick(context.Background())
	assert.Equal(t, 2, c.GetStatus().PerformanceMetrics.CyclesCompleted)
	assert.Zero(t, c.GetStatus().PerformanceMetrics.CyclesSkipped)
}

func TestSkippedTickIsCounted(t *testing.T) {
	gated := &gatedAnalyzer{
		inner:   newAnalyzer(map[models.Dimension]float64{models.DimensionCode: 90}),
		entered: make(chan struct{}),
		gate:    make(chan struct{}),
	}
	c := newTestController(t, Components{Analyzer: gated}, testOptions())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.RunCycle(context.Background())
	}()
	<-gated.entered

	c.tick(context.Background())
	assert.Equal(t, 1, c.GetStatus().PerformanceMetrics.CyclesSkipped)

	close(gated.gate)
	<-done
}

func TestStopCancelsRunningActions(t *testing.T) {
	gated := &gatedAnalyzer{inner: newAnalyzer(map[models.Dimension]float64{models.DimensionCode: 90})}
	c := newTestController(t, Components{Analyzer: gated}, testOptions())
	require.NoError(t, c.Start(context.Background()))

	gated.entered = make(chan struct{})
	gated.gate = make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.RunCycle(context.Background())
	}()
	<-gated.entered

	require.NoError(t, c.Stop(context.Background()))
	assert.False(t, c.Active())

	close(gated.gate)
	<-done

	var cancelled, completed int
	for _, a := range c.Actions() {
		switch a.Status {
		case models.ActionCancelled:
			cancelled++
			assert.Equal(t, "analysis", a.Type)
		case models.ActionCompleted:
			completed++
		default:
			t.Fatalf("unexpected action status %s", a.Status)
		}
	}
	assert.Equal(t, 1, cancelled)
	assert.Equal(t, 3, completed, "initial analysis and forecast plus the interrupted cycle's forecast")

	assert.ErrorIs(t, c.Stop(context.Background()), models.ErrNotActive)
}

func TestScheduledCyclesRun(t *testing.T) {
	opts := testOptions()
	opts.Interval = 10 * time.Millisecond
	c := newTestController(t, Components{}, opts)

	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool {
		return c.GetStatus().PerformanceMetrics.CyclesCompleted >= 3
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop(context.Background()))

	perf := c.GetStatus().PerformanceMetrics
	assert.Greater(t, perf.CycleTimeP95, time.Duration(0))
}

func TestAcknowledgeAlert(t *testing.T) {
	c := newTestController(t, Components{}, testOptions())
	report, err := c.RunCycle(context.Background())
	require.NoError(t, err)

	id := report.Alerts[0].ID
	require.NoError(t, c.AcknowledgeAlert(id))
	require.NoError(t, c.AcknowledgeAlert(id))

	assert.ErrorIs(t, c.AcknowledgeAlert("missing"), models.ErrAlertNotFound)
	assert.Len(t, c.GetStatus().ActiveAlerts, len(report.Alerts)-1)
	for _, a := range c.Alerts() {
		if a.ID == id {
			assert.True(t, a.Acknowledged)
		}
	}
}

func TestAlertQueueEvictsAcknowledgedFirst(t *testing.T) {
	opts := testOptions()
	opts.MaxAlerts = 3
	c := newTestController(t, Components{}, opts)

	now := time.Now()
	for i := 0; i < 3; i++ {
		c.appendAlertLocked(newAlert(models.SeverityLow, fmt.Sprintf("c%d", i), "m", now))
	}
	require.NoError(t, c.AcknowledgeAlert(c.alerts[1].ID))

	c.appendAlertLocked(newAlert(models.SeverityLow, "c3", "m", now))
	assert.Equal(t, []string{"c0", "c2", "c3"}, alertComponents(c.Alerts()))

	c.appendAlertLocked(newAlert(models.SeverityLow, "c4", "m", now))
	assert.Equal(t, []string{"c2", "c3", "c4"}, alertComponents(c.Alerts()))
}

func alertComponents(alerts []models.Alert) []string {
	out := make([]string, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.Component)
	}
	return out
}

func TestLearningFeedsNextFocus(t *testing.T) {
	var items []models.Feedback
	for i := 0; i < 4; i++ {
		items = append(items, models.Feedback{
			Timestamp: time.Now().Add(-time.Hour),
			Dimension: models.DimensionSecurity,
			Action:    "patch",
			Outcome:   models.OutcomeFailure,
		})
	}
	opts := testOptions()
	opts.LearningEnabled = true
	comps := Components{
		Learner:  learning.NewLoop(nil, nil, learning.Options{}),
		Feedback: &fakeFeedback{items: items},
	}
	c := newTestController(t, comps, opts)

	report, err := c.RunCycle(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report.Learning)
	assert.Len(t, report.Learning.FailureOpportunities, 1)
	assert.Equal(t, []string{"stabilise security: patch keeps failing"}, c.GetStatus().NextFocus)
}

func TestFeedbackUnavailableDegradesLearning(t *testing.T) {
	opts := testOptions()
	opts.LearningEnabled = true
	comps := Components{
		Learner:  learning.NewLoop(nil, nil, learning.Options{}),
		Feedback: &fakeFeedback{err: models.ErrDataUnavailable},
	}
	c := newTestController(t, comps, opts)

	report, err := c.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Nil(t, report.Learning)
	assert.Contains(t, report.Degraded, ComponentLearning)
	assert.Equal(t, models.HealthDegraded, c.GetStatus().ComponentHealth[ComponentLearning])
}

func TestDecideOnDemand(t *testing.T) {
	c := newTestController(t, Components{Decisions: decision.NewEngine(nil)}, testOptions())

	res, err := c.Decide(context.Background(), decision.Context{
		Situation: "pick a fix",
		Options: []decision.Option{
			{ID: "patch", EstimatedImpact: 7, EstimatedRisk: 3},
			{ID: "ignore", EstimatedImpact: 2, EstimatedRisk: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "patch", res.Chosen.Option.ID)

	_, err = c.Decide(context.Background(), decision.Context{Situation: "empty"})
	assert.ErrorIs(t, err, models.ErrNoOptions)

	actions := c.Actions()
	require.Len(t, actions, 2)
	assert.Equal(t, models.ActionCompleted, actions[0].Status)
	assert.Equal(t, models.ActionFailed, actions[1].Status)

	bare := newTestController(t, Components{}, testOptions())
	_, err = bare.Decide(context.Background(), decision.Context{})
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestNewControllerFailsFast(t *testing.T) {
	base := Components{
		Analyzer:   newAnalyzer(nil),
		Forecaster: forecast.NewForecaster(nil),
	}
	cases := []struct {
		name   string
		comps  Components
		mutate func(*Options)
	}{
		{"zero interval", base, func(o *Options) { o.Interval = 0 }},
		{"negative threshold", base, func(o *Options) { o.Thresholds.Critical = -1 }},
		{"critical above high", base, func(o *Options) { o.Thresholds.Critical = 75 }},
		{"high above medium", base, func(o *Options) { o.Thresholds.High = 90 }},
		{"threshold above 100", base, func(o *Options) { o.Thresholds.Medium = 120 }},
		{"unknown dimension", base, func(o *Options) { o.Dimensions = []models.Dimension{"usability"} }},
		{"missing analyzer", Components{Forecaster: base.Forecaster}, func(*Options) {}},
		{"auto-remediation without remediator", base, func(o *Options) { o.AutoRemediation = true }},
		{"learning without feedback", base, func(o *Options) { o.LearningEnabled = true }},
	}
	for _, tc := range cases {
		opts := testOptions()
		tc.mutate(&opts)
		_, err := NewController(nil, tc.comps, opts)
		assert.ErrorIs(t, err, models.ErrConfiguration, tc.name)
	}
}

func TestCyclicRulesBlockAutoRemediation(t *testing.T) {
	table := remediation.DefaultRuleTable()
	table.Causal = []remediation.CausalRule{
		{Cause: models.DimensionCode, Effect: models.DimensionPerformance, Sequence: true},
		{Cause: models.DimensionPerformance, Effect: models.DimensionSecurity, Sequence: true},
		{Cause: models.DimensionSecurity, Effect: models.DimensionCode, Sequence: true},
	}
	analyzer := newAnalyzer(map[models.Dimension]float64{
		models.DimensionCode:        30,
		models.DimensionSecurity:    45,
		models.DimensionPerformance: 40,
	})
	opts := testOptions()
	opts.AutoRemediation = true
	c := newTestController(t, Components{
		Analyzer:   analyzer,
		Remediator: remediation.NewOrchestrator(nil, table, remediation.ValidateOptions{}),
	}, opts)

	report, err := c.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Contains(t, report.Degraded, ComponentRemediation)

	// The overall alert claims all three issues, so the per-dimension alerts plan nothing.
	require.Len(t, report.Remediations, 1)
	assert.True(t, report.Remediations[0].Validation.HasCycle())
	assert.False(t, report.Remediations[0].Validation.IsValid)
	assert.Equal(t, models.HealthDegraded, c.GetStatus().ComponentHealth[ComponentRemediation])
	assert.Zero(t, c.GetStatus().PerformanceMetrics.Remediations)

	var failed int
	for _, a := range c.Actions() {
		if a.Type == "remediation" && a.Status == models.ActionFailed {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestHealthFor(t *testing.T) {
	assert.Equal(t, models.HealthHealthy, healthFor(nil))
	assert.Equal(t, models.HealthDegraded, healthFor(fmt.Errorf("wrap: %w", models.ErrDataUnavailable)))
	assert.Equal(t, models.HealthFailed, healthFor(errors.New("boom")))
}

func TestOverallHealthFollowsComponents(t *testing.T) {
	c := newTestController(t, Components{}, testOptions())
	overall := func() models.HealthState { return c.GetStatus().ComponentHealth[ComponentOverall] }

	c.setHealth(ComponentForecaster, models.HealthDegraded)
	assert.Equal(t, models.HealthDegraded, overall())

	c.setHealth(ComponentAnalyzer, models.HealthFailed)
	assert.Equal(t, models.HealthFailed, overall())

	c.setHealth(ComponentAnalyzer, models.HealthHealthy)
	c.setHealth(ComponentForecaster, models.HealthHealthy)
	assert.Equal(t, models.HealthHealthy, overall())
}

func TestHealthObserversMatchStateUnderConcurrency(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]models.HealthState)
	observer := HealthObserverFunc(func(component string, state models.HealthState) {
		mu.Lock()
		seen[component] = state
		mu.Unlock()
	})
	c := newTestController(t, Components{Observers: []HealthObserver{observer}}, testOptions())

	components := []string{ComponentAnalyzer, ComponentForecaster, ComponentDecision, ComponentRemediation}
	states := []models.HealthState{models.HealthHealthy, models.HealthDegraded, models.HealthFailed}
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.setHealth(components[(w+i)%len(components)], states[(w*7+i)%len(states)])
			}
		}(w)
	}
	wg.Wait()

	health := c.GetStatus().ComponentHealth
	mu.Lock()
	defer mu.Unlock()
	for _, component := range append(components, ComponentOverall) {
		assert.Equal(t, health[component], seen[component], "observer out of step for %s", component)
	}
}

func TestTickAfterStopRunsNothing(t *testing.T) {
	c := newTestController(t, Components{}, testOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c.tick(ctx)

	perf := c.GetStatus().PerformanceMetrics
	assert.Zero(t, perf.CyclesCompleted)
	assert.Zero(t, perf.CyclesSkipped)
	assert.Empty(t, c.Actions())
}

func TestAcknowledgeWhileCyclesRun(t *testing.T) {
	c := newTestController(t, Components{}, testOptions())
	_, err := c.RunCycle(context.Background())
	require.NoError(t, err)

	const cycles = 20
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for i := 0; i < cycles; i++ {
			_, err := c.RunCycle(context.Background())
			assert.NoError(t, err)
		}
	}()

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-finished:
					return
				default:
				}
				for _, a := range c.Alerts() {
					if err := c.AcknowledgeAlert(a.ID); err != nil {
						assert.ErrorIs(t, err, models.ErrAlertNotFound)
					}
				}
				_ = c.GetStatus()
			}
		}()
	}
	<-finished
	wg.Wait()

	for _, a := range c.Alerts() {
		require.NoError(t, c.AcknowledgeAlert(a.ID))
	}
	status := c.GetStatus()
	assert.Equal(t, cycles+1, status.PerformanceMetrics.CyclesCompleted)
	assert.Empty(t, status.ActiveAlerts)
}
