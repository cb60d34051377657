package engine

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/miradorstack/mirador-quality/internal/decision"
	"github.com/miradorstack/mirador-quality/internal/forecast"
	"github.com/miradorstack/mirador-quality/internal/models"
)

type probe struct {
	component string
	run       func(ctx context.Context) error
}

// selfTest probes every configured component concurrently and records the
// resulting health. Probe errors and panics never escape.
func (c *Controller) selfTest(ctx context.Context) {
	probes := c.probes()
	states := make([]models.HealthState, len(probes))

	g, gCtx := errgroup.WithContext(ctx)
	for i, p := range probes {
		g.Go(func() error {
			states[i] = c.runProbe(gCtx, p)
			return nil
		})
	}
	_ = g.Wait()

	for i, p := range probes {
		c.setHealth(p.component, states[i])
	}
}

func (c *Controller) runProbe(ctx context.Context, p probe) (state models.HealthState) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("self-test panicked", slog.String("component", p.component), slog.Any("panic", r))
			state = models.HealthFailed
		}
	}()
	if p.run == nil {
		return models.HealthHealthy
	}
	if err := p.run(ctx); err != nil {
		c.logger.Warn("self-test failed", slog.String("component", p.component), slog.Any("error", err))
		return healthFor(err)
	}
	return models.HealthHealthy
}

func (c *Controller) probes() []probe {
	probes := []probe{
		{ComponentAnalyzer, selfTestOr(c.comps.Analyzer, nil)},
		{ComponentForecaster, selfTestOr(c.comps.Forecaster, forecasterProbe(c.comps.Forecaster))},
	}
	if c.comps.Decisions != nil {
		probes = append(probes, probe{ComponentDecision, selfTestOr(c.comps.Decisions, decisionProbe(c.comps.Decisions))})
	}
	if c.comps.Remediator != nil {
		probes = append(probes, probe{ComponentRemediation, selfTestOr(c.comps.Remediator, remediationProbe(c.comps.Remediator))})
	}
	if c.comps.Learner != nil {
		probes = append(probes, probe{ComponentLearning, selfTestOr(c.comps.Learner, nil)})
	}
	return probes
}

func selfTestOr(component any, fallback func(ctx context.Context) error) func(ctx context.Context) error {
	if st, ok := component.(SelfTester); ok {
		return st.SelfTest
	}
	return fallback
}

func forecasterProbe(f Forecaster) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		result := f.Forecast(forecast.Input{
			Dimensions: []models.Dimension{models.DimensionSecurity, models.DimensionPerformance},
			Metrics: map[models.Dimension]models.DimensionMetrics{
				models.DimensionSecurity:    {Dimension: models.DimensionSecurity, Score: 45},
				models.DimensionPerformance: {Dimension: models.DimensionPerformance, Score: 60},
			},
		})
		if result.OverallRisk != models.SeverityCritical {
			return fmt.Errorf("self-test: expected critical overall risk, got %q", result.OverallRisk)
		}
		return nil
	}
}

func decisionProbe(d DecisionMaker) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		result, err := d.Decide(decision.Context{
			Situation: "self-test",
			Options: []decision.Option{
				{ID: "self-test-a", EstimatedImpact: 5, EstimatedRisk: 2},
				{ID: "self-test-b", EstimatedImpact: 1, EstimatedRisk: 1},
			},
		})
		if err != nil {
			return err
		}
		if result.Chosen.Option.ID == "" {
			return fmt.Errorf("self-test: no option chosen")
		}
		return nil
	}
}

func remediationProbe(r Remediator) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		result, err := r.Plan(ctx, []models.QualityIssue{{
			ID:        "self-test",
			Dimension: models.DimensionCode,
			Severity:  models.SeverityLow,
		}}, models.RemediationContext{})
		if err != nil {
			return err
		}
		if !result.Validation.IsValid {
			return fmt.Errorf("self-test: canned plan failed validation")
		}
		return nil
	}
}
