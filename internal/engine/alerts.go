package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-quality/internal/analysis"
	"github.com/miradorstack/mirador-quality/internal/forecast"
	"github.com/miradorstack/mirador-quality/internal/metrics"
	"github.com/miradorstack/mirador-quality/internal/models"
)

// criticalDimensionScore is the per-dimension score below which a critical alert is raised.
const criticalDimensionScore = 50

// generateAlerts applies the alert rules: one overall alert when the overall
// score is at or below a threshold, one per early warning, and one critical
// alert per dimension scoring below 50.
func generateAlerts(report analysis.Report, fc *forecast.Result, t Thresholds, now time.Time) []models.Alert {
	alerts := make([]models.Alert, 0)
	overall := report.Insights.OverallScore

	switch {
	case overall <= t.Critical:
		alerts = append(alerts, newAlert(models.SeverityCritical, ComponentOverall,
			fmt.Sprintf("overall quality score %.1f is at or below the critical threshold %.0f", overall, t.Critical), now))
	case overall <= t.High:
		alerts = append(alerts, newAlert(models.SeverityHigh, ComponentOverall,
			fmt.Sprintf("overall quality score %.1f is at or below the high threshold %.0f", overall, t.High), now))
	case overall <= t.Medium:
		alerts = append(alerts, newAlert(models.SeverityMedium, ComponentOverall,
			fmt.Sprintf("overall quality score %.1f is at or below the medium threshold %.0f", overall, t.Medium), now))
	}

	if fc != nil {
		for _, w := range fc.Warnings {
			alerts = append(alerts, newAlert(w.Level, string(w.Dimension),
				fmt.Sprintf("%s (action required: %s)", w.Message, w.ActionRequired), now))
		}
	}

	for _, dim := range report.Dimensions {
		m, ok := report.Metrics[dim]
		if !ok || m.Score >= criticalDimensionScore {
			continue
		}
		alerts = append(alerts, newAlert(models.SeverityCritical, string(dim),
			fmt.Sprintf("%s score %.1f is below %d", dim, m.Score, criticalDimensionScore), now))
	}
	return alerts
}

func newAlert(level models.Severity, component, message string, now time.Time) models.Alert {
	return models.Alert{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		Component: component,
		Timestamp: now.UTC(),
	}
}

// issuesForAlert returns the unplanned issues an alert implies: issues of the
// alert's dimension, or every high and critical issue for the overall alert.
func issuesForAlert(alert models.Alert, issues []models.QualityIssue, planned map[string]struct{}) []models.QualityIssue {
	batch := make([]models.QualityIssue, 0)
	for _, issue := range issues {
		if _, done := planned[issue.ID]; done {
			continue
		}
		if alert.Component == ComponentOverall {
			if issue.Severity.Rank() >= models.SeverityHigh.Rank() {
				batch = append(batch, issue)
			}
			continue
		}
		if string(issue.Dimension) == alert.Component {
			batch = append(batch, issue)
		}
	}
	return batch
}

// raiseAlerts queues alerts and hands them to the notifier.
func (c *Controller) raiseAlerts(ctx context.Context, alerts []models.Alert) []models.Alert {
	if len(alerts) == 0 {
		return alerts
	}

	c.mu.Lock()
	for _, a := range alerts {
		c.appendAlertLocked(a)
	}
	c.perf.AlertsRaised += len(alerts)
	c.mu.Unlock()

	for _, a := range alerts {
		metrics.ObserveAlert(a.Level)
		c.logger.Info("alert raised",
			slog.String("alert_id", a.ID),
			slog.String("level", string(a.Level)),
			slog.String("component", a.Component),
			slog.String("message", a.Message),
		)
		if c.comps.Notifier != nil {
			c.comps.Notifier.Dispatch(ctx, a)
		}
	}
	return alerts
}

// appendAlertLocked adds a to the queue. Past MaxAlerts the oldest
// acknowledged alert is evicted, or the oldest alert if none is acknowledged.
func (c *Controller) appendAlertLocked(a models.Alert) {
	c.alerts = append(c.alerts, a)
	for len(c.alerts) > c.opts.MaxAlerts {
		evict := 0
		for i, existing := range c.alerts {
			if existing.Acknowledged {
				evict = i
				break
			}
		}
		c.alerts = append(c.alerts[:evict], c.alerts[evict+1:]...)
	}
}

// AcknowledgeAlert marks an alert as seen. Acknowledging twice is a no-op.
func (c *Controller) AcknowledgeAlert(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.alerts {
		if c.alerts[i].ID != id {
			continue
		}
		if c.alerts[i].Acknowledge() {
			c.logger.Debug("alert acknowledged", slog.String("alert_id", id))
		}
		return nil
	}
	return fmt.Errorf("acknowledge %s: %w", id, models.ErrAlertNotFound)
}

// Alerts returns every queued alert, oldest first.
func (c *Controller) Alerts() []models.Alert {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Alert(nil), c.alerts...)
}
