package engine

import (
	"fmt"
	"time"

	"github.com/miradorstack/mirador-quality/internal/models"
)

// Thresholds are overall-score cutoffs for alert levels. A score at or
// below a cutoff raises that level.
type Thresholds struct {
	Critical float64
	High     float64
	Medium   float64
}

// Options configures a Controller.
type Options struct {
	Interval           time.Duration
	Dimensions         []models.Dimension
	Thresholds         Thresholds
	AutoRemediation    bool
	LearningEnabled    bool
	FeedbackWindow     time.Duration
	MaxAlerts          int
	MaxActions         int
	RemediationContext models.RemediationContext
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Interval:       30 * time.Minute,
		Dimensions:     models.AllDimensions(),
		Thresholds:     Thresholds{Critical: 50, High: 70, Medium: 85},
		FeedbackWindow: 30 * 24 * time.Hour,
		MaxAlerts:      500,
		MaxActions:     1000,
	}
}

// Validate rejects options the controller cannot run with.
func (o Options) Validate() error {
	t := o.Thresholds
	switch {
	case o.Interval <= 0:
		return fmt.Errorf("cycle interval must be positive: %w", models.ErrConfiguration)
	case t.Critical < 0 || t.High < 0 || t.Medium < 0:
		return fmt.Errorf("thresholds must not be negative: %w", models.ErrConfiguration)
	case t.Critical > 100 || t.High > 100 || t.Medium > 100:
		return fmt.Errorf("thresholds must not exceed 100: %w", models.ErrConfiguration)
	case t.Critical > t.High:
		return fmt.Errorf("critical threshold %.1f exceeds high threshold %.1f: %w", t.Critical, t.High, models.ErrConfiguration)
	case t.High > t.Medium:
		return fmt.Errorf("high threshold %.1f exceeds medium threshold %.1f: %w", t.High, t.Medium, models.ErrConfiguration)
	case o.MaxAlerts < 0 || o.MaxActions < 0:
		return fmt.Errorf("queue limits must not be negative: %w", models.ErrConfiguration)
	case o.LearningEnabled && o.FeedbackWindow <= 0:
		return fmt.Errorf("feedback window must be positive when learning is enabled: %w", models.ErrConfiguration)
	}
	for _, dim := range o.Dimensions {
		if !dim.Valid() {
			return fmt.Errorf("unknown dimension %q: %w", dim, models.ErrConfiguration)
		}
	}
	return nil
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if len(o.Dimensions) == 0 {
		o.Dimensions = d.Dimensions
	}
	if o.MaxAlerts == 0 {
		o.MaxAlerts = d.MaxAlerts
	}
	if o.MaxActions == 0 {
		o.MaxActions = d.MaxActions
	}
	if o.FeedbackWindow == 0 {
		o.FeedbackWindow = d.FeedbackWindow
	}
	return o
}
