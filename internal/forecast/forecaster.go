package forecast

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/miradorstack/mirador-quality/internal/models"
	"github.com/miradorstack/mirador-quality/internal/utils"
)

const (
	impactThreshold = 70.0
	criticalScore   = 50.0
	highScore       = 70.0
	mediumScore     = 85.0

	maxConfidence     = 0.9
	minConfidence     = 0.6
	confidencePenalty = 0.05
)

// Urgency states how quickly an early warning must be acted on.
type Urgency string

const (
	UrgencyImmediate Urgency = "immediate"
	UrgencyUrgent    Urgency = "urgent"
)

// Input is the analyzer state the forecaster projects from.
type Input struct {
	Dimensions []models.Dimension
	Metrics    map[models.Dimension]models.DimensionMetrics
	Trends     map[models.Dimension]models.TrendAnalysis
}

// IssuePrediction flags a dimension expected to stay below target.
type IssuePrediction struct {
	Dimension        models.Dimension `json:"dimension"`
	CurrentScore     float64          `json:"current_score"`
	Slope            float64          `json:"slope"`
	TimeToImpactDays int              `json:"time_to_impact_days"`
	Description      string           `json:"description"`
}

// EarlyWarning is a forward-looking alert for an at-risk dimension.
type EarlyWarning struct {
	Dimension      models.Dimension `json:"dimension"`
	Level          models.Severity  `json:"level"`
	Message        string           `json:"message"`
	ActionRequired Urgency          `json:"action_required"`
}

// Result is the forecaster output for one cycle.
type Result struct {
	GeneratedAt   time.Time                            `json:"generated_at"`
	Predictions   []IssuePrediction                    `json:"predictions"`
	DimensionRisk map[models.Dimension]models.Severity `json:"dimension_risk"`
	OverallRisk   models.Severity                      `json:"overall_risk"`
	Warnings      []EarlyWarning                       `json:"warnings"`
	Forecasts     map[models.Dimension]float64         `json:"forecasts"`
	Confidence    float64                              `json:"confidence"`
}

// Forecaster applies rule-based projections to analyzer output.
type Forecaster struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewForecaster constructs a Forecaster.
func NewForecaster(logger *slog.Logger) *Forecaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forecaster{logger: logger, now: time.Now}
}

// Forecast classifies per-dimension risk, predicts issues and emits early warnings.
func (f *Forecaster) Forecast(in Input) Result {
	result := Result{
		GeneratedAt:   f.now().UTC(),
		DimensionRisk: make(map[models.Dimension]models.Severity, len(in.Dimensions)),
		Forecasts:     make(map[models.Dimension]float64, len(in.Dimensions)),
	}

	levels := make([]models.Severity, 0, len(in.Dimensions))
	for _, dim := range in.Dimensions {
		m, ok := in.Metrics[dim]
		if !ok {
			continue
		}
		trend := in.Trends[dim]
		result.Forecasts[dim] = trend.ForecastValue

		if prediction, ok := PredictIssue(dim, m.Score, trend); ok {
			result.Predictions = append(result.Predictions, prediction)
		}

		risk := ClassifyRisk(m.Score)
		result.DimensionRisk[dim] = risk
		levels = append(levels, risk)

		switch risk {
		case models.SeverityCritical:
			result.Warnings = append(result.Warnings, EarlyWarning{
				Dimension:      dim,
				Level:          risk,
				Message:        fmt.Sprintf("%s score %.1f is critically low", dim, m.Score),
				ActionRequired: UrgencyImmediate,
			})
		case models.SeverityHigh:
			result.Warnings = append(result.Warnings, EarlyWarning{
				Dimension:      dim,
				Level:          risk,
				Message:        fmt.Sprintf("%s score %.1f is below the %.0f target", dim, m.Score, highScore),
				ActionRequired: UrgencyUrgent,
			})
		}
	}

	result.OverallRisk = AggregateRisk(levels)
	result.Confidence = Confidence(len(result.Warnings) + len(result.Predictions))

	f.logger.Debug("forecast complete",
		slog.String("overall_risk", string(result.OverallRisk)),
		slog.Int("warnings", len(result.Warnings)),
		slog.Int("predictions", len(result.Predictions)),
	)
	return result
}

// PredictIssue flags a declining dimension below target. A zero slope never predicts.
func PredictIssue(dim models.Dimension, score float64, trend models.TrendAnalysis) (IssuePrediction, bool) {
	if trend.Trend != models.TrendDeclining || score >= impactThreshold || trend.Slope == 0 {
		return IssuePrediction{}, false
	}
	days := int(math.Ceil((impactThreshold - score) / math.Abs(trend.Slope)))
	return IssuePrediction{
		Dimension:        dim,
		CurrentScore:     score,
		Slope:            trend.Slope,
		TimeToImpactDays: days,
		Description:      fmt.Sprintf("%s declining at %.2f/day, %d days of decline below target", dim, trend.Slope, days),
	}, true
}

// ClassifyRisk maps a score onto a risk level.
func ClassifyRisk(score float64) models.Severity {
	switch {
	case score < criticalScore:
		return models.SeverityCritical
	case score < highScore:
		return models.SeverityHigh
	case score < mediumScore:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// AggregateRisk combines per-dimension levels; the first matching rule wins:
// any critical, then two or more high, then exactly one high, else low.
func AggregateRisk(levels []models.Severity) models.Severity {
	high := 0
	for _, level := range levels {
		if level == models.SeverityCritical {
			return models.SeverityCritical
		}
		if level == models.SeverityHigh {
			high++
		}
	}
	switch {
	case high >= 2:
		return models.SeverityHigh
	case high == 1:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// Confidence decreases with the number of predicted problems, bounded to [0.6, 0.9].
func Confidence(problems int) float64 {
	return utils.Clamp(maxConfidence-confidencePenalty*float64(problems), minConfidence, maxConfidence)
}
