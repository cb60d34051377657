package analysis

import (
	"github.com/miradorstack/mirador-quality/internal/models"
	"github.com/miradorstack/mirador-quality/internal/utils"
)

const trendSlopeThreshold = 0.5

// ClassifyTrend maps a slope onto a trend direction.
func ClassifyTrend(slope float64) models.Trend {
	switch {
	case slope > trendSlopeThreshold:
		return models.TrendImproving
	case slope < -trendSlopeThreshold:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

// ForecastScore projects current forward by horizonDays and clamps to [0,100].
func ForecastScore(current, slope float64, horizonDays int, noise float64) float64 {
	return utils.Clamp(current+slope*float64(horizonDays)+noise, 0, 100)
}

// AnalyzeSeries computes slope, volatility, trend and forecast for a score
// series ordered oldest to newest. The last element is the current score.
func AnalyzeSeries(dim models.Dimension, scores []float64, horizonDays int, rng RandomSource, noiseFactor float64) models.TrendAnalysis {
	slope := utils.LeastSquaresSlope(scores)
	volatility := utils.StdDev(scores)

	current := 0.0
	if len(scores) > 0 {
		current = scores[len(scores)-1]
	}

	noise := 0.0
	if rng != nil {
		noise = (rng.Float64()*2 - 1) * volatility * noiseFactor
	}

	return models.TrendAnalysis{
		Dimension:     dim,
		Trend:         ClassifyTrend(slope),
		Slope:         slope,
		Volatility:    volatility,
		ForecastValue: ForecastScore(current, slope, horizonDays, noise),
		Samples:       len(scores),
	}
}
