package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/miradorstack/mirador-quality/internal/models"
)

// MetricSource supplies per-dimension metric snapshots. Implementations must
// return an error wrapping models.ErrDataUnavailable instead of zero values.
// History may come back in any order; Analyze orders it by timestamp.
type MetricSource interface {
	GetCurrentMetrics(ctx context.Context, dimension models.Dimension) (models.DimensionMetrics, error)
	GetHistoricalMetrics(ctx context.Context, dimension models.Dimension, window time.Duration) ([]models.DimensionMetrics, error)
}

// RandomSource produces uniform values in [0,1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// Options tunes the analyzer.
type Options struct {
	HistoryWindow time.Duration
	HorizonDays   int
	// NoiseFactor scales the volatility-based forecast perturbation.
	NoiseFactor float64
}

// Report is the analyzer output for one cycle.
type Report struct {
	GeneratedAt time.Time                                    `json:"generated_at"`
	Dimensions  []models.Dimension                           `json:"dimensions"`
	Metrics     map[models.Dimension]models.DimensionMetrics `json:"metrics"`
	Trends      map[models.Dimension]models.TrendAnalysis    `json:"trends"`
	Insights    models.QualityInsights                       `json:"insights"`
	Issues      []models.QualityIssue                        `json:"issues"`
	Unavailable []models.Dimension                           `json:"unavailable,omitempty"`
}

// Degraded reports whether some dimensions could not be analysed.
func (r Report) Degraded() bool {
	return len(r.Unavailable) > 0
}

// Analyzer computes trends, forecasts, and insights from metric snapshots.
type Analyzer struct {
	logger *slog.Logger
	source MetricSource
	opts   Options

	rngMu sync.Mutex
	rng   RandomSource
	now   func() time.Time
}

// NewAnalyzer constructs an Analyzer. A nil rng disables forecast noise.
func NewAnalyzer(logger *slog.Logger, source MetricSource, rng RandomSource, opts Options) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = 30 * 24 * time.Hour
	}
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = 7
	}
	if opts.NoiseFactor <= 0 {
		opts.NoiseFactor = 0.1
	}
	return &Analyzer{logger: logger, source: source, rng: rng, opts: opts, now: time.Now}
}

// Analyze fetches current and historical metrics for each dimension and
// aggregates them. Dimensions without current data are listed in
// Report.Unavailable; if none could be analysed the error wraps
// models.ErrDataUnavailable.
func (a *Analyzer) Analyze(ctx context.Context, dimensions []models.Dimension) (Report, error) {
	report := Report{
		GeneratedAt: a.now().UTC(),
		Metrics:     make(map[models.Dimension]models.DimensionMetrics, len(dimensions)),
		Trends:      make(map[models.Dimension]models.TrendAnalysis, len(dimensions)),
	}
	if a.source == nil {
		return report, fmt.Errorf("metric source not configured: %w", models.ErrDataUnavailable)
	}
	if len(dimensions) == 0 {
		dimensions = models.AllDimensions()
	}

	for _, dim := range dimensions {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		current, err := a.source.GetCurrentMetrics(ctx, dim)
		if err != nil {
			a.logger.Warn("current metrics unavailable", slog.String("dimension", string(dim)), slog.Any("error", err))
			report.Unavailable = append(report.Unavailable, dim)
			continue
		}
		current = current.Normalize()
		current.Dimension = dim

		history, err := a.source.GetHistoricalMetrics(ctx, dim, a.opts.HistoryWindow)
		if err != nil {
			// Trend falls back to the current sample only.
			a.logger.Debug("historical metrics unavailable", slog.String("dimension", string(dim)), slog.Any("error", err))
			history = nil
		}

		history = orderHistory(history, current.Timestamp)
		scores := make([]float64, 0, len(history)+1)
		for _, h := range history {
			scores = append(scores, h.Normalize().Score)
		}
		scores = append(scores, current.Score)

		report.Dimensions = append(report.Dimensions, dim)
		report.Metrics[dim] = current
		report.Trends[dim] = a.analyzeSeries(dim, scores)
	}

	if len(report.Dimensions) == 0 {
		return report, fmt.Errorf("no dimension could be analysed: %w", models.ErrDataUnavailable)
	}

	report.Insights = BuildInsights(report.Dimensions, report.Metrics, report.Trends)
	report.Issues = DeriveIssues(report.Dimensions, report.Metrics)
	return report, nil
}

// orderHistory returns history oldest first. When the current sample carries a
// timestamp, samples taken at or after it are dropped so it is not counted twice.
func orderHistory(history []models.DimensionMetrics, current time.Time) []models.DimensionMetrics {
	out := make([]models.DimensionMetrics, 0, len(history))
	for _, h := range history {
		if !current.IsZero() && !h.Timestamp.Before(current) {
			continue
		}
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// SelfTest probes the metric source for the code dimension.
func (a *Analyzer) SelfTest(ctx context.Context) error {
	if a.source == nil {
		return fmt.Errorf("metric source not configured: %w", models.ErrDataUnavailable)
	}
	if _, err := a.source.GetCurrentMetrics(ctx, models.DimensionCode); err != nil {
		return fmt.Errorf("probe metric source: %w", err)
	}
	return nil
}

func (a *Analyzer) analyzeSeries(dim models.Dimension, scores []float64) models.TrendAnalysis {
	a.rngMu.Lock()
	defer a.rngMu.Unlock()
	return AnalyzeSeries(dim, scores, a.opts.HorizonDays, a.rng, a.opts.NoiseFactor)
}

// IsDataUnavailable reports whether err signals missing collaborator data.
func IsDataUnavailable(err error) bool {
	return errors.Is(err, models.ErrDataUnavailable)
}
