package models

import "time"

// Dimension is one axis of quality being tracked.
type Dimension string

const (
	DimensionCode          Dimension = "code"
	DimensionArchitecture  Dimension = "architecture"
	DimensionSecurity      Dimension = "security"
	DimensionPerformance   Dimension = "performance"
	DimensionAccessibility Dimension = "accessibility"
	DimensionScalability   Dimension = "scalability"
	DimensionTesting       Dimension = "testing"
)

// AllDimensions lists the dimensions tracked when no explicit set is configured.
func AllDimensions() []Dimension {
	return []Dimension{
		DimensionCode,
		DimensionArchitecture,
		DimensionSecurity,
		DimensionPerformance,
		DimensionAccessibility,
		DimensionScalability,
		DimensionTesting,
	}
}

// Valid reports whether d is a known dimension.
func (d Dimension) Valid() bool {
	for _, known := range AllDimensions() {
		if d == known {
			return true
		}
	}
	return false
}

// DimensionMetrics is a point-in-time snapshot for one dimension.
type DimensionMetrics struct {
	Dimension       Dimension `json:"dimension" yaml:"dimension"`
	Score           float64   `json:"score" yaml:"score"`
	IssueCount      int       `json:"issue_count" yaml:"issueCount"`
	Coverage        float64   `json:"coverage" yaml:"coverage"`
	Complexity      float64   `json:"complexity" yaml:"complexity"`
	Maintainability float64   `json:"maintainability" yaml:"maintainability"`
	Timestamp       time.Time `json:"timestamp" yaml:"timestamp"`
}

// Normalize clamps percentage fields into [0,100] and counters to be non-negative.
func (m DimensionMetrics) Normalize() DimensionMetrics {
	m.Score = clampPercent(m.Score)
	m.Coverage = clampPercent(m.Coverage)
	m.Maintainability = clampPercent(m.Maintainability)
	if m.IssueCount < 0 {
		m.IssueCount = 0
	}
	if m.Complexity < 0 {
		m.Complexity = 0
	}
	return m
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Trend classifies the recent direction of a metric series.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// TrendAnalysis summarises the score series of one dimension.
type TrendAnalysis struct {
	Dimension     Dimension `json:"dimension"`
	Trend         Trend     `json:"trend"`
	Slope         float64   `json:"slope"`
	Volatility    float64   `json:"volatility"`
	ForecastValue float64   `json:"forecast_value"`
	Samples       int       `json:"samples"`
}

// Severity captures impact levels. It doubles as the risk and alert level scale.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities so that critical > high > medium > low.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// QualityIssue is a concrete problem found in a dimension.
type QualityIssue struct {
	ID          string    `json:"id" yaml:"id"`
	Dimension   Dimension `json:"dimension" yaml:"dimension"`
	Severity    Severity  `json:"severity" yaml:"severity"`
	Description string    `json:"description" yaml:"description"`
	Impact      string    `json:"impact" yaml:"impact"`
	Location    string    `json:"location,omitempty" yaml:"location,omitempty"`
}

// ComplianceStatus buckets a dimension score.
type ComplianceStatus string

const (
	CompliancePassing ComplianceStatus = "passing"
	ComplianceWarning ComplianceStatus = "warning"
	ComplianceFailing ComplianceStatus = "failing"
)

// QualityInsights aggregates per-dimension classifications for one cycle.
type QualityInsights struct {
	OverallScore  float64                        `json:"overall_score"`
	Compliance    map[Dimension]ComplianceStatus `json:"compliance"`
	Strengths     []string                       `json:"strengths"`
	Weaknesses    []string                       `json:"weaknesses"`
	Opportunities []string                       `json:"opportunities"`
	Threats       []string                       `json:"threats"`
}
