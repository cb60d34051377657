package analysis

import (
	"fmt"

	"github.com/miradorstack/mirador-quality/internal/models"
	"github.com/miradorstack/mirador-quality/internal/utils"
)

const (
	passingScore  = 85
	warningScore  = 70
	criticalScore = 50
	lowCoverage   = 60
)

// Compliance buckets a score into passing, warning, or failing.
func Compliance(score float64) models.ComplianceStatus {
	switch {
	case score >= passingScore:
		return models.CompliancePassing
	case score >= warningScore:
		return models.ComplianceWarning
	default:
		return models.ComplianceFailing
	}
}

// BuildInsights aggregates per-dimension classifications. Dimensions are
// visited in the given order so list contents are deterministic.
func BuildInsights(dims []models.Dimension, metrics map[models.Dimension]models.DimensionMetrics, trends map[models.Dimension]models.TrendAnalysis) models.QualityInsights {
	insights := models.QualityInsights{
		Compliance: make(map[models.Dimension]models.ComplianceStatus, len(dims)),
	}

	scores := make([]float64, 0, len(dims))
	for _, dim := range dims {
		m, ok := metrics[dim]
		if !ok {
			continue
		}
		scores = append(scores, m.Score)

		status := Compliance(m.Score)
		insights.Compliance[dim] = status
		switch status {
		case models.CompliancePassing:
			insights.Strengths = append(insights.Strengths, fmt.Sprintf("%s is passing (%.1f)", dim, m.Score))
		case models.ComplianceWarning:
			insights.Weaknesses = append(insights.Weaknesses, fmt.Sprintf("%s needs attention (%.1f)", dim, m.Score))
		default:
			insights.Weaknesses = append(insights.Weaknesses, fmt.Sprintf("%s is failing (%.1f)", dim, m.Score))
		}

		switch trends[dim].Trend {
		case models.TrendImproving:
			insights.Opportunities = append(insights.Opportunities, fmt.Sprintf("%s is improving (slope %.2f)", dim, trends[dim].Slope))
		case models.TrendDeclining:
			insights.Threats = append(insights.Threats, fmt.Sprintf("%s is declining (slope %.2f)", dim, trends[dim].Slope))
		}
	}

	insights.OverallScore = utils.Mean(scores)
	return insights
}

// DeriveIssues turns non-passing scores and low coverage into quality issues.
// Issue ids are unique within one call.
func DeriveIssues(dims []models.Dimension, metrics map[models.Dimension]models.DimensionMetrics) []models.QualityIssue {
	issues := make([]models.QualityIssue, 0)
	for _, dim := range dims {
		m, ok := metrics[dim]
		if !ok {
			continue
		}

		var severity models.Severity
		switch {
		case m.Score < criticalScore:
			severity = models.SeverityCritical
		case m.Score < warningScore:
			severity = models.SeverityHigh
		case m.Score < passingScore:
			severity = models.SeverityMedium
		}
		if severity != "" {
			issues = append(issues, models.QualityIssue{
				ID:          fmt.Sprintf("%s-score", dim),
				Dimension:   dim,
				Severity:    severity,
				Description: fmt.Sprintf("%s score %.1f with %d open issues, complexity %.1f, maintainability %.1f", dim, m.Score, m.IssueCount, m.Complexity, m.Maintainability),
				Impact:      fmt.Sprintf("%s quality below target of %d", dim, passingScore),
			})
		}

		if m.Coverage > 0 && m.Coverage < lowCoverage {
			issues = append(issues, models.QualityIssue{
				ID:          fmt.Sprintf("%s-coverage", dim),
				Dimension:   dim,
				Severity:    models.SeverityMedium,
				Description: fmt.Sprintf("%s coverage %.1f%% below %d%%", dim, m.Coverage, lowCoverage),
				Impact:      "regressions may ship undetected",
			})
		}
	}
	return issues
}
