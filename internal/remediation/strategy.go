package remediation

import (
	"fmt"
	"strings"
	"time"

	"github.com/miradorstack/mirador-quality/internal/models"
)

const longStrategy = 2 * time.Hour

// Strategy is the chain of steps chosen for a single issue.
type Strategy struct {
	IssueID           string                   `json:"issue_id"`
	Dimension         models.Dimension         `json:"dimension"`
	Priority          models.Severity          `json:"priority"`
	Steps             []models.RemediationStep `json:"steps"`
	EstimatedDuration time.Duration            `json:"estimated_duration"`
}

// BuildStrategy instantiates the dimension's template for issue. Step ids are
// derived from the issue id; dependencies are added during workflow construction.
func BuildStrategy(issue models.QualityIssue, table *RuleTable) Strategy {
	templates := table.Template(issue.Dimension)
	strategy := Strategy{
		IssueID:   issue.ID,
		Dimension: issue.Dimension,
		Steps:     make([]models.RemediationStep, 0, len(templates)),
	}
	for i, tpl := range templates {
		strategy.Steps = append(strategy.Steps, models.RemediationStep{
			ID:          fmt.Sprintf("%s-step-%d", issue.ID, i+1),
			IssueID:     issue.ID,
			Description: strings.ReplaceAll(tpl.Description, "{dimension}", string(issue.Dimension)),
			Type:        tpl.Type,
			Duration:    tpl.Duration,
			Resources:   append([]string(nil), tpl.Resources...),
		})
		strategy.EstimatedDuration += tpl.Duration
	}
	strategy.Priority = strategyPriority(issue.Severity, strategy.EstimatedDuration)
	return strategy
}

func strategyPriority(severity models.Severity, total time.Duration) models.Severity {
	switch {
	case severity == models.SeverityCritical:
		return models.SeverityCritical
	case severity == models.SeverityHigh:
		return models.SeverityHigh
	case total >= longStrategy:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}
