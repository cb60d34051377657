package remediation

import (
	"time"

	"github.com/miradorstack/mirador-quality/internal/models"
)

const (
	savingsPerAutomatedStep = 30 * time.Minute
	baseQualityImprovement  = 50.0
	improvementPerAutomated = 5.0
	maxQualityImprovement   = 85.0
)

// Impact estimates what executing a plan buys and risks.
type Impact struct {
	TimeSavings        time.Duration   `json:"time_savings"`
	QualityImprovement float64         `json:"quality_improvement"`
	RiskLevel          models.Severity `json:"risk_level"`
	AutomatedSteps     int             `json:"automated_steps"`
	ManualSteps        int             `json:"manual_steps"`
	ReviewSteps        int             `json:"review_steps"`
}

// EstimateImpact counts step types: savings grow by 30 minutes per automated
// step, quality improvement grows with automation up to 85, and risk rises
// with the share of manual work.
func EstimateImpact(steps []models.RemediationStep) Impact {
	var impact Impact
	for _, s := range steps {
		switch s.Type {
		case models.StepAutomated:
			impact.AutomatedSteps++
		case models.StepManual:
			impact.ManualSteps++
		case models.StepReview:
			impact.ReviewSteps++
		}
	}

	impact.TimeSavings = time.Duration(impact.AutomatedSteps) * savingsPerAutomatedStep
	impact.QualityImprovement = baseQualityImprovement + improvementPerAutomated*float64(impact.AutomatedSteps)
	if impact.QualityImprovement > maxQualityImprovement {
		impact.QualityImprovement = maxQualityImprovement
	}

	switch {
	case impact.ManualSteps > 2*impact.AutomatedSteps:
		impact.RiskLevel = models.SeverityHigh
	case impact.ManualSteps > impact.AutomatedSteps:
		impact.RiskLevel = models.SeverityMedium
	default:
		impact.RiskLevel = models.SeverityLow
	}
	return impact
}
