package models

import "time"

// HealthState describes a component's operating condition.
type HealthState string

const (
	HealthHealthy  HealthState = "healthy"
	HealthDegraded HealthState = "degraded"
	HealthFailed   HealthState = "failed"
)

// PerformanceMetrics captures controller-level timings and counters.
type PerformanceMetrics struct {
	CyclesCompleted int           `json:"cycles_completed"`
	CyclesFailed    int           `json:"cycles_failed"`
	CyclesSkipped   int           `json:"cycles_skipped"`
	LastCycleTime   time.Duration `json:"last_cycle_time"`
	CycleTimeP95    time.Duration `json:"cycle_time_p95"`
	AlertsRaised    int           `json:"alerts_raised"`
	Remediations    int           `json:"remediations"`
}

// OrchestrationStatus is the externally visible controller state.
type OrchestrationStatus struct {
	Active             bool                   `json:"active"`
	LastAnalysis       time.Time              `json:"last_analysis"`
	OverallScore       float64                `json:"overall_score"`
	OverallRisk        Severity               `json:"overall_risk,omitempty"`
	ComponentHealth    map[string]HealthState `json:"component_health"`
	ActiveAlerts       []Alert                `json:"active_alerts"`
	PerformanceMetrics PerformanceMetrics     `json:"performance_metrics"`
	NextFocus          []string               `json:"next_focus,omitempty"`
}
