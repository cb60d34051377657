package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/miradorstack/mirador-quality/internal/models"
)

const (
	// OutcomeSuccess labels cycles where every stage completed.
	OutcomeSuccess = "success"
	// OutcomeDegraded labels cycles that finished with partial data.
	OutcomeDegraded = "degraded"
	// OutcomeError labels cycles that could not produce an analysis.
	OutcomeError = "error"
)

const namespace = "mirador_quality"

var (
	cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Total number of orchestration cycles, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	cycleDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_seconds",
			Help:      "Orchestration cycle latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	cyclesSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_skipped_total",
			Help:      "Scheduled ticks skipped because a cycle was still running.",
		},
	)

	alertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts raised, partitioned by level.",
		},
		[]string{"level"},
	)

	alertsSuppressedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_notifications_suppressed_total",
			Help:      "Alert notifications dropped by the dispatch rate limit.",
		},
	)

	remediationPlansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remediation_plans_total",
			Help:      "Remediation plans built, partitioned by validity.",
		},
		[]string{"valid"},
	)

	componentHealth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "component_health",
			Help:      "Component health: 1 healthy, 0.5 degraded, 0 failed.",
		},
		[]string{"component"},
	)
)

// Register attaches mirador-quality collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		cyclesTotal,
		cycleDurationSeconds,
		cyclesSkippedTotal,
		alertsTotal,
		alertsSuppressedTotal,
		remediationPlansTotal,
		componentHealth,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveCycle records a cycle duration and outcome label.
func ObserveCycle(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError && label != OutcomeDegraded {
		label = OutcomeSuccess
	}
	cyclesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	cycleDurationSeconds.Observe(duration.Seconds())
}

// ObserveSkippedCycle counts a tick that collided with a running cycle.
func ObserveSkippedCycle() {
	cyclesSkippedTotal.Inc()
}

// ObserveAlert counts a raised alert.
func ObserveAlert(level models.Severity) {
	alertsTotal.WithLabelValues(string(level)).Inc()
}

// ObserveSuppressedAlert counts a notification dropped by rate limiting.
func ObserveSuppressedAlert() {
	alertsSuppressedTotal.Inc()
}

// ObserveRemediationPlan counts a built plan.
func ObserveRemediationPlan(valid bool) {
	remediationPlansTotal.WithLabelValues(strconv.FormatBool(valid)).Inc()
}

// SetComponentHealth publishes a component's health state.
func SetComponentHealth(component string, state models.HealthState) {
	componentHealth.WithLabelValues(component).Set(healthValue(state))
}

func healthValue(state models.HealthState) float64 {
	switch state {
	case models.HealthHealthy:
		return 1
	case models.HealthDegraded:
		return 0.5
	default:
		return 0
	}
}
