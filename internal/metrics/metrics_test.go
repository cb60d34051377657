package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/miradorstack/mirador-quality/internal/models"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register: %v", err)
	}
}

func TestObserveCycleNormalisesOutcome(t *testing.T) {
	before := testutil.ToFloat64(cyclesTotal.WithLabelValues(OutcomeSuccess))
	ObserveCycle(-time.Second, "unexpected")
	after := testutil.ToFloat64(cyclesTotal.WithLabelValues(OutcomeSuccess))
	if after != before+1 {
		t.Fatalf("expected success counter to increase by 1, got %v -> %v", before, after)
	}
}

func TestSetComponentHealth(t *testing.T) {
	cases := map[models.HealthState]float64{
		models.HealthHealthy:  1,
		models.HealthDegraded: 0.5,
		models.HealthFailed:   0,
	}
	for state, want := range cases {
		SetComponentHealth("analyzer", state)
		if got := testutil.ToFloat64(componentHealth.WithLabelValues("analyzer")); got != want {
			t.Fatalf("%s: expected %v, got %v", state, want, got)
		}
	}
}

func TestObserveRemediationPlan(t *testing.T) {
	before := testutil.ToFloat64(remediationPlansTotal.WithLabelValues("false"))
	ObserveRemediationPlan(false)
	if got := testutil.ToFloat64(remediationPlansTotal.WithLabelValues("false")); got != before+1 {
		t.Fatalf("expected invalid plan counter to increase")
	}
}
