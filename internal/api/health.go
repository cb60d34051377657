package api

import (
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/miradorstack/mirador-quality/internal/models"
)

// ServicePrefix namespaces per-component health service names.
const ServicePrefix = "mirador.quality."

// overallComponent also drives the server-wide ("") status.
const overallComponent = "overall"

// HealthReporter mirrors controller component health into a gRPC health server.
type HealthReporter struct {
	server *health.Server
}

// NewHealthReporter wraps srv. The server-wide status starts NOT_SERVING
// until the controller reports the overall component.
func NewHealthReporter(srv *health.Server) *HealthReporter {
	srv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthReporter{server: srv}
}

// ServiceName returns the health service name for a component.
func ServiceName(component string) string {
	return ServicePrefix + component
}

// ObserveHealth implements the controller's health observer contract.
// Degraded components keep serving; failed ones do not.
func (r *HealthReporter) ObserveHealth(component string, state models.HealthState) {
	status := servingStatus(state)
	r.server.SetServingStatus(ServiceName(component), status)
	if component == overallComponent {
		r.server.SetServingStatus("", status)
	}
}

func servingStatus(state models.HealthState) healthpb.HealthCheckResponse_ServingStatus {
	switch state {
	case models.HealthHealthy, models.HealthDegraded:
		return healthpb.HealthCheckResponse_SERVING
	case models.HealthFailed:
		return healthpb.HealthCheckResponse_NOT_SERVING
	default:
		return healthpb.HealthCheckResponse_UNKNOWN
	}
}
