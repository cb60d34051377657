package api

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	reflectionpb "google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/grpc/status"

	"github.com/miradorstack/mirador-quality/internal/config"
	"github.com/miradorstack/mirador-quality/internal/models"
)

func startServer(t *testing.T, cfg config.ServerConfig) (*Server, *grpc.ClientConn) {
	t.Helper()
	cfg.Address = "127.0.0.1:0"
	cfg.GracefulTimeout = time.Second
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	conn, err := grpc.NewClient(srv.Address(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("run: %v", err)
			}
		case <-time.After(3 * time.Second):
			t.Errorf("server did not stop")
		}
	})
	return srv, conn
}

func check(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("health check %q: %v", service, err)
	}
	return resp.GetStatus()
}

func TestHealthMirrorsComponents(t *testing.T) {
	srv, conn := startServer(t, config.ServerConfig{})
	client := healthpb.NewHealthClient(conn)

	if got := check(t, client, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING before the first report, got %s", got)
	}

	reporter := srv.Health()
	reporter.ObserveHealth("overall", models.HealthHealthy)
	reporter.ObserveHealth("analyzer", models.HealthDegraded)
	reporter.ObserveHealth("forecaster", models.HealthFailed)

	if got := check(t, client, ""); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected overall SERVING, got %s", got)
	}
	if got := check(t, client, ServiceName("analyzer")); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected degraded analyzer to keep serving, got %s", got)
	}
	if got := check(t, client, ServiceName("forecaster")); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected failed forecaster NOT_SERVING, got %s", got)
	}
}

func TestHealthUnknownComponent(t *testing.T) {
	_, conn := startServer(t, config.ServerConfig{})
	client := healthpb.NewHealthClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName("learning")})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound for unreported component, got %v", err)
	}
}

func TestServingStatus(t *testing.T) {
	cases := map[models.HealthState]healthpb.HealthCheckResponse_ServingStatus{
		models.HealthHealthy:  healthpb.HealthCheckResponse_SERVING,
		models.HealthDegraded: healthpb.HealthCheckResponse_SERVING,
		models.HealthFailed:   healthpb.HealthCheckResponse_NOT_SERVING,
		"bogus":               healthpb.HealthCheckResponse_UNKNOWN,
	}
	for state, want := range cases {
		if got := servingStatus(state); got != want {
			t.Fatalf("servingStatus(%s) = %s, want %s", state, got, want)
		}
	}
}

func TestReflectionToggle(t *testing.T) {
	for _, enabled := range []bool{false, true} {
		_, conn := startServer(t, config.ServerConfig{Reflection: enabled})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		stream, err := reflectionpb.NewServerReflectionClient(conn).ServerReflectionInfo(ctx)
		if err == nil {
			err = stream.Send(&reflectionpb.ServerReflectionRequest{
				MessageRequest: &reflectionpb.ServerReflectionRequest_ListServices{ListServices: "*"},
			})
		}
		if err == nil {
			_, err = stream.Recv()
		}
		cancel()

		if enabled && err != nil {
			t.Fatalf("expected reflection to answer, got %v", err)
		}
		if !enabled && status.Code(err) != codes.Unimplemented {
			t.Fatalf("expected Unimplemented without reflection, got %v", err)
		}
	}
}
