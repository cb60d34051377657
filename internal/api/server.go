package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/miradorstack/mirador-quality/internal/config"
)

// Server exposes orchestrator health over the standard gRPC health service.
type Server struct {
	cfg    config.ServerConfig
	grpc   *grpc.Server
	lis    net.Listener
	health *HealthReporter
}

// NewServer listens on cfg.Address and registers the health service.
// Reflection is only registered when cfg.Reflection is set.
func NewServer(cfg config.ServerConfig, opts ...grpc.ServerOption) (*Server, error) {
	lis, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Address, err)
	}

	grpc_prometheus.EnableHandlingTimeHistogram()
	gs := grpc.NewServer(append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
		grpc.ChainStreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	}, opts...)...)

	reporter := NewHealthReporter(health.NewServer())
	healthpb.RegisterHealthServer(gs, reporter.server)
	if cfg.Reflection {
		reflection.Register(gs)
	}
	grpc_prometheus.Register(gs)

	return &Server{cfg: cfg, grpc: gs, lis: lis, health: reporter}, nil
}

// Health returns the reporter to hand to the controller as a health observer.
func (s *Server) Health() *HealthReporter {
	return s.health
}

// Run serves until ctx is cancelled, then shuts down within the configured
// graceful timeout. A serve failure is returned immediately.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.grpc.Serve(s.lis) }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve grpc: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.cfg.GracefulTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.Shutdown(shutdownCtx)
	return nil
}

// Shutdown marks every service NOT_SERVING and stops gracefully, falling back
// to a hard stop when ctx expires.
func (s *Server) Shutdown(ctx context.Context) {
	s.health.server.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		s.grpc.Stop()
	case <-stopped:
	}
}

// Address reports the bound listener address.
func (s *Server) Address() string {
	return s.lis.Addr().String()
}
