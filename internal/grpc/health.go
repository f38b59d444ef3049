package grpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/repository"
)

// ServiceName is the health check service name reported by the hub.
const ServiceName = "wheeltrack.hub.v1.Hub"

// Pinger is satisfied by stores that can verify their backing connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	GRPC   *grpc.Server
	health *health.Server
}

// NewServer builds the hub's gRPC server. Health is always open. Server
// reflection is registered only when serviceToken is set, and every
// non-health call must then carry the token in x-service-token metadata.
func NewServer(serviceToken string) (*Server, error) {
	var opts []grpc.ServerOption
	if serviceToken != "" {
		authOpts, err := ServiceAuthOptions(serviceToken)
		if err != nil {
			return nil, err
		}
		opts = append(opts, authOpts...)
	}
	server := grpc.NewServer(opts...)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	if serviceToken != "" {
		reflection.Register(server)
	}
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return &Server{GRPC: server, health: healthServer}, nil
}

func (s *Server) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
}

// WatchStore flips the hub's health status whenever the store stops
// answering pings. It returns when ctx is done.
func (s *Server) WatchStore(ctx context.Context, store repository.Repository, interval time.Duration, logger *slog.Logger) {
	pinger, ok := store.(Pinger)
	if !ok {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	serving := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, interval/2)
			err := pinger.Ping(pingCtx)
			cancel()
			if healthy := err == nil; healthy != serving {
				serving = healthy
				s.SetServing(serving)
				logger.Warn("hub health changed", "serving", serving, "error", err)
			}
		}
	}
}

// Shutdown reports NOT_SERVING to clients and stops accepting calls.
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.GRPC.GracefulStop()
}
