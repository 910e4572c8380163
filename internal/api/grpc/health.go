package grpc

import (
	"context"
	"time"

	"gpms-backend/internal/api/grpc/interceptor"
	"gpms-backend/internal/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name probed by orchestrators
const ServiceName = "gpms.workflow"

// Probe reports whether a dependency is usable
type Probe func(ctx context.Context) error

// HealthServer exposes the standard gRPC health protocol
type HealthServer struct {
	Server *grpc.Server
	health *health.Server
}

// NewHealthServer builds a gRPC server with health and reflection registered
func NewHealthServer() *HealthServer {
	s := grpc.NewServer(grpc.UnaryInterceptor(interceptor.Unary()))
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)
	reflection.Register(s)

	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return &HealthServer{Server: s, health: h}
}

// Watch runs probe every interval and flips the serving status until ctx ends
func (hs *HealthServer) Watch(ctx context.Context, probe Probe, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	serving := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, interval)
			err := probe(pctx)
			cancel()
			if (err == nil) == serving {
				continue
			}
			serving = err == nil
			if serving {
				logger.Info("Dependency recovered, serving")
				hs.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
			} else {
				logger.Warn("Dependency check failed, not serving", "error", err)
				hs.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
			}
		}
	}
}

// Shutdown marks every service as not serving and stops the server
func (hs *HealthServer) Shutdown() {
	hs.health.Shutdown()
	hs.Server.GracefulStop()
}
