// Package grpcserver serves the standard gRPC health service used by
// orchestration probes.
package grpcserver

import (
	"context"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health entry for the marketplace API as a whole.
const ServiceName = "rewear.v1.Marketplace"

// HealthServer wraps a grpc.Server that only exposes grpc.health.v1.Health.
type HealthServer struct {
	srv    *grpc.Server
	health *health.Server
	log    *zap.Logger
}

// NewHealth builds the server with logging and recovery interceptors.
// Both the overall and the ServiceName status start as SERVING.
func NewHealth(log *zap.Logger) *HealthServer {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "grpc"))
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(RecoverUnary(log), LoggingUnary(log)),
		grpc.ChainStreamInterceptor(RecoverStream(log), LoggingStream(log)),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return &HealthServer{srv: s, health: hs, log: log}
}

// Serve blocks until the listener fails or Shutdown is called.
func (h *HealthServer) Serve(lis net.Listener) error {
	h.log.Info("health listening", zap.String("addr", lis.Addr().String()))
	return h.srv.Serve(lis)
}

// SetServing flips the ServiceName status, e.g. when a dependency is lost.
func (h *HealthServer) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus(ServiceName, st)
}

// Shutdown reports NOT_SERVING to watchers and stops gracefully,
// forcing the stop when ctx ends first.
func (h *HealthServer) Shutdown(ctx context.Context) {
	h.health.Shutdown()
	done := make(chan struct{})
	go func() {
		h.srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		h.srv.Stop()
	}
}
