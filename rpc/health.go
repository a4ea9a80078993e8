// Package rpc implements the compile service described in
// SPEC_FULL.md §6.4: a grpc health/reflection listener whose serving
// status tracks one compilation pass, and a Connect JSON endpoint
// publishing the same pass's diagnostics.
package rpc

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("cw2wasm.rpc")

const serviceName = "cw2wasm.Compiler"

// HealthServer wraps grpc's health service, toggling serving status
// around a single compilation (grpc's NOT_SERVING until
// module.Generator.Finish returns, SERVING on success, NOT_SERVING
// permanently on failure).
type HealthServer struct {
	grpcServer *grpc.Server
	health     *health.Server
}

// NewHealthServer builds a grpc server exposing only health and
// reflection, starting NOT_SERVING.
func NewHealthServer() *HealthServer {
	s := grpc.NewServer()
	h := health.NewServer()
	h.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)

	healthpb.RegisterHealthServer(s, h)
	reflection.Register(s)

	return &HealthServer{grpcServer: s, health: h}
}

// MarkServing flips the service's health status to SERVING, called
// once module.Generator.Finish returns without error.
func (s *HealthServer) MarkServing() {
	s.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
}

// MarkFailed flips the service's health status to NOT_SERVING
// permanently, called when the compilation pass fails.
func (s *HealthServer) MarkFailed() {
	s.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
}

// Serve blocks accepting grpc connections on lis.
func (s *HealthServer) Serve(lis net.Listener) error {
	log.Infof("grpc health/reflection listening on %s", lis.Addr())
	return s.grpcServer.Serve(lis)
}

// Stop gracefully stops the grpc server.
func (s *HealthServer) Stop() {
	s.grpcServer.GracefulStop()
}
