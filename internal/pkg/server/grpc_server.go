package server

import (
	"net"

	"github.com/kiosk404/echoryn/pkg/logger"
	"google.golang.org/grpc"
)

// GRPCAPIServer wraps a *grpc.Server bound to a fixed address.
type GRPCAPIServer struct {
	server *grpc.Server
	addr   string
}

// NewGRPCAPIServer wraps an already-configured grpc.Server.
func NewGRPCAPIServer(s *grpc.Server, addr string) *GRPCAPIServer {
	return &GRPCAPIServer{server: s, addr: addr}
}

// Run listens on addr and blocks serving gRPC until Stop is called.
func (g *GRPCAPIServer) Run() {
	lis, err := net.Listen("tcp", g.addr)
	if err != nil {
		logger.Error("[grpc] failed to listen on %s: %v", g.addr, err)
		return
	}
	logger.Info("[grpc] listening on %s", g.addr)
	if err := g.server.Serve(lis); err != nil {
		logger.Error("[grpc] serve error: %v", err)
	}
}

// Stop gracefully stops the gRPC server.
func (g *GRPCAPIServer) Stop() {
	g.server.GracefulStop()
}

// Server exposes the underlying *grpc.Server, e.g. for service registration.
func (g *GRPCAPIServer) Server() *grpc.Server { return g.server }
