// Package grpc serves the standard gRPC health service, reporting whether the
// bot's database is reachable.
package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported alongside the overall status
const ServiceName = "soundfx"

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Health(ctx context.Context) error
}

// Server wraps the gRPC server
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
	pinger     Pinger
	logger     *zap.Logger
	port       string
}

// NewServer creates a new gRPC server listening on port. Use "0" for any free port.
func NewServer(pinger Pinger, port string, logger *zap.Logger) (*Server, error) {
	// Create listener - net.Listen is standard for gRPC server setup
	lis, err := net.Listen("tcp", ":"+port) //nolint:noctx // Server initialization doesn't require context
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %s: %w", port, err)
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(loggingInterceptor(logger)),
	)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	// Register reflection service for development (allows tools like grpcurl)
	reflection.Register(grpcServer)

	// Not serving until the first check passes
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	logger.Info("gRPC server configured", zap.String("port", port))

	return &Server{
		grpcServer: grpcServer,
		health:     healthServer,
		listener:   lis,
		pinger:     pinger,
		logger:     logger,
		port:       port,
	}, nil
}

// Addr returns the address the server listens on
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Check pings the database once and publishes the resulting status
func (s *Server) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.pinger.Health(ctx); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)

	return status
}

// StartHealthJob checks health immediately and then every interval until ctx is done
func (s *Server) StartHealthJob(ctx context.Context, interval time.Duration) {
	s.Check(ctx)

	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.Check(ctx)
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()

	s.logger.Info("started health job", zap.Duration("interval", interval))
}

// Serve starts the gRPC server
func (s *Server) Serve() error {
	s.logger.Info("starting gRPC server", zap.String("address", s.listener.Addr().String()))

	if err := s.grpcServer.Serve(s.listener); err != nil {
		return fmt.Errorf("failed to serve gRPC: %w", err)
	}

	return nil
}

// GracefulStop marks the server as shutting down and waits for in-flight calls
func (s *Server) GracefulStop() {
	s.logger.Info("gracefully stopping gRPC server")
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

// Stop immediately stops the gRPC server
func (s *Server) Stop() {
	s.logger.Info("stopping gRPC server")
	s.grpcServer.Stop()
}

// loggingInterceptor logs all gRPC requests
func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		if err != nil {
			logger.Error("gRPC request failed",
				zap.String("method", info.FullMethod),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
		} else {
			logger.Debug("gRPC request completed",
				zap.String("method", info.FullMethod),
				zap.Duration("duration", time.Since(start)),
			)
		}

		return resp, err
	}
}
