// Package grpc serves the standard gRPC health service and server reflection.
package grpc

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/chrissnell/rhythmanchor/pkg/config"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported for the scoring engine
const ServiceName = "rhythmanchor.Engine"

// Controller represents the gRPC controller
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	Server     *grpc.Server
	Health     *health.Server
	GRPCConfig config.GRPCData
	logger     *zap.SugaredLogger
}

// NewController creates a new gRPC controller instance
func NewController(ctx context.Context, wg *sync.WaitGroup, grpcConfig config.GRPCData, logger *zap.SugaredLogger) (*Controller, error) {
	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		GRPCConfig: grpcConfig,
		logger:     logger,
	}

	if ctrl.GRPCConfig.Port == 0 {
		ctrl.GRPCConfig.Port = config.DefaultGRPCPort
	}

	// Create gRPC server with optional TLS
	if grpcConfig.Cert != "" && grpcConfig.Key != "" {
		creds, err := credentials.NewServerTLSFromFile(grpcConfig.Cert, grpcConfig.Key)
		if err != nil {
			return nil, fmt.Errorf("could not create TLS server from keypair: %v", err)
		}
		ctrl.Server = grpc.NewServer(grpc.Creds(creds))
	} else {
		ctrl.Server = grpc.NewServer()
	}

	ctrl.Health = health.NewServer()
	ctrl.Health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	ctrl.Health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	// Register the health service and reflection
	healthpb.RegisterHealthServer(ctrl.Server, ctrl.Health)
	reflection.Register(ctrl.Server)

	return ctrl, nil
}

// Addr returns the address the controller listens on when it owns its listener
func (c *Controller) Addr() string {
	return fmt.Sprintf("%s:%d", c.GRPCConfig.ListenAddr, c.GRPCConfig.Port)
}

// StartController starts the gRPC controller on its own listener
func (c *Controller) StartController() error {
	l, err := net.Listen("tcp", c.Addr())
	if err != nil {
		return fmt.Errorf("gRPC controller could not create listener: %v", err)
	}
	c.ServeListener(l)
	return nil
}

// ServeListener serves gRPC on a listener owned by someone else
func (c *Controller) ServeListener(l net.Listener) {
	c.logger.Infof("gRPC controller listening on %s", l.Addr())
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		if err := c.Server.Serve(l); err != nil {
			c.logger.Errorf("gRPC controller serve error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		c.StopController()
	}()
}

// StopController marks every service as not serving and stops the server
func (c *Controller) StopController() {
	c.logger.Info("Stopping gRPC controller...")
	c.Health.Shutdown()
	c.Server.GracefulStop()
}

// UsesTLS reports whether a certificate was configured
func (c *Controller) UsesTLS() bool {
	return c.GRPCConfig.Cert != "" && c.GRPCConfig.Key != ""
}
