package managers

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	grpccontroller "github.com/chrissnell/rhythmanchor/internal/controllers/grpc"
	"github.com/chrissnell/rhythmanchor/internal/controllers/restserver"
	"github.com/chrissnell/rhythmanchor/pkg/config"
	"github.com/soheilhy/cmux"
	"go.uber.org/zap"
)

// ControllerManager interface for the controller manager
type ControllerManager interface {
	StartControllers() error
}

// Controller is an interface that provides standard methods for various controller backends
type Controller interface {
	StartController() error
	ServeListener(l net.Listener)
	Addr() string
}

// NewControllerManager creates a new controller manager
func NewControllerManager(ctx context.Context, wg *sync.WaitGroup, cfg *config.ConfigData, svc restserver.Services, logger *zap.SugaredLogger) (ControllerManager, error) {
	cm := &controllerManager{
		ctx:         ctx,
		wg:          wg,
		services:    svc,
		logger:      logger,
		controllers: make([]Controller, 0),
	}

	// Create controllers based on configuration
	for _, con := range cfg.Controllers {
		controller, err := cm.createController(con)
		if err != nil {
			return nil, fmt.Errorf("error creating controller: %v", err)
		}
		cm.controllers = append(cm.controllers, controller)
	}

	return cm, nil
}

type controllerManager struct {
	ctx         context.Context
	wg          *sync.WaitGroup
	services    restserver.Services
	logger      *zap.SugaredLogger
	controllers []Controller
}

// StartControllers starts every controller. A REST server and a gRPC
// controller configured on the same address share one listener.
func (c *controllerManager) StartControllers() error {
	c.logger.Info("Starting controller manager...")

	byAddr := make(map[string][]Controller)
	var order []string
	for _, controller := range c.controllers {
		addr := controller.Addr()
		if _, seen := byAddr[addr]; !seen {
			order = append(order, addr)
		}
		byAddr[addr] = append(byAddr[addr], controller)
	}

	for _, addr := range order {
		group := byAddr[addr]
		if len(group) == 1 {
			if err := group[0].StartController(); err != nil {
				return fmt.Errorf("error starting controller: %v", err)
			}
			continue
		}
		if err := c.startShared(addr, group); err != nil {
			return err
		}
	}

	c.logger.Infof("Started %d controllers successfully", len(c.controllers))
	return nil
}

// startShared splits one listener between gRPC and HTTP traffic
func (c *controllerManager) startShared(addr string, group []Controller) error {
	rest, grpcCtl, err := splitShared(group)
	if err != nil {
		return fmt.Errorf("controllers on %s: %v", addr, err)
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("could not listen on %s: %v", addr, err)
	}

	m := cmux.New(l)
	grpcL := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpL := m.Match(cmux.Any())

	grpcCtl.ServeListener(grpcL)
	rest.ServeListener(httpL)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := m.Serve(); err != nil && !isClosedConnError(err) {
			c.logger.Errorf("connection multiplexer on %s: %v", addr, err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		l.Close()
	}()

	c.logger.Infof("REST and gRPC sharing %s", addr)
	return nil
}

func splitShared(group []Controller) (*restserver.Controller, *grpccontroller.Controller, error) {
	if len(group) != 2 {
		return nil, nil, fmt.Errorf("only one REST server and one gRPC controller may share an address")
	}

	var rest *restserver.Controller
	var grpcCtl *grpccontroller.Controller
	for _, ctl := range group {
		switch v := ctl.(type) {
		case *restserver.Controller:
			rest = v
		case *grpccontroller.Controller:
			grpcCtl = v
		}
	}
	if rest == nil || grpcCtl == nil {
		return nil, nil, fmt.Errorf("only one REST server and one gRPC controller may share an address")
	}
	if rest.UsesTLS() || grpcCtl.UsesTLS() {
		return nil, nil, fmt.Errorf("TLS is not supported on a shared address")
	}
	return rest, grpcCtl, nil
}

func isClosedConnError(err error) bool {
	return err == cmux.ErrListenerClosed || strings.Contains(err.Error(), "use of closed network connection")
}

// createController creates a controller based on the controller configuration
func (cm *controllerManager) createController(cc config.ControllerData) (Controller, error) {
	switch cc.Type {
	case "rest":
		if cc.RESTServer == nil {
			return nil, fmt.Errorf("rest controller has no rest section")
		}
		return restserver.NewController(cm.ctx, cm.wg, *cc.RESTServer, cm.services, cm.logger)
	case "grpc":
		if cc.GRPC == nil {
			return nil, fmt.Errorf("grpc controller has no grpc section")
		}
		return grpccontroller.NewController(cm.ctx, cm.wg, *cc.GRPC, cm.logger)
	default:
		return nil, fmt.Errorf("unknown controller type: %s", cc.Type)
	}
}
