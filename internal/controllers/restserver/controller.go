package restserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/rhythmanchor/internal/coach"
	"github.com/chrissnell/rhythmanchor/internal/credentials"
	"github.com/chrissnell/rhythmanchor/internal/engine"
	"github.com/chrissnell/rhythmanchor/internal/events"
	"github.com/chrissnell/rhythmanchor/internal/session"
	"github.com/chrissnell/rhythmanchor/pkg/config"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Services are the collaborators the REST server hands requests to
type Services struct {
	Engine   *engine.Engine
	Users    credentials.Store
	Sessions *session.Manager
	Coach    coach.Responder
	Events   events.Publisher
}

// Controller represents the REST server controller
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	restConfig config.RESTServerData
	Server     http.Server
	services   Services
	logger     *zap.SugaredLogger
	handlers   *Handlers
	now        func() time.Time
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, rc config.RESTServerData, svc Services, logger *zap.SugaredLogger) (*Controller, error) {
	if svc.Engine == nil || svc.Users == nil || svc.Sessions == nil {
		return nil, fmt.Errorf("REST server requires an engine, a credential store and a session manager")
	}
	if svc.Coach == nil {
		return nil, fmt.Errorf("REST server requires a coach")
	}
	if svc.Events == nil {
		svc.Events = events.NoopPublisher{}
	}

	// If a ListenAddr was not provided, listen on all interfaces
	if rc.ListenAddr == "" {
		logger.Info("rest.listen_addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		rc.ListenAddr = "0.0.0.0"
	}

	if rc.Port == 0 {
		logger.Infof("rest.port not provided; defaulting to %d", config.DefaultRESTPort)
		rc.Port = config.DefaultRESTPort
	}

	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		restConfig: rc,
		services:   svc,
		logger:     logger,
		now:        time.Now,
	}
	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.ListenAddr, rc.Port)
	ctrl.Server.Handler = ctrl.Handler()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// Handler returns the fully wrapped router
func (c *Controller) Handler() http.Handler {
	var h http.Handler = c.setupRouter()

	if c.restConfig.EnableCORS {
		h = handlers.CORS(
			handlers.AllowedOrigins([]string{"*"}),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type", SessionHeader}),
		)(h)
	}

	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{c.logger}),
		handlers.PrintRecoveryStack(true),
	)(h)
}

// Addr returns the address the server listens on when it owns its listener
func (c *Controller) Addr() string {
	return c.Server.Addr
}

// StartController starts the REST server on its own listener
func (c *Controller) StartController() error {
	c.logger.Infof("Starting REST server controller on %s...", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if c.restConfig.Cert != "" && c.restConfig.Key != "" {
			if err := c.Server.ListenAndServeTLS(c.restConfig.Cert, c.restConfig.Key); err != http.ErrServerClosed {
				c.logger.Errorf("REST server error: %v", err)
			}
		} else {
			if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
				c.logger.Errorf("REST server error: %v", err)
			}
		}
	}()

	c.shutdownOnDone()
	return nil
}

// ServeListener serves plain HTTP on a listener owned by someone else,
// such as one side of a connection multiplexer.
func (c *Controller) ServeListener(l net.Listener) {
	c.logger.Infof("Starting REST server controller on shared listener %s...", l.Addr())
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		if err := c.Server.Serve(l); err != nil && err != http.ErrServerClosed {
			c.logger.Errorf("REST server error: %v", err)
		}
	}()

	c.shutdownOnDone()
}

func (c *Controller) shutdownOnDone() {
	go func() {
		<-c.ctx.Done()
		c.logger.Info("Shutting down the REST server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Server.Shutdown(ctx)
	}()
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(c.requestLogMiddleware)

	router.HandleFunc("/healthz", c.handlers.Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()

	// Open endpoints
	api.HandleFunc("/signin", c.handlers.SignIn).Methods(http.MethodPost)
	api.HandleFunc("/signup", c.handlers.SignUp).Methods(http.MethodPost)
	api.HandleFunc("/stability", c.handlers.Stability).Methods(http.MethodPost)
	api.HandleFunc("/doomscroll", c.handlers.Doomscroll).Methods(http.MethodPost)

	// Endpoints that need a session
	authed := api.NewRoute().Subrouter()
	authed.Use(c.sessionMiddleware)
	authed.HandleFunc("/signout", c.handlers.SignOut).Methods(http.MethodPost)
	authed.HandleFunc("/profile", c.handlers.GetProfile).Methods(http.MethodGet)
	authed.HandleFunc("/profile", c.handlers.UpdateProfile).Methods(http.MethodPut)
	authed.HandleFunc("/evaluate", c.handlers.Evaluate).Methods(http.MethodPost)
	authed.HandleFunc("/history", c.handlers.SaveHistory).Methods(http.MethodPost)
	authed.HandleFunc("/history", c.handlers.GetHistory).Methods(http.MethodGet)
	authed.HandleFunc("/chat", c.handlers.GetChat).Methods(http.MethodGet)
	authed.HandleFunc("/chat", c.handlers.PostChat).Methods(http.MethodPost)
	authed.HandleFunc("/requests", c.handlers.GetRequestLog).Methods(http.MethodGet)

	return router
}

type recoveryLogger struct {
	logger *zap.SugaredLogger
}

func (r recoveryLogger) Println(args ...interface{}) {
	r.logger.Error(args...)
}

// UsesTLS reports whether a certificate was configured
func (c *Controller) UsesTLS() bool {
	return c.restConfig.Cert != "" && c.restConfig.Key != ""
}
