package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chrissnell/rhythmanchor/internal/coach"
	"github.com/chrissnell/rhythmanchor/internal/controllers/restserver"
	"github.com/chrissnell/rhythmanchor/internal/credentials"
	"github.com/chrissnell/rhythmanchor/internal/engine"
	"github.com/chrissnell/rhythmanchor/internal/events"
	"github.com/chrissnell/rhythmanchor/internal/managers"
	"github.com/chrissnell/rhythmanchor/internal/session"
	"github.com/chrissnell/rhythmanchor/pkg/config"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// LoadConfig reads the configuration, applies defaults and validates it.
// An API key in the environment overrides the configured one.
func (a *App) LoadConfig() (*config.ConfigData, error) {
	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %v", err)
	}
	cfg.ApplyDefaults()

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.Coach.APIKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}
	return cfg, nil
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := a.LoadConfig()
	if err != nil {
		return err
	}

	// Fit the anomaly model once; it is shared read-only by every request
	eng, err := engine.New(engine.ConfigFromScoring(cfg.Scoring), a.logger)
	if err != nil {
		return err
	}

	users, err := credentials.New(ctx, cfg.Credentials, a.logger)
	if err != nil {
		return err
	}
	defer users.Close()

	publisher := events.New(cfg.Events, a.logger)
	defer publisher.Close()

	if cfg.Coach.APIKey == "" {
		a.logger.Warn("no coach API key configured; chat replies will explain how to set one")
	}

	svc := restserver.Services{
		Engine:   eng,
		Users:    users,
		Sessions: session.NewManager(),
		Coach:    coach.NewGeminiClient(cfg.Coach, a.logger),
		Events:   publisher,
	}

	// Initialize the controller manager
	cm, err := managers.NewControllerManager(ctx, &wg, cfg, svc, a.logger)
	if err != nil {
		return err
	}
	err = cm.StartControllers()
	if err != nil {
		return err
	}

	a.logger.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	// Wait for shutdown signal
	select {
	case <-sigs:
		a.logger.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		a.logger.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	a.logger.Info("waiting for all workers to terminate...")
	wg.Wait()
	a.logger.Info("shutdown complete")

	return nil
}
