package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chrissnell/rhythmanchor/pkg/config"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, body string) config.ConfigProvider {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return config.NewYAMLProvider(path)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-env")

	a := New(writeConfig(t, "coach:\n  api-key: from-file\n"), zap.NewNop().Sugar())
	cfg, err := a.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Coach.APIKey != "from-env" {
		t.Errorf("api key = %q", cfg.Coach.APIKey)
	}
	if cfg.Scoring.Trees != config.DefaultTrees {
		t.Errorf("defaults not applied: %+v", cfg.Scoring)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	a := New(writeConfig(t, "credentials:\n  backend: ldap\n"), zap.NewNop().Sugar())
	if _, err := a.LoadConfig(); err == nil {
		t.Error("expected an error for an unknown credentials backend")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	a := New(writeConfig(t, "scoring:\n  baseline-days: 20\n"), zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
