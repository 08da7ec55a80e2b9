package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServiceName != "bazaar" {
		t.Fatalf("expected service bazaar, got %q", cfg.ServiceName)
	}
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("expected memory driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Worker.PollIntervalSeconds != 2 || cfg.Worker.BatchSize != 100 {
		t.Fatalf("unexpected worker defaults: %+v", cfg.Worker)
	}
	if !cfg.EnableEventStream {
		t.Fatal("expected event stream enabled by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/bazaar")
	t.Setenv("OPERATOR_ID", "bazaar-staging")
	t.Setenv("ENABLE_EVENT_STREAM", "off")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.HTTPPort)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.DSN != "postgres://localhost/bazaar" {
		t.Fatalf("unexpected storage: %+v", cfg.Storage)
	}
	if cfg.OperatorID != "bazaar-staging" {
		t.Fatalf("expected operator bazaar-staging, got %q", cfg.OperatorID)
	}
	if cfg.EnableEventStream {
		t.Fatal("expected event stream disabled")
	}
}

func TestLoadFileExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_BAZAAR_DSN", "postgres://db/market")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
service_name: bazaar-market
http_port: "8081"
storage:
  driver: postgres
  dsn: ${TEST_BAZAAR_DSN}
worker:
  poll_interval_seconds: 5
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if cfg.ServiceName != "bazaar-market" {
		t.Fatalf("expected bazaar-market, got %q", cfg.ServiceName)
	}
	if cfg.Storage.DSN != "postgres://db/market" {
		t.Fatalf("expected expanded dsn, got %q", cfg.Storage.DSN)
	}
	if cfg.Worker.PollIntervalSeconds != 5 {
		t.Fatalf("expected poll interval 5, got %d", cfg.Worker.PollIntervalSeconds)
	}
}

func TestLoadMergesFileUnderEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
http_port: "8081"
storage:
  driver: sqlite
  path: /tmp/bazaar.db
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("HTTP_PORT", "7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// Env wins over file, file wins over defaults.
	if cfg.HTTPPort != "7070" {
		t.Fatalf("expected env port 7070, got %q", cfg.HTTPPort)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.Path != "/tmp/bazaar.db" {
		t.Fatalf("unexpected storage: %+v", cfg.Storage)
	}
	if cfg.ServiceName != "bazaar" {
		t.Fatalf("expected default service name, got %q", cfg.ServiceName)
	}
}
