package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corral.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	yaml := `
listen: ":9999"
version: "3.9.1"
database_url: postgres://localhost/corral
backend_timeout: 10s
bus:
  url: nats://bus:4222
`
	cfg, err := Load(writeTemp(t, yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Listen != ":9999" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.Version != "3.9.1" {
		t.Errorf("version = %q", cfg.Version)
	}
	if cfg.BackendTimeout != 10*time.Second {
		t.Errorf("backend_timeout = %v", cfg.BackendTimeout)
	}
	if cfg.Bus.URL != "nats://bus:4222" {
		t.Errorf("bus url = %q", cfg.Bus.URL)
	}
}

func TestDefaultsApplied(t *testing.T) {
	cfg, err := Load(writeTemp(t, `version: "3.9.1"`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Listen != ":8585" {
		t.Errorf("default listen = %q", cfg.Listen)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("default log_level = %q", cfg.LogLevel)
	}
	if cfg.BackendTimeout != 30*time.Second {
		t.Errorf("default backend_timeout = %v", cfg.BackendTimeout)
	}
	if cfg.StatusTTL != 15*time.Second {
		t.Errorf("default status_ttl = %v", cfg.StatusTTL)
	}
	if cfg.ConflictRetries != 3 {
		t.Errorf("default conflict_retries = %d", cfg.ConflictRetries)
	}
	if cfg.Bus.URL != "nats://localhost:4222" {
		t.Errorf("default bus url = %q", cfg.Bus.URL)
	}
	if cfg.Bus.MaxReconnects != -1 {
		t.Errorf("default max_reconnects = %d", cfg.Bus.MaxReconnects)
	}
}

func TestVersionRequired(t *testing.T) {
	if _, err := Load(writeTemp(t, `listen: ":8585"`)); err == nil {
		t.Fatal("expected error for missing version")
	}
}

func TestVersionMustBeNumeric(t *testing.T) {
	if _, err := Load(writeTemp(t, `version: "v3.banana"`)); err == nil {
		t.Fatal("expected error for malformed version")
	}
}

func TestUnknownLogLevelRejected(t *testing.T) {
	yaml := `
version: "3.9.1"
log_level: loud
`
	if _, err := Load(writeTemp(t, yaml)); err == nil {
		t.Fatal("expected error for unknown log_level")
	}
}

func TestNegativeTimeoutRejected(t *testing.T) {
	yaml := `
version: "3.9.1"
backend_timeout: -5s
`
	if _, err := Load(writeTemp(t, yaml)); err == nil {
		t.Fatal("expected error for negative backend_timeout")
	}
}

func TestMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
