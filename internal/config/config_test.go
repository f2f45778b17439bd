package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvAPI, "")
	t.Setenv(EnvToken, "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.FocusMinutes != 25 || cfg.TickInterval != time.Second {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv(EnvAPI, "")
	t.Setenv(EnvToken, "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("api_addr: http://example.test\nfocus_minutes: 50\ntick_interval: 500ms\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.APIAddr != "http://example.test" || cfg.FocusMinutes != 50 || cfg.TickInterval != 500*time.Millisecond {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	if cfg.ListenAddr != "127.0.0.1:7466" {
		t.Errorf("Expected default listen address to survive, got %q", cfg.ListenAddr)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvAPI, "http://override.test")
	t.Setenv(EnvToken, "secret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.APIAddr != "http://override.test" || cfg.Token != "secret" {
		t.Errorf("Expected env overrides, got %+v", cfg)
	}
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv(EnvAPI, "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("focus_minutes: 0\n"), 0o600)

	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected validation error")
	}

	os.WriteFile(path, []byte("focus_minutes: [\n"), 0o600)
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv(EnvAPI, "")
	t.Setenv(EnvToken, "")

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.FocusMinutes = 45
	cfg.TickInterval = 2 * time.Second

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if got.FocusMinutes != 45 || got.TickInterval != 2*time.Second {
		t.Errorf("Unexpected config after save: %+v", got)
	}
	if err := SaveConfig(path, nil); err == nil {
		t.Error("Expected error saving nil config")
	}
}
