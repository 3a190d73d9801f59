package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rori/roriclient/internal/core"
)

// =============================================================================
// Default Config Tests
// =============================================================================

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.API.Port != 3000 {
		t.Errorf("API.Port = %d, want 3000", cfg.API.Port)
	}
	if cfg.API.Host != "localhost" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "localhost")
	}

	if cfg.Daemon.BusName != "cx.ring.Ring" {
		t.Errorf("Daemon.BusName = %q", cfg.Daemon.BusName)
	}
	if cfg.Daemon.CallTimeout.Duration != 2*time.Second {
		t.Errorf("Daemon.CallTimeout = %v, want 2s", cfg.Daemon.CallTimeout)
	}
	if cfg.Daemon.EventWait.Duration != 100*time.Millisecond {
		t.Errorf("Daemon.EventWait = %v, want 100ms", cfg.Daemon.EventWait)
	}

	if !cfg.Lookup.InsecureSkipVerify {
		t.Error("Lookup.InsecureSkipVerify should be true by default")
	}
	if !cfg.Sinks.ShellEnabled {
		t.Error("Sinks.ShellEnabled should be true by default")
	}
	if cfg.MDNS.Enabled {
		t.Error("MDNS.Enabled should be false by default")
	}

	if cfg.Bound() {
		t.Error("default config should not be bound")
	}
}

func TestDefault_LogLevelFromEnv(t *testing.T) {
	t.Setenv("RORI_LOG_LEVEL", "debug")

	cfg := Default()

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}

// =============================================================================
// Load Config Tests
// =============================================================================

func TestLoad_NonExistentFile(t *testing.T) {
	cfg, err := Load("/non/existent/path/config.json")

	if err != nil {
		t.Fatalf("Load() error = %v, want nil for non-existent file", err)
	}
	if cfg.API.Port != 3000 {
		t.Errorf("API.Port = %d, want 3000 (default)", cfg.API.Port)
	}
}

func TestLoad_HistoricalBootstrapKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
  "ring_id": "abc123",
  "rori_server": "rori.example.org:8080",
  "rori_ring_id": "deadbeef",
  "username": "bob"
}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.IdentityHandle != "abc123" {
		t.Errorf("IdentityHandle = %q", cfg.IdentityHandle)
	}
	if cfg.ServiceURL != "rori.example.org:8080" {
		t.Errorf("ServiceURL = %q", cfg.ServiceURL)
	}
	if cfg.ServiceAddress != "deadbeef" {
		t.Errorf("ServiceAddress = %q", cfg.ServiceAddress)
	}
	if cfg.Alias != "bob" {
		t.Errorf("Alias = %q", cfg.Alias)
	}
	if !cfg.Bound() {
		t.Error("config should be bound")
	}
	// Sections absent from the file keep their defaults.
	if cfg.API.Port != 3000 {
		t.Errorf("API.Port = %d, want default 3000", cfg.API.Port)
	}
}

func TestLoad_Durations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"daemon": {"call_timeout": "500ms", "event_wait": 50}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Daemon.CallTimeout.Duration != 500*time.Millisecond {
		t.Errorf("CallTimeout = %v, want 500ms", cfg.Daemon.CallTimeout)
	}
	if cfg.Daemon.EventWait.Duration != 50*time.Millisecond {
		t.Errorf("EventWait = %v, want 50ms", cfg.Daemon.EventWait)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() should fail on invalid JSON")
	}
}

// =============================================================================
// Save Config Tests
// =============================================================================

func TestSave_CreatesFileWithPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := Default()
	cfg.Alias = "bob"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}

	data, _ := os.ReadFile(path)
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("saved file is not JSON: %v", err)
	}
	if raw["username"] != "bob" {
		t.Errorf("username = %v, want bob", raw["username"])
	}
}

func TestLoadAndSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	original := Default()
	original.IdentityHandle = "h"
	original.ServiceURL = "https://rori.example.org"
	original.ServiceAddress = "addr"
	original.Alias = "alice"
	original.Sinks.ShellEnabled = false
	original.Daemon.EventWait = Duration{250 * time.Millisecond}

	if err := original.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.Alias != "alice" || loaded.ServiceAddress != "addr" {
		t.Errorf("bootstrap fields not preserved: %+v", loaded)
	}
	if loaded.Sinks.ShellEnabled {
		t.Error("ShellEnabled should round-trip as false")
	}
	if loaded.Daemon.EventWait.Duration != 250*time.Millisecond {
		t.Errorf("EventWait = %v, want 250ms", loaded.Daemon.EventWait)
	}
}

// =============================================================================
// Validation Tests
// =============================================================================

func TestValidate(t *testing.T) {
	bound := func() *Config {
		cfg := Default()
		cfg.IdentityHandle = "h"
		cfg.ServiceURL = "rori.example.org"
		cfg.ServiceAddress = "addr"
		cfg.Alias = "bob"
		return cfg
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		notConfig bool
	}{
		{"valid", func(*Config) {}, false, false},
		{"missing alias", func(c *Config) { c.Alias = "" }, true, true},
		{"missing handle", func(c *Config) { c.IdentityHandle = "" }, true, true},
		{"bad port", func(c *Config) { c.API.Port = 0 }, true, false},
		{"zero timeout", func(c *Config) { c.Daemon.CallTimeout = Duration{} }, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := bound()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.notConfig && !errors.Is(err, core.ErrNotConfigured) {
				t.Errorf("Validate() error = %v, want ErrNotConfigured", err)
			}
		})
	}
}

func TestAPIConfig_Addr(t *testing.T) {
	a := APIConfig{Host: "localhost", Port: 3000}
	if got := a.Addr(); got != "localhost:3000" {
		t.Errorf("Addr() = %q", got)
	}
}
