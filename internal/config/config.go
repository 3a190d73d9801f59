// Package config handles RORI client configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rori/roriclient/internal/core"
)

// DefaultPath is where the bootstrap configuration lives when no path is given.
const DefaultPath = "config.json"

// Config holds all configuration
type Config struct {
	// Bootstrap binding. Key names match the historical config.json layout.
	IdentityHandle string `json:"ring_id"`      // Daemon account handle
	ServiceURL     string `json:"rori_server"`  // Lookup service base URL
	ServiceAddress string `json:"rori_ring_id"` // Network address of the remote service peer
	Alias          string `json:"username"`     // Alias registered with the service

	// Remote control / surface API
	API APIConfig `json:"api"`

	// Services
	Daemon DaemonConfig `json:"daemon"`
	Lookup LookupConfig `json:"lookup"`

	// External sinks
	Sinks SinkConfig `json:"sinks"`

	// LAN advertisement
	MDNS MDNSConfig `json:"mdns"`

	LogLevel string `json:"log_level"`
}

// APIConfig for the remote-control HTTP server
type APIConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Addr returns host:port.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// DaemonConfig for the local daemon control plane
type DaemonConfig struct {
	BusName     string   `json:"bus_name"`
	ObjectPath  string   `json:"object_path"`
	Interface   string   `json:"interface"`
	CallTimeout Duration `json:"call_timeout"`
	EventWait   Duration `json:"event_wait"`
}

// LookupConfig for the remote name-resolution service
type LookupConfig struct {
	Timeout            Duration `json:"timeout"`
	InsecureSkipVerify bool     `json:"insecure_skip_verify"`
}

// SinkConfig names the commands run for inbound interactions.
// Each command is an argv prefix; the interaction body is appended.
type SinkConfig struct {
	MediaCommand  []string `json:"media_command"`
	AlarmCommand  []string `json:"alarm_command"`
	ShellCommand  []string `json:"shell_command"`
	ShellEnabled  bool     `json:"shell_enabled"`
	SpeechCommand []string `json:"speech_command"` // "{text}" is replaced by the utterance
	SpeechPoll    Duration `json:"speech_poll"`
}

// MDNSConfig for advertising the remote-control API on the LAN
type MDNSConfig struct {
	Enabled bool   `json:"enabled"`
	Service string `json:"service"`
	Domain  string `json:"domain"`
}

// Duration is a time.Duration that reads and writes as a Go duration string.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Accept plain milliseconds too.
		var ms int64
		if err2 := json.Unmarshal(data, &ms); err2 != nil {
			return fmt.Errorf("invalid duration %s", string(data))
		}
		d.Duration = time.Duration(ms) * time.Millisecond
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		API: APIConfig{
			Host: "localhost",
			Port: 3000,
		},
		Daemon: DaemonConfig{
			BusName:     "cx.ring.Ring",
			ObjectPath:  "/cx/ring/Ring/ConfigurationManager",
			Interface:   "cx.ring.Ring.ConfigurationManager",
			CallTimeout: Duration{2000 * time.Millisecond},
			EventWait:   Duration{100 * time.Millisecond},
		},
		Lookup: LookupConfig{
			Timeout:            Duration{5 * time.Second},
			InsecureSkipVerify: true,
		},
		Sinks: SinkConfig{
			MediaCommand:  []string{"python3", "scripts/music.py"},
			AlarmCommand:  []string{"python3", "scripts/alarm.py"},
			ShellCommand:  []string{"sh", "-c"},
			ShellEnabled:  true,
			SpeechCommand: []string{"mimic", "-t", "{text}", "-voice", "slt"},
			SpeechPoll:    Duration{200 * time.Millisecond},
		},
		MDNS: MDNSConfig{
			Enabled: false,
			Service: "_rori-client._tcp",
			Domain:  "local.",
		},
		LogLevel: envOr("RORI_LOG_LEVEL", "info"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load loads config from file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("incorrect config file %s: %w", path, err)
	}

	// Env wins over the file
	if level := os.Getenv("RORI_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return cfg, nil
}

// Save saves config to file
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Bound reports whether the four bootstrap fields are set.
func (c *Config) Bound() bool {
	return c.IdentityHandle != "" && c.ServiceURL != "" && c.ServiceAddress != "" && c.Alias != ""
}

// Validate checks the configuration is usable by the run command.
func (c *Config) Validate() error {
	var missing []string
	if c.IdentityHandle == "" {
		missing = append(missing, "ring_id")
	}
	if c.ServiceURL == "" {
		missing = append(missing, "rori_server")
	}
	if c.ServiceAddress == "" {
		missing = append(missing, "rori_ring_id")
	}
	if c.Alias == "" {
		missing = append(missing, "username")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", core.ErrNotConfigured, strings.Join(missing, ", "))
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid api port %d", c.API.Port)
	}
	if c.Daemon.CallTimeout.Duration <= 0 {
		return fmt.Errorf("daemon call_timeout must be positive")
	}
	if c.Daemon.EventWait.Duration <= 0 {
		return fmt.Errorf("daemon event_wait must be positive")
	}
	return nil
}
