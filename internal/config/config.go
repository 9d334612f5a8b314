// Package config provides configuration management for the norse runtime.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment override, e.g. NORSE_TICK_HZ.
const EnvPrefix = "NORSE_"

// Config represents the application configuration
type Config struct {
	// Profile is the interaction profile bindings are suggested for
	Profile string `json:"profile" env:"PROFILE"`

	// QueueCapacity bounds the pending event queue (default: 1000)
	QueueCapacity int `json:"queue_capacity" env:"QUEUE_CAPACITY"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `json:"log_level" env:"LOG_LEVEL"`

	// UDPListen enables the UDP event receiver on this address (e.g. ":19090")
	UDPListen string `json:"udp_listen,omitempty" env:"UDP_LISTEN"`

	// WSURL enables the WebSocket event source (e.g. "ws://host:19091/events")
	WSURL string `json:"ws_url,omitempty" env:"WS_URL"`

	// RecordPath is the SQLite file drained events are recorded to (optional)
	RecordPath string `json:"record_path,omitempty" env:"RECORD_PATH"`

	// BindingsFile is a YAML file of action sets and bindings (optional)
	BindingsFile string `json:"bindings_file,omitempty" env:"BINDINGS_FILE"`

	// TickHz is how many times per second actions are synchronized
	TickHz int `json:"tick_hz" env:"TICK_HZ"`

	// APIListen enables the HTTP/WebSocket state server (e.g. "127.0.0.1:19092")
	APIListen string `json:"api_listen,omitempty" env:"API_LISTEN"`

	// APIToken, when set, is required as a Bearer token on every API request
	APIToken string `json:"api_token,omitempty" env:"API_TOKEN"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Profile:       "/interaction_profiles/norse/desktop",
		QueueCapacity: 1000,
		LogLevel:      "info",
		TickHz:        60,
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Profile == "" {
		errs = append(errs, errors.New("profile is required"))
	}
	if c.QueueCapacity <= 0 {
		errs = append(errs, fmt.Errorf("queue_capacity must be positive, got %d", c.QueueCapacity))
	}
	if c.TickHz <= 0 || c.TickHz > 1000 {
		errs = append(errs, fmt.Errorf("tick_hz must be in 1..1000, got %d", c.TickHz))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// ApplyEnv overrides fields from NORSE_* environment variables. Unset
// variables leave the field untouched.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ApplyEnvFrom is ApplyEnv over an explicit environment.
func ApplyEnvFrom(cfg *Config, environ map[string]string) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	onChanged  func(Config)
}

// NewManager creates a configuration manager for the per-user config file
func NewManager() (*Manager, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return NewManagerAt(configPath), nil
}

// NewManagerAt creates a configuration manager for an explicit file
func NewManagerAt(path string) *Manager {
	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}
}

// getConfigPath returns the path to the configuration file
func getConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "norse")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "norse")
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", "norse")
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// Path returns the config file location
func (m *Manager) Path() string {
	return m.configPath
}

// Load reads the configuration from disk, then applies environment
// overrides. A missing file keeps the defaults.
func (m *Manager) Load() error {
	m.mu.Lock()

	cfg := *m.config
	data, err := os.ReadFile(m.configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		m.mu.Unlock()
		return fmt.Errorf("read config: %w", err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("parse config %s: %w", m.configPath, err)
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		m.mu.Unlock()
		return err
	}
	if err := cfg.Validate(); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("invalid config: %w", err)
	}
	m.config = &cfg
	fn := m.onChanged
	m.mu.Unlock()

	if fn != nil {
		fn(cfg)
	}
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}

	slog.Info("Config: saving configuration", "path", m.configPath, "bytes", len(data))
	return os.WriteFile(m.configPath, data, 0644)
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.config
}

// Set updates the configuration
func (m *Manager) Set(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	m.mu.Lock()
	m.config = &cfg
	fn := m.onChanged
	m.mu.Unlock()
	if fn != nil {
		fn(cfg)
	}
	return nil
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func(Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}
