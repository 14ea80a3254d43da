package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all synoptic configuration.
type Config struct {
	// API is the clinical backend.
	API APIConfig `yaml:"api"`

	// Session persistence
	Session SessionConfig `yaml:"session"`

	// Voice input
	Voice VoiceConfig `yaml:"voice"`

	// UI settings
	UI UIConfig `yaml:"ui"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the REST client.
type APIConfig struct {
	BaseURL           string  `yaml:"base_url"`
	Timeout           string  `yaml:"timeout"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 disables limiting
	Burst             int     `yaml:"burst"`
}

// Session backends.
const (
	SessionBackendFile   = "file"
	SessionBackendSQLite = "sqlite"
)

// SessionConfig selects where the logged-in user is kept.
type SessionConfig struct {
	Backend string `yaml:"backend"` // file, sqlite
	Path    string `yaml:"path"`
}

// VoiceConfig configures voice commands.
type VoiceConfig struct {
	// Source is a file or FIFO that an external speech-to-text process writes
	// one utterance per line to. Empty disables voice input.
	Source   string `yaml:"source"`
	WakeWord string `yaml:"wake_word"`
}

// DefaultDir returns ~/.synoptic, or .synoptic when the home directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".synoptic"
	}
	return filepath.Join(home, ".synoptic")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	dir := DefaultDir()
	return &Config{
		API: APIConfig{
			BaseURL:           "http://localhost:5000",
			Timeout:           "30s",
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Session: SessionConfig{
			Backend: SessionBackendFile,
			Path:    filepath.Join(dir, "session.json"),
		},
		Voice: VoiceConfig{
			WakeWord: "synoptic",
		},
		UI: *DefaultUIConfig(),
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			Dir:       filepath.Join(dir, "logs"),
			DebugMode: false,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SYNOPTIC_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("SYNOPTIC_SESSION_BACKEND"); v != "" {
		c.Session.Backend = v
	}
	if v := os.Getenv("SYNOPTIC_VOICE_SOURCE"); v != "" {
		c.Voice.Source = v
	}
	if v := os.Getenv("SYNOPTIC_WAKE_WORD"); v != "" {
		c.Voice.WakeWord = v
	}
	if v := os.Getenv("SYNOPTIC_THEME"); v != "" {
		c.UI.Theme = v
	}
}

// GetAPITimeout returns the per-request timeout as a duration.
func (c *Config) GetAPITimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// ValidSessionBackends lists all supported session backends.
var ValidSessionBackends = []string{SessionBackendFile, SessionBackendSQLite}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api.base_url: %q", c.API.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url must be http or https, got %s", u.Scheme)
	}

	validBackend := false
	for _, b := range ValidSessionBackends {
		if c.Session.Backend == b {
			validBackend = true
			break
		}
	}
	if !validBackend {
		return fmt.Errorf("invalid session backend: %s (valid: %v)", c.Session.Backend, ValidSessionBackends)
	}
	if c.Session.Path == "" {
		return fmt.Errorf("session.path not configured")
	}

	if c.API.RequestsPerSecond < 0 {
		return fmt.Errorf("api.requests_per_second must not be negative")
	}
	if c.API.RequestsPerSecond > 0 && c.API.Burst < 1 {
		return fmt.Errorf("api.burst must be at least 1 when rate limiting is enabled")
	}

	if strings.ContainsAny(c.Voice.WakeWord, "*()") {
		return fmt.Errorf("voice.wake_word must be plain words, got %q", c.Voice.WakeWord)
	}

	if !ValidTheme(c.UI.Theme) {
		return fmt.Errorf("invalid ui.theme: %s (valid: %v)", c.UI.Theme, ValidThemes)
	}

	return nil
}

// IsVoiceConfigured returns whether a voice source is set.
func (c *Config) IsVoiceConfigured() bool {
	return c.Voice.Source != ""
}
