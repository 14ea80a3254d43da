package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.API.BaseURL != "http://localhost:5000" {
		t.Errorf("expected BaseURL=http://localhost:5000, got %s", cfg.API.BaseURL)
	}
	if cfg.Session.Backend != SessionBackendFile {
		t.Errorf("expected Backend=file, got %s", cfg.Session.Backend)
	}
	if cfg.Voice.WakeWord != "synoptic" {
		t.Errorf("expected WakeWord=synoptic, got %s", cfg.Voice.WakeWord)
	}
	if cfg.IsVoiceConfigured() {
		t.Error("voice should be off by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	clearSynopticEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://ehr.example.org"
	cfg.Session.Backend = SessionBackendSQLite
	cfg.Voice.Source = "/tmp/voice.fifo"
	cfg.Logging.Categories = map[string]bool{"voice": false}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.API.BaseURL != "https://ehr.example.org" {
		t.Errorf("expected BaseURL=https://ehr.example.org, got %s", loaded.API.BaseURL)
	}
	if loaded.Session.Backend != SessionBackendSQLite {
		t.Errorf("expected sqlite backend, got %s", loaded.Session.Backend)
	}
	if !loaded.IsVoiceConfigured() {
		t.Error("expected voice to be configured")
	}
	if loaded.Logging.IsCategoryEnabled("voice") {
		t.Error("voice logging should be disabled (and debug mode is off)")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearSynopticEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.Timeout != "30s" {
		t.Errorf("expected default timeout, got %s", cfg.API.Timeout)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearSynopticEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api:\n  base_url: http://10.0.0.5:8000\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.BaseURL != "http://10.0.0.5:8000" {
		t.Errorf("unexpected BaseURL %s", cfg.API.BaseURL)
	}
	if cfg.Voice.WakeWord != "synoptic" {
		t.Errorf("expected default wake word to survive, got %q", cfg.Voice.WakeWord)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestGetAPITimeout(t *testing.T) {
	cfg := DefaultConfig()

	cfg.API.Timeout = "5s"
	if got := cfg.GetAPITimeout(); got != 5*time.Second {
		t.Errorf("expected 5s, got %v", got)
	}

	cfg.API.Timeout = "soon"
	if got := cfg.GetAPITimeout(); got != 30*time.Second {
		t.Errorf("expected fallback 30s, got %v", got)
	}

	cfg.API.Timeout = "-1s"
	if got := cfg.GetAPITimeout(); got != 30*time.Second {
		t.Errorf("expected fallback for negative timeout, got %v", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative url", func(c *Config) { c.API.BaseURL = "localhost:5000" }},
		{"ftp url", func(c *Config) { c.API.BaseURL = "ftp://host" }},
		{"unknown backend", func(c *Config) { c.Session.Backend = "redis" }},
		{"empty session path", func(c *Config) { c.Session.Path = "" }},
		{"negative rate", func(c *Config) { c.API.RequestsPerSecond = -1 }},
		{"zero burst", func(c *Config) { c.API.Burst = 0 }},
		{"unknown theme", func(c *Config) { c.UI.Theme = "neon" }},
		{"wildcard wake word", func(c *Config) { c.Voice.WakeWord = "doc *" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	cfg := DefaultConfig()
	cfg.API.RequestsPerSecond = 0
	cfg.API.Burst = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("unlimited rate should not need a burst: %v", err)
	}
}

func TestLoggingConfig_ToLogging(t *testing.T) {
	lc := LoggingConfig{Level: "debug", Format: "json", DebugMode: true, Categories: map[string]bool{"api": true}}
	got := lc.ToLogging()
	if !got.DebugMode || !got.JSONFormat || got.Level != "debug" {
		t.Errorf("unexpected conversion: %+v", got)
	}
	if !lc.IsCategoryEnabled("routing") {
		t.Error("unspecified category should default to enabled")
	}
}

func TestUIConfig(t *testing.T) {
	if !DefaultUIConfig().IsDark() {
		t.Error("default theme should be dark")
	}
	if (UIConfig{Theme: "light"}).IsDark() {
		t.Error("light theme reported dark")
	}
}
