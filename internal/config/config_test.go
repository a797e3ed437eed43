package config

import (
	"os"
	"path/filepath"
	"testing"

	abierrors "abicompat/internal/errors"
)

func writeConfig(t *testing.T, root, content string) {
	t.Helper()
	dir := filepath.Join(root, ".abicompat")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create .abicompat dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, CurrentVersion)
	}
	if cfg.Report.Format != "text" {
		t.Errorf("Report.Format = %q, want text", cfg.Report.Format)
	}
	if cfg.Report.FailOn != "breaking" {
		t.Errorf("Report.FailOn = %q, want breaking", cfg.Report.FailOn)
	}
	if cfg.Rules.UnfinalizePolicy != "warning" {
		t.Errorf("Rules.UnfinalizePolicy = %q, want warning", cfg.Rules.UnfinalizePolicy)
	}
	if cfg.History.Enabled {
		t.Error("History should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		field   string
		wantErr bool
	}{
		{"defaults", func(*Config) {}, "", false},
		{"version 2 unsupported", func(c *Config) { c.Version = 2 }, "version", true},
		{"negative workers", func(c *Config) { c.Engine.Workers = -1 }, "engine.workers", true},
		{"bad unfinalize policy", func(c *Config) { c.Rules.UnfinalizePolicy = "fatal" }, "rules.unfinalizePolicy", true},
		{"uppercase policy", func(c *Config) { c.Rules.UnfinalizePolicy = "Breaking" }, "", false},
		{"bad format", func(c *Config) { c.Report.Format = "xml" }, "report.format", true},
		{"human format", func(c *Config) { c.Report.Format = "human" }, "", false},
		{"bad fail-on", func(c *Config) { c.Report.FailOn = "safe" }, "report.failOn", true},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level", true},
		{"negative backups", func(c *Config) { c.Logging.MaxBackups = -1 }, "logging", true},
		{"absolute scope", func(c *Config) { c.Scope.Include = []string{"/usr/include/**"} }, "scope", true},
		{"empty scope", func(c *Config) { c.Scope.Exclude = []string{" "} }, "scope", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr != (err != nil) {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				ce, ok := err.(*ConfigError)
				if !ok {
					t.Fatalf("Validate() error type = %T, want *ConfigError", err)
				}
				if ce.Field != tt.field {
					t.Errorf("Field = %q, want %q", ce.Field, tt.field)
				}
			}
		})
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "version", Message: "unsupported config version 99"}
	want := "config error in field 'version': unsupported config version 99"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestLoadConfig_Default(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d (default)", cfg.Version, CurrentVersion)
	}
	if cfg.Logging.MaxBackups != 3 {
		t.Errorf("Logging.MaxBackups = %d, want 3", cfg.Logging.MaxBackups)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `{
		"version": 1,
		"engine": {"workers": 4, "includePrivate": true},
		"rules": {"path": "abi-rules.toml"},
		"scope": {"include": ["include/**"], "exclude": ["include/detail/**"]},
		"report": {"failOn": "warning"},
		"history": {"enabled": true}
	}`)

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Engine.Workers != 4 || !cfg.Engine.IncludePrivate {
		t.Errorf("Engine = %+v, want workers 4 and includePrivate", cfg.Engine)
	}
	if cfg.Report.FailOn != "warning" {
		t.Errorf("Report.FailOn = %q, want warning", cfg.Report.FailOn)
	}
	// Unset keys keep their defaults.
	if cfg.Report.Format != "text" {
		t.Errorf("Report.Format = %q, want text", cfg.Report.Format)
	}
	if cfg.Rules.UnfinalizePolicy != "warning" {
		t.Errorf("Rules.UnfinalizePolicy = %q, want warning", cfg.Rules.UnfinalizePolicy)
	}
	if len(cfg.Scope.Include) != 1 || cfg.Scope.Include[0] != "include/**" {
		t.Errorf("Scope.Include = %v", cfg.Scope.Include)
	}
	if !cfg.History.Enabled {
		t.Error("History should be enabled per config")
	}
	if got, want := cfg.RulesPath(root), filepath.Join(root, "abi-rules.toml"); got != want {
		t.Errorf("RulesPath() = %q, want %q", got, want)
	}
	if got, want := cfg.HistoryPath(root), filepath.Join(root, ".abicompat", "history.db"); got != want {
		t.Errorf("HistoryPath() = %q, want %q", got, want)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("ABICOMPAT_REPORT_FORMAT", "json")
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Report.Format != "json" {
		t.Errorf("Report.Format = %q, want json from environment", cfg.Report.Format)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", `{"version": 1,`},
		{"version", `{"version": 9}`},
		{"fail-on", `{"version": 1, "report": {"failOn": "never"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeConfig(t, root, tt.content)
			_, err := LoadConfig(root)
			if !abierrors.Is(err, abierrors.ConfigInvalid) {
				t.Errorf("LoadConfig() error = %v, want CONFIG_INVALID", err)
			}
		})
	}
}

func TestConfig_Save(t *testing.T) {
	root := t.TempDir()

	cfg := DefaultConfig()
	cfg.Engine.Workers = 8
	cfg.Logging.File = "logs/run.log"
	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.Engine.Workers != 8 {
		t.Errorf("Engine.Workers = %d, want 8", loaded.Engine.Workers)
	}
	if got, want := loaded.LogPath(root), filepath.Join(root, "logs", "run.log"); got != want {
		t.Errorf("LogPath() = %q, want %q", got, want)
	}
	if DefaultConfig().LogPath(root) != "" {
		t.Error("LogPath() should be empty when file logging is off")
	}
}
