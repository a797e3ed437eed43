package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	abierrors "abicompat/internal/errors"
	"abicompat/internal/paths"
)

// CurrentVersion is the config schema version this build understands.
const CurrentVersion = 1

// Config represents the complete abicompat configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Engine  EngineConfig  `json:"engine" mapstructure:"engine"`
	Rules   RulesConfig   `json:"rules" mapstructure:"rules"`
	Scope   ScopeConfig   `json:"scope" mapstructure:"scope"`
	Report  ReportConfig  `json:"report" mapstructure:"report"`
	History HistoryConfig `json:"history" mapstructure:"history"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// EngineConfig tunes the comparison pipeline
type EngineConfig struct {
	// Workers bounds concurrent symbol evaluation; 0 means one per CPU.
	Workers        int  `json:"workers" mapstructure:"workers"`
	IncludePrivate bool `json:"includePrivate" mapstructure:"includePrivate"`
}

// RulesConfig selects the rule table
type RulesConfig struct {
	// Path is a TOML rule table; empty means the built-in table.
	Path             string `json:"path" mapstructure:"path"`
	UnfinalizePolicy string `json:"unfinalizePolicy" mapstructure:"unfinalizePolicy"`
}

// ScopeConfig restricts comparisons to matching header paths
type ScopeConfig struct {
	Include []string `json:"include" mapstructure:"include"`
	Exclude []string `json:"exclude" mapstructure:"exclude"`
}

// ReportConfig contains report defaults
type ReportConfig struct {
	Format string `json:"format" mapstructure:"format"`
	FailOn string `json:"failOn" mapstructure:"failOn"`
}

// HistoryConfig controls the run history store
type HistoryConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	File       string `json:"file" mapstructure:"file"`
	MaxSizeMB  int    `json:"maxSizeMB" mapstructure:"maxSizeMB"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Engine: EngineConfig{
			Workers: 0,
		},
		Rules: RulesConfig{
			UnfinalizePolicy: "warning",
		},
		Scope: ScopeConfig{
			Include: []string{},
			Exclude: []string{},
		},
		Report: ReportConfig{
			Format: "text",
			FailOn: "breaking",
		},
		History: HistoryConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level:      "warn",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// setDefaults registers every default so partial config files and
// environment variables merge over them.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("engine.workers", d.Engine.Workers)
	v.SetDefault("engine.includePrivate", d.Engine.IncludePrivate)
	v.SetDefault("rules.path", d.Rules.Path)
	v.SetDefault("rules.unfinalizePolicy", d.Rules.UnfinalizePolicy)
	v.SetDefault("scope.include", d.Scope.Include)
	v.SetDefault("scope.exclude", d.Scope.Exclude)
	v.SetDefault("report.format", d.Report.Format)
	v.SetDefault("report.failOn", d.Report.FailOn)
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSizeMB", d.Logging.MaxSizeMB)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
}

// LoadConfig loads configuration from <root>/.abicompat/config.json.
// ABICOMPAT_* environment variables (e.g. ABICOMPAT_REPORT_FAILON)
// override file values. A missing file yields the defaults.
func LoadConfig(root string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(paths.StateDir(root))

	v.SetEnvPrefix("ABICOMPAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, abierrors.New(abierrors.ConfigInvalid,
				fmt.Sprintf("cannot read %s", paths.ConfigPath(root)), err, nil)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, abierrors.New(abierrors.ConfigInvalid, "cannot decode configuration", err, nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, abierrors.New(abierrors.ConfigInvalid, err.Error(), err, nil)
	}
	return &cfg, nil
}

// Save writes the configuration to <root>/.abicompat/config.json
func (c *Config) Save(root string) error {
	if _, err := paths.EnsureStateDir(root); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(paths.ConfigPath(root), data, 0o644)
}

// HistoryPath returns the history database path, resolved against root.
func (c *Config) HistoryPath(root string) string {
	return paths.Resolve(root, c.History.Path, paths.HistoryPath(root))
}

// LogPath returns the log file path resolved against root, or "" when
// file logging is off.
func (c *Config) LogPath(root string) string {
	if c.Logging.File == "" {
		return ""
	}
	return paths.Resolve(root, c.Logging.File, "")
}

// RulesPath returns the rule table path resolved against root, or "".
func (c *Config) RulesPath(root string) string {
	if c.Rules.Path == "" {
		return ""
	}
	return paths.Resolve(root, c.Rules.Path, "")
}

var (
	severities   = []string{"safe", "warning", "breaking"}
	failOnValues = []string{"breaking", "warning"}
	formats      = []string{"json", "text", "human"}
	levels       = []string{"debug", "info", "warn", "warning", "error"}
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}
	if c.Engine.Workers < 0 {
		return &ConfigError{Field: "engine.workers", Message: "must not be negative"}
	}
	if !oneOf(c.Rules.UnfinalizePolicy, severities) {
		return &ConfigError{Field: "rules.unfinalizePolicy", Message: "must be one of " + strings.Join(severities, ", ")}
	}
	if !oneOf(c.Report.Format, formats) {
		return &ConfigError{Field: "report.format", Message: "must be one of " + strings.Join(formats, ", ")}
	}
	if !oneOf(c.Report.FailOn, failOnValues) {
		return &ConfigError{Field: "report.failOn", Message: "must be one of " + strings.Join(failOnValues, ", ")}
	}
	if c.Logging.Level != "" && !oneOf(c.Logging.Level, levels) {
		return &ConfigError{Field: "logging.level", Message: "unknown level " + c.Logging.Level}
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 {
		return &ConfigError{Field: "logging", Message: "rotation limits must not be negative"}
	}
	for _, p := range append(append([]string{}, c.Scope.Include...), c.Scope.Exclude...) {
		if strings.TrimSpace(p) == "" || filepath.IsAbs(p) {
			return &ConfigError{Field: "scope", Message: fmt.Sprintf("pattern %q must be a non-empty relative glob", p)}
		}
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	v = strings.ToLower(v)
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
