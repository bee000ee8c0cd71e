// Package config provides configuration management for xwatch.
//
// Configuration is loaded from three sources with the following precedence
// (highest to lowest):
//  1. CLI flags
//  2. Environment variables (XWATCH_ prefix)
//  3. Config file (.xwatch.yaml)
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Supported log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Supported log formats. Auto picks text on a terminal and JSON otherwise.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
	LogFormatAuto = "auto"
)

// Watch defaults.
const (
	DefaultDebounceMS  = 50
	DefaultGracePeriod = 2 * time.Second
)

// Config represents the global configuration for xwatch.
type Config struct {
	// LogLevel controls the verbosity of log output.
	// Valid values: debug, info, warn, error.
	LogLevel string `mapstructure:"log-level" json:"logLevel"`

	// LogFormat controls the format of log output.
	// Valid values: text, json, auto.
	LogFormat string `mapstructure:"log-format" json:"logFormat"`

	// NoColor disables colored output.
	NoColor bool `mapstructure:"no-color" json:"noColor"`

	// Quiet suppresses all log output below error level.
	Quiet bool `mapstructure:"quiet" json:"quiet"`

	// WatchPaths are the directories to watch. Empty means the workspace
	// root.
	WatchPaths []string `mapstructure:"watch-paths" json:"watchPaths"`

	// IgnoredRules are glob rules for paths whose changes are ignored. Nil
	// selects the built-in rules (VCS metadata and ./bin).
	IgnoredRules []string `mapstructure:"ignored-rules" json:"ignoredRules"`

	// ExcludePaths are paths ignored together with everything below them.
	ExcludePaths []string `mapstructure:"exclude-paths" json:"excludePaths"`

	// DebounceMS is the quiet period in milliseconds before a restart.
	DebounceMS int `mapstructure:"debounce-ms" json:"debounceMs"`

	// NoClear suppresses clearing the terminal on restart.
	NoClear bool `mapstructure:"no-clear" json:"noClear"`

	// GracePeriod is how long a stopped command may take to exit before it
	// is killed.
	GracePeriod time.Duration `mapstructure:"grace-period" json:"gracePeriod"`

	// Command is the command line run when none is given on the command
	// line, split on whitespace.
	Command string `mapstructure:"command" json:"command"`

	// ConfigFile is the resolved path to the config file used.
	// Set after Load(), not read from config itself.
	ConfigFile string `mapstructure:"-" json:"-"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LogLevel:    LogLevelInfo,
		LogFormat:   LogFormatText,
		DebounceMS:  DefaultDebounceMS,
		GracePeriod: DefaultGracePeriod,
	}
}

// Validate checks that all config values are valid.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		// valid
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON, LogFormatAuto:
		// valid
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json, auto", c.LogFormat)
	}

	if c.DebounceMS <= 0 {
		return fmt.Errorf("invalid debounce-ms %d: must be positive", c.DebounceMS)
	}

	if c.GracePeriod <= 0 {
		return fmt.Errorf("invalid grace-period %s: must be positive", c.GracePeriod)
	}

	return nil
}

// EffectiveLogLevel returns the log level to use. When Quiet is true the log
// level is overridden to "error" regardless of the configured LogLevel.
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}

	return c.LogLevel
}

// Debounce returns DebounceMS as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// CommandLine splits Command into program and arguments.
func (c *Config) CommandLine() []string {
	return strings.Fields(c.Command)
}

// fileConfig is the layout of .xwatch.yaml.
type fileConfig struct {
	LogLevel     string   `yaml:"log-level"`
	LogFormat    string   `yaml:"log-format"`
	NoColor      bool     `yaml:"no-color"`
	Quiet        bool     `yaml:"quiet"`
	WatchPaths   []string `yaml:"watch-paths,omitempty"`
	IgnoredRules []string `yaml:"ignored-rules,omitempty"`
	ExcludePaths []string `yaml:"exclude-paths,omitempty"`
	DebounceMS   int      `yaml:"debounce-ms"`
	NoClear      bool     `yaml:"no-clear"`
	GracePeriod  string   `yaml:"grace-period"`
	Command      string   `yaml:"command,omitempty"`
}

// YAML renders c in the config file format, so the output can be saved as
// .xwatch.yaml.
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(fileConfig{
		LogLevel:     c.LogLevel,
		LogFormat:    c.LogFormat,
		NoColor:      c.NoColor,
		Quiet:        c.Quiet,
		WatchPaths:   c.WatchPaths,
		IgnoredRules: c.IgnoredRules,
		ExcludePaths: c.ExcludePaths,
		DebounceMS:   c.DebounceMS,
		NoClear:      c.NoClear,
		GracePeriod:  c.GracePeriod.String(),
		Command:      c.Command,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}

	return out, nil
}

// flagKeys maps CLI flag names to config keys where the two differ.
var flagKeys = map[string]string{
	"watch":   "watch-paths",
	"ignore":  "ignored-rules",
	"exclude": "exclude-paths",
}

// Load initialises configuration from flags, environment variables, and an
// optional config file. A fresh viper instance is used on every call so that
// Load is safe for concurrent tests.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	configureEnv(v)

	if err := configureFile(v, configFile); err != nil {
		return nil, err
	}

	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Store the resolved config file path so downstream code can locate it.
	cfg.ConfigFile = v.ConfigFileUsed()

	// An unset rule list keeps the built-in rules; only an explicit one
	// replaces them.
	if !v.IsSet("ignored-rules") {
		cfg.IgnoredRules = nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log-level", LogLevelInfo)
	v.SetDefault("log-format", LogFormatText)
	v.SetDefault("no-color", false)
	v.SetDefault("quiet", false)
	v.SetDefault("watch-paths", []string{})
	v.SetDefault("exclude-paths", []string{})
	v.SetDefault("debounce-ms", DefaultDebounceMS)
	v.SetDefault("no-clear", false)
	v.SetDefault("grace-period", DefaultGracePeriod)
	v.SetDefault("command", "")
}

// configureEnv sets up environment variable support.
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("XWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// ignored-rules has no default, so AutomaticEnv alone would not list it.
	_ = v.BindEnv("ignored-rules")
}

// configureFile sets up the config file source.
func configureFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}

		return nil
	}

	// Auto-discovery mode.
	v.SetConfigName(".xwatch")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "xwatch"))
	}

	if err := v.ReadInConfig(); err != nil {
		// No config file found → perfectly fine in auto-discovery.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}

		// Found a file but it was malformed.
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// bindFlags binds the command's own flags and walks up to the root binding
// all PersistentFlags. Flags whose names differ from their config keys are
// bound under the key as well.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding flag %q: %w", name, err)
			}
		}
	}

	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding persistent flags: %w", err)
		}
	}

	return nil
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext extracts a Config from ctx, falling back to Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}

	return Default()
}
