// Package config loads and validates the quorum configuration from the
// config file, environment overrides, and defaults via viper.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/Iron-Ham/quorum/internal/debate"
	"github.com/Iron-Ham/quorum/internal/logging"
	"github.com/Iron-Ham/quorum/internal/orchestrator/budget"
	"github.com/Iron-Ham/quorum/internal/provider"
	"github.com/Iron-Ham/quorum/internal/roster"
)

// Config represents the complete quorum configuration.
type Config struct {
	Debate       DebateConfig              `mapstructure:"debate"`
	Participants []roster.Entry            `mapstructure:"participants"`
	Providers    map[string]ProviderConfig `mapstructure:"providers"`
	Budget       BudgetConfig              `mapstructure:"budget"`
	Logging      LoggingConfig             `mapstructure:"logging"`
	Paths        PathsConfig               `mapstructure:"paths"`
	Output       OutputConfig              `mapstructure:"output"`
}

// DebateConfig controls how the orchestrator runs a session. It mirrors
// the per-session runtime config, with durations expressed as integers
// so they read naturally from YAML and environment variables.
type DebateConfig struct {
	// MaxRounds ends the run once the history reaches this length (0 = unlimited)
	MaxRounds int `mapstructure:"max_rounds"`
	// MaxDurationMinutes ends the run after this much wall-clock time (0 = unlimited)
	MaxDurationMinutes int `mapstructure:"max_duration_minutes"`
	// RoundTimeoutSeconds bounds each round's model invocations
	RoundTimeoutSeconds int `mapstructure:"round_timeout_seconds"`
	// MaxRetries bounds retry attempts for recoverable failures within a round
	MaxRetries int `mapstructure:"max_retries"`
	// RetryBaseDelayMs is the first backoff delay; it doubles per attempt
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms"`
	// Parallel fans critique and vote invocations out concurrently
	Parallel bool `mapstructure:"parallel"`
	// MinCritics is the minimum number of usable critiques per critique round
	MinCritics int `mapstructure:"min_critics"`
	// ConvergenceThreshold is the blended score required to declare convergence
	ConvergenceThreshold float64 `mapstructure:"convergence_threshold"`
	// MinConsensus is the number of agreeing votes required
	MinConsensus int `mapstructure:"min_consensus"`
	// RequireUnanimous requires every voter to agree
	RequireUnanimous bool `mapstructure:"require_unanimous"`
	// MinRoundsBeforeConvergence skips convergence checks until this many rounds exist
	MinRoundsBeforeConvergence int `mapstructure:"min_rounds_before_convergence"`
	// RecursiveRefinement enables refinement rounds on near-miss convergence
	RecursiveRefinement bool `mapstructure:"recursive_refinement"`
	// MaxRefinementDepth bounds how many refinement rounds may run
	MaxRefinementDepth int `mapstructure:"max_refinement_depth"`
	// RefinementMargin is how close to the threshold a failed check must be
	RefinementMargin float64 `mapstructure:"refinement_margin"`
}

// ToSession converts the file-level debate settings into the runtime
// session config, carrying the budget ceiling along.
func (d DebateConfig) ToSession(maxCost float64) debate.Config {
	return debate.Config{
		MaxRounds:                  d.MaxRounds,
		MaxCost:                    maxCost,
		MaxDuration:                time.Duration(d.MaxDurationMinutes) * time.Minute,
		RoundTimeout:               time.Duration(d.RoundTimeoutSeconds) * time.Second,
		MaxRetries:                 d.MaxRetries,
		RetryBaseDelay:             time.Duration(d.RetryBaseDelayMs) * time.Millisecond,
		Parallel:                   d.Parallel,
		MinCritics:                 d.MinCritics,
		ConvergenceThreshold:       d.ConvergenceThreshold,
		MinConsensus:               d.MinConsensus,
		RequireUnanimous:           d.RequireUnanimous,
		MinRoundsBeforeConvergence: d.MinRoundsBeforeConvergence,
		RecursiveRefinement:        d.RecursiveRefinement,
		MaxRefinementDepth:         d.MaxRefinementDepth,
		RefinementMargin:           d.RefinementMargin,
	}
}

// ProviderConfig describes one CLI-backed provider.
type ProviderConfig struct {
	// Command is the CLI binary to run (default: the provider's map key)
	Command string `mapstructure:"command"`
	// ExtraArgs are appended after the print-mode flag
	ExtraArgs []string `mapstructure:"extra_args"`
	// ModelFlag, when set, passes the participant's model identifier
	ModelFlag string `mapstructure:"model_flag"`
}

// ToExec converts a ProviderConfig into an exec provider config.
func (p ProviderConfig) ToExec(name string) provider.ExecConfig {
	command := p.Command
	if command == "" {
		command = name
	}
	return provider.ExecConfig{
		Command:   command,
		ExtraArgs: p.ExtraArgs,
		ModelFlag: p.ModelFlag,
	}
}

// BudgetConfig controls cost tracking.
type BudgetConfig struct {
	// MaxCost pauses the run when accumulated cost reaches this amount in
	// USD (0 = no limit)
	MaxCost float64 `mapstructure:"max_cost"`
	// Rates overrides per-model pricing; keys are model name prefixes
	Rates map[string]RateConfig `mapstructure:"rates"`
}

// RateConfig is per-model pricing in USD per million tokens.
type RateConfig struct {
	Input  float64 `mapstructure:"input"`
	Output float64 `mapstructure:"output"`
}

// ToRates merges configured overrides over the built-in rate table.
func (b BudgetConfig) ToRates() budget.Rates {
	rates := budget.DefaultRates()
	for prefix, r := range b.Rates {
		rates[prefix] = budget.Rate{Input: r.Input, Output: r.Output}
	}
	return rates
}

// LoggingConfig controls debug logging behavior.
type LoggingConfig struct {
	// Enabled controls whether file logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// Rotation converts the logging settings into a rotation config.
func (l LoggingConfig) Rotation() logging.RotationConfig {
	return logging.RotationConfig{MaxSizeMB: l.MaxSizeMB, MaxBackups: l.MaxBackups}
}

// PathsConfig controls where quorum stores data.
type PathsConfig struct {
	// SessionDir is the directory where session state is persisted.
	// If empty, defaults to "sessions" under the config directory.
	// Supports ~ for home directory expansion.
	SessionDir string `mapstructure:"session_dir"`
}

// ResolveSessionDir returns the resolved session storage directory.
func (p *PathsConfig) ResolveSessionDir() string {
	if p.SessionDir == "" {
		return filepath.Join(ConfigDir(), "sessions")
	}

	path := p.SessionDir
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
	}
	if len(path) > 1 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	if !filepath.IsAbs(path) {
		if cwd, err := os.Getwd(); err == nil {
			return filepath.Join(cwd, path)
		}
	}
	return path
}

// OutputConfig controls transcript rendering.
type OutputConfig struct {
	// Format is the transcript export format: "markdown", "json", or "yaml"
	Format string `mapstructure:"format"`
	// Summary prints the styled terminal summary after a run (default: true)
	Summary bool `mapstructure:"summary"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	dc := debate.DefaultConfig()
	return &Config{
		Debate: DebateConfig{
			MaxRounds:                  dc.MaxRounds,
			MaxDurationMinutes:         int(dc.MaxDuration / time.Minute),
			RoundTimeoutSeconds:        int(dc.RoundTimeout / time.Second),
			MaxRetries:                 dc.MaxRetries,
			RetryBaseDelayMs:           int(dc.RetryBaseDelay / time.Millisecond),
			Parallel:                   dc.Parallel,
			MinCritics:                 dc.MinCritics,
			ConvergenceThreshold:       dc.ConvergenceThreshold,
			MinConsensus:               dc.MinConsensus,
			RequireUnanimous:           dc.RequireUnanimous,
			MinRoundsBeforeConvergence: dc.MinRoundsBeforeConvergence,
			RecursiveRefinement:        dc.RecursiveRefinement,
			MaxRefinementDepth:         dc.MaxRefinementDepth,
			RefinementMargin:           dc.RefinementMargin,
		},
		Participants: []roster.Entry{},
		Providers: map[string]ProviderConfig{
			"claude": {Command: "claude", ModelFlag: "--model"},
		},
		Budget: BudgetConfig{
			MaxCost: 0,
			Rates:   map[string]RateConfig{},
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Paths: PathsConfig{
			SessionDir: "", // Empty means <config dir>/sessions
		},
		Output: OutputConfig{
			Format:  "markdown",
			Summary: true,
		},
	}
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := Default()

	// Debate defaults
	viper.SetDefault("debate.max_rounds", defaults.Debate.MaxRounds)
	viper.SetDefault("debate.max_duration_minutes", defaults.Debate.MaxDurationMinutes)
	viper.SetDefault("debate.round_timeout_seconds", defaults.Debate.RoundTimeoutSeconds)
	viper.SetDefault("debate.max_retries", defaults.Debate.MaxRetries)
	viper.SetDefault("debate.retry_base_delay_ms", defaults.Debate.RetryBaseDelayMs)
	viper.SetDefault("debate.parallel", defaults.Debate.Parallel)
	viper.SetDefault("debate.min_critics", defaults.Debate.MinCritics)
	viper.SetDefault("debate.convergence_threshold", defaults.Debate.ConvergenceThreshold)
	viper.SetDefault("debate.min_consensus", defaults.Debate.MinConsensus)
	viper.SetDefault("debate.require_unanimous", defaults.Debate.RequireUnanimous)
	viper.SetDefault("debate.min_rounds_before_convergence", defaults.Debate.MinRoundsBeforeConvergence)
	viper.SetDefault("debate.recursive_refinement", defaults.Debate.RecursiveRefinement)
	viper.SetDefault("debate.max_refinement_depth", defaults.Debate.MaxRefinementDepth)
	viper.SetDefault("debate.refinement_margin", defaults.Debate.RefinementMargin)

	// Participant defaults
	viper.SetDefault("participants", defaults.Participants)

	// Budget defaults
	viper.SetDefault("budget.max_cost", defaults.Budget.MaxCost)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	// Paths defaults
	viper.SetDefault("paths.session_dir", defaults.Paths.SessionDir)

	// Output defaults
	viper.SetDefault("output.format", defaults.Output.Format)
	viper.SetDefault("output.summary", defaults.Output.Summary)
}

// Load reads the configuration from viper into a Config struct and
// validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.Providers == nil {
		cfg.Providers = Default().Providers
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// Get returns the current configuration (convenience function).
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "quorum")
	}
	// Fall back to ~/.config/quorum
	home, err := os.UserHomeDir()
	if err != nil {
		return ".quorum"
	}
	return filepath.Join(home, ".config", "quorum")
}

// ConfigFile returns the path to the config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
