package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Iron-Ham/quorum/internal/logging"
	"github.com/Iron-Ham/quorum/internal/render"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // The config field path (e.g., "debate.max_rounds")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Validate checks the Config for invalid values and returns all
// validation errors found.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateDebate()...)
	errors = append(errors, c.validateParticipants()...)
	errors = append(errors, c.validateBudget()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateOutput()...)

	return errors
}

func (c *Config) validateDebate() []ValidationError {
	var errors []ValidationError
	d := c.Debate

	if d.MaxRounds < 0 {
		errors = append(errors, ValidationError{
			Field:   "debate.max_rounds",
			Value:   d.MaxRounds,
			Message: "must be >= 0 (0 means unlimited)",
		})
	}
	if d.MaxDurationMinutes < 0 {
		errors = append(errors, ValidationError{
			Field:   "debate.max_duration_minutes",
			Value:   d.MaxDurationMinutes,
			Message: "must be >= 0 (0 means unlimited)",
		})
	}
	if d.RoundTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "debate.round_timeout_seconds",
			Value:   d.RoundTimeoutSeconds,
			Message: "must be > 0",
		})
	}
	if d.MaxRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "debate.max_retries",
			Value:   d.MaxRetries,
			Message: "must be >= 0",
		})
	}
	if d.MinCritics < 1 {
		errors = append(errors, ValidationError{
			Field:   "debate.min_critics",
			Value:   d.MinCritics,
			Message: "must be >= 1",
		})
	}
	if d.ConvergenceThreshold <= 0 || d.ConvergenceThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "debate.convergence_threshold",
			Value:   d.ConvergenceThreshold,
			Message: "must be in (0, 1]",
		})
	}
	if d.MinConsensus < 1 {
		errors = append(errors, ValidationError{
			Field:   "debate.min_consensus",
			Value:   d.MinConsensus,
			Message: "must be >= 1",
		})
	}
	if d.MinRoundsBeforeConvergence < 0 {
		errors = append(errors, ValidationError{
			Field:   "debate.min_rounds_before_convergence",
			Value:   d.MinRoundsBeforeConvergence,
			Message: "must be >= 0",
		})
	}
	if d.MaxRefinementDepth < 0 {
		errors = append(errors, ValidationError{
			Field:   "debate.max_refinement_depth",
			Value:   d.MaxRefinementDepth,
			Message: "must be >= 0",
		})
	}
	if d.RefinementMargin < 0 || d.RefinementMargin > 1 {
		errors = append(errors, ValidationError{
			Field:   "debate.refinement_margin",
			Value:   d.RefinementMargin,
			Message: "must be in [0, 1]",
		})
	}

	return errors
}

func (c *Config) validateParticipants() []ValidationError {
	var errors []ValidationError

	for i, entry := range c.Participants {
		if entry.Model == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("participants[%d].model", i),
				Value:   entry.Model,
				Message: "model is required",
			})
		}
		if entry.Provider != "" {
			if _, ok := c.Providers[entry.Provider]; !ok {
				errors = append(errors, ValidationError{
					Field:   fmt.Sprintf("participants[%d].provider", i),
					Value:   entry.Provider,
					Message: "no such provider configured",
				})
			}
		}
	}

	return errors
}

func (c *Config) validateBudget() []ValidationError {
	var errors []ValidationError

	if c.Budget.MaxCost < 0 {
		errors = append(errors, ValidationError{
			Field:   "budget.max_cost",
			Value:   c.Budget.MaxCost,
			Message: "must be >= 0 (0 means unlimited)",
		})
	}
	for prefix, rate := range c.Budget.Rates {
		if rate.Input < 0 || rate.Output < 0 {
			errors = append(errors, ValidationError{
				Field:   "budget.rates." + prefix,
				Value:   fmt.Sprintf("input=%v output=%v", rate.Input, rate.Output),
				Message: "rates must be >= 0",
			})
		}
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError
	l := c.Logging

	if !slices.Contains(logging.ValidLevels(), strings.ToLower(l.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   l.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(logging.ValidLevels(), ", ")),
		})
	}
	if l.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   l.MaxSizeMB,
			Message: "must be >= 0 (0 disables rotation)",
		})
	}
	if l.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   l.MaxBackups,
			Message: "must be >= 0",
		})
	}

	return errors
}

func (c *Config) validateOutput() []ValidationError {
	var errors []ValidationError

	if _, err := render.ParseFormat(c.Output.Format); err != nil {
		errors = append(errors, ValidationError{
			Field:   "output.format",
			Value:   c.Output.Format,
			Message: "must be one of: markdown, json, yaml",
		})
	}

	return errors
}
