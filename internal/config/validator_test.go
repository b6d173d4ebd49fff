package config

import (
	"strings"
	"testing"
)

func TestValidateDebateBounds(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "negative max rounds",
			mutate:    func(c *Config) { c.Debate.MaxRounds = -1 },
			wantField: "debate.max_rounds",
		},
		{
			name:      "zero round timeout",
			mutate:    func(c *Config) { c.Debate.RoundTimeoutSeconds = 0 },
			wantField: "debate.round_timeout_seconds",
		},
		{
			name:      "negative retries",
			mutate:    func(c *Config) { c.Debate.MaxRetries = -2 },
			wantField: "debate.max_retries",
		},
		{
			name:      "zero min critics",
			mutate:    func(c *Config) { c.Debate.MinCritics = 0 },
			wantField: "debate.min_critics",
		},
		{
			name:      "threshold above one",
			mutate:    func(c *Config) { c.Debate.ConvergenceThreshold = 1.01 },
			wantField: "debate.convergence_threshold",
		},
		{
			name:      "zero threshold",
			mutate:    func(c *Config) { c.Debate.ConvergenceThreshold = 0 },
			wantField: "debate.convergence_threshold",
		},
		{
			name:      "zero min consensus",
			mutate:    func(c *Config) { c.Debate.MinConsensus = 0 },
			wantField: "debate.min_consensus",
		},
		{
			name:      "margin above one",
			mutate:    func(c *Config) { c.Debate.RefinementMargin = 1.5 },
			wantField: "debate.refinement_margin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			errs := cfg.Validate()
			if len(errs) != 1 {
				t.Fatalf("Validate() errors = %d, want 1\n%v", len(errs), ValidationErrors(errs))
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.wantField)
			}
		})
	}
}

func TestValidateBudgetAndLogging(t *testing.T) {
	cfg := Default()
	cfg.Budget.MaxCost = -1
	cfg.Budget.Rates = map[string]RateConfig{"m": {Input: -1}}
	cfg.Logging.MaxSizeMB = -1
	cfg.Logging.MaxBackups = -1
	cfg.Output.Format = "xml"

	errs := cfg.Validate()
	if len(errs) != 5 {
		t.Fatalf("Validate() errors = %d, want 5\n%v", len(errs), ValidationErrors(errs))
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	errs := ValidationErrors{
		{Field: "a", Value: 1, Message: "bad"},
		{Field: "b", Value: 2, Message: "worse"},
	}
	msg := errs.Error()
	if !strings.Contains(msg, "2 validation errors") {
		t.Errorf("Error() = %q, want count prefix", msg)
	}
	if !strings.Contains(msg, "a: bad (got: 1)") {
		t.Errorf("Error() = %q, want first error", msg)
	}

	single := ValidationErrors{{Field: "a", Value: 1, Message: "bad"}}
	if single.Error() != "a: bad (got: 1)" {
		t.Errorf("single Error() = %q", single.Error())
	}
}
