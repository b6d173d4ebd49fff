package debate

import "time"

// Config holds the per-session runtime configuration the orchestrator
// enforces. It is persisted with the session so a resumed run keeps the
// limits it started with.
type Config struct {
	// MaxRounds ends the run once the history reaches this length (0 = unlimited).
	MaxRounds int `json:"max_rounds"`
	// MaxCost ends the run once accumulated cost reaches this amount in USD (0 = unlimited).
	MaxCost float64 `json:"max_cost"`
	// MaxDuration ends the run once this much wall-clock time has elapsed (0 = unlimited).
	MaxDuration time.Duration `json:"max_duration"`

	// RoundTimeout bounds each round's model invocations.
	RoundTimeout time.Duration `json:"round_timeout"`
	// MaxRetries bounds retry attempts for recoverable failures within a round.
	MaxRetries int `json:"max_retries"`
	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	RetryBaseDelay time.Duration `json:"retry_base_delay"`

	// Parallel fans critique and vote invocations out concurrently.
	// Serial execution produces the same round results.
	Parallel bool `json:"parallel"`
	// MinCritics is the minimum number of usable critiques for a critique
	// round to succeed despite partial participant failures.
	MinCritics int `json:"min_critics"`

	// ConvergenceThreshold is the blended score required to declare convergence.
	ConvergenceThreshold float64 `json:"convergence_threshold"`
	// MinConsensus is the number of agreeing votes required.
	MinConsensus int `json:"min_consensus"`
	// RequireUnanimous requires every active participant to agree.
	RequireUnanimous bool `json:"require_unanimous"`
	// MinRoundsBeforeConvergence skips convergence evaluation until this
	// many rounds have been recorded.
	MinRoundsBeforeConvergence int `json:"min_rounds_before_convergence"`

	// RecursiveRefinement enables refinement rounds when a convergence
	// check narrowly fails.
	RecursiveRefinement bool `json:"recursive_refinement"`
	// MaxRefinementDepth bounds how many refinement rounds may run.
	MaxRefinementDepth int `json:"max_refinement_depth"`
	// RefinementMargin is how close to the threshold a failed convergence
	// score must be for refinement to trigger.
	RefinementMargin float64 `json:"refinement_margin"`
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		MaxRounds:                  20,
		MaxCost:                    0,
		MaxDuration:                time.Hour,
		RoundTimeout:               5 * time.Minute,
		MaxRetries:                 3,
		RetryBaseDelay:             time.Second,
		Parallel:                   true,
		MinCritics:                 1,
		ConvergenceThreshold:       0.85,
		MinConsensus:               2,
		RequireUnanimous:           false,
		MinRoundsBeforeConvergence: 1,
		RecursiveRefinement:        false,
		MaxRefinementDepth:         2,
		RefinementMargin:           0.1,
	}
}
