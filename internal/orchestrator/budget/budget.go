// Package budget tracks accumulated spend across a debate session and
// reports when cost ceilings are reached. Reaching a ceiling is a normal
// terminal outcome for the session, never an error.
package budget

import (
	"strings"
	"sync"

	"github.com/Iron-Ham/quorum/internal/logging"
)

// Rate is the cost per million tokens for one model, in USD.
type Rate struct {
	Input  float64
	Output float64
}

// Rates maps model-identifier prefixes to their pricing. Lookup walks
// the map by longest matching prefix so "claude-opus-4" beats "claude".
type Rates map[string]Rate

// DefaultRates returns a fresh pricing table for the commonly
// configured models. Unknown models fall back to the "default" entry.
// Each call returns a new map so callers can layer overrides without
// mutating shared state.
func DefaultRates() Rates {
	return Rates{
		"claude-opus":   {Input: 15, Output: 75},
		"claude-sonnet": {Input: 3, Output: 15},
		"claude-haiku":  {Input: 0.8, Output: 4},
		"gpt":           {Input: 5, Output: 15},
		"gemini":        {Input: 1.25, Output: 10},
		"default":       {Input: 3, Output: 15},
	}
}

// Lookup resolves the rate for a model by longest matching prefix.
func (r Rates) Lookup(model string) Rate {
	best, bestLen := r["default"], -1
	for prefix, rate := range r {
		if prefix == "default" {
			continue
		}
		if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
			best, bestLen = rate, len(prefix)
		}
	}
	return best
}

// Tracker accumulates session spend. Safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	rates  Rates
	limit  float64
	total  float64
	tokens int

	warnThreshold float64
	warned        bool
	onWarning     func(total, limit float64)

	logger *logging.Logger
}

// NewTracker creates a Tracker with the given cost ceiling (0 means
// unlimited) and rate table (nil means DefaultRates).
func NewTracker(limit float64, rates Rates, logger *logging.Logger) *Tracker {
	if rates == nil {
		rates = DefaultRates()
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Tracker{
		rates:         rates,
		limit:         limit,
		warnThreshold: 0.8,
		logger:        logger,
	}
}

// SetWarningCallback registers a callback fired once when spend crosses
// the warning share of the ceiling.
func (t *Tracker) SetWarningCallback(fn func(total, limit float64)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onWarning = fn
}

// RecordUsage adds one invocation's token usage and returns the cost of
// that invocation.
func (t *Tracker) RecordUsage(model string, inputTokens, outputTokens int) float64 {
	rate := t.rates.Lookup(model)
	cost := float64(inputTokens)/1e6*rate.Input + float64(outputTokens)/1e6*rate.Output

	t.mu.Lock()
	t.total += cost
	t.tokens += inputTokens + outputTokens
	warn := t.limit > 0 && !t.warned && t.total >= t.limit*t.warnThreshold
	if warn {
		t.warned = true
	}
	onWarning := t.onWarning
	total, limit := t.total, t.limit
	t.mu.Unlock()

	if warn {
		t.logger.Warn("approaching cost ceiling", "total", total, "limit", limit)
		if onWarning != nil {
			onWarning(total, limit)
		}
	}
	return cost
}

// Total returns the accumulated cost in USD.
func (t *Tracker) Total() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Tokens returns the accumulated token count.
func (t *Tracker) Tokens() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tokens
}

// Remaining returns the budget left before the ceiling, or 0 when no
// ceiling is configured.
func (t *Tracker) Remaining() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.limit <= 0 {
		return 0
	}
	if t.total >= t.limit {
		return 0
	}
	return t.limit - t.total
}

// Exceeded reports whether the accumulated cost has reached the ceiling.
func (t *Tracker) Exceeded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.limit > 0 && t.total >= t.limit
}
