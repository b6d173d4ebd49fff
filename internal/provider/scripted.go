package provider

import (
	"context"
	"sync"
	"time"

	"github.com/Iron-Ham/quorum/internal/debate"
	"github.com/Iron-Ham/quorum/internal/errors"
)

// ScriptedResponse is one canned reply a ScriptedProvider hands out.
type ScriptedResponse struct {
	Text string
	// Err, when non-nil, is returned instead of a response.
	Err error
	// Delay simulates invocation latency.
	Delay time.Duration
}

// ScriptedProvider returns canned responses keyed by participant role,
// each role's responses consumed in order. It backs dry runs and tests.
// When a role's script runs out, the last entry repeats.
type ScriptedProvider struct {
	mu      sync.Mutex
	scripts map[debate.Role][]ScriptedResponse
	cursor  map[debate.Role]int
	// Calls records every invocation for assertions.
	Calls []debate.Participant
}

// NewScriptedProvider creates a ScriptedProvider with the given scripts.
func NewScriptedProvider(scripts map[debate.Role][]ScriptedResponse) *ScriptedProvider {
	return &ScriptedProvider{
		scripts: scripts,
		cursor:  make(map[debate.Role]int),
	}
}

// Invoke implements Invoker.
func (s *ScriptedProvider) Invoke(ctx context.Context, p debate.Participant, req Request) (*Response, error) {
	s.mu.Lock()
	s.Calls = append(s.Calls, p)

	script, ok := s.scripts[p.Role]
	if !ok || len(script) == 0 {
		s.mu.Unlock()
		return nil, errors.NewProviderError("no scripted response for role "+string(p.Role), errors.ErrProviderFailure).
			WithRetryable(false)
	}

	idx := s.cursor[p.Role]
	if idx >= len(script) {
		idx = len(script) - 1
	}
	s.cursor[p.Role]++
	resp := script[idx]
	s.mu.Unlock()

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if resp.Err != nil {
		return nil, resp.Err
	}

	prompt := buildPrompt(req)
	return &Response{
		Text:         resp.Text,
		InputTokens:  EstimateTokens(prompt),
		OutputTokens: EstimateTokens(resp.Text),
		Duration:     resp.Delay,
		StopReason:   StopEndTurn,
	}, nil
}

// CallCount returns how many invocations have been recorded.
func (s *ScriptedProvider) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}
