package provider

import (
	"context"
	"testing"
	"time"

	"github.com/Iron-Ham/quorum/internal/debate"
	"github.com/Iron-Ham/quorum/internal/errors"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"hello world, this is a test", 7},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestScriptedProviderOrder(t *testing.T) {
	sp := NewScriptedProvider(map[debate.Role][]ScriptedResponse{
		debate.RoleCritic: {
			{Text: "first"},
			{Text: "second"},
		},
	})
	p := debate.Participant{Model: "m", Role: debate.RoleCritic}

	for i, want := range []string{"first", "second", "second"} {
		resp, err := sp.Invoke(context.Background(), p, Request{})
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if resp.Text != want {
			t.Errorf("call %d: got %q, want %q", i, resp.Text, want)
		}
	}
	if sp.CallCount() != 3 {
		t.Errorf("CallCount() = %d, want 3", sp.CallCount())
	}
}

func TestScriptedProviderError(t *testing.T) {
	scriptErr := errors.NewProviderError("boom", errors.ErrProviderFailure)
	sp := NewScriptedProvider(map[debate.Role][]ScriptedResponse{
		debate.RoleDrafter: {{Err: scriptErr}},
	})
	p := debate.Participant{Model: "m", Role: debate.RoleDrafter}

	_, err := sp.Invoke(context.Background(), p, Request{})
	if !errors.Is(err, errors.ErrProviderFailure) {
		t.Errorf("got %v, want ErrProviderFailure", err)
	}
}

func TestScriptedProviderUnknownRole(t *testing.T) {
	sp := NewScriptedProvider(nil)
	p := debate.Participant{Model: "m", Role: debate.RoleSynthesizer}

	_, err := sp.Invoke(context.Background(), p, Request{})
	if err == nil {
		t.Fatal("expected error for unscripted role")
	}
	if errors.IsRetryable(err) {
		t.Error("unscripted role error should not be retryable")
	}
}

func TestScriptedProviderHonorsContext(t *testing.T) {
	sp := NewScriptedProvider(map[debate.Role][]ScriptedResponse{
		debate.RoleCritic: {{Text: "slow", Delay: time.Minute}},
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := sp.Invoke(ctx, debate.Participant{Role: debate.RoleCritic}, Request{})
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestRegistryLookup(t *testing.T) {
	sp := NewScriptedProvider(map[debate.Role][]ScriptedResponse{
		debate.RoleDrafter: {{Text: "hi"}},
	})
	reg := NewRegistry()
	reg.Register("claude", sp)

	resp, err := reg.Invoke(context.Background(), debate.Participant{Provider: "claude", Role: debate.RoleDrafter}, Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "hi" {
		t.Errorf("got %q, want %q", resp.Text, "hi")
	}
}

func TestRegistryFallback(t *testing.T) {
	sp := NewScriptedProvider(map[debate.Role][]ScriptedResponse{
		debate.RoleDrafter: {{Text: "hi"}},
	})
	reg := NewRegistry()
	reg.Register("claude", sp)

	// Empty provider tag resolves to the first registration.
	if _, err := reg.Lookup(debate.Participant{Role: debate.RoleDrafter}); err != nil {
		t.Errorf("empty tag should fall back: %v", err)
	}
}

func TestRegistryUnknownTag(t *testing.T) {
	reg := NewRegistry()
	reg.Register("claude", NewScriptedProvider(nil))

	_, err := reg.Lookup(debate.Participant{Provider: "gemini"})
	if !errors.Is(err, errors.ErrNoProvider) {
		t.Errorf("got %v, want ErrNoProvider", err)
	}
}

func TestBuildPrompt(t *testing.T) {
	req := Request{
		System: "You are a critic.",
		Messages: []Message{
			{Role: "user", Content: "Review this."},
			{Role: "assistant", Content: "Looks fine."},
			{Role: "user", Content: "Look harder."},
		},
	}
	got := buildPrompt(req)
	want := "You are a critic.\n\nReview this.\n\n[previous response]\nLooks fine.\n\nLook harder."
	if got != want {
		t.Errorf("buildPrompt:\n got %q\nwant %q", got, want)
	}
}

func TestClassifyExecFailure(t *testing.T) {
	p := debate.Participant{Provider: "claude", Model: "opus"}
	base := errors.New("exit status 1")

	tests := []struct {
		name      string
		stderr    string
		sentinel  error
		retryable bool
	}{
		{"rate limit", "Error: rate limit exceeded", errors.ErrRateLimited, true},
		{"http 429", "HTTP 429 Too Many Requests", errors.ErrRateLimited, true},
		{"auth", "unauthorized: bad credentials", errors.ErrAuthFailure, false},
		{"api key", "missing API key", errors.ErrAuthFailure, false},
		{"generic", "segfault", errors.ErrProviderFailure, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyExecFailure(p, base, tt.stderr)
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("got %v, want sentinel %v", err, tt.sentinel)
			}
			if got := errors.IsRetryable(err); got != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v", got, tt.retryable)
			}
		})
	}
}
