package render

import (
	"strings"
	"testing"

	"github.com/Iron-Ham/quorum/internal/debate"
)

func TestSummaryWidthContainsKeyFacts(t *testing.T) {
	s := sampleSession()
	out := SummaryWidth(s, 100)

	for _, want := range []string{
		"rate-limiter",
		"complete",
		"converged at 0.91",
		"Beta 74",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q\n%s", want, out)
		}
	}
}

func TestSummaryWidthNotConverged(t *testing.T) {
	s := sampleSession()
	last := s.LastRound()
	last.Convergence.Converged = false
	last.Convergence.Score = 0.62
	last.Convergence.RemainingIssues = []string{"add benchmarks"}

	out := SummaryWidth(s, 100)
	if !strings.Contains(out, "not converged (0.62)") {
		t.Errorf("summary missing verdict:\n%s", out)
	}
	if !strings.Contains(out, "1 open issue(s)") {
		t.Errorf("summary missing open issue count:\n%s", out)
	}
}

func TestSummaryWidthEmptySession(t *testing.T) {
	s := debate.NewSession("empty topic", debate.DefaultConfig(), nil)
	out := SummaryWidth(s, 60)
	if !strings.Contains(out, "empty topic") {
		t.Errorf("summary missing topic:\n%s", out)
	}
	if !strings.Contains(out, "initialized") {
		t.Errorf("summary missing status:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{name: "short unchanged", input: "abc", maxLen: 10, want: "abc"},
		{name: "exact unchanged", input: "abcde", maxLen: 5, want: "abcde"},
		{name: "truncated", input: "abcdefgh", maxLen: 6, want: "abc..."},
		{name: "tiny budget", input: "abcdefgh", maxLen: 3, want: "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}
