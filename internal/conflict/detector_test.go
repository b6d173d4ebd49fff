package conflict

import (
	"strings"
	"testing"

	"github.com/Iron-Ham/quorum/internal/debate"
)

var (
	criticA = debate.Participant{Model: "model-a", Provider: "claude", Role: debate.RoleCritic}
	criticB = debate.Participant{Model: "model-b", Provider: "codex", Role: debate.RoleCritic}
	criticC = debate.Participant{Model: "model-c", Provider: "gemini", Role: debate.RoleCritic}
)

func TestAssessmentConflict(t *testing.T) {
	critiques := []debate.Critique{
		{Critic: criticA, Strengths: []string{"clear error handling"}, Score: 75},
		{Critic: criticB, Weaknesses: []string{"poor error handling"}, Score: 70},
	}

	conflicts := Detect(critiques)
	if len(conflicts) != 1 {
		t.Fatalf("got %d conflicts, want exactly 1: %+v", len(conflicts), conflicts)
	}

	c := conflicts[0]
	if !strings.Contains(c.Topic, "error handling") {
		t.Errorf("topic = %q, want mention of error handling", c.Topic)
	}
	if c.Severity != 4 {
		t.Errorf("severity = %d, want 4 for an even split", c.Severity)
	}
	if len(c.Positions) != 2 {
		t.Errorf("got %d positions, want 2", len(c.Positions))
	}
	if c.ID == "" {
		t.Error("conflict has no ID")
	}
}

func TestAssessmentConflictSeverityOffByOne(t *testing.T) {
	critiques := []debate.Critique{
		{Critic: criticA, Strengths: []string{"strong test coverage"}},
		{Critic: criticB, Strengths: []string{"good test coverage overall"}},
		{Critic: criticC, Weaknesses: []string{"test coverage has gaps"}},
	}

	conflicts := Detect(critiques)
	if len(conflicts) != 1 {
		t.Fatalf("got %d conflicts, want 1: %+v", len(conflicts), conflicts)
	}
	if conflicts[0].Severity != 3 {
		t.Errorf("severity = %d, want 3 for a 2-1 split", conflicts[0].Severity)
	}
}

func TestNoConflictWhenAligned(t *testing.T) {
	critiques := []debate.Critique{
		{Critic: criticA, Weaknesses: []string{"weak documentation"}, Score: 70},
		{Critic: criticB, Weaknesses: []string{"documentation is sparse"}, Score: 72},
	}

	if got := Detect(critiques); len(got) != 0 {
		t.Errorf("aligned critiques produced conflicts: %+v", got)
	}
}

func TestSuggestionConflict(t *testing.T) {
	critiques := []debate.Critique{
		{Critic: criticA, Suggestions: []debate.Suggestion{
			{Section: "caching", Text: "add a cache layer in front of the store"},
		}},
		{Critic: criticB, Suggestions: []debate.Suggestion{
			{Section: "caching", Text: "remove the cache, it hides staleness bugs"},
		}},
	}

	conflicts := Detect(critiques)
	if len(conflicts) != 1 {
		t.Fatalf("got %d conflicts, want 1: %+v", len(conflicts), conflicts)
	}
	if conflicts[0].Severity != 3 {
		t.Errorf("severity = %d, want fixed 3", conflicts[0].Severity)
	}
}

func TestSuggestionConflictRequiresSameSection(t *testing.T) {
	critiques := []debate.Critique{
		{Critic: criticA, Suggestions: []debate.Suggestion{
			{Section: "caching", Text: "add a cache layer"},
		}},
		{Critic: criticB, Suggestions: []debate.Suggestion{
			{Section: "storage", Text: "remove the write-through path"},
		}},
	}

	if got := Detect(critiques); len(got) != 0 {
		t.Errorf("cross-section suggestions produced conflicts: %+v", got)
	}
}

func TestScoreConflict(t *testing.T) {
	critiques := []debate.Critique{
		{Critic: criticA, Score: 90},
		{Critic: criticB, Score: 55},
		{Critic: criticC, Score: 70},
	}

	conflicts := Detect(critiques)
	if len(conflicts) != 1 {
		t.Fatalf("got %d conflicts, want 1: %+v", len(conflicts), conflicts)
	}
	c := conflicts[0]
	if c.Severity != 2 {
		t.Errorf("severity = %d, want fixed 2", c.Severity)
	}
	if len(c.Positions) != 2 {
		t.Fatalf("got %d positions, want high and low scorers only", len(c.Positions))
	}
	if c.Positions[0].Participant.Model != "model-a" || c.Positions[1].Participant.Model != "model-b" {
		t.Errorf("positions = %+v, want model-a (high) and model-b (low)", c.Positions)
	}
}

func TestScoreSpreadAtThresholdNoConflict(t *testing.T) {
	critiques := []debate.Critique{
		{Critic: criticA, Score: 85},
		{Critic: criticB, Score: 55},
	}
	if got := Detect(critiques); len(got) != 0 {
		t.Errorf("spread of exactly 30 produced conflicts: %+v", got)
	}
}

func TestSeveritySortDescending(t *testing.T) {
	critiques := []debate.Critique{
		{Critic: criticA, Strengths: []string{"clean naming"}, Score: 95},
		{Critic: criticB, Weaknesses: []string{"inconsistent naming"}, Score: 40},
	}

	conflicts := Detect(critiques)
	if len(conflicts) < 2 {
		t.Fatalf("want at least assessment and score conflicts, got %+v", conflicts)
	}
	for i := 1; i < len(conflicts); i++ {
		if conflicts[i].Severity > conflicts[i-1].Severity {
			t.Errorf("conflicts not sorted by severity: %d before %d",
				conflicts[i-1].Severity, conflicts[i].Severity)
		}
	}
}

func TestEscalationOfferedAtHighSeverity(t *testing.T) {
	critiques := []debate.Critique{
		{Critic: criticA, Strengths: []string{"solid concurrency model"}},
		{Critic: criticB, Weaknesses: []string{"concurrency model has races"}},
	}

	conflicts := Detect(critiques)
	if len(conflicts) != 1 {
		t.Fatalf("got %d conflicts, want 1", len(conflicts))
	}
	if !hasStrategy(conflicts[0], debate.StrategyEscalateToHuman) {
		t.Errorf("severity-4 conflict missing escalation strategy: %v", conflicts[0].Strategies)
	}
	if !hasStrategy(conflicts[0], debate.StrategyCompromise) {
		t.Errorf("compromise fallback missing: %v", conflicts[0].Strategies)
	}
}

func TestDeferToExpertOffered(t *testing.T) {
	expert := debate.Participant{Model: "model-x", Role: debate.RoleDomainExpert}
	critiques := []debate.Critique{
		{Critic: criticA, Strengths: []string{"good security posture"}},
		{Critic: criticB, Weaknesses: []string{"security posture is weak"}},
		{Critic: expert, Weaknesses: []string{"security review found injection risk"}},
	}

	conflicts := Detect(critiques)
	if len(conflicts) != 1 {
		t.Fatalf("got %d conflicts, want 1: %+v", len(conflicts), conflicts)
	}
	if !hasStrategy(conflicts[0], debate.StrategyDeferToExpert) {
		t.Errorf("conflict with expert position missing defer-to-expert: %v", conflicts[0].Strategies)
	}
	if !hasStrategy(conflicts[0], debate.StrategyMajorityVote) {
		t.Errorf("2-1 split missing majority-vote: %v", conflicts[0].Strategies)
	}
}

func hasStrategy(c debate.DetectedConflict, s debate.ResolutionStrategy) bool {
	for _, got := range c.Strategies {
		if got == s {
			return true
		}
	}
	return false
}
