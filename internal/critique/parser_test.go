package critique

import (
	"testing"

	"github.com/Iron-Ham/quorum/internal/debate"
	"github.com/Iron-Ham/quorum/internal/errors"
)

var testCritic = debate.Participant{Model: "claude-sonnet", Provider: "claude", Role: debate.RoleCritic}

const structuredResponse = `## Strengths
- Clear separation of concerns
- Good naming throughout

## Weaknesses
- Missing input validation
- No timeout on the outbound call

## Suggestions

Suggestion 1
- Section: validation
- Category: correctness
- Priority: 1
- Description: Validate the request body before dispatch

Suggestion 2
- Section: networking
- Category: performance
- Priority: 2
- Description: Add a client-side timeout

Score: 72
`

func TestParseStructured(t *testing.T) {
	c, err := Parse(testCritic, structuredResponse)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(c.Strengths) != 2 {
		t.Errorf("got %d strengths, want 2: %v", len(c.Strengths), c.Strengths)
	}
	if len(c.Weaknesses) != 2 {
		t.Errorf("got %d weaknesses, want 2: %v", len(c.Weaknesses), c.Weaknesses)
	}
	if c.Score != 72 {
		t.Errorf("score = %d, want 72", c.Score)
	}
	if len(c.Suggestions) != 2 {
		t.Fatalf("got %d suggestions, want 2: %v", len(c.Suggestions), c.Suggestions)
	}
	s := c.Suggestions[0]
	if s.Section != "validation" || s.Category != debate.CategoryCorrectness || s.Priority != 1 {
		t.Errorf("suggestion 1 = %+v", s)
	}
	if s.Text != "Validate the request body before dispatch" {
		t.Errorf("suggestion 1 text = %q", s.Text)
	}
	if c.Critic != testCritic {
		t.Errorf("critic = %+v, want %+v", c.Critic, testCritic)
	}
	if c.RawText != structuredResponse {
		t.Error("raw text not preserved")
	}
}

func TestParseNumberedBoldFallback(t *testing.T) {
	raw := `Strengths:
- Solid tests

Weaknesses:
- Dense functions

1. **Readability**: break up the main loop
2. **Performance**: cache the compiled patterns

Score: 65
`
	c, err := Parse(testCritic, raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(c.Suggestions) != 2 {
		t.Fatalf("got %d suggestions, want 2: %v", len(c.Suggestions), c.Suggestions)
	}
	if c.Suggestions[0].Section != "Readability" || c.Suggestions[0].Category != debate.CategoryClarity {
		t.Errorf("suggestion 1 = %+v", c.Suggestions[0])
	}
	if c.Suggestions[1].Category != debate.CategoryPerformance {
		t.Errorf("suggestion 2 category = %q", c.Suggestions[1].Category)
	}
}

func TestParseLenientFallback(t *testing.T) {
	// No labeled sections or score line, so the structured path fails.
	raw := `The draft has real strengths worth keeping.
- solid error propagation
- consistent naming

There are issues though:
- the retry loop never terminates

I would recommend:
- add a retry cap

Overall I'd put the quality score around 60 out of 100.
`
	c, err := Parse(testCritic, raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(c.Strengths) != 2 {
		t.Errorf("strengths = %v, want 2 items", c.Strengths)
	}
	if len(c.Weaknesses) != 1 {
		t.Errorf("weaknesses = %v, want 1 item", c.Weaknesses)
	}
	if len(c.Suggestions) != 1 {
		t.Errorf("suggestions = %v, want 1 item", c.Suggestions)
	}
	if c.Score != 60 {
		t.Errorf("score = %d, want 60", c.Score)
	}
}

func TestParseLenientDefaultScore(t *testing.T) {
	raw := `Weaknesses:
- no tests at all
`
	c, err := Parse(testCritic, raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Score != defaultScore {
		t.Errorf("score = %d, want default %d", c.Score, defaultScore)
	}
}

func TestParseFailure(t *testing.T) {
	_, err := Parse(testCritic, "I have nothing structured to say about this.")
	if err == nil {
		t.Fatal("expected parse failure")
	}
	var pe *errors.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
	if errors.IsRetryable(err) {
		t.Error("parse failure must not be retryable")
	}
}

func TestParseClampsScore(t *testing.T) {
	raw := `Strengths:
- fine

Weaknesses:
- fine

Score: 250
`
	c, err := Parse(testCritic, raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Score != 100 {
		t.Errorf("score = %d, want clamped 100", c.Score)
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		label string
		want  debate.SuggestionCategory
	}{
		{"correctness", debate.CategoryCorrectness},
		{"Code Quality", debate.CategoryCodeQuality},
		{"code-quality", debate.CategoryCodeQuality},
		{"CODE_QUALITY", debate.CategoryCodeQuality},
		{"perf", debate.CategoryPerformance},
		{"design", debate.CategoryArchitecture},
		{"readability", debate.CategoryClarity},
		{"made-up-label", debate.CategoryOther},
		{"", debate.CategoryOther},
	}
	for _, tt := range tests {
		if got := ParseCategory(tt.label); got != tt.want {
			t.Errorf("ParseCategory(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestNormalizeScores(t *testing.T) {
	critiques := []debate.Critique{{Score: 50}, {Score: 90}}
	NormalizeScores(critiques)
	if critiques[0].Score != 55 || critiques[1].Score != 85 {
		t.Errorf("normalized = {%d, %d}, want {55, 85}", critiques[0].Score, critiques[1].Score)
	}
}

func TestNormalizeScoresLowSpreadUnchanged(t *testing.T) {
	critiques := []debate.Critique{{Score: 70}, {Score: 72}, {Score: 75}}
	NormalizeScores(critiques)
	want := []int{70, 72, 75}
	for i, c := range critiques {
		if c.Score != want[i] {
			t.Errorf("score %d = %d, want unchanged %d", i, c.Score, want[i])
		}
	}
}

func TestNormalizeScoresPreservesRanking(t *testing.T) {
	critiques := []debate.Critique{{Score: 20}, {Score: 95}, {Score: 60}}
	NormalizeScores(critiques)
	if !(critiques[0].Score < critiques[2].Score && critiques[2].Score < critiques[1].Score) {
		t.Errorf("ranking not preserved: %d, %d, %d",
			critiques[0].Score, critiques[1].Score, critiques[2].Score)
	}
}
