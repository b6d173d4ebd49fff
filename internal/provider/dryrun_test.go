package provider

import (
	"context"
	"strings"
	"testing"

	"github.com/Iron-Ham/quorum/internal/critique"
	"github.com/Iron-Ham/quorum/internal/debate"
)

func TestDryRunProviderRoundShapes(t *testing.T) {
	d := NewDryRunProvider()
	ctx := context.Background()
	critic := debate.Participant{Model: "model-a", Provider: "claude", Role: debate.RoleCritic}

	critResp, err := d.Invoke(ctx, critic, Request{Messages: []Message{{Role: "user", Content: "## Strengths\n..."}}})
	if err != nil {
		t.Fatalf("Invoke(critique) error = %v", err)
	}
	parsed, err := critique.Parse(critic, critResp.Text)
	if err != nil {
		t.Fatalf("critique.Parse() error = %v on:\n%s", err, critResp.Text)
	}
	if len(parsed.Strengths) == 0 || len(parsed.Weaknesses) == 0 {
		t.Errorf("parsed critique missing sections: %+v", parsed)
	}
	if parsed.Score < 80 || parsed.Score > 89 {
		t.Errorf("Score = %d, want 80-89", parsed.Score)
	}

	voteResp, err := d.Invoke(ctx, critic, Request{Messages: []Message{{Role: "user", Content: "AGREE: yes or no\nSCORE: ..."}}})
	if err != nil {
		t.Fatalf("Invoke(vote) error = %v", err)
	}
	if !strings.HasPrefix(voteResp.Text, "AGREE: yes") {
		t.Errorf("vote response = %q, want AGREE: yes prefix", voteResp.Text)
	}

	synthResp, err := d.Invoke(ctx, critic, Request{Messages: []Message{{Role: "user", Content: "You are the synthesizer in a multi-model debate."}}})
	if err != nil {
		t.Fatalf("Invoke(synthesis) error = %v", err)
	}
	if !strings.Contains(synthResp.Text, "## Revisions") {
		t.Errorf("synthesis response missing revisions section:\n%s", synthResp.Text)
	}

	draftResp, err := d.Invoke(ctx, critic, Request{Messages: []Message{{Role: "user", Content: "Produce the first complete draft."}}})
	if err != nil {
		t.Fatalf("Invoke(draft) error = %v", err)
	}
	if !strings.HasPrefix(draftResp.Text, "# Proposal") {
		t.Errorf("draft response = %q, want # Proposal prefix", draftResp.Text)
	}
	if draftResp.OutputTokens == 0 || draftResp.StopReason != StopEndTurn {
		t.Errorf("response metadata = %d tokens, %q stop reason", draftResp.OutputTokens, draftResp.StopReason)
	}
}

func TestDryRunProviderDeterministic(t *testing.T) {
	d := NewDryRunProvider()
	ctx := context.Background()
	p := debate.Participant{Model: "model-b", Provider: "claude", Role: debate.RoleCritic}
	req := Request{Messages: []Message{{Role: "user", Content: "## Strengths"}}}

	first, err := d.Invoke(ctx, p, req)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	second, err := d.Invoke(ctx, p, req)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if first.Text != second.Text {
		t.Error("dry-run responses differ across identical calls")
	}
}
