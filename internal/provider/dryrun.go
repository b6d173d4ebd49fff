package provider

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/Iron-Ham/quorum/internal/debate"
)

// DryRunProvider produces deterministic canned responses shaped like
// real participant output. It lets a full debate run end to end with no
// model invocations, so operators can preview round flow, transcripts,
// and convergence behavior at zero cost.
type DryRunProvider struct{}

// NewDryRunProvider creates a DryRunProvider.
func NewDryRunProvider() *DryRunProvider {
	return &DryRunProvider{}
}

const dryRunDraft = `# Proposal

## Overview

This is a dry-run draft. No models were invoked; the content below
stands in for a real participant's opening draft.

## Details

The orchestrator will critique, synthesize, and vote on this text
exactly as it would on real output.`

const dryRunSynthesis = dryRunDraft + `

## Revisions

Incorporated the dry-run critiques into this revised version.`

// Invoke implements Invoker. The response is chosen by recognizing
// which round-kind prompt was sent.
func (d *DryRunProvider) Invoke(ctx context.Context, p debate.Participant, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prompt := promptText(req)
	var text string
	switch {
	case strings.Contains(prompt, "AGREE:"):
		text = fmt.Sprintf("AGREE: yes\nSCORE: %d\nCONCERNS:\n", 88+int(participantSeed(p)%8))
	case strings.Contains(prompt, "## Strengths"):
		text = fmt.Sprintf(`## Strengths
- Clear structure (dry-run critique from %[1]s)

## Weaknesses
- Placeholder content only

## Suggestions

Suggestion 1
- Section: Details
- Category: completeness
- Priority: 1
- Description: Replace dry-run filler with real analysis.

Score: %[2]d`, p.Name(), 80+int(participantSeed(p)%10))
	case strings.Contains(prompt, "synthesizer"), strings.Contains(prompt, "refining"):
		text = dryRunSynthesis
	default:
		text = dryRunDraft
	}

	return &Response{
		Text:         text,
		InputTokens:  EstimateTokens(prompt),
		OutputTokens: EstimateTokens(text),
		Duration:     time.Millisecond,
		StopReason:   StopEndTurn,
	}, nil
}

// Healthy implements the optional health signal.
func (d *DryRunProvider) Healthy(ctx context.Context) bool { return true }

// participantSeed derives a stable per-participant value so scores vary
// across critics but never across runs.
func participantSeed(p debate.Participant) uint32 {
	h := fnv.New32a()
	h.Write([]byte(p.Provider + "/" + p.Model + "/" + string(p.Role)))
	return h.Sum32()
}

func promptText(req Request) string {
	var sb strings.Builder
	sb.WriteString(req.System)
	for _, m := range req.Messages {
		sb.WriteString("\n")
		sb.WriteString(m.Content)
	}
	return sb.String()
}
