package orchestrator

import (
	"fmt"
	"strings"

	"github.com/Iron-Ham/quorum/internal/debate"
)

// draftPromptTemplate seeds the opening draft.
const draftPromptTemplate = `You are the drafter in a multi-model debate. Produce the first complete
draft of the artifact described below. Write it in markdown with clear
section headers; it will be critiqued and revised by other models.

Topic:
%s%s`

// critiquePromptTemplate asks one critic for structured feedback.
const critiquePromptTemplate = `You are a critic in a multi-model debate. Review the current draft below
and respond using exactly this structure:

## Strengths
- <one strength per bullet>

## Weaknesses
- <one weakness per bullet>

## Suggestions

Suggestion 1
- Section: <target section, if any>
- Category: <correctness|clarity|completeness|code_quality|architecture|performance|security|other>
- Priority: <1 = highest>
- Description: <what to change and why>

Score: <0-100 overall quality>

Topic:
%s

Current draft:
---
%s
---%s`

// synthesisPromptTemplate asks the synthesizer to merge critiques into a
// revised draft.
const synthesisPromptTemplate = `You are the synthesizer in a multi-model debate. Merge the critiques
below into a single revised draft. Apply the suggestions that improve
the artifact, honor the conflict resolutions listed, and keep what the
critics agreed was strong. Respond with the complete revised draft in
markdown; do not include commentary about your edits.

Topic:
%s

Current draft:
---
%s
---

Critiques:
%s%s%s`

// refinementPromptTemplate asks for a focused pass on one weak area.
const refinementPromptTemplate = `You are refining a draft that narrowly missed convergence. Focus only on
the area below; leave the rest of the draft unchanged. Respond with the
complete draft including your focused improvements.

Focus area:
%s

Current draft:
---
%s
---`

// buildDraftPrompt assembles the draft request.
func buildDraftPrompt(topic string, feedback []string) string {
	return fmt.Sprintf(draftPromptTemplate, topic, feedbackBlock(feedback))
}

// buildCritiquePrompt assembles one critic's request.
func buildCritiquePrompt(topic, content string, feedback []string) string {
	return fmt.Sprintf(critiquePromptTemplate, topic, content, feedbackBlock(feedback))
}

// buildSynthesisPrompt assembles the synthesizer's request from the
// critique round and any conflict resolutions.
func buildSynthesisPrompt(topic, content string, critiques []debate.Critique, resolutions []debate.ConflictResolution, feedback []string) string {
	var sb strings.Builder
	for _, c := range critiques {
		fmt.Fprintf(&sb, "\nFrom %s (score %d):\n", c.Critic.Name(), c.Score)
		for _, s := range c.Strengths {
			fmt.Fprintf(&sb, "+ %s\n", s)
		}
		for _, w := range c.Weaknesses {
			fmt.Fprintf(&sb, "- %s\n", w)
		}
		for _, sug := range c.Suggestions {
			fmt.Fprintf(&sb, "* [%s, priority %d] %s\n", sug.Category, sug.Priority, sug.Text)
		}
	}

	var res strings.Builder
	if len(resolutions) > 0 {
		res.WriteString("\n\nConflict resolutions to honor:\n")
		for _, r := range resolutions {
			fmt.Fprintf(&res, "- %s: %s (%s)\n", r.Issue, r.Resolution, r.Rationale)
		}
	}

	return fmt.Sprintf(synthesisPromptTemplate, topic, content, sb.String(), res.String(), feedbackBlock(feedback))
}

// buildRefinementPrompt assembles a focused refinement request.
func buildRefinementPrompt(focusArea, content string) string {
	return fmt.Sprintf(refinementPromptTemplate, focusArea, content)
}

// feedbackBlock renders injected operator feedback for prompt inclusion.
func feedbackBlock(feedback []string) string {
	if len(feedback) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\nOperator feedback to take into account:\n")
	for _, f := range feedback {
		fmt.Fprintf(&sb, "- %s\n", f)
	}
	return sb.String()
}
