// Package render turns a finished (or in-flight) debate session into
// human- and machine-readable output: a markdown transcript, JSON or
// YAML exports, and a styled terminal summary.
package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/quorum/internal/debate"
	"github.com/Iron-Ham/quorum/internal/errors"
)

// Format selects a transcript export encoding.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "markdown", "md", "":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", errors.New("unknown transcript format: " + name)
	}
}

// Transcript renders the session in the requested format.
func Transcript(s *debate.Session, format Format) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return []byte(Markdown(s)), nil
	case FormatJSON:
		return json.MarshalIndent(s, "", "  ")
	case FormatYAML:
		return yaml.Marshal(s)
	default:
		return nil, errors.New("unknown transcript format: " + string(format))
	}
}

// Markdown renders the full session history as a markdown document:
// a header with the topic and outcome, one section per round, and the
// final artifact at the end.
func Markdown(s *debate.Session) string {
	var b strings.Builder

	title := s.Name
	if title == "" {
		title = s.Topic
	}
	fmt.Fprintf(&b, "# Debate: %s\n\n", title)
	fmt.Fprintf(&b, "- **Status:** %s\n", s.Status)
	if s.TerminalReason != "" {
		fmt.Fprintf(&b, "- **Outcome:** %s\n", s.TerminalReason)
	}
	fmt.Fprintf(&b, "- **Rounds:** %d\n", len(s.Rounds))
	fmt.Fprintf(&b, "- **Tokens:** %d\n", s.TotalTokens)
	if s.TotalCost > 0 {
		fmt.Fprintf(&b, "- **Cost:** $%.4f\n", s.TotalCost)
	}
	b.WriteString("\n")

	if len(s.Participants) > 0 {
		b.WriteString("## Participants\n\n")
		for _, p := range s.Participants {
			fmt.Fprintf(&b, "- %s (%s, %s)\n", p.Name(), p.Provider, p.Role)
		}
		b.WriteString("\n")
	}

	for i := range s.Rounds {
		writeRoundMarkdown(&b, &s.Rounds[i])
	}

	if content := s.CurrentContent(); content != "" {
		b.WriteString("## Final Artifact\n\n")
		b.WriteString(content)
		if !strings.HasSuffix(content, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeRoundMarkdown(b *strings.Builder, r *debate.Round) {
	fmt.Fprintf(b, "## Round %d: %s\n\n", r.Number+1, roundTitle(r.Kind))

	switch r.Kind {
	case debate.KindDraft:
		fmt.Fprintf(b, "Drafted by %s.\n\n", r.Draft.Participant.Name())
	case debate.KindCritique:
		for i := range r.Critique.Critiques {
			writeCritiqueMarkdown(b, &r.Critique.Critiques[i])
		}
	case debate.KindSynthesis:
		fmt.Fprintf(b, "Synthesized by %s.\n\n", r.Synthesis.Participant.Name())
		if len(r.Synthesis.Resolutions) > 0 {
			b.WriteString("**Conflicts resolved:**\n\n")
			for _, res := range r.Synthesis.Resolutions {
				fmt.Fprintf(b, "- %s (%s): %s\n", res.Issue, res.Strategy, res.Resolution)
			}
			b.WriteString("\n")
		}
		if len(r.Synthesis.Changes) > 0 {
			b.WriteString("**Changes:**\n\n")
			for _, c := range r.Synthesis.Changes {
				fmt.Fprintf(b, "- %s\n", c)
			}
			b.WriteString("\n")
		}
	case debate.KindRefinement:
		fmt.Fprintf(b, "Refined by %s (focus: %s).\n\n",
			r.Refinement.Participant.Name(), r.Refinement.FocusArea)
	case debate.KindConvergence:
		writeConvergenceMarkdown(b, r.Convergence)
	}
}

func writeCritiqueMarkdown(b *strings.Builder, c *debate.Critique) {
	fmt.Fprintf(b, "### %s (score %d)\n\n", c.Critic.Name(), c.Score)
	for _, s := range c.Strengths {
		fmt.Fprintf(b, "- **Strength:** %s\n", s)
	}
	for _, w := range c.Weaknesses {
		fmt.Fprintf(b, "- **Weakness:** %s\n", w)
	}
	for _, sg := range c.Suggestions {
		if sg.Section != "" {
			fmt.Fprintf(b, "- **Suggestion (%s):** %s\n", sg.Section, sg.Text)
		} else {
			fmt.Fprintf(b, "- **Suggestion:** %s\n", sg.Text)
		}
	}
	b.WriteString("\n")
}

func writeConvergenceMarkdown(b *strings.Builder, c *debate.ConvergenceRound) {
	verdict := "not converged"
	if c.Converged {
		verdict = "converged"
	}
	fmt.Fprintf(b, "Score %.2f, %s.\n\n", c.Score, verdict)
	for _, v := range c.Votes {
		stance := "disagrees"
		if v.Agrees {
			stance = "agrees"
		}
		fmt.Fprintf(b, "- %s %s (score %d)\n", v.Participant.Name(), stance, v.Score)
		for _, concern := range v.Concerns {
			fmt.Fprintf(b, "  - concern: %s\n", concern)
		}
	}
	if len(c.RemainingIssues) > 0 {
		b.WriteString("\n**Remaining issues:**\n\n")
		for _, issue := range c.RemainingIssues {
			fmt.Fprintf(b, "- %s\n", issue)
		}
	}
	b.WriteString("\n")
}

func roundTitle(kind debate.RoundKind) string {
	switch kind {
	case debate.KindDraft:
		return "Draft"
	case debate.KindCritique:
		return "Critique"
	case debate.KindSynthesis:
		return "Synthesis"
	case debate.KindRefinement:
		return "Refinement"
	case debate.KindConvergence:
		return "Convergence Check"
	default:
		return string(kind)
	}
}
