package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/Iron-Ham/quorum/internal/debate"
)

var (
	// Colors meet WCAG AA contrast (4.5:1) on dark terminals.
	primaryColor = lipgloss.Color("#A78BFA") // Purple
	greenColor   = lipgloss.Color("#10B981")
	amberColor   = lipgloss.Color("#F59E0B")
	redColor     = lipgloss.Color("#F87171")
	mutedColor   = lipgloss.Color("#9CA3AF")
	blueColor    = lipgloss.Color("#60A5FA")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#6B7280")).
			Padding(0, 1)
)

// TerminalWidth returns the current terminal width, falling back to 80
// columns when stdout is not a terminal.
func TerminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// Summary renders a one-screen styled overview of the session suitable
// for printing after a run: status, round timeline, per-critic scores,
// and the convergence verdict.
func Summary(s *debate.Session) string {
	return SummaryWidth(s, TerminalWidth())
}

// SummaryWidth is Summary with an explicit width, for tests and piped
// output.
func SummaryWidth(s *debate.Session, width int) string {
	if width < 40 {
		width = 40
	}

	var b strings.Builder

	title := s.Name
	if title == "" {
		title = s.Topic
	}
	b.WriteString(titleStyle.Render(truncate(title, width-4)))
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("status "))
	b.WriteString(statusStyle(s.Status).Render(string(s.Status)))
	if s.TerminalReason != "" {
		b.WriteString(labelStyle.Render("  reason "))
		b.WriteString(s.TerminalReason)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "%s %d  %s %d  %s $%.4f\n",
		labelStyle.Render("rounds"), len(s.Rounds),
		labelStyle.Render("tokens"), s.TotalTokens,
		labelStyle.Render("cost"), s.TotalCost)

	if timeline := renderTimeline(s); timeline != "" {
		b.WriteString(labelStyle.Render("timeline "))
		b.WriteString(timeline)
		b.WriteString("\n")
	}

	if scores := renderScores(s); scores != "" {
		b.WriteString(scores)
	}

	if verdict := renderVerdict(s); verdict != "" {
		b.WriteString(verdict)
		b.WriteString("\n")
	}

	return boxStyle.Width(width - 2).Render(strings.TrimRight(b.String(), "\n"))
}

// renderTimeline draws one glyph per round, colored by kind.
func renderTimeline(s *debate.Session) string {
	if len(s.Rounds) == 0 {
		return ""
	}
	glyphs := make([]string, 0, len(s.Rounds))
	for _, r := range s.Rounds {
		glyphs = append(glyphs, kindGlyph(r.Kind))
	}
	return strings.Join(glyphs, " ")
}

func kindGlyph(kind debate.RoundKind) string {
	switch kind {
	case debate.KindDraft:
		return lipgloss.NewStyle().Foreground(blueColor).Render("D")
	case debate.KindCritique:
		return lipgloss.NewStyle().Foreground(amberColor).Render("C")
	case debate.KindSynthesis:
		return lipgloss.NewStyle().Foreground(primaryColor).Render("S")
	case debate.KindRefinement:
		return lipgloss.NewStyle().Foreground(amberColor).Render("R")
	case debate.KindConvergence:
		return lipgloss.NewStyle().Foreground(greenColor).Render("✓")
	default:
		return "?"
	}
}

// renderScores shows the most recent critique round's per-critic scores.
func renderScores(s *debate.Session) string {
	round := s.LastRoundOfKind(debate.KindCritique)
	if round == nil || round.Critique == nil {
		return ""
	}
	var b strings.Builder
	for _, c := range round.Critique.Critiques {
		fmt.Fprintf(&b, "%s %s %d\n",
			labelStyle.Render("score"), c.Critic.Name(), c.Score)
	}
	return b.String()
}

func renderVerdict(s *debate.Session) string {
	round := s.LastRoundOfKind(debate.KindConvergence)
	if round == nil || round.Convergence == nil {
		return ""
	}
	c := round.Convergence
	if c.Converged {
		return lipgloss.NewStyle().Foreground(greenColor).Bold(true).
			Render(fmt.Sprintf("converged at %.2f", c.Score))
	}
	line := lipgloss.NewStyle().Foreground(amberColor).
		Render(fmt.Sprintf("not converged (%.2f)", c.Score))
	if len(c.RemainingIssues) > 0 {
		line += labelStyle.Render(
			fmt.Sprintf("  %d open issue(s)", len(c.RemainingIssues)))
	}
	return line
}

func statusStyle(status debate.SessionStatus) lipgloss.Style {
	switch status {
	case debate.StatusConverged, debate.StatusComplete:
		return lipgloss.NewStyle().Foreground(greenColor)
	case debate.StatusInProgress:
		return lipgloss.NewStyle().Foreground(blueColor)
	case debate.StatusPaused:
		return lipgloss.NewStyle().Foreground(amberColor)
	case debate.StatusAborted, debate.StatusTimedOut:
		return lipgloss.NewStyle().Foreground(redColor)
	default:
		return lipgloss.NewStyle().Foreground(mutedColor)
	}
}

func truncate(s string, maxLen int) string {
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
