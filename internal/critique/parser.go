// Package critique converts free-text model responses into structured
// Critique records. A structured parser handles well-formed responses
// that follow the critique prompt's layout; a lenient fallback extracts
// whatever signal it can from responses that ignore the layout. Only
// when both fail is the contribution dropped.
package critique

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Iron-Ham/quorum/internal/debate"
	"github.com/Iron-Ham/quorum/internal/errors"
)

// defaultScore is assumed by the lenient parser when no score is found.
const defaultScore = 70

var (
	// sectionHeaderRegex matches "Strengths:", "## Weaknesses", "**Suggestions**" etc.
	sectionHeaderRegex = regexp.MustCompile(`(?im)^\s*(?:#+\s*|\*\*)?(strengths|weaknesses|suggestions)\b[:*\s]*$`)

	// suggestionBlockRegex matches enumerated "Suggestion N" headings.
	suggestionBlockRegex = regexp.MustCompile(`(?im)^\s*(?:#+\s*|\*\*)?suggestion\s+(\d+)\b[:*\s]*$`)

	// numberedBoldRegex is the fallback suggestion pattern: "1. **Term**: text".
	numberedBoldRegex = regexp.MustCompile(`(?m)^\s*\d+\.\s+\*\*([^*]+)\*\*[:\s]*(.+)$`)

	// scoreLabelRegex matches a labeled score line, e.g. "Score: 85" or
	// "Overall score: 85/100".
	scoreLabelRegex = regexp.MustCompile(`(?im)^\s*(?:#+\s*|\*\*)?(?:overall\s+)?score\b[:*\s]*(\d{1,3})`)

	// looseScoreRegex finds a number following the word "score" anywhere.
	looseScoreRegex = regexp.MustCompile(`(?i)score\D{0,20}?(\d{1,3})`)

	// bulletRegex matches "- item", "* item", "• item".
	bulletRegex = regexp.MustCompile(`^\s*[-*•]\s+(.+)$`)

	// fieldRegex matches "Section: foo" style fields in suggestion blocks.
	fieldRegex = regexp.MustCompile(`(?i)^\s*[-*]?\s*(?:\*\*)?(section|category|priority|description)(?:\*\*)?\s*:\s*(.+)$`)
)

// Parse converts a raw response into a Critique attributed to the
// critic. The structured parser runs first; on failure the lenient
// parser takes over. Returns a ParseError when neither extracts
// anything usable.
func Parse(critic debate.Participant, raw string) (*debate.Critique, error) {
	c, err := parseStructured(raw)
	if err != nil {
		c, err = parseLenient(raw)
	}
	if err != nil {
		return nil, errors.NewParseError(critic.Name(), "unusable critique response", err)
	}
	c.Critic = critic
	c.RawText = raw
	c.Score = debate.ClampScore(c.Score)
	return c, nil
}

// parseStructured requires labeled Strengths and Weaknesses sections and
// a labeled score. Suggestions come from "Suggestion N" blocks, or the
// numbered-bold pattern when no blocks exist.
func parseStructured(raw string) (*debate.Critique, error) {
	strengths := sectionItems(raw, "strengths")
	weaknesses := sectionItems(raw, "weaknesses")
	score, scoreFound := labeledScore(raw)

	if len(strengths) == 0 || len(weaknesses) == 0 || !scoreFound {
		return nil, errors.ErrNoStructuredData
	}

	suggestions := suggestionBlocks(raw)
	if len(suggestions) == 0 {
		suggestions = numberedBoldSuggestions(raw)
	}

	return &debate.Critique{
		Strengths:   strengths,
		Weaknesses:  weaknesses,
		Suggestions: suggestions,
		Score:       score,
	}, nil
}

// parseLenient scans line by line, switching the active section on
// keyword sightings and collecting bulleted lines into it. It fails only
// when nothing at all was extracted.
func parseLenient(raw string) (*debate.Critique, error) {
	var strengths, weaknesses []string
	var suggestions []debate.Suggestion
	section := ""

	for _, line := range strings.Split(raw, "\n") {
		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "strength"):
			section = "strengths"
		case strings.Contains(lower, "weakness") || strings.Contains(lower, "issue"):
			section = "weaknesses"
		case strings.Contains(lower, "suggestion") || strings.Contains(lower, "recommend"):
			section = "suggestions"
		}

		m := bulletRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		item := strings.TrimSpace(m[1])
		if item == "" {
			continue
		}
		switch section {
		case "strengths":
			strengths = append(strengths, item)
		case "weaknesses":
			weaknesses = append(weaknesses, item)
		case "suggestions":
			suggestions = append(suggestions, debate.Suggestion{
				Text:     item,
				Priority: len(suggestions) + 1,
				Category: debate.CategoryOther,
			})
		}
	}

	if len(strengths)+len(weaknesses)+len(suggestions) == 0 {
		return nil, errors.ErrParseFailure
	}

	score := defaultScore
	if m := looseScoreRegex.FindStringSubmatch(raw); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			score = n
		}
	}

	return &debate.Critique{
		Strengths:   strengths,
		Weaknesses:  weaknesses,
		Suggestions: suggestions,
		Score:       score,
	}, nil
}

// sectionItems returns the bullet items under the named section header,
// stopping at the next section header or suggestion block.
func sectionItems(raw, name string) []string {
	lines := strings.Split(raw, "\n")
	var items []string
	inSection := false

	for _, line := range lines {
		if m := sectionHeaderRegex.FindStringSubmatch(line); m != nil {
			inSection = strings.EqualFold(m[1], name)
			continue
		}
		if suggestionBlockRegex.MatchString(line) || scoreLabelRegex.MatchString(line) {
			inSection = false
			continue
		}
		if !inSection {
			continue
		}
		if m := bulletRegex.FindStringSubmatch(line); m != nil {
			if item := strings.TrimSpace(m[1]); item != "" {
				items = append(items, item)
			}
		}
	}
	return items
}

// suggestionBlocks extracts "Suggestion N" blocks with their labeled
// Section/Category/Priority/Description fields. A block missing a
// description falls back to its first unlabeled non-empty line.
func suggestionBlocks(raw string) []debate.Suggestion {
	lines := strings.Split(raw, "\n")
	var suggestions []debate.Suggestion
	var current *debate.Suggestion
	var firstText string

	flush := func() {
		if current == nil {
			return
		}
		if current.Text == "" {
			current.Text = firstText
		}
		if current.Text != "" {
			if current.Priority == 0 {
				current.Priority = len(suggestions) + 1
			}
			if current.Category == "" {
				current.Category = debate.CategoryOther
			}
			suggestions = append(suggestions, *current)
		}
		current = nil
		firstText = ""
	}

	for _, line := range lines {
		if suggestionBlockRegex.MatchString(line) {
			flush()
			current = &debate.Suggestion{}
			continue
		}
		if sectionHeaderRegex.MatchString(line) || scoreLabelRegex.MatchString(line) {
			flush()
			continue
		}
		if current == nil {
			continue
		}
		if m := fieldRegex.FindStringSubmatch(line); m != nil {
			value := strings.TrimSpace(m[2])
			switch strings.ToLower(m[1]) {
			case "section":
				current.Section = value
			case "category":
				current.Category = ParseCategory(value)
			case "priority":
				if fields := strings.Fields(value); len(fields) > 0 {
					if n, err := strconv.Atoi(fields[0]); err == nil {
						current.Priority = n
					}
				}
			case "description":
				current.Text = value
			}
			continue
		}
		if firstText == "" {
			if t := strings.TrimSpace(line); t != "" {
				firstText = t
			}
		}
	}
	flush()
	return suggestions
}

// numberedBoldSuggestions extracts suggestions from "1. **Term**: text"
// lines when no explicit Suggestion blocks exist.
func numberedBoldSuggestions(raw string) []debate.Suggestion {
	var suggestions []debate.Suggestion
	for _, m := range numberedBoldRegex.FindAllStringSubmatch(raw, -1) {
		term := strings.TrimSpace(m[1])
		text := strings.TrimSpace(m[2])
		if text == "" {
			text = term
		}
		suggestions = append(suggestions, debate.Suggestion{
			Section:  term,
			Text:     text,
			Priority: len(suggestions) + 1,
			Category: ParseCategory(term),
		})
	}
	return suggestions
}

// labeledScore extracts the value from a labeled score line.
func labeledScore(raw string) (int, bool) {
	m := scoreLabelRegex.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseCategory maps a free-text category label onto the fixed
// Suggestion category set. Matching is case-insensitive and treats
// underscores and spaces alike; unrecognized labels map to "other".
func ParseCategory(label string) debate.SuggestionCategory {
	normalized := strings.ToLower(strings.TrimSpace(label))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")

	switch debate.SuggestionCategory(normalized) {
	case debate.CategoryCorrectness,
		debate.CategoryClarity,
		debate.CategoryCompleteness,
		debate.CategoryCodeQuality,
		debate.CategoryArchitecture,
		debate.CategoryPerformance,
		debate.CategorySecurity,
		debate.CategoryOther:
		return debate.SuggestionCategory(normalized)
	}

	// Common aliases seen in model output.
	switch normalized {
	case "code", "quality", "style":
		return debate.CategoryCodeQuality
	case "perf", "efficiency":
		return debate.CategoryPerformance
	case "design", "structure":
		return debate.CategoryArchitecture
	case "bug", "bugs", "accuracy":
		return debate.CategoryCorrectness
	case "readability":
		return debate.CategoryClarity
	case "coverage", "missing":
		return debate.CategoryCompleteness
	}
	return debate.CategoryOther
}
