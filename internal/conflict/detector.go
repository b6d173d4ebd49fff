// Package conflict surfaces and resolves disagreement across one
// round's critiques. Detection runs three independent passes
// (assessment polarity, suggestion antonyms, score spread) and merges
// the results sorted by severity; resolution executes one strategy per
// conflict and records the outcome for the synthesis round.
package conflict

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/Iron-Ham/quorum/internal/debate"
)

// topicVocabulary is the fixed set of canonical topic phrases used to
// group assessment statements. Statements matching none of these are
// keyed by their first three words.
var topicVocabulary = []string{
	"error handling",
	"performance",
	"security",
	"readability",
	"test coverage",
	"documentation",
	"architecture",
	"naming",
	"concurrency",
	"validation",
	"logging",
	"configuration",
}

// antonymPairs are the opposing action words that mark two suggestions
// for the same section as conflicting.
var antonymPairs = [][2]string{
	{"add", "remove"},
	{"increase", "decrease"},
	{"simplify", "elaborate"},
	{"split", "merge"},
	{"keep", "remove"},
}

// scoreSpreadThreshold is the high-low score gap beyond which a score
// conflict is recorded.
const scoreSpreadThreshold = 30

// Detect runs all three passes over one round's critiques and returns
// the merged conflicts sorted by severity, highest first.
func Detect(critiques []debate.Critique) []debate.DetectedConflict {
	var conflicts []debate.DetectedConflict
	conflicts = append(conflicts, detectAssessmentConflicts(critiques)...)
	conflicts = append(conflicts, detectSuggestionConflicts(critiques)...)
	conflicts = append(conflicts, detectScoreConflicts(critiques)...)

	sort.SliceStable(conflicts, func(i, j int) bool {
		return conflicts[i].Severity > conflicts[j].Severity
	})
	return conflicts
}

type assessment struct {
	critic    debate.Participant
	statement string
	positive  bool
}

// detectAssessmentConflicts groups strength and weakness statements by
// topic; a topic mentioned positively by one critic and negatively by
// another is a conflict. Severity tracks how evenly the critics split.
func detectAssessmentConflicts(critiques []debate.Critique) []debate.DetectedConflict {
	byTopic := make(map[string][]assessment)
	var order []string

	record := func(critic debate.Participant, statement string, positive bool) {
		topic := topicKey(statement)
		if _, seen := byTopic[topic]; !seen {
			order = append(order, topic)
		}
		byTopic[topic] = append(byTopic[topic], assessment{critic, statement, positive})
	}

	for _, c := range critiques {
		for _, s := range c.Strengths {
			record(c.Critic, s, true)
		}
		for _, w := range c.Weaknesses {
			record(c.Critic, w, false)
		}
	}

	var conflicts []debate.DetectedConflict
	for _, topic := range order {
		group := byTopic[topic]
		var positives, negatives int
		for _, a := range group {
			if a.positive {
				positives++
			} else {
				negatives++
			}
		}
		if positives == 0 || negatives == 0 {
			continue
		}

		severity := 2
		switch diff := abs(positives - negatives); diff {
		case 0:
			severity = 4
		case 1:
			severity = 3
		}

		positions := make([]debate.ConflictPosition, 0, len(group))
		for _, a := range group {
			stance := "weakness"
			if a.positive {
				stance = "strength"
			}
			positions = append(positions, debate.ConflictPosition{
				Participant: a.critic,
				Statement:   a.statement,
				Evidence:    "cited as " + stance,
				Confidence:  0.7,
			})
		}

		conflicts = append(conflicts, newConflict(
			fmt.Sprintf("critics disagree on %s", topic),
			severity, positions))
	}
	return conflicts
}

// detectSuggestionConflicts flags suggestion pairs targeting the same
// section whose texts sit on opposite sides of a known antonym pair.
func detectSuggestionConflicts(critiques []debate.Critique) []debate.DetectedConflict {
	type attributed struct {
		critic     debate.Participant
		suggestion debate.Suggestion
	}
	bySection := make(map[string][]attributed)
	var order []string

	for _, c := range critiques {
		for _, s := range c.Suggestions {
			section := strings.ToLower(strings.TrimSpace(s.Section))
			if section == "" {
				section = "general"
			}
			if _, seen := bySection[section]; !seen {
				order = append(order, section)
			}
			bySection[section] = append(bySection[section], attributed{c.Critic, s})
		}
	}

	var conflicts []debate.DetectedConflict
	for _, section := range order {
		group := bySection[section]
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if !opposingSuggestions(group[i].suggestion.Text, group[j].suggestion.Text) {
					continue
				}
				conflicts = append(conflicts, newConflict(
					fmt.Sprintf("opposing suggestions for section %q", section),
					3,
					[]debate.ConflictPosition{
						{Participant: group[i].critic, Statement: group[i].suggestion.Text, Confidence: 0.6},
						{Participant: group[j].critic, Statement: group[j].suggestion.Text, Confidence: 0.6},
					}))
			}
		}
	}
	return conflicts
}

// detectScoreConflicts records one conflict between the highest and
// lowest scoring critics when their spread exceeds the threshold.
func detectScoreConflicts(critiques []debate.Critique) []debate.DetectedConflict {
	if len(critiques) < 2 {
		return nil
	}

	low, high := 0, 0
	for i, c := range critiques {
		if c.Score < critiques[low].Score {
			low = i
		}
		if c.Score > critiques[high].Score {
			high = i
		}
	}
	spread := critiques[high].Score - critiques[low].Score
	if spread <= scoreSpreadThreshold {
		return nil
	}

	positions := []debate.ConflictPosition{
		{
			Participant: critiques[high].Critic,
			Statement:   fmt.Sprintf("scored the draft %d", critiques[high].Score),
			Confidence:  0.8,
		},
		{
			Participant: critiques[low].Critic,
			Statement:   fmt.Sprintf("scored the draft %d", critiques[low].Score),
			Confidence:  0.8,
		},
	}
	return []debate.DetectedConflict{newConflict(
		fmt.Sprintf("score spread of %d points between critics", spread),
		2, positions)}
}

// newConflict assembles a conflict with its applicable strategies.
func newConflict(topic string, severity int, positions []debate.ConflictPosition) debate.DetectedConflict {
	return debate.DetectedConflict{
		ID:         uuid.NewString(),
		Topic:      topic,
		Severity:   severity,
		Positions:  positions,
		Strategies: applicableStrategies(severity, positions),
	}
}

// applicableStrategies chooses the strategies a resolver may use for a
// conflict. Compromise is always offered as the fallback.
func applicableStrategies(severity int, positions []debate.ConflictPosition) []debate.ResolutionStrategy {
	var strategies []debate.ResolutionStrategy

	pos, neg := stanceCounts(positions)
	if pos != neg {
		strategies = append(strategies, debate.StrategyMajorityVote)
	}
	if expertPosition(positions) != nil {
		strategies = append(strategies, debate.StrategyDeferToExpert)
	}
	if severity >= 4 {
		strategies = append(strategies, debate.StrategyEscalateToHuman)
	}
	return append(strategies, debate.StrategyCompromise)
}

// topicKey normalizes a statement to its canonical topic, falling back
// to the statement's first three words.
func topicKey(statement string) string {
	lower := strings.ToLower(statement)
	for _, topic := range topicVocabulary {
		if strings.Contains(lower, topic) {
			return topic
		}
	}
	words := strings.Fields(lower)
	if len(words) > 3 {
		words = words[:3]
	}
	return strings.Join(words, " ")
}

// opposingSuggestions reports whether the two texts contain a known
// antonym pair on opposite sides.
func opposingSuggestions(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	for _, pair := range antonymPairs {
		if containsWord(la, pair[0]) && containsWord(lb, pair[1]) {
			return true
		}
		if containsWord(la, pair[1]) && containsWord(lb, pair[0]) {
			return true
		}
	}
	return false
}

func containsWord(text, word string) bool {
	for _, w := range strings.Fields(text) {
		if strings.Trim(w, ".,;:!?()\"'") == word {
			return true
		}
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
