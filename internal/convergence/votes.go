package convergence

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Iron-Ham/quorum/internal/debate"
)

// votePromptTemplate asks one participant whether the draft is ready.
const votePromptTemplate = `You are reviewing the current draft produced by a multi-model debate on:

%s

Current draft:
---
%s
---

Is this draft ready to be finalized? Respond with exactly this format:
AGREE: yes or no
SCORE: <0-100, your readiness score>
CONCERNS:
- <one concern per line, or omit the section if you have none>`

var (
	agreeLineRegex  = regexp.MustCompile(`(?im)^\s*agree\s*:\s*(yes|no)\b`)
	scoreLineRegex  = regexp.MustCompile(`(?im)^\s*score\s*:\s*(\d{1,3})`)
	voteBulletRegex = regexp.MustCompile(`(?m)^\s*[-*]\s+(.+)$`)
)

// VotePrompt builds the readiness question for one participant.
func VotePrompt(topic, content string) string {
	return fmt.Sprintf(votePromptTemplate, topic, content)
}

// ParseVote extracts a ConvergenceVote from a raw response. Missing
// fields degrade conservatively: no AGREE line means disagreement, no
// SCORE line means 0.
func ParseVote(p debate.Participant, raw string) debate.ConvergenceVote {
	vote := debate.ConvergenceVote{Participant: p}

	if m := agreeLineRegex.FindStringSubmatch(raw); m != nil {
		vote.Agrees = strings.EqualFold(m[1], "yes")
	}
	if m := scoreLineRegex.FindStringSubmatch(raw); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			vote.Score = debate.ClampScore(n)
		}
	}

	// Concerns are the bullets after the CONCERNS label.
	if idx := strings.Index(strings.ToUpper(raw), "CONCERNS"); idx >= 0 {
		for _, m := range voteBulletRegex.FindAllStringSubmatch(raw[idx:], -1) {
			if c := strings.TrimSpace(m[1]); c != "" {
				vote.Concerns = append(vote.Concerns, c)
			}
		}
	}
	return vote
}
