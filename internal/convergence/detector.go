// Package convergence decides whether a debate has stabilized. Five
// independent metrics computed from session history are combined with
// fixed weights, blended with a participant vote score, and gated by a
// consensus count. A stall detector and trend classifier run alongside
// as operator-visible signals that never gate termination themselves.
package convergence

import (
	"math"
	"strings"

	"github.com/Iron-Ham/quorum/internal/debate"
)

// Fixed relative weights for the metric blend.
const (
	weightAgreement  = 0.30
	weightVelocity   = 0.20
	weightIssueCount = 0.20
	weightSemantic   = 0.20
	weightSections   = 0.10
)

// Blend split between the metric score and the vote score.
const (
	metricBlendWeight = 0.60
	voteBlendWeight   = 0.40
)

// versionWindow is how many recent content versions the semantic
// similarity and section stability metrics examine.
const versionWindow = 3

// stallWindow is how many consecutive checks without metric improvement
// mark the session as stalled.
const stallWindow = 3

// Trend classifies the direction of the blended score across checks.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDegrading Trend = "degrading"
	TrendUnknown   Trend = "unknown"
)

// Metrics holds the five normalized component scores.
type Metrics struct {
	Agreement          float64 `json:"agreement"`
	ChangeVelocity     float64 `json:"change_velocity"`
	IssueCount         float64 `json:"issue_count"`
	SemanticSimilarity float64 `json:"semantic_similarity"`
	SectionStability   float64 `json:"section_stability"`
}

// Score combines the metrics with their fixed weights.
func (m Metrics) Score() float64 {
	return m.Agreement*weightAgreement +
		m.ChangeVelocity*weightVelocity +
		m.IssueCount*weightIssueCount +
		m.SemanticSimilarity*weightSemantic +
		m.SectionStability*weightSections
}

// Result is the outcome of one convergence evaluation.
type Result struct {
	Score           float64                  `json:"score"`
	Converged       bool                     `json:"converged"`
	Metrics         Metrics                  `json:"metrics"`
	MetricScore     float64                  `json:"metric_score"`
	VoteScore       float64                  `json:"vote_score"`
	Votes           []debate.ConvergenceVote `json:"votes,omitempty"`
	RemainingIssues []string                 `json:"remaining_issues,omitempty"`
	Trend           Trend                    `json:"trend"`
	Stalled         bool                     `json:"stalled"`
	Skipped         bool                     `json:"skipped"`
}

// Detector evaluates convergence for one session. History across checks
// feeds the stall detector and trend classifier only; the metric
// computation itself is stateless.
type Detector struct {
	cfg     debate.Config
	history []float64
}

// NewDetector creates a Detector for the session configuration.
func NewDetector(cfg debate.Config) *Detector {
	return &Detector{cfg: cfg}
}

// Evaluate computes the blended convergence result for the session given
// the collected votes. Before the configured minimum round count it
// returns a fixed non-converged result without touching the metrics,
// though dissenting concerns are still surfaced.
func (d *Detector) Evaluate(s *debate.Session, votes []debate.ConvergenceVote) Result {
	agreeing := 0
	var remaining []string
	for _, v := range votes {
		if v.Agrees {
			agreeing++
		} else {
			remaining = append(remaining, v.Concerns...)
		}
	}

	if len(s.Rounds) < d.cfg.MinRoundsBeforeConvergence {
		return Result{
			Votes:           votes,
			RemainingIssues: remaining,
			Trend:           TrendUnknown,
			Skipped:         true,
		}
	}

	metrics := ComputeMetrics(s)
	metricScore := metrics.Score()
	voteScore := meanVoteScore(votes)
	blended := metricBlendWeight*metricScore + voteBlendWeight*voteScore

	// Unanimity means every session participant, not just those whose
	// votes came back parseable.
	required := d.cfg.MinConsensus
	if d.cfg.RequireUnanimous {
		required = len(s.Participants)
	}
	converged := blended >= d.cfg.ConvergenceThreshold && agreeing >= required && len(votes) > 0

	trend := d.classifyTrend(blended)
	stalled := d.detectStall(blended)
	d.history = append(d.history, blended)

	return Result{
		Score:           blended,
		Converged:       converged,
		Metrics:         metrics,
		MetricScore:     metricScore,
		VoteScore:       voteScore,
		Votes:           votes,
		RemainingIssues: remaining,
		Trend:           trend,
		Stalled:         stalled,
	}
}

// ComputeMetrics derives the five component scores from session history.
// It reads only the session and is safe to re-run: the same history
// always yields the same metrics.
func ComputeMetrics(s *debate.Session) Metrics {
	critiques := latestCritiques(s)
	versions := s.ContentVersions()

	return Metrics{
		Agreement:          agreementScore(critiques),
		ChangeVelocity:     changeVelocity(versions),
		IssueCount:         issueCountScore(critiques),
		SemanticSimilarity: semanticSimilarity(versions),
		SectionStability:   sectionStability(versions),
	}
}

// agreementScore blends the mean critique score (scaled to [0,1]) with
// an inverse-variance term, weighted 60/40.
func agreementScore(critiques []debate.Critique) float64 {
	if len(critiques) == 0 {
		return 0
	}

	var sum float64
	for _, c := range critiques {
		sum += float64(c.Score)
	}
	mean := sum / float64(len(critiques))

	var variance float64
	for _, c := range critiques {
		d := float64(c.Score) - mean
		variance += d * d
	}
	variance /= float64(len(critiques))

	// Variance of 0 gives full credit; 625 (std dev 25) or more gives none.
	inverseVariance := clamp01(1 - variance/625)
	return 0.6*(mean/100) + 0.4*inverseVariance
}

// changeVelocity measures how little the artifact changed between the
// two most recent versions via word-set Jaccard similarity. High
// similarity means low churn, favoring convergence.
func changeVelocity(versions []string) float64 {
	if len(versions) < 2 {
		return 0
	}
	return jaccard(wordSet(versions[len(versions)-1]), wordSet(versions[len(versions)-2]))
}

// issueCountScore maps the latest critique round's open issue volume to
// [0,1], saturating at 20 combined weaknesses and suggestions.
func issueCountScore(critiques []debate.Critique) float64 {
	if len(critiques) == 0 {
		return 0
	}
	total := 0
	for _, c := range critiques {
		total += len(c.Weaknesses) + len(c.Suggestions)
	}
	return 1 - math.Min(1, float64(total)/20)
}

// semanticSimilarity averages pairwise trigram overlap across the most
// recent content versions.
func semanticSimilarity(versions []string) float64 {
	if len(versions) < 2 {
		return 0
	}
	if len(versions) > versionWindow {
		versions = versions[len(versions)-versionWindow:]
	}

	grams := make([]map[string]struct{}, len(versions))
	for i, v := range versions {
		grams[i] = trigramSet(v)
	}

	var total float64
	pairs := 0
	for i := 0; i < len(grams); i++ {
		for j := i + 1; j < len(grams); j++ {
			total += jaccard(grams[i], grams[j])
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return total / float64(pairs)
}

// sectionStability reports whether the count of markdown headers stays
// within one across the recent versions.
func sectionStability(versions []string) float64 {
	if len(versions) < 2 {
		return 0
	}
	if len(versions) > versionWindow {
		versions = versions[len(versions)-versionWindow:]
	}

	min, max := math.MaxInt32, 0
	for _, v := range versions {
		n := headerCount(v)
		if n < min {
			min = n
		}
		if n > max {
			max = n
		}
	}
	if max-min <= 1 {
		return 1
	}
	return 0
}

// classifyTrend compares the current blended score against the previous
// check.
func (d *Detector) classifyTrend(score float64) Trend {
	if len(d.history) == 0 {
		return TrendUnknown
	}
	prev := d.history[len(d.history)-1]
	switch {
	case score > prev+0.01:
		return TrendImproving
	case score < prev-0.01:
		return TrendDegrading
	default:
		return TrendStable
	}
}

// detectStall reports whether the score has failed to improve over the
// last stallWindow checks.
func (d *Detector) detectStall(score float64) bool {
	if len(d.history) < stallWindow {
		return false
	}
	recent := d.history[len(d.history)-stallWindow:]
	best := recent[0]
	for _, s := range recent[1:] {
		if s > best {
			best = s
		}
	}
	return score <= best
}

func meanVoteScore(votes []debate.ConvergenceVote) float64 {
	if len(votes) == 0 {
		return 0
	}
	var sum float64
	for _, v := range votes {
		sum += float64(debate.ClampScore(v.Score))
	}
	return sum / float64(len(votes)) / 100
}

// latestCritiques returns the critiques of the most recent critique
// round, or nil when none exists.
func latestCritiques(s *debate.Session) []debate.Critique {
	r := s.LastRoundOfKind(debate.KindCritique)
	if r == nil || r.Critique == nil {
		return nil
	}
	return r.Critique.Critiques
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[strings.Trim(w, ".,;:!?()\"'")] = struct{}{}
	}
	return set
}

func trigramSet(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{})
	for i := 0; i+3 <= len(words); i++ {
		set[strings.Join(words[i:i+3], " ")] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

func headerCount(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			n++
		}
	}
	return n
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}
