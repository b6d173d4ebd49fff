package conflict

import (
	"context"
	"fmt"
	"strings"

	"github.com/Iron-Ham/quorum/internal/debate"
	"github.com/Iron-Ham/quorum/internal/logging"
	"github.com/Iron-Ham/quorum/internal/provider"
)

// Placeholder text used when a compromise response omits a labeled line.
const (
	placeholderResolution = "Adopt a middle-ground position incorporating elements of each stance."
	placeholderRationale  = "The synthesizer did not provide an explicit rationale."
)

// compromisePromptTemplate asks the synthesizer to settle one conflict.
// The response is parsed by line prefix.
const compromisePromptTemplate = `Two or more reviewers disagree about the following topic:

%s

Their positions:
%s

Propose a compromise that honors the strongest points of each position.
Respond with exactly two lines:
RESOLUTION: <the compromise, one sentence>
RATIONALE: <why this compromise is acceptable to both sides, one sentence>`

// Resolver executes resolution strategies against detected conflicts.
// Only the compromise strategy invokes a model; all others resolve from
// the conflict's own positions.
type Resolver struct {
	invoker     provider.Invoker
	synthesizer debate.Participant
	logger      *logging.Logger
}

// NewResolver creates a Resolver. The invoker may be nil, in which case
// the compromise strategy degrades to its placeholder text.
func NewResolver(invoker provider.Invoker, synthesizer debate.Participant, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Resolver{
		invoker:     invoker,
		synthesizer: synthesizer,
		logger:      logger,
	}
}

// ResolveAll resolves every conflict with its first applicable strategy
// and returns the records in input order. Individual resolution
// failures degrade to the compromise placeholders rather than failing
// the batch.
func (r *Resolver) ResolveAll(ctx context.Context, conflicts []debate.DetectedConflict) []debate.ConflictResolution {
	resolutions := make([]debate.ConflictResolution, 0, len(conflicts))
	for _, c := range conflicts {
		resolutions = append(resolutions, r.Resolve(ctx, c))
	}
	return resolutions
}

// Resolve executes one strategy for a conflict. The conflict's first
// suggested strategy is used; a conflict with no suggestions gets the
// compromise treatment.
func (r *Resolver) Resolve(ctx context.Context, c debate.DetectedConflict) debate.ConflictResolution {
	strategy := debate.StrategyCompromise
	if len(c.Strategies) > 0 {
		strategy = c.Strategies[0]
	}

	res := r.execute(ctx, strategy, c)
	r.logger.Debug("conflict resolved",
		"topic", c.Topic,
		"severity", c.Severity,
		"strategy", string(res.Strategy))
	return res
}

func (r *Resolver) execute(ctx context.Context, strategy debate.ResolutionStrategy, c debate.DetectedConflict) debate.ConflictResolution {
	base := debate.ConflictResolution{
		Issue:     c.Topic,
		Positions: c.Positions,
		Strategy:  strategy,
	}

	switch strategy {
	case debate.StrategyMajorityVote:
		return r.majorityVote(base, c)
	case debate.StrategyDeferToExpert:
		return r.deferToExpert(ctx, base, c)
	case debate.StrategyCompromise:
		return r.compromise(ctx, base, c)
	case debate.StrategyImplementBoth:
		base.Resolution = "Implement both positions where they do not contradict, sequencing the less disruptive change first."
		base.Rationale = "The positions target complementary aspects and can coexist."
		return base
	case debate.StrategyDefer:
		base.Resolution = "Defer this disagreement to a later round; proceed with the current draft unchanged on this point."
		base.Rationale = "The conflict does not block the current synthesis."
		return base
	case debate.StrategyEscalateToHuman:
		base.Resolution = "Escalate to a human operator for a decision; record all positions verbatim."
		base.Rationale = fmt.Sprintf("Severity %d disagreement exceeds the automatic resolution threshold.", c.Severity)
		return base
	default:
		return r.compromise(ctx, base, c)
	}
}

// majorityVote buckets positions by stance and adopts the larger
// bucket's stance.
func (r *Resolver) majorityVote(base debate.ConflictResolution, c debate.DetectedConflict) debate.ConflictResolution {
	var positive, negative []debate.ConflictPosition
	for _, p := range c.Positions {
		if positiveStance(p) {
			positive = append(positive, p)
		} else {
			negative = append(negative, p)
		}
	}

	winner := positive
	stance := "favorable"
	if len(negative) > len(positive) {
		winner = negative
		stance = "critical"
	}
	if len(winner) == 0 {
		base.Resolution = placeholderResolution
		base.Rationale = "No majority could be determined from the positions."
		return base
	}

	base.Resolution = fmt.Sprintf("Adopt the %s position: %s", stance, winner[0].Statement)
	base.Rationale = fmt.Sprintf("%d of %d positions take the %s stance.", len(winner), len(c.Positions), stance)
	return base
}

// deferToExpert adopts the stance of a domain expert or code reviewer
// among the positions, falling back to majority vote when none holds one.
func (r *Resolver) deferToExpert(ctx context.Context, base debate.ConflictResolution, c debate.DetectedConflict) debate.ConflictResolution {
	expert := expertPosition(c.Positions)
	if expert == nil {
		base.Strategy = debate.StrategyMajorityVote
		return r.majorityVote(base, c)
	}
	base.Resolution = fmt.Sprintf("Adopt the expert position: %s", expert.Statement)
	base.Rationale = fmt.Sprintf("%s holds the %s role for this session.", expert.Participant.Name(), expert.Participant.Role)
	return base
}

// compromise asks the synthesizer for a RESOLUTION/RATIONALE pair. Any
// failure, or a missing invoker, yields the fixed placeholder text.
func (r *Resolver) compromise(ctx context.Context, base debate.ConflictResolution, c debate.DetectedConflict) debate.ConflictResolution {
	base.Resolution = placeholderResolution
	base.Rationale = placeholderRationale
	if r.invoker == nil {
		return base
	}

	var positions strings.Builder
	for _, p := range c.Positions {
		fmt.Fprintf(&positions, "- %s: %s\n", p.Participant.Name(), p.Statement)
	}
	prompt := fmt.Sprintf(compromisePromptTemplate, c.Topic, positions.String())

	resp, err := r.invoker.Invoke(ctx, r.synthesizer, provider.Request{
		Messages: []provider.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		r.logger.Warn("compromise invocation failed, using placeholder", "topic", c.Topic, "error", err)
		return base
	}

	resolution, rationale := parseCompromise(resp.Text)
	if resolution != "" {
		base.Resolution = resolution
	}
	if rationale != "" {
		base.Rationale = rationale
	}
	return base
}

// parseCompromise extracts the RESOLUTION and RATIONALE lines from a
// compromise response. Missing lines return empty strings.
func parseCompromise(text string) (resolution, rationale string) {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)
		switch {
		case strings.HasPrefix(upper, "RESOLUTION:"):
			resolution = strings.TrimSpace(trimmed[len("RESOLUTION:"):])
		case strings.HasPrefix(upper, "RATIONALE:"):
			rationale = strings.TrimSpace(trimmed[len("RATIONALE:"):])
		}
	}
	return resolution, rationale
}

// positiveStance classifies a position as favorable using a keyword
// heuristic over its statement and evidence.
func positiveStance(p debate.ConflictPosition) bool {
	text := strings.ToLower(p.Statement + " " + p.Evidence)
	if strings.Contains(text, "strength") {
		return true
	}
	if strings.Contains(text, "weakness") {
		return false
	}
	for _, kw := range []string{"good", "clear", "solid", "well", "strong", "clean"} {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// stanceCounts tallies favorable and critical positions.
func stanceCounts(positions []debate.ConflictPosition) (positive, negative int) {
	for _, p := range positions {
		if positiveStance(p) {
			positive++
		} else {
			negative++
		}
	}
	return positive, negative
}

// expertPosition returns the first position held by a domain expert or
// code reviewer, or nil.
func expertPosition(positions []debate.ConflictPosition) *debate.ConflictPosition {
	for i, p := range positions {
		if p.Participant.Role == debate.RoleDomainExpert || p.Participant.Role == debate.RoleCodeReviewer {
			return &positions[i]
		}
	}
	return nil
}
