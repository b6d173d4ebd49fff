// Package debate defines the core data model for a multi-model debate
// session: the session aggregate, the round variants that make up its
// history, and the structured feedback types produced by participants.
//
// The types here are plain data. The orchestrator package is the sole
// mutator of a Session during a run; every other component receives
// copies or read-only views.
package debate

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the lifecycle state of a debate session.
type SessionStatus string

const (
	// StatusInitialized - the session has been created but not started.
	StatusInitialized SessionStatus = "initialized"
	// StatusInProgress - the orchestrator is actively running rounds.
	StatusInProgress SessionStatus = "in_progress"
	// StatusPaused - progression is halted until resumed or aborted.
	StatusPaused SessionStatus = "paused"
	// StatusConverged - participants agreed the artifact is finished.
	StatusConverged SessionStatus = "converged"
	// StatusComplete - the session finished normally (converged or a
	// budget ceiling was reached).
	StatusComplete SessionStatus = "complete"
	// StatusAborted - an operator or a non-recoverable error stopped the run.
	StatusAborted SessionStatus = "aborted"
	// StatusTimedOut - the whole-session time budget expired.
	StatusTimedOut SessionStatus = "timed_out"
)

// IsTerminal reports whether the status is a terminal state.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case StatusConverged, StatusComplete, StatusAborted, StatusTimedOut:
		return true
	default:
		return false
	}
}

// Role identifies the function a participant performs in the debate.
type Role string

const (
	RoleDrafter      Role = "drafter"
	RoleCritic       Role = "critic"
	RoleSynthesizer  Role = "synthesizer"
	RoleDomainExpert Role = "domain_expert"
	RoleCodeReviewer Role = "code_reviewer"
)

// Participant is a model identity bound to a role for one session.
// Two participants are the same iff model, provider, and role all match;
// the same underlying model may hold different roles as distinct
// participants.
type Participant struct {
	Model       string `json:"model"`
	DisplayName string `json:"display_name,omitempty"`
	Provider    string `json:"provider"`
	Role        Role   `json:"role"`
}

// Equal reports whether two participants are the same identity.
func (p Participant) Equal(other Participant) bool {
	return p.Model == other.Model && p.Provider == other.Provider && p.Role == other.Role
}

// Name returns the display name, falling back to the model identifier.
func (p Participant) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Model
}

// SuggestionCategory classifies what aspect of the artifact a suggestion
// addresses.
type SuggestionCategory string

const (
	CategoryCorrectness  SuggestionCategory = "correctness"
	CategoryClarity      SuggestionCategory = "clarity"
	CategoryCompleteness SuggestionCategory = "completeness"
	CategoryCodeQuality  SuggestionCategory = "code_quality"
	CategoryArchitecture SuggestionCategory = "architecture"
	CategoryPerformance  SuggestionCategory = "performance"
	CategorySecurity     SuggestionCategory = "security"
	CategoryOther        SuggestionCategory = "other"
)

// Suggestion is one actionable improvement proposed within a critique.
// Priority 1 is highest.
type Suggestion struct {
	Section  string             `json:"section,omitempty"`
	Text     string             `json:"text"`
	Priority int                `json:"priority"`
	Category SuggestionCategory `json:"category"`
}

// Critique is one participant's structured feedback on the current
// artifact. Score is always clamped to [0,100].
type Critique struct {
	Critic      Participant   `json:"critic"`
	Strengths   []string      `json:"strengths"`
	Weaknesses  []string      `json:"weaknesses"`
	Suggestions []Suggestion  `json:"suggestions,omitempty"`
	Score       int           `json:"score"`
	RawText     string        `json:"raw_text,omitempty"`
	TokenCount  int           `json:"token_count"`
	Duration    time.Duration `json:"duration"`
}

// ClampScore bounds a critique score to the valid [0,100] range.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// ConvergenceVote is one participant's answer to "is the draft ready?".
type ConvergenceVote struct {
	Participant Participant `json:"participant"`
	Agrees      bool        `json:"agrees"`
	Score       int         `json:"score"`
	Concerns    []string    `json:"concerns,omitempty"`
}

// RoundKind identifies the variant of a round.
type RoundKind string

const (
	KindDraft       RoundKind = "draft"
	KindCritique    RoundKind = "critique"
	KindSynthesis   RoundKind = "synthesis"
	KindRefinement  RoundKind = "refinement"
	KindConvergence RoundKind = "convergence"
)

// Round is one discrete step of the debate. Exactly one of the payload
// pointers matching Kind is non-nil. Number is 0-based and equals the
// round's position in the session history.
type Round struct {
	Number     int       `json:"number"`
	Kind       RoundKind `json:"kind"`
	Timestamp  time.Time `json:"timestamp"`
	TokenCount int       `json:"token_count"`

	Draft       *DraftRound       `json:"draft,omitempty"`
	Critique    *CritiqueRound    `json:"critique,omitempty"`
	Synthesis   *SynthesisRound   `json:"synthesis,omitempty"`
	Refinement  *RefinementRound  `json:"refinement,omitempty"`
	Convergence *ConvergenceRound `json:"convergence,omitempty"`
}

// DraftRound holds the initial artifact produced by the drafter.
type DraftRound struct {
	Participant   Participant   `json:"participant"`
	Content       string        `json:"content"`
	PromptSummary string        `json:"prompt_summary,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// CritiqueRound holds the ordered critiques collected from all critics
// that responded in this round.
type CritiqueRound struct {
	Critiques []Critique `json:"critiques"`
}

// SynthesisRound holds the merged artifact produced from the previous
// draft plus its critiques, along with the conflicts resolved on the way.
type SynthesisRound struct {
	Participant Participant          `json:"participant"`
	Content     string               `json:"content"`
	Resolutions []ConflictResolution `json:"resolutions,omitempty"`
	Changes     []string             `json:"changes,omitempty"`
}

// RefinementRound holds a focused rework of one area of the artifact.
type RefinementRound struct {
	Participant Participant `json:"participant"`
	FocusArea   string      `json:"focus_area"`
	Content     string      `json:"content"`
	Depth       int         `json:"depth"`
}

// ConvergenceRound holds the result of one convergence check.
type ConvergenceRound struct {
	Score           float64           `json:"score"`
	Converged       bool              `json:"converged"`
	Votes           []ConvergenceVote `json:"votes"`
	RemainingIssues []string          `json:"remaining_issues,omitempty"`
}

// ResolutionStrategy names a way of resolving a detected conflict.
type ResolutionStrategy string

const (
	StrategyMajorityVote    ResolutionStrategy = "majority_vote"
	StrategyDeferToExpert   ResolutionStrategy = "defer_to_expert"
	StrategyImplementBoth   ResolutionStrategy = "implement_both"
	StrategyCompromise      ResolutionStrategy = "compromise"
	StrategyDefer           ResolutionStrategy = "defer"
	StrategyEscalateToHuman ResolutionStrategy = "escalate_to_human"
)

// ConflictPosition is one participant's stance within a detected conflict.
type ConflictPosition struct {
	Participant Participant `json:"participant"`
	Statement   string      `json:"statement"`
	Evidence    string      `json:"evidence,omitempty"`
	Confidence  float64     `json:"confidence"`
}

// DetectedConflict is a disagreement surfaced across one round's critiques.
// Severity ranges 1 (mild) to 5 (blocking).
type DetectedConflict struct {
	ID         string               `json:"id"`
	Topic      string               `json:"topic"`
	Severity   int                  `json:"severity"`
	Positions  []ConflictPosition   `json:"positions"`
	Strategies []ResolutionStrategy `json:"strategies"`
}

// ConflictResolution records the outcome of executing one strategy
// against one conflict. It becomes part of the synthesis round.
type ConflictResolution struct {
	Issue      string             `json:"issue"`
	Positions  []ConflictPosition `json:"positions"`
	Resolution string             `json:"resolution"`
	Rationale  string             `json:"rationale"`
	Strategy   ResolutionStrategy `json:"strategy"`
}

// Session is the aggregate root for one end-to-end debate run. Rounds is
// append-only while a run is in progress; truncation is only permitted as
// an explicit resume operation before a run starts.
type Session struct {
	ID           string        `json:"id"`
	Name         string        `json:"name,omitempty"`
	Topic        string        `json:"topic"`
	Status       SessionStatus `json:"status"`
	Config       Config        `json:"config"`
	Participants []Participant `json:"participants"`
	Rounds       []Round       `json:"rounds"`
	CurrentRound int           `json:"current_round"`
	TotalTokens  int           `json:"total_tokens"`
	TotalCost    float64       `json:"total_cost"`
	Created      time.Time     `json:"created"`
	Updated      time.Time     `json:"updated"`
	// TerminalReason records which termination condition ended the run.
	TerminalReason string `json:"terminal_reason,omitempty"`
}

// NewSession creates a session in the Initialized state.
func NewSession(topic string, cfg Config, participants []Participant) *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.NewString(),
		Topic:        topic,
		Status:       StatusInitialized,
		Config:       cfg,
		Participants: participants,
		Rounds:       make([]Round, 0),
		Created:      now,
		Updated:      now,
	}
}

// LastRound returns the most recent round, or nil if none exist.
func (s *Session) LastRound() *Round {
	if len(s.Rounds) == 0 {
		return nil
	}
	return &s.Rounds[len(s.Rounds)-1]
}

// LastRoundOfKind returns the most recent round of the given kind, or nil.
func (s *Session) LastRoundOfKind(kind RoundKind) *Round {
	for i := len(s.Rounds) - 1; i >= 0; i-- {
		if s.Rounds[i].Kind == kind {
			return &s.Rounds[i]
		}
	}
	return nil
}

// CurrentContent returns the most recent artifact text, walking history
// backwards through synthesis, refinement, and draft rounds.
func (s *Session) CurrentContent() string {
	for i := len(s.Rounds) - 1; i >= 0; i-- {
		switch r := s.Rounds[i]; r.Kind {
		case KindSynthesis:
			return r.Synthesis.Content
		case KindRefinement:
			return r.Refinement.Content
		case KindDraft:
			return r.Draft.Content
		}
	}
	return ""
}

// ContentVersions returns every artifact version in chronological order:
// the draft followed by each synthesis and refinement result.
func (s *Session) ContentVersions() []string {
	var versions []string
	for _, r := range s.Rounds {
		switch r.Kind {
		case KindDraft:
			versions = append(versions, r.Draft.Content)
		case KindSynthesis:
			versions = append(versions, r.Synthesis.Content)
		case KindRefinement:
			versions = append(versions, r.Refinement.Content)
		}
	}
	return versions
}

// AppendRound appends a round, stamping its number from the current
// history length, and updates the running aggregates.
func (s *Session) AppendRound(r Round) {
	r.Number = len(s.Rounds)
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	s.Rounds = append(s.Rounds, r)
	s.CurrentRound = r.Number
	s.TotalTokens += r.TokenCount
	s.Updated = time.Now()
}

// RefinementDepth returns the depth reached by the most recent refinement
// round, or zero if no refinement has happened.
func (s *Session) RefinementDepth() int {
	if r := s.LastRoundOfKind(KindRefinement); r != nil {
		return r.Refinement.Depth
	}
	return 0
}

// ParticipantsInRole returns all participants holding the given role.
func (s *Session) ParticipantsInRole(role Role) []Participant {
	var out []Participant
	for _, p := range s.Participants {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out
}
