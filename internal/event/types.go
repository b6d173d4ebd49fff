// Package event defines the events the orchestrator publishes and the
// bus that delivers them to observers (CLI, logging, renderers).
// Observers only ever see the session through these read-only
// notifications; they never hold a mutable reference into it.
package event

import "time"

// Event is the interface that all events implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g. "session.started", "round.completed").
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{eventType: eventType, timestamp: time.Now()}
}

// -----------------------------------------------------------------------------
// Session Lifecycle Events
// -----------------------------------------------------------------------------

// SessionStartedEvent is emitted when the orchestrator begins a run.
type SessionStartedEvent struct {
	baseEvent
	SessionID    string
	Topic        string
	Participants int
}

// NewSessionStartedEvent creates a SessionStartedEvent.
func NewSessionStartedEvent(sessionID, topic string, participants int) SessionStartedEvent {
	return SessionStartedEvent{
		baseEvent:    newBaseEvent("session.started"),
		SessionID:    sessionID,
		Topic:        topic,
		Participants: participants,
	}
}

// SessionPausedEvent is emitted when progression halts on a pause command.
type SessionPausedEvent struct {
	baseEvent
	SessionID  string
	AfterRound int
}

// NewSessionPausedEvent creates a SessionPausedEvent.
func NewSessionPausedEvent(sessionID string, afterRound int) SessionPausedEvent {
	return SessionPausedEvent{
		baseEvent:  newBaseEvent("session.paused"),
		SessionID:  sessionID,
		AfterRound: afterRound,
	}
}

// SessionCompletedEvent is emitted when a run reaches a terminal state.
type SessionCompletedEvent struct {
	baseEvent
	SessionID string
	Status    string
	Reason    string
	FinalText string
	Rounds    int
}

// NewSessionCompletedEvent creates a SessionCompletedEvent.
func NewSessionCompletedEvent(sessionID, status, reason, finalText string, rounds int) SessionCompletedEvent {
	return SessionCompletedEvent{
		baseEvent: newBaseEvent("session.completed"),
		SessionID: sessionID,
		Status:    status,
		Reason:    reason,
		FinalText: finalText,
		Rounds:    rounds,
	}
}

// -----------------------------------------------------------------------------
// Round Events
// -----------------------------------------------------------------------------

// RoundStartedEvent is emitted when a round begins executing.
type RoundStartedEvent struct {
	baseEvent
	SessionID string
	Number    int
	Kind      string
}

// NewRoundStartedEvent creates a RoundStartedEvent.
func NewRoundStartedEvent(sessionID string, number int, kind string) RoundStartedEvent {
	return RoundStartedEvent{
		baseEvent: newBaseEvent("round.started"),
		SessionID: sessionID,
		Number:    number,
		Kind:      kind,
	}
}

// RoundCompletedEvent is emitted after a round is appended to the session.
type RoundCompletedEvent struct {
	baseEvent
	SessionID  string
	Number     int
	Kind       string
	TokenCount int
	Duration   time.Duration
}

// NewRoundCompletedEvent creates a RoundCompletedEvent.
func NewRoundCompletedEvent(sessionID string, number int, kind string, tokens int, duration time.Duration) RoundCompletedEvent {
	return RoundCompletedEvent{
		baseEvent:  newBaseEvent("round.completed"),
		SessionID:  sessionID,
		Number:     number,
		Kind:       kind,
		TokenCount: tokens,
		Duration:   duration,
	}
}

// ParticipantRespondedEvent is emitted for each model response received.
type ParticipantRespondedEvent struct {
	baseEvent
	SessionID    string
	Participant  string
	Role         string
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
}

// NewParticipantRespondedEvent creates a ParticipantRespondedEvent.
func NewParticipantRespondedEvent(sessionID, participant, role string, inTokens, outTokens int, duration time.Duration) ParticipantRespondedEvent {
	return ParticipantRespondedEvent{
		baseEvent:    newBaseEvent("participant.responded"),
		SessionID:    sessionID,
		Participant:  participant,
		Role:         role,
		InputTokens:  inTokens,
		OutputTokens: outTokens,
		Duration:     duration,
	}
}

// ConvergenceCheckedEvent is emitted after each convergence evaluation.
type ConvergenceCheckedEvent struct {
	baseEvent
	SessionID string
	Score     float64
	Converged bool
	Trend     string
	Stalled   bool
}

// NewConvergenceCheckedEvent creates a ConvergenceCheckedEvent.
func NewConvergenceCheckedEvent(sessionID string, score float64, converged bool, trend string, stalled bool) ConvergenceCheckedEvent {
	return ConvergenceCheckedEvent{
		baseEvent: newBaseEvent("convergence.checked"),
		SessionID: sessionID,
		Score:     score,
		Converged: converged,
		Trend:     trend,
		Stalled:   stalled,
	}
}

// CostUpdatedEvent is emitted when the running cost total changes.
type CostUpdatedEvent struct {
	baseEvent
	SessionID   string
	TotalCost   float64
	Remaining   float64
	TotalTokens int
}

// NewCostUpdatedEvent creates a CostUpdatedEvent.
func NewCostUpdatedEvent(sessionID string, total, remaining float64, tokens int) CostUpdatedEvent {
	return CostUpdatedEvent{
		baseEvent:   newBaseEvent("cost.updated"),
		SessionID:   sessionID,
		TotalCost:   total,
		Remaining:   remaining,
		TotalTokens: tokens,
	}
}

// ErrorEvent is emitted for every failure surfaced to observers.
type ErrorEvent struct {
	baseEvent
	SessionID   string
	Message     string
	Recoverable bool
}

// NewErrorEvent creates an ErrorEvent.
func NewErrorEvent(sessionID, message string, recoverable bool) ErrorEvent {
	return ErrorEvent{
		baseEvent:   newBaseEvent("error"),
		SessionID:   sessionID,
		Message:     message,
		Recoverable: recoverable,
	}
}

// SubscriberLaggedEvent is delivered to a subscriber whose buffer
// overflowed; events were dropped between it and the previous delivery.
type SubscriberLaggedEvent struct {
	baseEvent
	Dropped int
}

// NewSubscriberLaggedEvent creates a SubscriberLaggedEvent.
func NewSubscriberLaggedEvent(dropped int) SubscriberLaggedEvent {
	return SubscriberLaggedEvent{
		baseEvent: newBaseEvent("subscriber.lagged"),
		Dropped:   dropped,
	}
}
