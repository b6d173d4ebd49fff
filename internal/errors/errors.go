// Package errors provides centralized error definitions and classification
// for Quorum. It defines domain-specific errors (provider invocation,
// response parsing, orchestration invariants, session persistence),
// sentinel errors, and the retryability classification that drives the
// orchestrator's backoff policy.
//
// Recoverable errors (timeouts, rate limits, transient provider failures)
// are retried with exponential backoff up to a configured bound, then
// escalate to a session-level abort. Budget exhaustion is deliberately NOT
// an error anywhere in this package: reaching a cost, round, or time
// ceiling is a normal terminal outcome.
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience so callers can
// import only this package for error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Provider-related sentinel errors.
var (
	// ErrTimeout indicates a model invocation exceeded its allotted time.
	ErrTimeout = New("invocation timed out")
	// ErrRateLimited indicates the provider rejected the call due to rate limits.
	ErrRateLimited = New("provider rate limited")
	// ErrProviderFailure indicates a transport or upstream provider error.
	ErrProviderFailure = New("provider failure")
	// ErrAuthFailure indicates an authentication or configuration problem.
	// Unlike other provider failures it is never retried.
	ErrAuthFailure = New("provider authentication failure")
	// ErrNoProvider indicates no invoker is registered for a participant's provider.
	ErrNoProvider = New("no provider registered")
)

// Parsing sentinel errors.
var (
	// ErrNoStructuredData indicates the structured critique parser could not
	// locate its required sections.
	ErrNoStructuredData = New("no structured data found in response")
	// ErrParseFailure indicates a response could not be parsed even by the
	// lenient fallback parser.
	ErrParseFailure = New("response could not be parsed")
)

// Orchestration sentinel errors.
var (
	// ErrInvariant indicates a round was requested without its prerequisite
	// content present. This is a control-flow bug and is never retried.
	ErrInvariant = New("orchestration invariant violated")
	// ErrAborted indicates the session was aborted by operator action.
	ErrAborted = New("session aborted")
	// ErrTooFewContributors indicates a round dropped below its minimum
	// required contributor count.
	ErrTooFewContributors = New("too few usable contributions for round")
	// ErrNoParticipant indicates no participant could be resolved for a role.
	ErrNoParticipant = New("no participant available for role")
)

// Session persistence sentinel errors.
var (
	// ErrSessionNotFound indicates a session could not be found in the store.
	ErrSessionNotFound = New("session not found")
	// ErrSessionCorrupted indicates persisted session data failed to decode.
	ErrSessionCorrupted = New("session data corrupted")
	// ErrSessionRunning indicates an operation requires the session to not
	// be mid-run (e.g. round truncation for resume).
	ErrSessionRunning = New("session is running")
	// ErrSessionLocked indicates another process holds the session's lock.
	ErrSessionLocked = New("session is locked by another process")
)

// -----------------------------------------------------------------------------
// ProviderError
// -----------------------------------------------------------------------------

// ProviderError wraps a failed model invocation with the participant
// context and a retryability classification.
type ProviderError struct {
	Provider  string
	Model     string
	Message   string
	Cause     error
	Retryable bool
}

// NewProviderError creates a retryable provider error.
func NewProviderError(message string, cause error) *ProviderError {
	return &ProviderError{
		Message:   message,
		Cause:     cause,
		Retryable: true,
	}
}

// WithProvider attaches the provider tag.
func (e *ProviderError) WithProvider(provider string) *ProviderError {
	e.Provider = provider
	return e
}

// WithModel attaches the model identifier.
func (e *ProviderError) WithModel(model string) *ProviderError {
	e.Model = model
	return e
}

// WithRetryable overrides the retryability classification.
func (e *ProviderError) WithRetryable(r bool) *ProviderError {
	e.Retryable = r
	return e
}

func (e *ProviderError) Error() string {
	msg := "provider error: " + e.Message
	if e.Provider != "" {
		msg += fmt.Sprintf(" (provider: %s", e.Provider)
		if e.Model != "" {
			msg += ", model: " + e.Model
		}
		msg += ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// IsRetryable reports whether the invocation may be retried.
func (e *ProviderError) IsRetryable() bool { return e.Retryable }

// -----------------------------------------------------------------------------
// ParseError
// -----------------------------------------------------------------------------

// ParseError indicates a participant's response could not be converted
// into structured data. The affected contribution is dropped; the round
// fails only if it falls below its minimum contributor count.
type ParseError struct {
	Participant string
	Message     string
	Cause       error
}

// NewParseError creates a parse error for a participant's response.
func NewParseError(participant, message string, cause error) *ParseError {
	return &ParseError{
		Participant: participant,
		Message:     message,
		Cause:       cause,
	}
}

func (e *ParseError) Error() string {
	msg := "parse error"
	if e.Participant != "" {
		msg += " (participant: " + e.Participant + ")"
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Cause }

// IsRetryable always reports false: re-invoking the model does not make a
// malformed response parseable, and the round-level minimum contributor
// check handles the degradation.
func (e *ParseError) IsRetryable() bool { return false }

// -----------------------------------------------------------------------------
// OrchestrationError
// -----------------------------------------------------------------------------

// OrchestrationError indicates a control-flow invariant was violated,
// e.g. a synthesis round requested before any critique exists. These are
// bugs, never retried, and abort the session.
type OrchestrationError struct {
	Round   int
	Kind    string
	Message string
	Cause   error
}

// NewOrchestrationError creates an orchestration invariant error.
func NewOrchestrationError(message string, cause error) *OrchestrationError {
	if cause == nil {
		cause = ErrInvariant
	}
	return &OrchestrationError{Message: message, Cause: cause}
}

// WithRound attaches the round number and kind.
func (e *OrchestrationError) WithRound(number int, kind string) *OrchestrationError {
	e.Round = number
	e.Kind = kind
	return e
}

func (e *OrchestrationError) Error() string {
	msg := "orchestration error: " + e.Message
	if e.Kind != "" {
		msg += fmt.Sprintf(" (round %d, kind: %s)", e.Round, e.Kind)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *OrchestrationError) Unwrap() error { return e.Cause }

// IsRetryable always reports false for invariant violations.
func (e *OrchestrationError) IsRetryable() bool { return false }

// Is supports errors.Is against ErrInvariant.
func (e *OrchestrationError) Is(target error) bool {
	return target == ErrInvariant
}

// -----------------------------------------------------------------------------
// SessionError
// -----------------------------------------------------------------------------

// SessionError wraps persistence and lifecycle failures with the session ID.
type SessionError struct {
	SessionID string
	Message   string
	Cause     error
}

// NewSessionError creates a session error.
func NewSessionError(message string, cause error) *SessionError {
	return &SessionError{Message: message, Cause: cause}
}

// WithSessionID attaches the session identifier.
func (e *SessionError) WithSessionID(id string) *SessionError {
	e.SessionID = id
	return e
}

func (e *SessionError) Error() string {
	msg := "session error: " + e.Message
	if e.SessionID != "" {
		msg += " (session: " + e.SessionID + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *SessionError) Unwrap() error { return e.Cause }

// -----------------------------------------------------------------------------
// Classification
// -----------------------------------------------------------------------------

// retryable is implemented by errors that carry their own retryability.
type retryable interface {
	IsRetryable() bool
}

// IsRetryable reports whether an error is transient and worth retrying
// with backoff. Timeouts, rate limits, and transient provider failures
// are retryable; auth failures, parse failures, and invariant violations
// are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var r retryable
	if As(err, &r) {
		return r.IsRetryable()
	}

	switch {
	case Is(err, ErrTimeout), Is(err, ErrRateLimited):
		return true
	case Is(err, ErrProviderFailure):
		return !Is(err, ErrAuthFailure)
	default:
		return false
	}
}

// IsFatal reports whether an error must abort the session immediately
// without retrying.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return Is(err, ErrAuthFailure) || Is(err, ErrInvariant) || Is(err, ErrAborted)
}
