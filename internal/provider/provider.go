// Package provider defines the model-invocation capability the
// orchestrator consumes. A provider is anything that can turn a request
// (system prompt plus ordered messages) into a text response with token
// accounting. Transport, authentication, and per-provider request
// shaping live behind the Invoker interface; the core never inspects
// concrete provider types.
package provider

import (
	"context"
	"time"

	"github.com/Iron-Ham/quorum/internal/debate"
)

// StopReason describes why a model stopped generating.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopMaxTokens StopReason = "max_tokens"
	StopSequence  StopReason = "stop_sequence"
	StopToolUse   StopReason = "tool_use"
	StopError     StopReason = "error"
)

// Message is one turn of conversation context sent to a model.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Request describes one model invocation.
type Request struct {
	System        string    `json:"system,omitempty"`
	Messages      []Message `json:"messages"`
	MaxTokens     int       `json:"max_tokens,omitempty"`
	Temperature   float64   `json:"temperature,omitempty"`
	StopSequences []string  `json:"stop_sequences,omitempty"`
}

// Response is a successful model invocation result.
type Response struct {
	Text         string        `json:"text"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	Duration     time.Duration `json:"duration"`
	StopReason   StopReason    `json:"stop_reason"`
}

// TotalTokens returns the sum of input and output tokens.
func (r *Response) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// Invoker is the abstract invocation capability. Implementations must
// honor context cancellation: an abandoned call's eventual completion is
// discarded by the caller.
type Invoker interface {
	// Invoke sends one request to the model bound to the participant and
	// blocks until a response, a classified failure, or ctx expiry.
	Invoke(ctx context.Context, p debate.Participant, req Request) (*Response, error)
}

// HealthChecker is an optional capability of invokers that can report
// provider availability without performing a full invocation.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

// EstimateTokens approximates a token count from text length. Providers
// that do not report usage fall back to this; one token per four bytes
// tracks English prose closely enough for budgeting.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
