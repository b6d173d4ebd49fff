package provider

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/Iron-Ham/quorum/internal/debate"
	"github.com/Iron-Ham/quorum/internal/errors"
)

// ExecConfig configures a CLI-backed provider.
type ExecConfig struct {
	// Command is the CLI binary to run (e.g. "claude", "codex").
	Command string
	// ExtraArgs are appended after the print-mode flag.
	ExtraArgs []string
	// ModelFlag, when set, passes the participant's model identifier
	// (e.g. "--model").
	ModelFlag string
}

// ExecProvider invokes a model by shelling out to a one-shot CLI in
// print mode, writing the prompt on stdin and reading the response from
// stdout. Token usage is estimated from text length since print mode
// does not report it.
type ExecProvider struct {
	cfg ExecConfig
}

// NewExecProvider creates an ExecProvider from config.
func NewExecProvider(cfg ExecConfig) *ExecProvider {
	if cfg.Command == "" {
		cfg.Command = "claude"
	}
	return &ExecProvider{cfg: cfg}
}

// Invoke implements Invoker.
func (e *ExecProvider) Invoke(ctx context.Context, p debate.Participant, req Request) (*Response, error) {
	args := []string{"--print"}
	if e.cfg.ModelFlag != "" && p.Model != "" {
		args = append(args, e.cfg.ModelFlag, p.Model)
	}
	args = append(args, e.cfg.ExtraArgs...)

	prompt := buildPrompt(req)

	start := time.Now()
	cmd := exec.CommandContext(ctx, e.cfg.Command, args...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		return nil, errors.NewProviderError("command timed out", errors.ErrTimeout).
			WithProvider(p.Provider).WithModel(p.Model)
	}
	if ctx.Err() == context.Canceled {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, classifyExecFailure(p, err, stderr.String())
	}

	text := strings.TrimSpace(stdout.String())
	return &Response{
		Text:         text,
		InputTokens:  EstimateTokens(prompt),
		OutputTokens: EstimateTokens(text),
		Duration:     duration,
		StopReason:   StopEndTurn,
	}, nil
}

// Healthy implements HealthChecker by checking the binary is resolvable.
func (e *ExecProvider) Healthy(ctx context.Context) bool {
	_, err := exec.LookPath(e.cfg.Command)
	return err == nil
}

// buildPrompt flattens a request into a single prompt for CLIs that take
// no structured message list.
func buildPrompt(req Request) string {
	var b strings.Builder
	if req.System != "" {
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}
	for _, m := range req.Messages {
		if m.Role == "assistant" {
			b.WriteString("[previous response]\n")
		}
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}

// classifyExecFailure maps a CLI failure onto the provider error taxonomy.
func classifyExecFailure(p debate.Participant, err error, stderr string) error {
	lower := strings.ToLower(stderr)

	switch {
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "429"):
		return errors.NewProviderError("rate limited", errors.ErrRateLimited).
			WithProvider(p.Provider).WithModel(p.Model)
	case strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "authentication") ||
		strings.Contains(lower, "api key"):
		return errors.NewProviderError("authentication failed", errors.ErrAuthFailure).
			WithProvider(p.Provider).WithModel(p.Model).WithRetryable(false)
	default:
		msg := fmt.Sprintf("command failed: %v", err)
		if stderr != "" {
			msg += ": " + firstLine(stderr)
		}
		return errors.NewProviderError(msg, errors.ErrProviderFailure).
			WithProvider(p.Provider).WithModel(p.Model)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
