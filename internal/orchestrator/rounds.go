package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Iron-Ham/quorum/internal/conflict"
	"github.com/Iron-Ham/quorum/internal/convergence"
	"github.com/Iron-Ham/quorum/internal/critique"
	"github.com/Iron-Ham/quorum/internal/debate"
	"github.com/Iron-Ham/quorum/internal/errors"
	"github.com/Iron-Ham/quorum/internal/event"
	"github.com/Iron-Ham/quorum/internal/provider"
)

// executeRound runs one round of the given kind under the per-round
// timeout and the retry policy. On success the returned round is ready
// to append; the caller commits it.
func (o *Orchestrator) executeRound(ctx context.Context, kind debate.RoundKind) (*debate.Round, error) {
	number := len(o.session.Rounds)
	o.bus.Publish(event.NewRoundStartedEvent(o.session.ID, number, string(kind)))
	logger := o.logger.WithRound(number, string(kind))
	logger.Info("round started")

	var round *debate.Round
	err := o.retry.Do(ctx, string(kind), func(ctx context.Context) error {
		roundCtx := ctx
		var cancel context.CancelFunc
		if o.cfg.RoundTimeout > 0 {
			roundCtx, cancel = context.WithTimeout(ctx, o.cfg.RoundTimeout)
		} else {
			roundCtx, cancel = context.WithCancel(ctx)
		}
		o.mu.Lock()
		o.roundCancel = cancel
		o.mu.Unlock()
		defer func() {
			cancel()
			o.mu.Lock()
			o.roundCancel = nil
			o.mu.Unlock()
		}()

		var execErr error
		round, execErr = o.dispatch(roundCtx, kind)
		if execErr != nil && roundCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			execErr = errors.NewProviderError("round timed out", errors.ErrTimeout)
		}
		return execErr
	})
	if err != nil {
		return nil, err
	}

	round.Kind = kind
	round.Timestamp = time.Now()
	return round, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, kind debate.RoundKind) (*debate.Round, error) {
	switch kind {
	case debate.KindDraft:
		return o.executeDraft(ctx)
	case debate.KindCritique:
		return o.executeCritique(ctx)
	case debate.KindSynthesis:
		return o.executeSynthesis(ctx)
	case debate.KindRefinement:
		return o.executeRefinement(ctx)
	case debate.KindConvergence:
		return o.executeConvergence(ctx)
	default:
		return nil, errors.NewOrchestrationError(fmt.Sprintf("unknown round kind %q", kind), nil)
	}
}

func (o *Orchestrator) executeDraft(ctx context.Context) (*debate.Round, error) {
	drafter, err := o.roster.Drafter()
	if err != nil {
		return nil, err
	}

	prompt := buildDraftPrompt(o.session.Topic, o.takeFeedback())
	resp, err := o.invoke(ctx, drafter, prompt)
	if err != nil {
		return nil, err
	}

	summary := o.session.Topic
	if len(summary) > 120 {
		summary = summary[:120]
	}
	return &debate.Round{
		TokenCount: resp.TotalTokens(),
		Draft: &debate.DraftRound{
			Participant:   drafter,
			Content:       resp.Text,
			PromptSummary: summary,
			Duration:      resp.Duration,
		},
	}, nil
}

// executeCritique fans the current content out to every critic. Partial
// failures are absorbed as long as the usable critique count meets the
// configured minimum.
func (o *Orchestrator) executeCritique(ctx context.Context) (*debate.Round, error) {
	content := o.session.CurrentContent()
	if content == "" {
		return nil, errors.NewOrchestrationError("critique requested with no content to review", nil)
	}

	critics, err := o.roster.Critics(o.cfg.MinCritics)
	if err != nil {
		return nil, err
	}

	feedback := o.takeFeedback()
	requests := make([]provider.Request, len(critics))
	for i := range critics {
		requests[i] = provider.Request{
			Messages: []provider.Message{{Role: "user", Content: buildCritiquePrompt(o.session.Topic, content, feedback)}},
		}
	}

	results := o.fanOut(ctx, critics, requests)

	var critiques []debate.Critique
	tokens := 0
	for _, r := range results {
		if r.err != nil {
			if errors.IsFatal(r.err) || ctx.Err() != nil {
				return nil, r.err
			}
			o.logger.Warn("critic failed, dropping contribution",
				"critic", r.participant.Name(), "error", r.err)
			o.bus.Publish(event.NewErrorEvent(o.session.ID, r.err.Error(), true))
			continue
		}
		o.recordResponse(r.participant, r.response)
		tokens += r.response.TotalTokens()

		c, err := critique.Parse(r.participant, r.response.Text)
		if err != nil {
			o.logger.Warn("critique unparseable, dropping contribution",
				"critic", r.participant.Name(), "error", err)
			o.bus.Publish(event.NewErrorEvent(o.session.ID, err.Error(), true))
			continue
		}
		c.TokenCount = r.response.TotalTokens()
		c.Duration = r.response.Duration
		critiques = append(critiques, *c)
	}

	if len(critiques) < o.cfg.MinCritics {
		return nil, errors.NewOrchestrationError(
			fmt.Sprintf("%d usable critiques, need %d", len(critiques), o.cfg.MinCritics),
			errors.ErrTooFewContributors)
	}

	critique.NormalizeScores(critiques)
	return &debate.Round{
		TokenCount: tokens,
		Critique:   &debate.CritiqueRound{Critiques: critiques},
	}, nil
}

func (o *Orchestrator) executeSynthesis(ctx context.Context) (*debate.Round, error) {
	content := o.session.CurrentContent()
	critiqueRound := o.session.LastRoundOfKind(debate.KindCritique)
	if content == "" || critiqueRound == nil || critiqueRound.Critique == nil {
		return nil, errors.NewOrchestrationError("synthesis requested without a preceding critique round", nil)
	}
	critiques := critiqueRound.Critique.Critiques

	conflicts := conflict.Detect(critiques)
	resolutions := o.resolver.ResolveAll(ctx, conflicts)
	if len(conflicts) > 0 {
		o.logger.Info("conflicts resolved for synthesis", "conflicts", len(conflicts))
	}

	synthesizer, err := o.roster.Synthesizer()
	if err != nil {
		return nil, err
	}

	prompt := buildSynthesisPrompt(o.session.Topic, content, critiques, resolutions, o.takeFeedback())
	resp, err := o.invoke(ctx, synthesizer, prompt)
	if err != nil {
		return nil, err
	}

	return &debate.Round{
		TokenCount: resp.TotalTokens(),
		Synthesis: &debate.SynthesisRound{
			Participant: synthesizer,
			Content:     resp.Text,
			Resolutions: resolutions,
			Changes:     summarizeChanges(content, resp.Text),
		},
	}, nil
}

func (o *Orchestrator) executeRefinement(ctx context.Context) (*debate.Round, error) {
	content := o.session.CurrentContent()
	last := o.session.LastRoundOfKind(debate.KindConvergence)
	if content == "" || last == nil || last.Convergence == nil {
		return nil, errors.NewOrchestrationError("refinement requested without a preceding convergence round", nil)
	}

	focus := "overall polish"
	if len(last.Convergence.RemainingIssues) > 0 {
		focus = last.Convergence.RemainingIssues[0]
	}

	refiner, err := o.roster.Synthesizer()
	if err != nil {
		return nil, err
	}

	resp, err := o.invoke(ctx, refiner, buildRefinementPrompt(focus, content))
	if err != nil {
		return nil, err
	}

	return &debate.Round{
		TokenCount: resp.TotalTokens(),
		Refinement: &debate.RefinementRound{
			Participant: refiner,
			FocusArea:   focus,
			Content:     resp.Text,
			Depth:       o.session.RefinementDepth() + 1,
		},
	}, nil
}

// executeConvergence collects one readiness vote from every active
// participant, then blends the votes with the history metrics.
func (o *Orchestrator) executeConvergence(ctx context.Context) (*debate.Round, error) {
	content := o.session.CurrentContent()
	if content == "" {
		return nil, errors.NewOrchestrationError("convergence requested with no content to evaluate", nil)
	}

	voters := o.roster.Participants()
	requests := make([]provider.Request, len(voters))
	prompt := convergence.VotePrompt(o.session.Topic, content)
	for i := range voters {
		requests[i] = provider.Request{
			Messages: []provider.Message{{Role: "user", Content: prompt}},
		}
	}

	results := o.fanOut(ctx, voters, requests)

	var votes []debate.ConvergenceVote
	tokens := 0
	for _, r := range results {
		if r.err != nil {
			if errors.IsFatal(r.err) || ctx.Err() != nil {
				return nil, r.err
			}
			o.logger.Warn("voter failed, vote dropped", "participant", r.participant.Name(), "error", r.err)
			o.bus.Publish(event.NewErrorEvent(o.session.ID, r.err.Error(), true))
			continue
		}
		o.recordResponse(r.participant, r.response)
		tokens += r.response.TotalTokens()
		votes = append(votes, convergence.ParseVote(r.participant, r.response.Text))
	}
	if len(votes) == 0 {
		return nil, errors.NewOrchestrationError("no convergence votes collected", errors.ErrTooFewContributors)
	}

	result := o.detector.Evaluate(o.session, votes)
	o.bus.Publish(event.NewConvergenceCheckedEvent(
		o.session.ID, result.Score, result.Converged, string(result.Trend), result.Stalled))
	o.logger.Info("convergence checked",
		"score", result.Score,
		"converged", result.Converged,
		"trend", string(result.Trend))

	return &debate.Round{
		TokenCount: tokens,
		Convergence: &debate.ConvergenceRound{
			Score:           result.Score,
			Converged:       result.Converged,
			Votes:           votes,
			RemainingIssues: result.RemainingIssues,
		},
	}, nil
}

// invoke sends one single-message request and records the usage.
func (o *Orchestrator) invoke(ctx context.Context, p debate.Participant, prompt string) (*provider.Response, error) {
	resp, err := o.invoker.Invoke(ctx, p, provider.Request{
		Messages: []provider.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, err
	}
	o.recordResponse(p, resp)
	return resp, nil
}

// recordResponse updates cost tracking and emits the participant event.
func (o *Orchestrator) recordResponse(p debate.Participant, resp *provider.Response) {
	o.tracker.RecordUsage(p.Model, resp.InputTokens, resp.OutputTokens)
	o.bus.Publish(event.NewParticipantRespondedEvent(
		o.session.ID, p.Name(), string(p.Role), resp.InputTokens, resp.OutputTokens, resp.Duration))
}

// summarizeChanges produces a coarse change list by diffing section
// headers between the previous and new content.
func summarizeChanges(before, after string) []string {
	beforeSet := headerSet(before)
	afterSet := headerSet(after)

	var added, removed []string
	for h := range afterSet {
		if _, ok := beforeSet[h]; !ok {
			added = append(added, "added section "+h)
		}
	}
	for h := range beforeSet {
		if _, ok := afterSet[h]; !ok {
			removed = append(removed, "removed section "+h)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)

	changes := append(added, removed...)
	if len(changes) == 0 && before != after {
		changes = append(changes, "revised content within existing sections")
	}
	return changes
}

func headerSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			set[strings.TrimSpace(strings.TrimLeft(trimmed, "#"))] = struct{}{}
		}
	}
	return set
}
