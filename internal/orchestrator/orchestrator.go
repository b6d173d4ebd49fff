// Package orchestrator drives a debate session through its lifecycle.
// A single loop owns the session and is its only writer: it decides the
// next round kind, dispatches model invocations (parallel or serial),
// applies timeouts and retries, records results, emits events, and
// drains a control command queue for pause/resume/abort/skip/feedback.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/Iron-Ham/quorum/internal/conflict"
	"github.com/Iron-Ham/quorum/internal/convergence"
	"github.com/Iron-Ham/quorum/internal/debate"
	"github.com/Iron-Ham/quorum/internal/errors"
	"github.com/Iron-Ham/quorum/internal/event"
	"github.com/Iron-Ham/quorum/internal/logging"
	"github.com/Iron-Ham/quorum/internal/orchestrator/budget"
	"github.com/Iron-Ham/quorum/internal/orchestrator/retry"
	"github.com/Iron-Ham/quorum/internal/provider"
	"github.com/Iron-Ham/quorum/internal/roster"
)

// TerminationReason records why a run ended.
type TerminationReason string

const (
	ReasonConverged   TerminationReason = "converged"
	ReasonMaxRounds   TerminationReason = "max_rounds_reached"
	ReasonMaxCost     TerminationReason = "max_cost_reached"
	ReasonMaxDuration TerminationReason = "max_duration_reached"
	ReasonAborted     TerminationReason = "aborted"
	ReasonError       TerminationReason = "error"
)

// Store persists session state at round boundaries. The orchestrator
// tolerates a nil store for in-memory runs.
type Store interface {
	Save(ctx context.Context, s *debate.Session) error
}

// Orchestrator runs one session. Create with New, start with Run; the
// control methods are safe to call from other goroutines while Run is
// in flight.
type Orchestrator struct {
	mu      sync.RWMutex
	session *debate.Session

	cfg      debate.Config
	roster   *roster.Roster
	invoker  provider.Invoker
	detector *convergence.Detector
	resolver *conflict.Resolver
	bus      *event.Bus
	store    Store
	tracker  *budget.Tracker
	retry    retry.Policy
	logger   *logging.Logger

	commands    chan command
	paused      bool
	skipPending bool
	feedback    []string

	roundCancel context.CancelFunc
	startTime   time.Time
}

// Options carries the optional collaborators for New.
type Options struct {
	Store   Store
	Tracker *budget.Tracker
	Logger  *logging.Logger
	Bus     *event.Bus
}

// New wires an orchestrator for the session. The session must be in a
// non-terminal state; a freshly created or resume-truncated session
// both qualify.
func New(s *debate.Session, r *roster.Roster, inv provider.Invoker, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	bus := opts.Bus
	if bus == nil {
		bus = event.NewBus()
	}
	tracker := opts.Tracker
	if tracker == nil {
		tracker = budget.NewTracker(s.Config.MaxCost, nil, logger)
	}

	o := &Orchestrator{
		session:  s,
		cfg:      s.Config,
		roster:   r,
		invoker:  inv,
		detector: convergence.NewDetector(s.Config),
		bus:      bus,
		store:    opts.Store,
		tracker:  tracker,
		logger:   logger.WithSession(s.ID),
		commands: make(chan command, 16),
	}
	o.retry = retry.Policy{
		MaxRetries: s.Config.MaxRetries,
		BaseDelay:  s.Config.RetryBaseDelay,
		Logger:     o.logger,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			o.bus.Publish(event.NewErrorEvent(s.ID, err.Error(), true))
		},
	}
	synth, err := r.Synthesizer()
	if err == nil {
		o.resolver = conflict.NewResolver(inv, synth, o.logger)
	} else {
		o.resolver = conflict.NewResolver(nil, debate.Participant{}, o.logger)
	}
	return o
}

// Events returns the orchestrator's event bus for subscription.
func (o *Orchestrator) Events() *event.Bus { return o.bus }

// Session returns a deep-enough snapshot for observers: the struct is
// copied and the rounds slice reclipped so appends never alias.
func (o *Orchestrator) Session() debate.Session {
	o.mu.RLock()
	defer o.mu.RUnlock()
	snapshot := *o.session
	snapshot.Rounds = append([]debate.Round(nil), o.session.Rounds...)
	return snapshot
}

// Run drives the session to a terminal state. It returns nil for every
// normal termination (convergence, budget ceilings, abort); only
// unrecoverable failures return an error, and those also mark the
// session Aborted.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.startTime = time.Now()

	o.mutate(func(s *debate.Session) {
		s.Status = debate.StatusInProgress
	})
	o.save(ctx)
	o.bus.Publish(event.NewSessionStartedEvent(o.session.ID, o.session.Topic, len(o.session.Participants)))
	o.logger.Info("session started", "topic", o.session.Topic, "max_rounds", o.cfg.MaxRounds)

	for {
		if aborted := o.handleCommands(ctx); aborted {
			return o.finish(ctx, debate.StatusAborted, ReasonAborted)
		}
		if ctx.Err() != nil {
			return o.finish(ctx, debate.StatusAborted, ReasonAborted)
		}

		if status, reason, done := o.checkTermination(); done {
			return o.finish(ctx, status, reason)
		}

		kind := o.nextKind()
		round, err := o.executeRound(ctx, kind)
		if err != nil {
			if aborted := o.handleCommands(ctx); aborted || errors.Is(err, context.Canceled) {
				return o.finish(ctx, debate.StatusAborted, ReasonAborted)
			}
			o.bus.Publish(event.NewErrorEvent(o.session.ID, err.Error(), false))
			o.logger.Error("round failed, aborting session", "kind", string(kind), "error", err)
			_ = o.finish(ctx, debate.StatusAborted, ReasonError)
			return err
		}

		o.mutate(func(s *debate.Session) {
			s.AppendRound(*round)
			s.TotalCost = o.tracker.Total()
		})
		o.save(ctx)

		o.bus.Publish(event.NewRoundCompletedEvent(
			o.session.ID, round.Number, string(round.Kind), round.TokenCount, time.Since(round.Timestamp)))
		o.bus.Publish(event.NewCostUpdatedEvent(
			o.session.ID, o.tracker.Total(), o.tracker.Remaining(), o.tracker.Tokens()))
	}
}

// checkTermination evaluates the termination conditions in a fixed
// order; the first satisfied wins and becomes the terminal reason.
func (o *Orchestrator) checkTermination() (debate.SessionStatus, TerminationReason, bool) {
	last := o.session.LastRound()

	if _, ok := debate.NextKind(last); !ok {
		return debate.StatusConverged, ReasonConverged, true
	}
	if o.cfg.MaxRounds > 0 && len(o.session.Rounds) >= o.cfg.MaxRounds {
		return debate.StatusComplete, ReasonMaxRounds, true
	}
	if o.tracker.Exceeded() {
		return debate.StatusComplete, ReasonMaxCost, true
	}
	if o.cfg.MaxDuration > 0 && time.Since(o.startTime) >= o.cfg.MaxDuration {
		return debate.StatusTimedOut, ReasonMaxDuration, true
	}
	return "", "", false
}

// nextKind applies the transition function plus the refinement policy
// and a pending skip command.
func (o *Orchestrator) nextKind() debate.RoundKind {
	last := o.session.LastRound()
	kind, _ := debate.NextKind(last)

	if kind == debate.KindCritique && debate.ShouldRefine(o.cfg, last, o.session.RefinementDepth()) {
		kind = debate.KindRefinement
	}

	if o.skipPending {
		o.skipPending = false
		skipped := kind
		kind = skipForward(kind)
		o.logger.Info("skipping round", "skipped", string(skipped), "next", string(kind))
	}
	return kind
}

// skipForward returns the kind that would follow a completed,
// non-converged round of the given kind.
func skipForward(kind debate.RoundKind) debate.RoundKind {
	next, ok := debate.NextKind(&debate.Round{Kind: kind, Convergence: &debate.ConvergenceRound{}})
	if !ok {
		return debate.KindConvergence
	}
	return next
}

// finish marks the session terminal, persists it, and announces the end.
func (o *Orchestrator) finish(ctx context.Context, status debate.SessionStatus, reason TerminationReason) error {
	if status == debate.StatusConverged {
		// Converged sessions complete successfully.
		status = debate.StatusComplete
	}
	o.mutate(func(s *debate.Session) {
		s.Status = status
		s.TerminalReason = string(reason)
		s.TotalCost = o.tracker.Total()
	})
	o.save(ctx)

	o.bus.Publish(event.NewSessionCompletedEvent(
		o.session.ID, string(status), string(reason), o.session.CurrentContent(), len(o.session.Rounds)))
	o.logger.Info("session finished",
		"status", string(status),
		"reason", string(reason),
		"rounds", len(o.session.Rounds),
		"total_tokens", o.session.TotalTokens,
		"total_cost", o.tracker.Total())
	return nil
}

// mutate applies one exclusive write to the session.
func (o *Orchestrator) mutate(fn func(s *debate.Session)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(o.session)
	o.session.Updated = time.Now()
}

// save persists the session if a store is configured. Persistence
// failures are logged, not fatal: the in-memory run stays authoritative.
func (o *Orchestrator) save(ctx context.Context) {
	if o.store == nil {
		return
	}
	if err := o.store.Save(ctx, o.session); err != nil {
		o.logger.Error("failed to persist session", "error", err)
	}
}

// takeFeedback drains the pending operator feedback for inclusion in
// the next prompt.
func (o *Orchestrator) takeFeedback() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	fb := o.feedback
	o.feedback = nil
	return fb
}
