package orchestrator

import (
	"context"

	"github.com/Iron-Ham/quorum/internal/debate"
	"github.com/Iron-Ham/quorum/internal/event"
)

// commandType enumerates the control commands the run loop consumes.
type commandType int

const (
	cmdPause commandType = iota
	cmdResume
	cmdAbort
	cmdSkipRound
	cmdInjectFeedback
)

type command struct {
	kind commandType
	text string
}

// Pause halts progression after the in-flight round completes. The run
// blocks until Resume or Abort.
func (o *Orchestrator) Pause() { o.enqueue(command{kind: cmdPause}) }

// Resume continues a paused run.
func (o *Orchestrator) Resume() { o.enqueue(command{kind: cmdResume}) }

// Abort ends the run immediately. An in-flight round's invocations are
// cancelled and its results are discarded; only already-committed rounds
// survive.
func (o *Orchestrator) Abort() {
	o.enqueue(command{kind: cmdAbort})
	o.mu.Lock()
	cancel := o.roundCancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// SkipRound advances past the normal round transition once.
func (o *Orchestrator) SkipRound() { o.enqueue(command{kind: cmdSkipRound}) }

// InjectFeedback folds operator-supplied text into the next round's
// prompt context as an additional critique-like input.
func (o *Orchestrator) InjectFeedback(text string) {
	if text == "" {
		return
	}
	o.enqueue(command{kind: cmdInjectFeedback, text: text})
}

// enqueue never blocks the caller; an over-full command queue drops the
// command rather than deadlocking an observer against the run loop.
func (o *Orchestrator) enqueue(cmd command) {
	select {
	case o.commands <- cmd:
	default:
		o.logger.Warn("command queue full, dropping command", "command", cmd.kind)
	}
}

// handleCommands drains pending commands without blocking, then blocks
// while paused. Returns true when the run must abort.
func (o *Orchestrator) handleCommands(ctx context.Context) (aborted bool) {
	for {
		select {
		case cmd := <-o.commands:
			if o.apply(cmd) {
				return true
			}
		default:
			if !o.paused {
				return false
			}
			// Paused: wait for the next command or cancellation.
			select {
			case cmd := <-o.commands:
				if o.apply(cmd) {
					return true
				}
			case <-ctx.Done():
				return true
			}
		}
	}
}

// apply executes one command against the loop state. Returns true for
// abort.
func (o *Orchestrator) apply(cmd command) bool {
	switch cmd.kind {
	case cmdPause:
		if !o.paused {
			o.paused = true
			o.mutate(func(s *debate.Session) { s.Status = debate.StatusPaused })
			o.bus.Publish(event.NewSessionPausedEvent(o.session.ID, len(o.session.Rounds)))
			o.logger.Info("session paused", "after_round", len(o.session.Rounds))
		}
	case cmdResume:
		if o.paused {
			o.paused = false
			o.mutate(func(s *debate.Session) { s.Status = debate.StatusInProgress })
			o.logger.Info("session resumed")
		}
	case cmdAbort:
		o.logger.Info("session abort requested")
		return true
	case cmdSkipRound:
		o.skipPending = true
	case cmdInjectFeedback:
		o.mu.Lock()
		o.feedback = append(o.feedback, cmd.text)
		o.mu.Unlock()
		o.logger.Info("operator feedback injected", "length", len(cmd.text))
	}
	return false
}
