package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Iron-Ham/quorum/internal/debate"
	"github.com/Iron-Ham/quorum/internal/provider"
)

func TestWatchFeedbackConsumesDropFile(t *testing.T) {
	r := twoParticipantRoster(t)
	sp := provider.NewScriptedProvider(nil)
	s := debate.NewSession("watched run", testConfig(), r.Participants())
	o := New(s, r, sp, Options{})

	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop, err := o.WatchFeedback(ctx, dir)
	if err != nil {
		t.Fatalf("WatchFeedback: %v", err)
	}
	defer stop()

	path := filepath.Join(dir, FeedbackFileName)
	if err := os.WriteFile(path, []byte("tighten the intro\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Feedback flows through the command queue; drain it the way the
	// run loop would.
	var got []string
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		o.handleCommands(ctx)
		if got = o.takeFeedback(); len(got) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(got) != 1 || got[0] != "tighten the intro" {
		t.Fatalf("feedback = %v, want the drop file contents", got)
	}

	// The drop file is consumed.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("feedback file was not removed after consumption")
	}
}

func TestWatchFeedbackPicksUpExistingFile(t *testing.T) {
	r := twoParticipantRoster(t)
	sp := provider.NewScriptedProvider(nil)
	s := debate.NewSession("watched run", testConfig(), r.Participants())
	o := New(s, r, sp, Options{})

	dir := t.TempDir()
	path := filepath.Join(dir, FeedbackFileName)
	if err := os.WriteFile(path, []byte("pre-existing note"), 0o644); err != nil {
		t.Fatal(err)
	}

	stop, err := o.WatchFeedback(context.Background(), dir)
	if err != nil {
		t.Fatalf("WatchFeedback: %v", err)
	}
	defer stop()

	o.handleCommands(context.Background())
	got := o.takeFeedback()
	if len(got) != 1 || got[0] != "pre-existing note" {
		t.Fatalf("feedback = %v, want the pre-existing file contents", got)
	}
}
