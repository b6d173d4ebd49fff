package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/quorum/internal/config"
	"github.com/Iron-Ham/quorum/internal/debate"
	"github.com/Iron-Ham/quorum/internal/roster"
	"github.com/Iron-Ham/quorum/internal/store"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <session-id>",
	Short: "Resume a stored debate session",
	Long: `Resume a previously stored session and run it to completion.

A paused or interrupted session picks up where it left off. A finished
session can be re-opened from an earlier point with --from-round, which
discards every round at or after the given index before restarting.

Examples:
  # Continue an interrupted session
  quorum resume 3f2a1c9e

  # Rewind a finished session to round 4 and debate onward from there
  quorum resume --from-round 4 3f2a1c9e`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

var resumeFromRound int

func init() {
	rootCmd.AddCommand(resumeCmd)

	resumeCmd.Flags().IntVar(&resumeFromRound, "from-round", -1, "Discard rounds >= this index before resuming (0-based)")
}

func runResume(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	st, err := store.NewFileStore(cfg.Paths.ResolveSessionDir())
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}

	ctx := cmd.Context()
	var session *debate.Session
	if resumeFromRound >= 0 {
		session, err = st.TruncateRounds(ctx, args[0], resumeFromRound)
	} else {
		session, err = st.Load(ctx, args[0])
	}
	if err != nil {
		return err
	}

	if session.Status.IsTerminal() {
		return fmt.Errorf("session %s already finished (%s); use --from-round to rewind and re-run", session.ID, session.Status)
	}

	// Rebuild the roster from the participants the session ran with so a
	// config change cannot alter an in-flight debate.
	ros, err := roster.New(entriesFromParticipants(session.Participants))
	if err != nil {
		return fmt.Errorf("failed to rebuild roster: %w", err)
	}

	return runSession(ctx, cfg, session, ros)
}

func entriesFromParticipants(participants []debate.Participant) []roster.Entry {
	byModel := make(map[string]*roster.Entry)
	var order []string
	for _, p := range participants {
		key := p.Provider + "/" + p.Model
		entry, ok := byModel[key]
		if !ok {
			entry = &roster.Entry{
				Model:       p.Model,
				DisplayName: p.DisplayName,
				Provider:    p.Provider,
			}
			byModel[key] = entry
			order = append(order, key)
		}
		entry.Roles = append(entry.Roles, string(p.Role))
	}

	entries := make([]roster.Entry, 0, len(order))
	for _, key := range order {
		entries = append(entries, *byModel[key])
	}
	return entries
}
