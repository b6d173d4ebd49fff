package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/quorum/internal/config"
	"github.com/Iron-Ham/quorum/internal/debate"
	"github.com/Iron-Ham/quorum/internal/event"
	"github.com/Iron-Ham/quorum/internal/logging"
	"github.com/Iron-Ham/quorum/internal/orchestrator"
	"github.com/Iron-Ham/quorum/internal/orchestrator/budget"
	"github.com/Iron-Ham/quorum/internal/provider"
	"github.com/Iron-Ham/quorum/internal/render"
	"github.com/Iron-Ham/quorum/internal/roster"
	"github.com/Iron-Ham/quorum/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run <topic>",
	Short: "Start a new debate session",
	Long: `Start a new debate on the given topic and run it to completion.

The configured participants take turns drafting, critiquing, and
synthesizing until they converge or a budget ceiling is reached.
Press Ctrl-C once to abort gracefully; twice to force exit.

While a session is running you can steer it by writing guidance into
feedback.txt inside the session directory; the text is injected into
the next round's prompts.

Examples:
  # Run a debate with the participants from the config file
  quorum run "Design a rate limiting API for our public endpoints"

  # Cap the run at 6 rounds and $5
  quorum run --max-rounds 6 --max-cost 5 "Write an incident postmortem"

  # Override the roster for one run
  quorum run -p claude-opus-4:drafter,synthesizer -p claude-sonnet-4:critic "..."`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

var (
	runName         string
	runMaxRounds    int
	runMaxCost      float64
	runSerial       bool
	runDryRun       bool
	runQuiet        bool
	runOutput       string
	runParticipants []string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runName, "name", "", "Human-readable session name")
	runCmd.Flags().IntVar(&runMaxRounds, "max-rounds", 0, "Override the configured round limit (0 = use config)")
	runCmd.Flags().Float64Var(&runMaxCost, "max-cost", 0, "Override the configured cost ceiling in USD (0 = use config)")
	runCmd.Flags().BoolVar(&runSerial, "serial", false, "Invoke participants one at a time instead of in parallel")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Use canned responses instead of invoking models")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Suppress per-round progress output")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "Write the transcript to this file after the run")
	runCmd.Flags().StringArrayVarP(&runParticipants, "participant", "p", nil,
		"Override configured participants (model:role1,role2; repeatable)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyRunOverrides(cfg)

	entries := cfg.Participants
	if len(runParticipants) > 0 {
		entries, err = parseParticipantFlags(runParticipants)
		if err != nil {
			return err
		}
	}
	if len(entries) == 0 {
		return fmt.Errorf("no participants configured; add a participants section to %s or pass --participant", config.ConfigFile())
	}
	ros, err := roster.New(entries)
	if err != nil {
		return fmt.Errorf("failed to build roster: %w", err)
	}
	if !runDryRun {
		ros = healthyRoster(cmd.Context(), ros, buildRegistry(cfg))
		if ros.Len() == 0 {
			return fmt.Errorf("no participants with a healthy provider; check that the configured CLIs are installed")
		}
	}

	session := debate.NewSession(args[0], cfg.Debate.ToSession(cfg.Budget.MaxCost), ros.Participants())
	session.Name = runName

	return runSession(cmd.Context(), cfg, session, ros)
}

// runSession drives a session to completion and reports the result. It
// is shared by run and resume.
func runSession(parent context.Context, cfg *config.Config, session *debate.Session, ros *roster.Roster) error {
	st, err := store.NewFileStore(cfg.Paths.ResolveSessionDir())
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}

	logger, err := buildLogger(cfg, st.SessionDir(session.ID))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	lock, err := st.AcquireLock(session.ID, logger)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	var invoker provider.Invoker = buildRegistry(cfg)
	if runDryRun {
		invoker = provider.NewDryRunProvider()
	}

	orch := orchestrator.New(session, ros, invoker, orchestrator.Options{
		Store:   st,
		Tracker: budget.NewTracker(cfg.Budget.MaxCost, cfg.Budget.ToRates(), logger),
		Logger:  logger,
	})

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// First Ctrl-C aborts gracefully; a second one cancels outright.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\naborting; press Ctrl-C again to force exit")
			orch.Abort()
		case <-ctx.Done():
			return
		}
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	var doneProgress func()
	if !runQuiet {
		doneProgress = printProgress(orch.Events())
	}

	if stop, err := orch.WatchFeedback(ctx, st.SessionDir(session.ID)); err != nil {
		logger.Warn("feedback watcher unavailable", "error", err)
	} else {
		defer stop()
	}

	fmt.Printf("session %s\n", session.ID)
	runErr := orch.Run(ctx)
	if doneProgress != nil {
		doneProgress()
	}
	if runErr != nil {
		return fmt.Errorf("debate failed: %w", runErr)
	}

	final := orch.Session()
	if cfg.Output.Summary {
		fmt.Println(render.Summary(&final))
	}
	if runOutput != "" {
		if err := writeTranscript(&final, cfg.Output.Format, runOutput); err != nil {
			return err
		}
		fmt.Printf("transcript written to %s\n", runOutput)
	}
	return nil
}

func applyRunOverrides(cfg *config.Config) {
	if runMaxRounds > 0 {
		cfg.Debate.MaxRounds = runMaxRounds
	}
	if runMaxCost > 0 {
		cfg.Budget.MaxCost = runMaxCost
	}
	if runSerial {
		cfg.Debate.Parallel = false
	}
}

// parseParticipantFlags parses repeated model:role1,role2 flag values.
func parseParticipantFlags(values []string) ([]roster.Entry, error) {
	entries := make([]roster.Entry, 0, len(values))
	for _, v := range values {
		model, roleSpec, found := strings.Cut(v, ":")
		if model == "" {
			return nil, fmt.Errorf("invalid --participant %q: expected model:role1,role2", v)
		}
		entry := roster.Entry{Model: model}
		if found && roleSpec != "" {
			entry.Roles = strings.Split(roleSpec, ",")
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// buildRegistry wires one exec provider per configured CLI. The claude
// provider registers first so it serves as the fallback for
// participants without an explicit provider tag.
func buildRegistry(cfg *config.Config) *provider.Registry {
	reg := provider.NewRegistry()
	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		if name != "claude" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if pc, ok := cfg.Providers["claude"]; ok {
		reg.Register("claude", provider.NewExecProvider(pc.ToExec("claude")))
	}
	for _, name := range names {
		reg.Register(name, provider.NewExecProvider(cfg.Providers[name].ToExec(name)))
	}
	return reg
}

// healthyRoster drops participants whose provider reports itself
// unavailable. Providers without a health signal are kept.
func healthyRoster(ctx context.Context, ros *roster.Roster, reg *provider.Registry) *roster.Roster {
	return ros.FilterHealthy(ctx, func(ctx context.Context, p debate.Participant) (bool, bool) {
		inv, err := reg.Lookup(p)
		if err != nil {
			return false, true
		}
		hc, ok := inv.(provider.HealthChecker)
		if !ok {
			return false, false
		}
		return hc.Healthy(ctx), true
	})
}

func buildLogger(cfg *config.Config, sessionDir string) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	logger, err := logging.NewLogger(sessionDir, cfg.Logging.Level, cfg.Logging.Rotation())
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return logger, nil
}

// printProgress streams one line per notable event to stdout. The
// returned function drains the subscription.
func printProgress(bus *event.Bus) func() {
	events, cancel := bus.SubscribeBuffered(256)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range events {
			switch ev := e.(type) {
			case event.RoundStartedEvent:
				fmt.Printf("round %d: %s\n", ev.Number+1, ev.Kind)
			case event.ParticipantRespondedEvent:
				fmt.Printf("  %s responded (%d tokens)\n", ev.Participant, ev.InputTokens+ev.OutputTokens)
			case event.ConvergenceCheckedEvent:
				fmt.Printf("  convergence %.2f (%s)\n", ev.Score, ev.Trend)
			case event.CostUpdatedEvent:
				if ev.TotalCost > 0 {
					fmt.Printf("  cost so far $%.4f\n", ev.TotalCost)
				}
			case event.ErrorEvent:
				if ev.Recoverable {
					fmt.Printf("  recoverable: %s\n", ev.Message)
				} else {
					fmt.Fprintf(os.Stderr, "error: %s\n", ev.Message)
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func writeTranscript(s *debate.Session, format, path string) error {
	f, err := render.ParseFormat(format)
	if err != nil {
		return err
	}
	data, err := render.Transcript(s, f)
	if err != nil {
		return fmt.Errorf("failed to render transcript: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}
