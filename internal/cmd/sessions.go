package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/quorum/internal/config"
	"github.com/Iron-Ham/quorum/internal/render"
	"github.com/Iron-Ham/quorum/internal/store"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage stored debate sessions",
	Long:  `Commands for listing, inspecting, exporting, and deleting stored sessions.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored sessions",
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session summary and transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsExportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session transcript to a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsExport,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a stored session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var (
	showFormat   string
	exportFormat string
	exportOutput string
)

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsExportCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)

	sessionsShowCmd.Flags().StringVar(&showFormat, "format", "", "Transcript format: markdown, json, or yaml (default from config)")
	sessionsExportCmd.Flags().StringVar(&exportFormat, "format", "", "Transcript format: markdown, json, or yaml (default from config)")
	sessionsExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default <session-id>.<ext>)")
}

func openStore() (*store.FileStore, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	st, err := store.NewFileStore(cfg.Paths.ResolveSessionDir())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session store: %w", err)
	}
	return st, cfg, nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}

	summaries, err := st.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(summaries) == 0 {
		fmt.Println("No sessions found.")
		fmt.Println("Run 'quorum run \"<topic>\"' to start one.")
		return nil
	}

	fmt.Println(strings.Repeat("─", 70))
	fmt.Printf("%-38s %-12s %6s  %s\n", "ID", "STATUS", "ROUNDS", "TOPIC")
	fmt.Println(strings.Repeat("─", 70))
	for _, s := range summaries {
		topic := s.Topic
		if s.Name != "" {
			topic = s.Name
		}
		if len(topic) > 40 {
			topic = topic[:37] + "..."
		}
		fmt.Printf("%-38s %-12s %6d  %s\n", s.ID, s.Status, s.Rounds, topic)
	}
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	st, cfg, err := openStore()
	if err != nil {
		return err
	}

	session, err := st.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	format := showFormat
	if format == "" {
		format = cfg.Output.Format
	}
	f, err := render.ParseFormat(format)
	if err != nil {
		return err
	}

	if f == render.FormatMarkdown {
		fmt.Println(render.Summary(session))
		fmt.Println()
	}
	data, err := render.Transcript(session, f)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runSessionsExport(cmd *cobra.Command, args []string) error {
	st, cfg, err := openStore()
	if err != nil {
		return err
	}

	session, err := st.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	format := exportFormat
	if format == "" {
		format = cfg.Output.Format
	}
	f, err := render.ParseFormat(format)
	if err != nil {
		return err
	}

	output := exportOutput
	if output == "" {
		output = session.ID + formatExtension(f)
	}
	if err := writeTranscript(session, string(f), output); err != nil {
		return err
	}
	fmt.Printf("transcript written to %s\n", output)
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}

	if err := st.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "deleted session %s\n", args[0])
	return nil
}

func formatExtension(f render.Format) string {
	switch f {
	case render.FormatJSON:
		return ".json"
	case render.FormatYAML:
		return ".yaml"
	default:
		return ".md"
	}
}
