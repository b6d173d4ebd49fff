// Package cmd implements the quorum command line interface.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/quorum/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "quorum",
	Short: "Multi-model debate orchestrator",
	Long: `Quorum runs structured debates between multiple language models:
a drafter produces an artifact, critics score and critique it, a
synthesizer merges the feedback, and the loop repeats until the
participants converge on a final version.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/quorum/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/quorum")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("QUORUM")
	// Replace dots with underscores for nested keys in env vars
	// e.g., QUORUM_DEBATE_MAX_ROUNDS for debate.max_rounds
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
