package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/alvesdmateus/auto-deployer/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "auto-deployer",
	Short: "auto-deployer - deploy Flask applications to AWS from a repository URL",
	Long: `auto-deployer analyzes, containerizes, and deploys a code repository to AWS.

Core Flow:
  Repository URL → Analyzer → Dockerfile → ECR Image → Terraform (App Runner) → Service URL`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Any tagged pipeline failure prints a one-line
// summary and exits non-zero.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(listCmd)
}

// newLogger constructs the operational log stream every component receives.
// No component logs through hidden global state.
func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// resolveRegion prefers an explicit flag over the configured region.
func resolveRegion(cmd *cobra.Command, cfg *config.Config) string {
	region, _ := cmd.Flags().GetString("aws-region")
	if !cmd.Flags().Changed("aws-region") && cfg.AWS.Region != "" {
		return cfg.AWS.Region
	}
	return region
}
