package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/avatarflowx/avatarflowx/internal/infrastructure/logger"
)

// Version information set during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:           "flowx",
	Short:         "AvatarFlowX flow tools",
	Long:          `Tools for working with AvatarFlowX page flows: pull a flow graph out of generated text and inspect saved checkpoints.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var logLevel string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "flowx %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Diagnostics level on stderr: debug, info, warn, error")
}

// cmdLogger returns a logger writing to the command's error stream
func cmdLogger(cmd *cobra.Command) *zap.Logger {
	return logger.NewConsole(cmd.ErrOrStderr(), logLevel)
}

// Execute runs the root command and prints any error to stderr
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), err)
		return err
	}
	return nil
}
