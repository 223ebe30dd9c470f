package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/avatarflowx/avatarflowx/internal/core/extract"
	"github.com/avatarflowx/avatarflowx/pkg/validation"
)

var errNoFlow = errors.New("no flow found")

var (
	extractStrategy string
	extractCompact  bool
	extractValidate bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract a flow graph from generated text",
	Long: `Extract the first flow graph ({"nodes": [...], "edges": [...]}) found in a
file or on stdin and print it as JSON. Node and edge values are printed as
written; --validate converts them to editor entities and checks the graph.

Examples:
  flowx extract reply.md
  cat reply.md | flowx extract --strategy lazy
  flowx extract reply.md --validate`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&extractStrategy, "strategy", string(extract.StrategyBalanced), "Span strategy: balanced, lazy")
	extractCmd.Flags().BoolVar(&extractCompact, "compact", false, "Print JSON on a single line")
	extractCmd.Flags().BoolVar(&extractValidate, "validate", false, "Check node IDs and edge endpoints")
}

func runExtract(cmd *cobra.Command, args []string) error {
	strategy, ok := extract.ParseStrategy(extractStrategy)
	if !ok {
		return fmt.Errorf("unsupported strategy: %s (use 'balanced' or 'lazy')", extractStrategy)
	}

	var (
		text []byte
		err  error
	)
	if len(args) == 1 && args[0] != "-" {
		text, err = os.ReadFile(args[0])
	} else {
		text, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	log := cmdLogger(cmd)
	defer func() { _ = log.Sync() }()

	flow, found := extract.NewExtractor(log, extract.WithStrategy(strategy)).Extract(string(text))
	if !found {
		return errNoFlow
	}
	if extractValidate {
		snap, err := flow.Snapshot()
		if err != nil {
			return fmt.Errorf("invalid flow: %w", err)
		}
		if err := validation.ValidateFlow(snap); err != nil {
			return fmt.Errorf("invalid flow: %w", err)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if !extractCompact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(flow)
}
