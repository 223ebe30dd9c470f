package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/avatarflowx/avatarflowx/internal/adapters/repository/sqlite"
	"github.com/avatarflowx/avatarflowx/internal/core/checkpoint"
)

var (
	checkpointDB    string
	checkpointTable string
	checkpointFlow  string
	checkpointTags  []string
	checkpointLimit int
)

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "Inspect saved flow checkpoints",
	Long:  `Commands for reading the checkpoints a server stored in its SQLite database.`,
}

var checkpointsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List checkpoints, newest first",
	Args:  cobra.NoArgs,
	RunE:  runCheckpointsList,
}

var checkpointsShowCmd = &cobra.Command{
	Use:   "show <checkpoint-id>",
	Short: "Print a checkpoint's flow graph as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckpointsShow,
}

func init() {
	rootCmd.AddCommand(checkpointsCmd)
	checkpointsCmd.AddCommand(checkpointsListCmd, checkpointsShowCmd)

	checkpointsCmd.PersistentFlags().StringVar(&checkpointDB, "db", "avatarflowx.db", "SQLite database file")
	checkpointsCmd.PersistentFlags().StringVar(&checkpointTable, "table", "flow_checkpoints", "Checkpoint table")
	checkpointsListCmd.Flags().StringVar(&checkpointFlow, "flow", "", "Only checkpoints of this flow")
	checkpointsListCmd.Flags().StringSliceVar(&checkpointTags, "tag", nil, "Only checkpoints carrying every tag")
	checkpointsListCmd.Flags().IntVar(&checkpointLimit, "limit", 20, "Maximum number of checkpoints")
}

func openSaver() (*sqlite.CheckpointSaver, error) {
	db, err := sql.Open("sqlite", checkpointDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", checkpointDB, err)
	}
	return sqlite.NewCheckpointSaver(db, nil).WithTableName(checkpointTable), nil
}

func runCheckpointsList(cmd *cobra.Command, _ []string) error {
	saver, err := openSaver()
	if err != nil {
		return err
	}
	defer saver.Close()

	cps, err := saver.List(context.Background(), checkpoint.Filter{
		FlowID: checkpointFlow,
		Tags:   checkpointTags,
		Limit:  checkpointLimit,
	})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFLOW\tLABEL\tNODES\tEDGES\tSAVED")
	for _, cp := range cps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			cp.ID, cp.FlowID, cp.Label,
			len(cp.Snapshot.Nodes), len(cp.Snapshot.Edges),
			cp.Timestamp.Local().Format(time.RFC3339))
	}
	return tw.Flush()
}

func runCheckpointsShow(cmd *cobra.Command, args []string) error {
	saver, err := openSaver()
	if err != nil {
		return err
	}
	defer saver.Close()

	cp, err := saver.Load(context.Background(), args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(cp.Snapshot)
}
