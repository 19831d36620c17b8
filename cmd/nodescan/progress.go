package main

import (
	"fmt"
	"strconv"

	"github.com/nao1215/nodescan/internal/config"
	"github.com/nao1215/nodescan/internal/model"
	"github.com/nao1215/nodescan/internal/progress"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
)

// NewProgressCmd creates the progress command.
func NewProgressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show or clear the checkpoint of an interrupted scan",
		Long: `Progress shows the site, range and completion of the saved checkpoint.

Use --clear to discard the checkpoint so a different scan can start.`,
		Args: cobra.NoArgs,
		RunE: runProgressCmd,
	}

	cmd.Flags().Bool("clear", false, "Discard the saved checkpoint")
	cmd.Flags().String("state-dir", config.XDGStateDir(), "Directory holding the scan checkpoint")

	return cmd
}

// runProgressCmd executes the progress command.
func runProgressCmd(cmd *cobra.Command, _ []string) error {
	stateDir, err := cmd.Flags().GetString("state-dir")
	if err != nil {
		return err
	}
	clearCheckpoint, err := cmd.Flags().GetBool("clear")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	store := progress.NewFileStore(stateDir)

	if clearCheckpoint {
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Checkpoint cleared.")
		return nil
	}

	cp, err := store.Load()
	if err != nil {
		return err
	}
	if cp == nil {
		fmt.Fprintln(out, "No scan in progress.")
		return nil
	}

	site, start, end := cp.Range()
	remaining, next := remainingNodes(cp)

	tbl := table.New("Site", "Strategy", "Range", "Completed", "Remaining", "Next").WithWriter(out)
	tbl.AddRow(site, cp.Strategy(), fmt.Sprintf("[%d, %d)", start, end), end-start-remaining, remaining, next)
	tbl.Print()
	return nil
}

// remainingNodes returns how many nodes of the checkpoint's range are still
// pending and the lowest pending id, or "-" when none is left.
func remainingNodes(cp model.Checkpoint) (int, string) {
	switch c := cp.(type) {
	case *model.SequentialCheckpoint:
		remaining := c.EndNode - c.NextNode()
		if remaining <= 0 {
			return 0, "-"
		}
		return remaining, strconv.Itoa(c.NextNode())
	case *model.BitmapCheckpoint:
		pending := c.PendingNodes()
		if len(pending) == 0 {
			return 0, "-"
		}
		return len(pending), strconv.Itoa(pending[0])
	default:
		return 0, "-"
	}
}
