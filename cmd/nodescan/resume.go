package main

import (
	"errors"
	"fmt"

	"github.com/nao1215/nodescan/internal/progress"
	"github.com/spf13/cobra"
)

// errNoCheckpoint is returned when there is no paused scan.
var errNoCheckpoint = errors.New("no scan in progress")

// NewResumeCmd creates the resume command.
func NewResumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Continue an interrupted scan from its checkpoint",
		Long: `Resume rebuilds the site, node range and strategy of an interrupted scan
from the saved checkpoint and continues where it stopped.

The filter mode is not part of the checkpoint; pass the mode the scan was
started with.

Examples:
  nodescan resume --mode both
  nodescan resume --mode broken --workers 20`,
		Args: cobra.NoArgs,
		RunE: runResumeCmd,
	}
	addRunFlags(cmd)
	return cmd
}

// runResumeCmd executes the resume command.
func runResumeCmd(cmd *cobra.Command, _ []string) error {
	stateDir, err := cmd.Flags().GetString("state-dir")
	if err != nil {
		return err
	}
	store := progress.NewFileStore(stateDir)
	cp, err := store.Load()
	if err != nil {
		return err
	}
	if cp == nil {
		return fmt.Errorf("%w (checkpoint directory: %s)", errNoCheckpoint, stateDir)
	}

	site, start, end := cp.Range()
	cfg, err := buildConfig(cmd, site)
	if err != nil {
		return err
	}
	cfg.StartNode, cfg.EndNode = start, end
	cfg.Strategy = cp.Strategy()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	return executeScan(cmd, cfg, store)
}
