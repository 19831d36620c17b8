package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for nodescan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodescan",
		Short: "Broken link and accessibility scanner for numbered node pages",
		Long: `nodescan scans a range of node pages (<site>node/<id>/) of a website.

For every page that exists it reports images without alt text, links
without visible text, and outbound links that answer 404 or cannot be
reached. Long scans can be interrupted and resumed; parallel scans split
the range into shards and record per-node completion.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewResumeCmd())
	cmd.AddCommand(NewProgressCmd())
	cmd.AddCommand(NewIgnoreCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
