package main

import (
	"fmt"
	"path/filepath"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/nao1215/nodescan/internal/config"
	"github.com/spf13/cobra"
)

// NewIgnoreCmd creates the ignore command and its subcommands.
func NewIgnoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ignore",
		Short: "Maintain the exclusion and social domain lists",
		Long: `Ignore edits the JSON lists used by scans.

The exclusion list (exclusion_list.json) holds absolute URLs that are never
reported as accessibility problems. With --social the social domain list
(social_media_domains.json) is edited instead; links whose href contains one
of its entries are neither reported nor checked.

Examples:
  nodescan ignore list
  nodescan ignore add https://example.com/sites/default/files/logo.png
  nodescan ignore add --social mastodon.social
  nodescan ignore remove --social x.com`,
	}

	cmd.PersistentFlags().Bool("social", false, "Edit the social domain list instead of the exclusion list")
	cmd.PersistentFlags().String("list-dir", config.XDGConfigDir(), "Directory holding the list files")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the list entries",
		Args:  cobra.NoArgs,
		RunE:  runIgnoreList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add <value>...",
		Short: "Add entries to the list",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runIgnoreAdd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <value>...",
		Short: "Remove entries from the list",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runIgnoreRemove,
	})

	return cmd
}

// listTarget returns the list file selected by the flags and its defaults.
func listTarget(cmd *cobra.Command) (string, []string, error) {
	dir, err := cmd.Flags().GetString("list-dir")
	if err != nil {
		return "", nil, err
	}
	social, err := cmd.Flags().GetBool("social")
	if err != nil {
		return "", nil, err
	}
	if social {
		return filepath.Join(dir, config.SocialDomainListFile), config.DefaultSocialDomains, nil
	}
	return filepath.Join(dir, config.ExclusionListFile), nil, nil
}

func runIgnoreList(cmd *cobra.Command, _ []string) error {
	path, defaults, err := listTarget(cmd)
	if err != nil {
		return err
	}
	set, err := config.LoadList(path, defaults)
	if err != nil {
		return err
	}
	for _, v := range mapset.Sorted(set) {
		fmt.Fprintln(cmd.OutOrStdout(), v)
	}
	return nil
}

func runIgnoreAdd(cmd *cobra.Command, args []string) error {
	path, defaults, err := listTarget(cmd)
	if err != nil {
		return err
	}
	n, err := config.AddToList(path, defaults, args...)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %d entries to %s\n", n, path)
	return nil
}

func runIgnoreRemove(cmd *cobra.Command, args []string) error {
	path, defaults, err := listTarget(cmd)
	if err != nil {
		return err
	}
	n, err := config.RemoveFromList(path, defaults, args...)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries from %s\n", n, path)
	return nil
}
