// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-harvester/internal/cleanup"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete downloaded files older than a number of days",
	Long: `Cleanup removes files in the download directory whose modification
time is older than --days. The ledger is not changed, so removed articles
stay marked as downloaded. Use --dry-run to see what would go.`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().StringP("dir", "d", "", "download directory")
	cleanupCmd.Flags().Int("days", 30, "delete files older than this many days")
	cleanupCmd.Flags().Bool("dry-run", false, "report without deleting")

	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	days, _ := cmd.Flags().GetInt("days")
	if days < 0 {
		return fmt.Errorf("--days must not be negative, got %d", days)
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	res, err := cleanup.OlderThan(cfg.Download.Dir, cleanup.Options{
		MaxAge: time.Duration(days) * 24 * time.Hour,
		DryRun: dryRun,
		Logger: log.Named("cleanup"),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	size := float64(res.Bytes) / (1024 * 1024)
	if dryRun {
		for _, p := range res.Paths {
			fmt.Fprintln(out, "would delete:", p)
		}
		fmt.Fprintf(out, "Would delete %d files (%.2f MB) older than %d days from %s\n", res.Files, size, days, cfg.Download.Dir)
		return nil
	}
	fmt.Fprintf(out, "Deleted %d files (%.2f MB) older than %d days\n", res.Files, size, days)
	return nil
}
