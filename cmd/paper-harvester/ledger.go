// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Maintain the download ledger (backup, dedupe, restore)",
}

// --- backup subcommand ---

var ledgerBackupCmd = &cobra.Command{
	Use:   "backup [destination]",
	Short: "Copy the ledger to a backup file",
	Long: `Backup copies the ledger. Without a destination the copy is written
next to the ledger as backup_<timestamp>.jsonl.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		led, err := openLedger()
		if err != nil {
			return err
		}
		dst := ""
		if len(args) == 1 {
			dst = args[0]
		}
		path, err := led.Backup(dst)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Backed up %s to %s\n", led.Path(), path)
		return nil
	},
}

// --- dedupe subcommand ---

var ledgerDedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Drop repeated identifiers, keeping the first line of each",
	RunE: func(cmd *cobra.Command, args []string) error {
		led, err := openLedger()
		if err != nil {
			return err
		}
		removed, backup, err := led.Deduplicate()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if backup != "" {
			fmt.Fprintf(out, "Backup written to %s\n", backup)
		}
		fmt.Fprintf(out, "Removed %d duplicate line(s); %d identifiers remain\n", removed, len(led.IDs()))
		return nil
	},
}

// --- restore subcommand ---

var ledgerRestoreCmd = &cobra.Command{
	Use:   "restore <backup>",
	Short: "Replace the ledger with a backup",
	Long: `Restore replaces the ledger with the given backup file. The current
ledger is backed up first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		led, err := openLedger()
		if err != nil {
			return err
		}
		prior, err := led.Restore(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if prior != "" {
			fmt.Fprintf(out, "Previous ledger saved to %s\n", prior)
		}
		fmt.Fprintf(out, "Restored %s from %s (%d identifiers)\n", led.Path(), args[0], len(led.IDs()))
		return nil
	},
}

func init() {
	ledgerCmd.PersistentFlags().StringP("ledger", "j", "", "download ledger (JSONL)")

	ledgerCmd.AddCommand(ledgerBackupCmd)
	ledgerCmd.AddCommand(ledgerDedupeCmd)
	ledgerCmd.AddCommand(ledgerRestoreCmd)

	rootCmd.AddCommand(ledgerCmd)
}
