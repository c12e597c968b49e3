// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-harvester/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session [id]",
	Short: "Inspect saved harvest sessions",
	Long: `Session prints one saved session, or every session newest first with
--list. --errors shows the session's recorded errors.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSession,
}

func init() {
	sessionCmd.Flags().Bool("list", false, "list all sessions")
	sessionCmd.Flags().Bool("errors", false, "show the session's errors")
	sessionCmd.Flags().Bool("json", false, "output as JSON")
	sessionCmd.Flags().String("sessions-dir", "", "sessions directory")

	rootCmd.AddCommand(sessionCmd)
}

func runSession(cmd *cobra.Command, args []string) error {
	store := session.NewStore(cfg.Download.SessionsDir)
	out := cmd.OutOrStdout()
	jsonOutput, _ := cmd.Flags().GetBool("json")
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if list, _ := cmd.Flags().GetBool("list"); list || len(args) == 0 {
		sums, err := store.List()
		if err != nil {
			return err
		}
		if jsonOutput {
			return enc.Encode(sums)
		}
		if len(sums) == 0 {
			fmt.Fprintf(out, "No sessions in %s\n", store.Dir())
			return nil
		}
		fmt.Fprintf(out, "%-8s  %-19s  %-30s  %6s  %6s  %6s  %6s\n",
			"ID", "Started", "Target", "Found", "Done", "Skip", "Fail")
		fmt.Fprintln(out, strings.Repeat("-", 96))
		for _, s := range sums {
			target := strings.Join(s.Categories, ",")
			if s.Query != "" {
				target = "q: " + s.Query
			}
			fmt.Fprintf(out, "%-8s  %-19s  %-30s  %6d  %6d  %6d  %6d\n",
				s.ID, s.StartTime.Local().Format("2006-01-02 15:04:05"), truncate(target, 30),
				s.Found, s.Downloaded, s.Skipped, s.Failed)
		}
		return nil
	}

	rec, err := store.Load(args[0])
	if errors.Is(err, session.ErrNotFound) {
		return fmt.Errorf("no session %s in %s", args[0], store.Dir())
	}
	if err != nil {
		return err
	}

	if showErrors, _ := cmd.Flags().GetBool("errors"); showErrors {
		if jsonOutput {
			return enc.Encode(rec.Errors)
		}
		if len(rec.Errors) == 0 {
			fmt.Fprintln(out, "No errors recorded.")
			return nil
		}
		for _, e := range rec.Errors {
			fmt.Fprintln(out, e)
		}
		return nil
	}

	if jsonOutput {
		return enc.Encode(rec)
	}
	printSession(out, rec)
	return nil
}
