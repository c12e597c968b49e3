// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-harvester/pkg/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the download ledger",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringP("ledger", "j", "", "download ledger (JSONL)")
	statsCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	led, err := openLedger()
	if err != nil {
		return err
	}
	st := led.Stats()
	out := cmd.OutOrStdout()

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Fprintf(out, "Ledger %s\n\n", led.Path())
	fmt.Fprintf(out, "  %-20s %d\n", "Identifiers", st.TotalIDs)
	fmt.Fprintf(out, "  %-20s %d\n", "Recorded outcomes", st.Outcomes)
	fmt.Fprintf(out, "  %-20s %d\n", "Successful", st.Successful)
	fmt.Fprintf(out, "  %-20s %d\n", "Failed", st.Failed)
	fmt.Fprintf(out, "  %-20s %.2f MB\n", "Downloaded", float64(st.TotalBytes)/(1024*1024))

	formats := make([]types.Format, 0, len(st.ByFormat))
	for f := range st.ByFormat {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	for _, f := range formats {
		fmt.Fprintf(out, "  %-20s %d\n", "Format "+string(f), st.ByFormat[f])
	}
	return nil
}
