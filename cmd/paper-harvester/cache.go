// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-harvester/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the API response cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size and expired entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cache.New(cfg.Cache)
		if err != nil {
			return err
		}
		defer c.Close()

		st, err := c.Stats()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}
		fmt.Fprintf(out, "  %-10s %s\n", "Backend", st.Backend)
		if st.Where != "" {
			fmt.Fprintf(out, "  %-10s %s\n", "Location", st.Where)
		}
		fmt.Fprintf(out, "  %-10s %d\n", "Entries", st.Entries)
		fmt.Fprintf(out, "  %-10s %d\n", "Expired", st.Expired)
		fmt.Fprintf(out, "  %-10s %.2f MB\n", "Size", float64(st.Bytes)/(1024*1024))
		fmt.Fprintf(out, "  %-10s %s\n", "TTL", st.TTL)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached responses (all, or only expired with --expired)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cache.New(cfg.Cache)
		if err != nil {
			return err
		}
		defer c.Close()

		expiredOnly, _ := cmd.Flags().GetBool("expired")
		var n int
		if expiredOnly {
			n, err = c.ClearExpired()
		} else {
			n, err = c.Clear()
		}
		if err != nil {
			return err
		}
		kind := "cached"
		if expiredOnly {
			kind = "expired"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d %s entries\n", n, kind)
		return nil
	},
}

func init() {
	cacheStatsCmd.Flags().Bool("json", false, "output as JSON")
	cacheClearCmd.Flags().Bool("expired", false, "only remove entries past their TTL")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	rootCmd.AddCommand(cacheCmd)
}
