// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-harvester/internal/feed"
	"github.com/pdiddy/paper-harvester/internal/harvest"
	"github.com/pdiddy/paper-harvester/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [terms...]",
	Short: "Search arXiv by free text",
	Long: `Search sends every term as an all: clause joined with AND, optionally
restricted to --categories, and lists the matches in relevance order.
With --download the matches go through the same download pipeline,
ledger, and session bookkeeping as scrape.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("categories", "", "restrict to these categories, comma or space separated")
	searchCmd.Flags().Int("max-results", 20, "maximum number of results")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().Bool("download", false, "download the results")
	addHarvestFlags(searchCmd)

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return errors.New("provide search terms")
	}
	raw, _ := cmd.Flags().GetString("categories")
	categories := types.ParseCategories(raw)
	maxResults, _ := cmd.Flags().GetInt("max-results")
	if maxResults < 1 {
		return fmt.Errorf("--max-results must be at least 1, got %d", maxResults)
	}
	if maxResults > feed.MaxSearchResults {
		return fmt.Errorf("--max-results must be at most %d, got %d", feed.MaxSearchResults, maxResults)
	}

	if dl, _ := cmd.Flags().GetBool("download"); dl {
		return runHarvest(cmd, harvest.Request{Query: query, Categories: categories, Target: maxResults})
	}

	h, err := newHarvester(nil)
	if err != nil {
		return err
	}
	defer h.Close()

	recs, err := h.feed.Search(cmd.Context(), query, categories, maxResults)
	if err != nil {
		return err
	}
	cat, err := openCatalog()
	if err != nil {
		return err
	}
	if cat != nil {
		defer cat.Close()
		if err := cat.Upsert(cmd.Context(), recs); err != nil {
			log.Warn("catalog update failed", zap.Error(err))
		}
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return printRecords(cmd.OutOrStdout(), recs, jsonOutput)
}

func printRecords(w io.Writer, recs []types.ArticleRecord, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if recs == nil {
			recs = []types.ArticleRecord{}
		}
		return enc.Encode(recs)
	}

	if len(recs) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "%-4s  %-16s  %-10s  %-50s  %s\n", "#", "ID", "Published", "Title", "Authors")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for i, r := range recs {
		published := ""
		if r.Published != nil {
			published = r.Published.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%-4d  %-16s  %-10s  %-50s  %s\n",
			i+1, r.ID, published, truncate(r.Title, 50), strings.Join(r.ShortAuthors(3), ", "))
	}
	fmt.Fprintf(w, "\n%d results\n", len(recs))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
