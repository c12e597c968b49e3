// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-harvester/internal/feed"
	"github.com/pdiddy/paper-harvester/internal/harvest"
	"github.com/pdiddy/paper-harvester/internal/session"
	"github.com/pdiddy/paper-harvester/pkg/types"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Download the newest articles from one or more categories",
	Long: `Scrape walks the given categories in order, newest first, and downloads
articles until the target count is reached or the categories run out.
Articles already in the ledger are skipped without a network call.

Categories are given with --categories (comma or space separated) or
expanded from a field with --field (math, cs, physics, biology).`,
	Example: `  paper-harvester scrape --categories cs.AI,cs.LG -n 50
  paper-harvester scrape --field math --format both --export-bibtex`,
	RunE: runScrape,
}

func init() {
	scrapeCmd.Flags().String("categories", "", "categories to scrape, comma or space separated")
	scrapeCmd.Flags().String("field", "", "scrape every category of a field (math, cs, physics, biology)")
	scrapeCmd.Flags().IntP("max-articles", "n", 10, "number of articles to download")
	addHarvestFlags(scrapeCmd)

	rootCmd.AddCommand(scrapeCmd)
}

// addHarvestFlags registers the download flags shared by scrape and search.
func addHarvestFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("dir", "d", "", "download directory")
	cmd.Flags().StringP("ledger", "j", "", "download ledger (JSONL)")
	cmd.Flags().String("format", "", "artifacts to download: source, pdf, or both (default from config)")
	cmd.Flags().Int("batch-size", 0, "articles requested per page")
	cmd.Flags().Int("max-concurrent", 0, "simultaneous downloads")
	cmd.Flags().Int("pages", 0, "pages to pull from one category before moving on")
	cmd.Flags().Int("max-retries", 0, "attempts per metadata request")
	cmd.Flags().Duration("rate-limit", 0, "delay before every outbound request")
	cmd.Flags().Bool("no-cache", false, "bypass the response cache")
	cmd.Flags().Bool("export-metadata", false, "write the run's article metadata to the download directory")
	cmd.Flags().String("export-format", "json", "metadata export encoding: json or yaml")
	cmd.Flags().Bool("export-bibtex", false, "write BibTeX citations for the run's articles")
}

func runScrape(cmd *cobra.Command, args []string) error {
	categories, err := scrapeCategories(cmd)
	if err != nil {
		return err
	}
	target, _ := cmd.Flags().GetInt("max-articles")
	return runHarvest(cmd, harvest.Request{Categories: categories, Target: target})
}

func scrapeCategories(cmd *cobra.Command) ([]string, error) {
	raw, _ := cmd.Flags().GetString("categories")
	field, _ := cmd.Flags().GetString("field")

	categories := types.ParseCategories(raw)
	if field != "" {
		fc := feed.CategoriesForField(field)
		if fc == nil {
			return nil, fmt.Errorf("unknown field %q (known: %s)", field, strings.Join(feed.Fields(), ", "))
		}
		categories = append(categories, fc...)
	}
	if len(categories) == 0 {
		return nil, errors.New("provide --categories or --field")
	}
	return categories, nil
}

// runHarvest wires the pipeline from configuration, runs req, prints the
// session summary, and writes any requested exports.
func runHarvest(cmd *cobra.Command, req harvest.Request) error {
	formats := cfg.Download.Formats
	if name, _ := cmd.Flags().GetString("format"); name != "" {
		fs, err := types.ParseFormats(name)
		if err != nil {
			return err
		}
		formats = fs
	}
	exports, err := exportFormats(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	h, err := newHarvester(&progressLine{w: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer h.Close()

	led, err := openLedger()
	if err != nil {
		return err
	}
	cat, err := openCatalog()
	if err != nil {
		return err
	}
	opts := harvest.Options{
		Fetcher:          h.feed,
		Downloader:       h.worker,
		Ledger:           led,
		Sessions:         session.NewStore(cfg.Download.SessionsDir),
		Logger:           log.Named("harvest"),
		Out:              out,
		Dir:              cfg.Download.Dir,
		Formats:          formats,
		BatchSize:        cfg.Download.BatchSize,
		MaxConcurrent:    cfg.Download.MaxConcurrent,
		PagesPerCategory: cfg.Download.PagesPerCategory,
	}
	if cat != nil {
		defer cat.Close()
		opts.Catalog = cat
	}
	notifier, err := buildNotifier(cmd.Context())
	if err != nil {
		return err
	}
	if notifier.Size() > 0 {
		opts.Notifier = notifier
	}

	p, err := harvest.New(opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Target: %d articles, formats %s, into %s\n", req.Target, formatNames(formats), cfg.Download.Dir)
	res, runErr := p.Run(cmd.Context(), req)
	if res == nil {
		return runErr
	}

	printSession(out, res.Session)
	fmt.Fprintf(out, "Session saved to %s\n", session.NewStore(cfg.Download.SessionsDir).Path(res.Session.ID))

	if runErr == nil || errors.Is(runErr, harvest.ErrInterrupted) {
		for _, f := range exports {
			if len(res.Records) == 0 {
				break
			}
			path, err := harvest.ExportFile(cfg.Download.Dir, res.Session.ID, f, res.Records)
			if err != nil {
				return errors.Join(runErr, err)
			}
			fmt.Fprintf(out, "Exported %s to %s\n", f, path)
		}
	}
	return runErr
}

func exportFormats(cmd *cobra.Command) ([]harvest.ExportFormat, error) {
	var out []harvest.ExportFormat
	if meta, _ := cmd.Flags().GetBool("export-metadata"); meta {
		name, _ := cmd.Flags().GetString("export-format")
		f, err := harvest.ParseExportFormat(name)
		if err != nil {
			return nil, err
		}
		if f == harvest.ExportBibTeX {
			return nil, errors.New("--export-format takes json or yaml; use --export-bibtex for citations")
		}
		out = append(out, f)
	}
	if bib, _ := cmd.Flags().GetBool("export-bibtex"); bib {
		out = append(out, harvest.ExportBibTeX)
	}
	return out, nil
}

func formatNames(fs []types.Format) string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = string(f)
	}
	return strings.Join(names, "+")
}

func printSession(w io.Writer, s *types.SessionRecord) {
	sum := s.Summary()
	fmt.Fprintf(w, "\nSession %s\n", sum.ID)
	fmt.Fprintln(w, strings.Repeat("-", 40))
	if sum.Query != "" {
		fmt.Fprintf(w, "  %-12s %s\n", "Query", sum.Query)
	}
	if len(sum.Categories) > 0 {
		fmt.Fprintf(w, "  %-12s %s\n", "Categories", strings.Join(sum.Categories, ", "))
	}
	fmt.Fprintf(w, "  %-12s %d\n", "Found", sum.Found)
	fmt.Fprintf(w, "  %-12s %d\n", "Downloaded", sum.Downloaded)
	fmt.Fprintf(w, "  %-12s %d\n", "Skipped", sum.Skipped)
	fmt.Fprintf(w, "  %-12s %d\n", "Failed", sum.Failed)
	fmt.Fprintf(w, "  %-12s %.1f%%\n", "Success", sum.SuccessRate)
	if sum.Seconds > 0 {
		fmt.Fprintf(w, "  %-12s %.1fs\n", "Duration", sum.Seconds)
	}
	if sum.ErrorCount > 0 {
		fmt.Fprintf(w, "  %-12s %d (paper-harvester session %s --errors)\n", "Errors", sum.ErrorCount, sum.ID)
	}
}
