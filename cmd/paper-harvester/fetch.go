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
	"github.com/pdiddy/paper-harvester/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <identifier>",
	Short: "Show one article's metadata, optionally downloading it",
	Long: `Fetch looks up a single article by identifier. URLs, version suffixes,
and the arXiv: prefix are accepted and stripped. With --download the
article is fetched in the configured formats unless the ledger already
has it.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	addFetchFlags(fetchCmd)
	rootCmd.AddCommand(fetchCmd)
}

func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("json", false, "output metadata as JSON")
	cmd.Flags().Bool("bibtex", false, "output a BibTeX entry")
	cmd.Flags().Bool("download", false, "download the article")
	cmd.Flags().String("format", "", "artifacts to download: source, pdf, or both")
	cmd.Flags().StringP("dir", "d", "", "download directory")
	cmd.Flags().StringP("ledger", "j", "", "download ledger (JSONL)")
	cmd.Flags().Bool("no-cache", false, "bypass the response cache")
}

func runFetch(cmd *cobra.Command, args []string) error {
	id := types.NormalizeID(args[0])
	if id == "" {
		return errors.New("identifier is empty")
	}

	h, err := newHarvester(nil)
	if err != nil {
		return err
	}
	defer h.Close()

	rec, err := h.feed.FetchByID(cmd.Context(), id)
	if errors.Is(err, feed.ErrNotFound) {
		return fmt.Errorf("no article with identifier %s", id)
	}
	if err != nil {
		return err
	}
	cat, err := openCatalog()
	if err != nil {
		return err
	}
	if cat != nil {
		defer cat.Close()
		if err := cat.Upsert(cmd.Context(), []types.ArticleRecord{rec}); err != nil {
			log.Warn("catalog update failed", zap.Error(err))
		}
	}

	out := cmd.OutOrStdout()
	jsonOutput, _ := cmd.Flags().GetBool("json")
	bibtex, _ := cmd.Flags().GetBool("bibtex")
	switch {
	case jsonOutput:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rec); err != nil {
			return err
		}
	case bibtex:
		fmt.Fprintln(out, rec.BibTeX())
	default:
		printArticle(out, rec)
	}

	if dl, _ := cmd.Flags().GetBool("download"); !dl {
		return nil
	}
	formats := cfg.Download.Formats
	if name, _ := cmd.Flags().GetString("format"); name != "" {
		if formats, err = types.ParseFormats(name); err != nil {
			return err
		}
	}
	led, err := openLedger()
	if err != nil {
		return err
	}

	if led.Contains(rec.ID) {
		fmt.Fprintf(out, "skipped: %s (%s)\n", rec.ID, types.AlreadyDownloaded)
		return nil
	}

	// Checked once per article: recording the first format must not turn
	// the others into skips.
	var failed int
	for _, f := range formats {
		o := h.worker.Download(cmd.Context(), rec, cfg.Download.Dir, f, nil)
		switch {
		case o.Success:
			if err := led.Record(o); err != nil {
				return err
			}
			fmt.Fprintf(out, "downloaded: %s (%d bytes)\n", o.StoredPath, o.ByteSize)
		default:
			failed++
			fmt.Fprintf(out, "failed: %s %s: %s\n", rec.ID, f, o.ErrorMessage)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d download(s) failed", failed)
	}
	return nil
}

func printArticle(w io.Writer, r types.ArticleRecord) {
	fmt.Fprintf(w, "%s\n%s\n\n", r.ID, r.Title)
	fields := []struct{ k, v string }{
		{"Authors", strings.Join(r.ShortAuthors(0), ", ")},
		{"Primary", r.PrimaryCategory},
		{"Categories", strings.Join(r.Categories, ", ")},
		{"DOI", r.DOI},
		{"Journal", r.JournalRef},
		{"Comment", r.Comment},
		{"Abstract page", r.AbsURL},
		{"PDF", r.PDFURL},
		{"Source", r.SourceURL},
	}
	if r.Published != nil {
		fields = append(fields, struct{ k, v string }{"Published", r.Published.Format("2006-01-02")})
	}
	for _, f := range fields {
		if f.v != "" {
			fmt.Fprintf(w, "  %-14s %s\n", f.k, f.v)
		}
	}
	if r.Abstract != "" {
		fmt.Fprintf(w, "\n%s\n", r.Abstract)
	}
}
