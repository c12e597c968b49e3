// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-harvester/internal/harvest"
	"github.com/pdiddy/paper-harvester/pkg/types"
)

func newScrapeFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "scrape"}
	cmd.Flags().String("categories", "", "")
	cmd.Flags().String("field", "", "")
	addHarvestFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestScrapeCategories(t *testing.T) {
	cats, err := scrapeCategories(newScrapeFlags(t, "--categories", "cs.AI, cs.LG cs.AI"))
	require.NoError(t, err)
	assert.Equal(t, []string{"cs.AI", "cs.LG"}, cats)

	cats, err = scrapeCategories(newScrapeFlags(t, "--categories", "cs.AI", "--field", "biology"))
	require.NoError(t, err)
	assert.Equal(t, "cs.AI", cats[0])
	assert.Contains(t, cats, "q-bio.NC")

	_, err = scrapeCategories(newScrapeFlags(t, "--field", "alchemy"))
	assert.ErrorContains(t, err, "unknown field")

	_, err = scrapeCategories(newScrapeFlags(t))
	assert.Error(t, err)
}

func TestExportFormats(t *testing.T) {
	got, err := exportFormats(newScrapeFlags(t))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = exportFormats(newScrapeFlags(t, "--export-metadata", "--export-format", "yml", "--export-bibtex"))
	require.NoError(t, err)
	assert.Equal(t, []harvest.ExportFormat{harvest.ExportYAML, harvest.ExportBibTeX}, got)

	_, err = exportFormats(newScrapeFlags(t, "--export-metadata", "--export-format", "bibtex"))
	assert.Error(t, err)
}

func TestFormatNames(t *testing.T) {
	assert.Equal(t, "source+pdf", formatNames([]types.Format{types.FormatSource, types.FormatPDF}))
	assert.Equal(t, "", formatNames(nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ééé...", truncate("éééééééé", 6))
}

func TestPrintRecords(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printRecords(&buf, nil, true))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	require.NoError(t, printRecords(&buf, nil, false))
	assert.Equal(t, "No results found.\n", buf.String())

	buf.Reset()
	recs := []types.ArticleRecord{{ID: "2401.00001", Title: "Sparse Attention", Authors: []types.Author{{Name: "Emmy Noether"}}}}
	require.NoError(t, printRecords(&buf, recs, false))
	assert.Contains(t, buf.String(), "2401.00001")
	assert.Contains(t, buf.String(), "Emmy Noether")
	assert.Contains(t, buf.String(), "1 results")
}
