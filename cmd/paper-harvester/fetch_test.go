// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-harvester/pkg/types"
)

const singleEntryFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <entry>
    <id>http://arxiv.org/abs/2401.00001v1</id>
    <published>2024-01-01T00:00:00Z</published>
    <title>Sparse Attention</title>
    <summary>Abstract.</summary>
    <author><name>Emmy Noether</name></author>
    <arxiv:primary_category term="cs.AI"/>
    <category term="cs.AI"/>
  </entry>
</feed>`

// useConfig swaps the package configuration for the test.
func useConfig(t *testing.T, c types.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func newFetchCmd(t *testing.T, out *bytes.Buffer, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "fetch"}
	addFetchFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	cmd.SetContext(context.Background())
	cmd.SetOut(out)
	return cmd
}

func TestRunFetch_DownloadsEveryFormat(t *testing.T) {
	var pdfHits, srcHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/query", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2401.00001", r.URL.Query().Get("id_list"))
		fmt.Fprint(w, singleEntryFeed)
	})
	mux.HandleFunc("/pdf/", func(w http.ResponseWriter, _ *http.Request) {
		pdfHits.Add(1)
		w.Write([]byte("%PDF"))
	})
	mux.HandleFunc("/e-print/", func(w http.ResponseWriter, _ *http.Request) {
		srcHits.Add(1)
		w.Write([]byte("tar"))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	home := t.TempDir()
	dir := filepath.Join(home, "downloads")
	useConfig(t, types.Config{
		API: types.APIConfig{
			BaseURL:        ts.URL + "/api/query",
			PDFTemplate:    ts.URL + "/pdf/{id}",
			SourceTemplate: ts.URL + "/e-print/{id}",
			Timeout:        5 * time.Second,
			MaxConnections: 2,
			MaxRetries:     1,
		},
		Download: types.DownloadConfig{
			Dir:        dir,
			LedgerPath: filepath.Join(home, "downloaded_ids.jsonl"),
			Formats:    []types.Format{types.FormatSource},
		},
	})

	var out bytes.Buffer
	require.NoError(t, runFetch(newFetchCmd(t, &out, "--download", "--format", "both"), []string{"arXiv:2401.00001v1"}))

	assert.FileExists(t, filepath.Join(dir, "2401.00001.tar.gz"))
	assert.FileExists(t, filepath.Join(dir, "2401.00001.pdf"))
	assert.Equal(t, int32(1), srcHits.Load())
	assert.Equal(t, int32(1), pdfHits.Load())
	assert.NotContains(t, out.String(), "skipped")

	led, err := openLedger()
	require.NoError(t, err)
	assert.True(t, led.Contains("2401.00001"))
	assert.Equal(t, 2, led.Stats().Successful)

	out.Reset()
	require.NoError(t, runFetch(newFetchCmd(t, &out, "--download", "--format", "both"), []string{"2401.00001"}))
	assert.Contains(t, out.String(), "skipped: 2401.00001 (already downloaded)")
	assert.Equal(t, int32(1), srcHits.Load())
	assert.Equal(t, int32(1), pdfHits.Load())
}
