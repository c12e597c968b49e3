// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-harvester/pkg/types"
)

// ExportFormat selects a metadata export encoding.
type ExportFormat string

const (
	ExportJSON   ExportFormat = "json"
	ExportYAML   ExportFormat = "yaml"
	ExportBibTeX ExportFormat = "bibtex"
)

// Extension returns the file extension written for the format.
func (f ExportFormat) Extension() string {
	if f == ExportBibTeX {
		return ".bib"
	}
	return "." + string(f)
}

// ParseExportFormat accepts json, yaml (or yml), and bibtex (or bib).
func ParseExportFormat(name string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return ExportJSON, nil
	case "yaml", "yml":
		return ExportYAML, nil
	case "bibtex", "bib":
		return ExportBibTeX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want json, yaml, or bibtex)", name)
	}
}

// Export writes recs to w in format f.
func Export(w io.Writer, f ExportFormat, recs []types.ArticleRecord) error {
	if recs == nil {
		recs = []types.ArticleRecord{}
	}
	switch f {
	case ExportJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	case ExportYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(recs); err != nil {
			return err
		}
		return enc.Close()
	case ExportBibTeX:
		for i, r := range recs {
			if i > 0 {
				if _, err := io.WriteString(w, "\n"); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, r.BibTeX()+"\n"); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

// ExportPath names a session's export file: metadata_<id>.json,
// metadata_<id>.yaml, or bibtex_<id>.bib under dir.
func ExportPath(dir, sessionID string, f ExportFormat) string {
	prefix := "metadata_"
	if f == ExportBibTeX {
		prefix = "bibtex_"
	}
	return filepath.Join(dir, prefix+sessionID+f.Extension())
}

// ExportFile writes recs to the session export path and returns it.
func ExportFile(dir, sessionID string, f ExportFormat, recs []types.ArticleRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory %s: %w", dir, err)
	}
	path := ExportPath(dir, sessionID, f)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	if err := Export(file, f, recs); err != nil {
		file.Close()
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", path, err)
	}
	return path, nil
}
