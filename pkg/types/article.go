// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-harvester pipeline:
// discovered article records, download outcomes, run sessions, and the
// per-component configuration structs.
package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Format selects which remote artifact is downloaded for an article.
type Format string

const (
	// FormatSource is the full-text source archive (e-print tarball).
	FormatSource Format = "source"
	// FormatPDF is the rendered document.
	FormatPDF Format = "pdf"
)

// Extension returns the file extension used for downloads in this format.
func (f Format) Extension() string {
	switch f {
	case FormatSource:
		return ".tar.gz"
	case FormatPDF:
		return ".pdf"
	default:
		return ".unknown"
	}
}

// ParseFormats converts a CLI/config format name into the set of formats it
// denotes. "both" expands to source and PDF, in that order.
func ParseFormats(name string) ([]Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", string(FormatSource):
		return []Format{FormatSource}, nil
	case string(FormatPDF):
		return []Format{FormatPDF}, nil
	case "both":
		return []Format{FormatSource, FormatPDF}, nil
	default:
		return nil, fmt.Errorf("unsupported format %q (want source, pdf, or both)", name)
	}
}

// Author is one article author with an optional affiliation.
type Author struct {
	Name        string `json:"name" yaml:"name"`
	Affiliation string `json:"affiliation,omitempty" yaml:"affiliation,omitempty"`
}

func (a Author) String() string {
	if a.Affiliation != "" {
		return fmt.Sprintf("%s (%s)", a.Name, a.Affiliation)
	}
	return a.Name
}

// ArticleRecord is one article discovered through the feed. Records are
// built with NewArticleRecord and treated as read-only afterwards.
type ArticleRecord struct {
	// ID is the normalized identifier (e.g. "2301.12345"), never carrying a
	// URL prefix or version suffix.
	ID string `json:"id" yaml:"id"`

	// Title is the whitespace-normalized title.
	Title string `json:"title" yaml:"title"`

	// Authors lists the authors in feed order.
	Authors []Author `json:"authors" yaml:"authors"`

	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Categories holds the category tags in feed order, without duplicates.
	Categories []string `json:"categories" yaml:"categories"`

	PrimaryCategory string `json:"primary_category,omitempty" yaml:"primary_category,omitempty"`

	Published *time.Time `json:"published,omitempty" yaml:"published,omitempty"`
	Updated   *time.Time `json:"updated,omitempty" yaml:"updated,omitempty"`

	DOI        string `json:"doi,omitempty" yaml:"doi,omitempty"`
	JournalRef string `json:"journal_ref,omitempty" yaml:"journal_ref,omitempty"`
	Comment    string `json:"comment,omitempty" yaml:"comment,omitempty"`

	// AbsURL is the metadata (abstract) page.
	AbsURL string `json:"abs_url,omitempty" yaml:"abs_url,omitempty"`
	// PDFURL is the rendered document locator.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`
	// SourceURL is the source archive locator.
	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`
}

// ErrEmptyIdentifier is returned when an identifier normalizes to nothing.
var ErrEmptyIdentifier = errors.New("identifier is empty")

// ErrEmptyTitle is returned when a record has no title.
var ErrEmptyTitle = errors.New("title is empty")

// NewArticleRecord validates r and returns a normalized copy: the
// identifier is normalized, the title and author names are whitespace
// collapsed, and slices are copied so the caller's values can't alias the
// record.
func NewArticleRecord(r ArticleRecord) (ArticleRecord, error) {
	id := NormalizeID(r.ID)
	if id == "" {
		return ArticleRecord{}, ErrEmptyIdentifier
	}
	title := CollapseSpace(r.Title)
	if title == "" {
		return ArticleRecord{}, fmt.Errorf("article %s: %w", id, ErrEmptyTitle)
	}

	out := r
	out.ID = id
	out.Title = title
	out.Abstract = strings.TrimSpace(r.Abstract)

	out.Authors = make([]Author, 0, len(r.Authors))
	for _, a := range r.Authors {
		name := CollapseSpace(a.Name)
		if name == "" {
			continue
		}
		out.Authors = append(out.Authors, Author{Name: name, Affiliation: CollapseSpace(a.Affiliation)})
	}

	out.Categories = dedupeStrings(r.Categories)
	if out.PrimaryCategory == "" && len(out.Categories) > 0 {
		out.PrimaryCategory = out.Categories[0]
	}
	return out, nil
}

// NormalizeID strips URL prefixes ("https://arxiv.org/abs/"), the "arXiv:"
// scheme, and a trailing version suffix ("v2") from an identifier.
// Old-style identifiers keep their archive ("hep-th/9901001").
func NormalizeID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" {
		return ""
	}

	for _, marker := range []string{"/abs/", "/pdf/", "/e-print/"} {
		if idx := strings.LastIndex(id, marker); idx >= 0 {
			id = id[idx+len(marker):]
			break
		}
	}
	if strings.Contains(id, "://") {
		id = id[strings.LastIndex(id, "/")+1:]
	}
	if len(id) > 6 && strings.EqualFold(id[:6], "arxiv:") {
		id = id[6:]
	}
	id = strings.TrimSuffix(id, ".pdf")
	id = strings.Trim(id, "/ ")

	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 && vIdx < len(id)-1 {
		if allDigits(id[vIdx+1:]) {
			id = id[:vIdx]
		}
	}
	return id
}

// ParseCategories splits a comma- or whitespace-separated category list,
// dropping empty items and duplicates. This is the boundary parser for
// user input; NewArticleRecord takes the canonical []string form.
func ParseCategories(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	return dedupeStrings(fields)
}

// CollapseSpace trims s and replaces internal whitespace runs (including
// newlines) with a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Filename returns the deterministic download filename for the record in
// the given format. Old-style identifiers have "/" replaced by "_".
func (r ArticleRecord) Filename(f Format) string {
	return strings.ReplaceAll(r.ID, "/", "_") + f.Extension()
}

// Locator returns the download URL for the format, or "" when the record
// has none.
func (r ArticleRecord) Locator(f Format) string {
	switch f {
	case FormatSource:
		return r.SourceURL
	case FormatPDF:
		return r.PDFURL
	default:
		return ""
	}
}

// ShortAuthors returns at most max author names, ending in "et al." when
// the list is truncated.
func (r ArticleRecord) ShortAuthors(max int) []string {
	names := make([]string, 0, len(r.Authors))
	for _, a := range r.Authors {
		names = append(names, a.Name)
	}
	if max <= 0 || len(names) <= max {
		return names
	}
	return append(names[:max-1:max-1], "et al.")
}

// CitationKey builds a BibTeX key: FirstAuthorLastName_Year_ShortTitle.
func (r ArticleRecord) CitationKey() string {
	year := "XXXX"
	if r.Published != nil {
		year = fmt.Sprintf("%d", r.Published.Year())
	}

	first := "Unknown"
	if len(r.Authors) > 0 {
		if parts := strings.Fields(r.Authors[0].Name); len(parts) > 0 {
			first = parts[len(parts)-1]
		}
	}

	var short strings.Builder
	words := strings.Fields(r.Title)
	if len(words) > 2 {
		words = words[:2]
	}
	for _, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		short.WriteString(string(runes))
	}
	if short.Len() == 0 {
		short.WriteString("Article")
	}
	return fmt.Sprintf("%s_%s_%s", first, year, short.String())
}

// BibTeX renders the record as a BibTeX @article entry.
func (r ArticleRecord) BibTeX() string {
	names := make([]string, 0, len(r.Authors))
	for _, a := range r.Authors {
		names = append(names, a.Name)
	}
	year, month := "", ""
	if r.Published != nil {
		year = fmt.Sprintf("%d", r.Published.Year())
		month = strings.ToLower(r.Published.Format("Jan"))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "@article{%s,\n", r.CitationKey())
	fmt.Fprintf(&b, "  author = {%s},\n", strings.Join(names, " and "))
	fmt.Fprintf(&b, "  title = {%s},\n", r.Title)
	b.WriteString("  journal = {arXiv preprint},\n")
	fmt.Fprintf(&b, "  year = {%s},\n", year)
	fmt.Fprintf(&b, "  month = {%s},\n", month)
	b.WriteString("  archivePrefix = {arXiv},\n")
	fmt.Fprintf(&b, "  primaryClass = {%s},\n", r.PrimaryCategory)
	fmt.Fprintf(&b, "  eprint = {%s},\n", r.ID)
	fmt.Fprintf(&b, "  url = {%s},\n", r.AbsURL)
	fmt.Fprintf(&b, "  abstract = {%s},\n", r.Abstract)
	fmt.Fprintf(&b, "  doi = {%s},\n", r.DOI)
	b.WriteString("}")
	return b.String()
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func dedupeStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
