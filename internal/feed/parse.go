// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-harvester/pkg/types"
)

// ErrAPI is returned when the feed carries an API error entry instead of
// results (for example a malformed search expression).
var ErrAPI = errors.New("arXiv API error")

type atomEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Summary   string       `xml:"summary"`
	Published string       `xml:"published"`
	Updated   string       `xml:"updated"`
	Authors   []atomAuthor `xml:"author"`
	Links     []atomLink   `xml:"link"`
	Category  []atomTerm   `xml:"category"`

	Primary    atomTerm `xml:"http://arxiv.org/schemas/atom primary_category"`
	DOI        string   `xml:"http://arxiv.org/schemas/atom doi"`
	JournalRef string   `xml:"http://arxiv.org/schemas/atom journal_ref"`
	Comment    string   `xml:"http://arxiv.org/schemas/atom comment"`
}

type atomAuthor struct {
	Name        string `xml:"name"`
	Affiliation string `xml:"http://arxiv.org/schemas/atom affiliation"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}

type atomTerm struct {
	Term string `xml:"term,attr"`
}

// Locators holds the content URL templates applied to parsed records.
// "{id}" in a template is replaced by the normalized identifier.
type Locators struct {
	PDFTemplate    string
	SourceTemplate string
}

func (l Locators) expand(tpl, id string) string {
	if tpl == "" {
		return ""
	}
	return strings.ReplaceAll(tpl, "{id}", id)
}

// Parse reads an Atom feed entry by entry. An entry that cannot be turned
// into a record is logged and skipped. A syntax error ends the scan; the
// records parsed before it are returned together with the error.
func Parse(r io.Reader, loc Locators, log *zap.Logger) ([]types.ArticleRecord, error) {
	if log == nil {
		log = zap.NewNop()
	}

	dec := xml.NewDecoder(r)
	var out []types.ArticleRecord
	index := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("reading feed: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "entry" {
			continue
		}

		var e atomEntry
		if err := dec.DecodeElement(&e, &start); err != nil {
			return out, fmt.Errorf("decoding entry %d: %w", index, err)
		}
		index++

		if strings.Contains(e.ID, "/api/errors") {
			return nil, fmt.Errorf("%w: %s", ErrAPI, types.CollapseSpace(e.Summary))
		}

		rec, err := e.record(loc)
		if err != nil {
			log.Warn("skipping malformed feed entry",
				zap.Int("index", index-1),
				zap.String("raw_id", e.ID),
				zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
}

func (e atomEntry) record(loc Locators) (types.ArticleRecord, error) {
	id := types.NormalizeID(e.ID)
	if id == "" {
		return types.ArticleRecord{}, types.ErrEmptyIdentifier
	}

	raw := types.ArticleRecord{
		ID:              id,
		Title:           e.Title,
		Abstract:        e.Summary,
		PrimaryCategory: strings.TrimSpace(e.Primary.Term),
		DOI:             strings.TrimSpace(e.DOI),
		JournalRef:      types.CollapseSpace(e.JournalRef),
		Comment:         types.CollapseSpace(e.Comment),
		AbsURL:          strings.TrimSpace(e.ID),
		PDFURL:          loc.expand(loc.PDFTemplate, id),
		SourceURL:       loc.expand(loc.SourceTemplate, id),
	}

	for _, a := range e.Authors {
		raw.Authors = append(raw.Authors, types.Author{Name: a.Name, Affiliation: a.Affiliation})
	}
	for _, c := range e.Category {
		raw.Categories = append(raw.Categories, c.Term)
	}

	for _, l := range e.Links {
		switch {
		case l.Rel == "alternate" && l.Href != "":
			raw.AbsURL = l.Href
		case raw.PDFURL == "" && (l.Type == "application/pdf" || l.Title == "pdf"):
			raw.PDFURL = l.Href
		}
	}

	if t, ok := parseTime(e.Published); ok {
		raw.Published = &t
	}
	if t, ok := parseTime(e.Updated); ok {
		raw.Updated = &t
	}

	return types.NewArticleRecord(raw)
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
