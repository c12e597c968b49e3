// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare new-style", "2301.12345", "2301.12345"},
		{"version suffix", "2301.12345v2", "2301.12345"},
		{"abs url with version", "https://example.org/abs/2301.12345v2", "2301.12345"},
		{"abs url http", "http://arxiv.org/abs/2301.12345v11", "2301.12345"},
		{"pdf url", "https://arxiv.org/pdf/2301.12345v1.pdf", "2301.12345"},
		{"arxiv scheme", "arXiv:2301.12345", "2301.12345"},
		{"old style", "hep-th/9901001v3", "hep-th/9901001"},
		{"old style abs url", "http://arxiv.org/abs/hep-th/9901001v1", "hep-th/9901001"},
		{"surrounding space", "  2301.12345v4 \n", "2301.12345"},
		{"trailing v without digits", "2301.1234v", "2301.1234v"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeID(tt.input))
		})
	}
}

func TestNewArticleRecord(t *testing.T) {
	in := ArticleRecord{
		ID:    "http://arxiv.org/abs/2301.12345v2",
		Title: "  Attention\n   Is All\tYou Need ",
		Authors: []Author{
			{Name: " Ada  Lovelace "},
			{Name: "   "},
			{Name: "Alan Turing", Affiliation: "Bletchley"},
		},
		Categories: []string{"cs.AI", "cs.LG", "cs.AI", ""},
	}

	rec, err := NewArticleRecord(in)
	require.NoError(t, err)

	assert.Equal(t, "2301.12345", rec.ID)
	assert.Equal(t, "Attention Is All You Need", rec.Title)
	require.Len(t, rec.Authors, 2)
	assert.Equal(t, "Ada Lovelace", rec.Authors[0].Name)
	assert.Equal(t, "Alan Turing (Bletchley)", rec.Authors[1].String())
	assert.Equal(t, []string{"cs.AI", "cs.LG"}, rec.Categories)
	assert.Equal(t, "cs.AI", rec.PrimaryCategory)

	in.Categories[0] = "mutated"
	assert.Equal(t, "cs.AI", rec.Categories[0])
}

func TestNewArticleRecord_Rejects(t *testing.T) {
	_, err := NewArticleRecord(ArticleRecord{ID: " ", Title: "x"})
	assert.ErrorIs(t, err, ErrEmptyIdentifier)

	_, err = NewArticleRecord(ArticleRecord{ID: "2301.00001", Title: "\n\t"})
	assert.ErrorIs(t, err, ErrEmptyTitle)
}

func TestParseCategories(t *testing.T) {
	assert.Equal(t, []string{"cs.AI", "cs.LG", "math.CO"}, ParseCategories("cs.AI, cs.LG  math.CO,,cs.AI"))
	assert.Empty(t, ParseCategories(" , "))
}

func TestParseFormats(t *testing.T) {
	f, err := ParseFormats("both")
	require.NoError(t, err)
	assert.Equal(t, []Format{FormatSource, FormatPDF}, f)

	f, err = ParseFormats("PDF")
	require.NoError(t, err)
	assert.Equal(t, []Format{FormatPDF}, f)

	_, err = ParseFormats("epub")
	assert.Error(t, err)
}

func TestFilenameAndLocator(t *testing.T) {
	rec := ArticleRecord{ID: "hep-th/9901001", PDFURL: "p", SourceURL: "s"}
	assert.Equal(t, "hep-th_9901001.pdf", rec.Filename(FormatPDF))
	assert.Equal(t, "hep-th_9901001.tar.gz", rec.Filename(FormatSource))
	assert.Equal(t, "p", rec.Locator(FormatPDF))
	assert.Equal(t, "s", rec.Locator(FormatSource))
	assert.Equal(t, "", rec.Locator(Format("epub")))
}

func TestShortAuthors(t *testing.T) {
	rec := ArticleRecord{Authors: []Author{{Name: "A"}, {Name: "B"}, {Name: "C"}, {Name: "D"}}}
	assert.Equal(t, []string{"A", "B", "et al."}, rec.ShortAuthors(3))
	assert.Equal(t, []string{"A", "B", "C", "D"}, rec.ShortAuthors(4))
}

func TestCitationKeyAndBibTeX(t *testing.T) {
	pub := time.Date(2023, time.January, 30, 0, 0, 0, 0, time.UTC)
	rec := ArticleRecord{
		ID:              "2301.12345",
		Title:           "deep learning for everything",
		Authors:         []Author{{Name: "Ada Lovelace"}, {Name: "Alan Turing"}},
		PrimaryCategory: "cs.LG",
		Published:       &pub,
	}

	assert.Equal(t, "Lovelace_2023_DeepLearning", rec.CitationKey())

	bib := rec.BibTeX()
	assert.Contains(t, bib, "@article{Lovelace_2023_DeepLearning,")
	assert.Contains(t, bib, "author = {Ada Lovelace and Alan Turing}")
	assert.Contains(t, bib, "month = {jan}")
	assert.Contains(t, bib, "eprint = {2301.12345}")

	assert.Equal(t, "Unknown_XXXX_Article", ArticleRecord{}.CitationKey())
}
