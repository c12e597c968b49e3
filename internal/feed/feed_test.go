// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-harvester/internal/cache"
	"github.com/pdiddy/paper-harvester/internal/throttle"
	"github.com/pdiddy/paper-harvester/pkg/types"
)

func atomEntryXML(id, title string) string {
	return fmt.Sprintf(`
  <entry>
    <id>http://arxiv.org/abs/%sv1</id>
    <updated>2024-01-02T03:04:05Z</updated>
    <published>2024-01-01T00:00:00Z</published>
    <title>%s</title>
    <summary>  Abstract of %s.  </summary>
    <author><name>Ada Lovelace</name><arxiv:affiliation>Analytical Engines Ltd</arxiv:affiliation></author>
    <author><name>Alan Turing</name></author>
    <arxiv:doi>10.1000/%s</arxiv:doi>
    <arxiv:comment>12 pages</arxiv:comment>
    <arxiv:journal_ref>J. Test 1 (2024)</arxiv:journal_ref>
    <link href="http://arxiv.org/abs/%sv1" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/%sv1" rel="related" type="application/pdf"/>
    <arxiv:primary_category term="cs.AI" scheme="http://arxiv.org/schemas/atom"/>
    <category term="cs.AI" scheme="http://arxiv.org/schemas/atom"/>
    <category term="cs.LG" scheme="http://arxiv.org/schemas/atom"/>
  </entry>`, id, title, id, id, id, id)
}

func atomFeed(entries ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <title>ArXiv Query</title>
  <id>http://arxiv.org/api/abc</id>` + strings.Join(entries, "") + `
</feed>`
}

func testConfig(base string) types.APIConfig {
	return types.APIConfig{
		BaseURL:        base,
		PDFTemplate:    "https://pdf.example/{id}",
		SourceTemplate: "https://src.example/{id}",
		Timeout:        5 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: time.Millisecond,
	}
}

func newTestClient(t *testing.T, h http.HandlerFunc, c cache.Cache) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return New(testConfig(ts.URL), Options{Limiter: throttle.NewLimiter(4, 0), Cache: c})
}

func TestParse(t *testing.T) {
	body := atomFeed(
		atomEntryXML("2401.00001", "First\n   Paper"),
		`<entry><id>   </id><title>No identifier</title></entry>`,
		`<entry><id>http://arxiv.org/abs/2401.00003v2</id><title>  </title></entry>`,
		atomEntryXML("2401.00004", "Fourth Paper"),
	)

	recs, err := Parse(strings.NewReader(body), Locators{PDFTemplate: "p/{id}", SourceTemplate: "s/{id}"}, nil)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	r := recs[0]
	assert.Equal(t, "2401.00001", r.ID)
	assert.Equal(t, "First Paper", r.Title)
	assert.Equal(t, "Abstract of 2401.00001.", r.Abstract)
	require.Len(t, r.Authors, 2)
	assert.Equal(t, "Analytical Engines Ltd", r.Authors[0].Affiliation)
	assert.Equal(t, []string{"cs.AI", "cs.LG"}, r.Categories)
	assert.Equal(t, "cs.AI", r.PrimaryCategory)
	assert.Equal(t, "10.1000/2401.00001", r.DOI)
	assert.Equal(t, "J. Test 1 (2024)", r.JournalRef)
	assert.Equal(t, "12 pages", r.Comment)
	assert.Equal(t, "http://arxiv.org/abs/2401.00001v1", r.AbsURL)
	assert.Equal(t, "p/2401.00001", r.PDFURL)
	assert.Equal(t, "s/2401.00001", r.SourceURL)
	require.NotNil(t, r.Published)
	assert.Equal(t, 2024, r.Published.Year())
	require.NotNil(t, r.Updated)
	assert.Equal(t, 3, r.Updated.Hour())

	assert.Equal(t, "2401.00004", recs[1].ID)
}

func TestParse_FallsBackToFeedPDFLink(t *testing.T) {
	recs, err := Parse(strings.NewReader(atomFeed(atomEntryXML("2401.00001", "T"))), Locators{}, nil)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "http://arxiv.org/pdf/2401.00001v1", recs[0].PDFURL)
	assert.Empty(t, recs[0].SourceURL)
}

func TestParse_TruncatedDocumentKeepsParsedEntries(t *testing.T) {
	body := atomFeed(atomEntryXML("2401.00001", "Good"))
	body = strings.TrimSuffix(body, "\n</feed>") + "<entry><id>http://arxiv.org/abs/2401.9"

	recs, err := Parse(strings.NewReader(body), Locators{}, nil)
	assert.Error(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "2401.00001", recs[0].ID)
}

func TestParse_APIError(t *testing.T) {
	body := atomFeed(`<entry><id>http://arxiv.org/api/errors#incorrect_id_format</id><title>Error</title><summary>incorrect id format</summary></entry>`)
	_, err := Parse(strings.NewReader(body), Locators{}, nil)
	assert.ErrorIs(t, err, ErrAPI)
	assert.Contains(t, err.Error(), "incorrect id format")
}

func TestFetchCategory_QueryParameters(t *testing.T) {
	var got atomic.Value
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.URL.Query())
		fmt.Fprint(w, atomFeed(atomEntryXML("2401.00001", "A")))
	}, nil)

	recs, err := c.FetchCategory(context.Background(), "cs.AI", 20, 500)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	q := got.Load().(url.Values)
	assert.Equal(t, []string{"cat:cs.AI"}, q["search_query"])
	assert.Equal(t, []string{"lastUpdatedDate"}, q["sortBy"])
	assert.Equal(t, []string{"descending"}, q["sortOrder"])
	assert.Equal(t, []string{"20"}, q["start"])
	assert.Equal(t, []string{"100"}, q["max_results"])
}

func TestFetchCategory_DeduplicatesAcrossPages(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			fmt.Fprint(w, atomFeed(atomEntryXML("2401.00001", "A"), atomEntryXML("2401.00002", "B")))
			return
		}
		fmt.Fprint(w, atomFeed(atomEntryXML("2401.00002", "B"), atomEntryXML("2401.00003", "C")))
	}, nil)

	first, err := c.FetchCategory(context.Background(), "cs.AI", 0, 2)
	require.NoError(t, err)
	second, err := c.FetchCategory(context.Background(), "cs.AI", 2, 2)
	require.NoError(t, err)

	assert.Len(t, first, 2)
	require.Len(t, second, 1)
	assert.Equal(t, "2401.00003", second[0].ID)
}

func TestFetchCategory_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, atomFeed(atomEntryXML("2401.00001", "A")))
	}, nil)

	recs, err := c.FetchCategory(context.Background(), "cs.AI", 0, 10)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchCategory_ExhaustsRetries(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}, nil)

	_, err := c.FetchCategory(context.Background(), "cs.AI", 0, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching category cs.AI")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchCategory_CacheTTL(t *testing.T) {
	var calls int32
	fc, err := cache.NewFileCache(filepath.Join(t.TempDir(), "cache"), time.Hour)
	require.NoError(t, err)

	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, atomFeed(atomEntryXML("2401.00001", "A")))
	}

	c1 := newTestClient(t, handler, fc)
	recs, err := c1.FetchCategory(context.Background(), "cs.AI", 0, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// A fresh client has an empty seen set but shares the cache.
	c2 := New(testConfig("http://127.0.0.1:1"), Options{Cache: fc})
	recs, err = c2.FetchCategory(context.Background(), "cs.AI", 0, 10)
	require.NoError(t, err, "fresh entry must be served without a network call")
	require.Len(t, recs, 1)
	assert.Equal(t, "2401.00001", recs[0].ID)

	short, err := cache.NewFileCache(filepath.Join(t.TempDir(), "short"), time.Nanosecond)
	require.NoError(t, err)
	c3 := newTestClient(t, handler, short)
	_, err = c3.FetchCategory(context.Background(), "cs.AI", 0, 10)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	c4 := newTestClient(t, handler, short)
	_, err = c4.FetchCategory(context.Background(), "cs.AI", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "expired entry triggers a fresh call")
}

func TestFetchByID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id_list") == "2401.00001" {
			fmt.Fprint(w, atomFeed(atomEntryXML("2401.00001", "Found")))
			return
		}
		fmt.Fprint(w, atomFeed())
	}, nil)

	rec, err := c.FetchByID(context.Background(), "https://arxiv.org/abs/2401.00001v3")
	require.NoError(t, err)
	assert.Equal(t, "Found", rec.Title)

	_, err = c.FetchByID(context.Background(), "2401.99999")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.FetchByID(context.Background(), "  ")
	assert.ErrorIs(t, err, types.ErrEmptyIdentifier)
}

func TestSearch(t *testing.T) {
	var q atomic.Value
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q.Store(r.URL.Query())
		fmt.Fprint(w, atomFeed(atomEntryXML("2401.00001", "A"), atomEntryXML("2401.00002", "B"), atomEntryXML("2401.00003", "C")))
	}, nil)

	recs, err := c.Search(context.Background(), "graph neural", []string{"cs.LG", "cs.AI"}, 2)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	params := q.Load().(url.Values)
	assert.Equal(t, []string{"(all:graph AND all:neural) AND (cat:cs.LG OR cat:cs.AI)"}, params["search_query"])
	assert.Equal(t, []string{"relevance"}, params["sortBy"])
	assert.Equal(t, []string{"2"}, params["max_results"])

	_, err = c.Search(context.Background(), "   ", nil, 5)
	assert.Error(t, err)
}

func TestSearch_LargeResultSets(t *testing.T) {
	var q atomic.Value
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q.Store(r.URL.Query())
		fmt.Fprint(w, atomFeed(atomEntryXML("2401.00001", "A")))
	}, nil)

	tests := []struct {
		asked int
		want  string
	}{
		{200, "200"},
		{MaxSearchResults, "2000"},
		{5000, "2000"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			_, err := c.Search(context.Background(), fmt.Sprintf("query%d", tt.asked), nil, tt.asked)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, q.Load().(url.Values)["max_results"])
		})
	}
}

func TestSearchExpression(t *testing.T) {
	assert.Equal(t, "all:transformers", SearchExpression("transformers", nil))
	assert.Equal(t, "all:x AND (cat:math.CO)", SearchExpression(" x ", []string{"", "math.CO"}))
	assert.Equal(t, "", SearchExpression("", []string{"cs.AI"}))
}

func TestCategoriesForField(t *testing.T) {
	cs := CategoriesForField("CS")
	assert.Contains(t, cs, "cs.AI")
	cs[0] = "mutated"
	assert.Equal(t, "cs.AI", CategoriesForField("cs")[0])
	assert.Nil(t, CategoriesForField("chemistry"))
	assert.Equal(t, []string{"biology", "cs", "math", "physics"}, Fields())
	assert.Equal(t, "Artificial Intelligence", DescribeCategory("cs.AI"))
	assert.Equal(t, "Category: cs.XX", DescribeCategory("cs.XX"))
}
