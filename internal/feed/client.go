// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package feed queries the arXiv Atom API for article metadata. Requests
// are rate limited through a shared throttle.Limiter, retried with
// exponential backoff, and optionally served from a response cache.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-harvester/internal/cache"
	"github.com/pdiddy/paper-harvester/internal/httputil"
	"github.com/pdiddy/paper-harvester/internal/throttle"
	"github.com/pdiddy/paper-harvester/pkg/types"
)

// DefaultBaseURL is the public metadata endpoint.
const DefaultBaseURL = "http://export.arxiv.org/api/query"

// MaxPageSize is the largest category page requested in one call.
const MaxPageSize = 100

// MaxSearchResults is the largest result set the API returns for one
// search request.
const MaxSearchResults = 2000

// ErrNotFound is returned by FetchByID when the feed has no entry.
var ErrNotFound = errors.New("article not found")

// Options carries the collaborators a Client shares with the rest of the
// process. Zero values are replaced by working defaults.
type Options struct {
	HTTP    *resty.Client
	Limiter *throttle.Limiter
	Cache   cache.Cache
	Logger  *zap.Logger
}

// Client issues metadata queries. Category pages are deduplicated over the
// client's lifetime: an identifier returned once is dropped from later
// pages. A Client is safe for concurrent use.
type Client struct {
	http    *resty.Client
	limiter *throttle.Limiter
	cache   cache.Cache
	log     *zap.Logger
	baseURL string
	loc     Locators
	policy  httputil.Policy

	mu   sync.Mutex
	seen map[string]struct{}
}

// New builds a Client from cfg.
func New(cfg types.APIConfig, opts Options) *Client {
	c := &Client{
		http:    opts.HTTP,
		limiter: opts.Limiter,
		cache:   opts.Cache,
		log:     opts.Logger,
		baseURL: cfg.BaseURL,
		loc:     Locators{PDFTemplate: cfg.PDFTemplate, SourceTemplate: cfg.SourceTemplate},
		seen:    make(map[string]struct{}),
	}
	if c.http == nil {
		c.http = httputil.NewClient(cfg.Timeout, cfg.UserAgent)
	}
	if c.cache == nil {
		c.cache = cache.Noop{}
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}

	base := cfg.RetryBaseDelay
	if base <= 0 {
		base = 2 * time.Second
	}
	c.policy = httputil.Policy{
		MaxAttempts: max(cfg.MaxRetries, 1),
		BaseDelay:   base,
		MaxDelay:    time.Minute,
		Retryable:   httputil.IsTransient,
		OnRetry: func(attempt int, wait time.Duration, err error) {
			c.log.Warn("feed request failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", wait),
				zap.Error(err))
		},
	}
	return c
}

// FetchCategory returns one page of the category sorted by last update,
// newest first. Records already returned by an earlier page are dropped.
// pageSize is capped at MaxPageSize.
func (c *Client) FetchCategory(ctx context.Context, category string, offset, pageSize int) ([]types.ArticleRecord, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, errors.New("category is empty")
	}
	pageSize = min(max(pageSize, 1), MaxPageSize)

	params := url.Values{}
	params.Set("search_query", "cat:"+category)
	params.Set("sortBy", "lastUpdatedDate")
	params.Set("sortOrder", "descending")
	params.Set("start", strconv.Itoa(max(offset, 0)))
	params.Set("max_results", strconv.Itoa(pageSize))

	recs, err := c.query(ctx, "query:"+params.Encode(), params)
	if err != nil {
		return nil, fmt.Errorf("fetching category %s: %w", category, err)
	}
	return c.dropSeen(recs), nil
}

// FetchByID looks up one article by identifier.
func (c *Client) FetchByID(ctx context.Context, id string) (types.ArticleRecord, error) {
	norm := types.NormalizeID(id)
	if norm == "" {
		return types.ArticleRecord{}, types.ErrEmptyIdentifier
	}

	params := url.Values{}
	params.Set("id_list", norm)
	params.Set("max_results", "1")

	recs, err := c.query(ctx, "article:"+norm, params)
	if err != nil {
		return types.ArticleRecord{}, fmt.Errorf("fetching article %s: %w", norm, err)
	}
	if len(recs) == 0 {
		return types.ArticleRecord{}, fmt.Errorf("article %s: %w", norm, ErrNotFound)
	}
	return recs[0], nil
}

// Search runs a free-text query sorted by relevance, optionally limited to
// the given categories, returning at most maxResults records. maxResults
// is capped at MaxSearchResults.
func (c *Client) Search(ctx context.Context, query string, categories []string, maxResults int) ([]types.ArticleRecord, error) {
	expr := SearchExpression(query, categories)
	if expr == "" {
		return nil, errors.New("search query is empty")
	}
	maxResults = min(max(maxResults, 1), MaxSearchResults)

	params := url.Values{}
	params.Set("search_query", expr)
	params.Set("sortBy", "relevance")
	params.Set("sortOrder", "descending")
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(maxResults))

	recs, err := c.query(ctx, fmt.Sprintf("search:%s:max%d", expr, maxResults), params)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}
	if len(recs) > maxResults {
		recs = recs[:maxResults]
	}
	return recs, nil
}

// SearchExpression builds the search_query value: every term under all:,
// intersected with an OR of the categories when any are given.
func SearchExpression(query string, categories []string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}
	expr := "all:" + strings.Join(terms, " AND all:")
	if len(terms) > 1 {
		expr = "(" + expr + ")"
	}

	var cats []string
	for _, cat := range categories {
		if cat = strings.TrimSpace(cat); cat != "" {
			cats = append(cats, "cat:"+cat)
		}
	}
	if len(cats) > 0 {
		expr += " AND (" + strings.Join(cats, " OR ") + ")"
	}
	return expr
}

// query is the shared cache/rate-limit/retry/parse path.
func (c *Client) query(ctx context.Context, key string, params url.Values) ([]types.ArticleRecord, error) {
	if recs, ok := c.cached(key); ok {
		c.log.Debug("feed cache hit", zap.String("key", key), zap.Int("records", len(recs)))
		return recs, nil
	}

	var body []byte
	err := httputil.Retry(ctx, c.policy, func(ctx context.Context, attempt int) error {
		return c.limiter.Do(ctx, func(ctx context.Context) error {
			c.log.Debug("feed request",
				zap.String("url", c.baseURL),
				zap.String("params", params.Encode()),
				zap.Int("attempt", attempt+1))
			resp, err := c.http.R().
				SetContext(ctx).
				SetQueryParamsFromValues(params).
				Get(c.baseURL)
			if err != nil {
				return err
			}
			if err := httputil.CheckStatus(resp.StatusCode(), c.baseURL); err != nil {
				return err
			}
			body = resp.Body()
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	recs, err := Parse(bytes.NewReader(body), c.loc, c.log)
	if err != nil {
		if errors.Is(err, ErrAPI) || len(recs) == 0 {
			return nil, err
		}
		c.log.Warn("feed truncated, keeping parsed entries", zap.Int("records", len(recs)), zap.Error(err))
	}

	c.store(key, recs)
	return recs, nil
}

func (c *Client) cached(key string) ([]types.ArticleRecord, bool) {
	data, ok, err := c.cache.Get(key)
	if err != nil {
		c.log.Warn("feed cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var recs []types.ArticleRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		c.log.Warn("discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
		_ = c.cache.Delete(key)
		return nil, false
	}
	return recs, true
}

func (c *Client) store(key string, recs []types.ArticleRecord) {
	if recs == nil {
		recs = []types.ArticleRecord{}
	}
	data, err := json.Marshal(recs)
	if err != nil {
		c.log.Warn("encoding cache entry", zap.Error(err))
		return
	}
	if err := c.cache.Set(key, data); err != nil {
		c.log.Warn("feed cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Client) dropSeen(recs []types.ArticleRecord) []types.ArticleRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]types.ArticleRecord, 0, len(recs))
	for _, r := range recs {
		if _, dup := c.seen[r.ID]; dup {
			continue
		}
		c.seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}
