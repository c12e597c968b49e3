// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/pdiddy/paper-harvester/internal/cache"
	"github.com/pdiddy/paper-harvester/internal/catalog"
	"github.com/pdiddy/paper-harvester/internal/download"
	"github.com/pdiddy/paper-harvester/internal/feed"
	"github.com/pdiddy/paper-harvester/internal/httputil"
	"github.com/pdiddy/paper-harvester/internal/ledger"
	"github.com/pdiddy/paper-harvester/internal/notify"
	"github.com/pdiddy/paper-harvester/internal/throttle"
)

// harvester bundles the collaborators shared by commands that talk to the
// API. One limiter serves both metadata and content requests.
type harvester struct {
	cache  cache.Cache
	feed   *feed.Client
	worker *download.Worker
}

func newHarvester(progress download.Progress) (*harvester, error) {
	c, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("opening response cache: %w", err)
	}
	client := httputil.NewClient(cfg.API.Timeout, cfg.API.UserAgent)
	limiter := throttle.NewLimiter(cfg.API.MaxConnections, cfg.API.RateLimit)
	h := &harvester{
		cache: c,
		feed: feed.New(cfg.API, feed.Options{
			HTTP:    client,
			Limiter: limiter,
			Cache:   c,
			Logger:  log.Named("feed"),
		}),
		worker: download.NewWorker(download.Options{
			HTTP:     client,
			Limiter:  limiter,
			Logger:   log.Named("download"),
			Progress: progress,
		}),
	}
	return h, nil
}

func (h *harvester) Close() error {
	return h.cache.Close()
}

func openLedger() (*ledger.Ledger, error) {
	l, err := ledger.Open(cfg.Download.LedgerPath, log.Named("ledger"))
	if err != nil {
		return nil, fmt.Errorf("loading ledger %s: %w", cfg.Download.LedgerPath, err)
	}
	return l, nil
}

// openCatalog returns nil when the catalog is disabled.
func openCatalog() (*catalog.Store, error) {
	if !cfg.Catalog.Enabled {
		return nil, nil
	}
	s, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	return s, nil
}

func buildNotifier(ctx context.Context) (*notify.Fanout, error) {
	tokens := map[string]string{
		notify.WebhookTokenSecret: loadedSecrets.Get(notify.WebhookTokenSecret),
	}
	return notify.Build(ctx, cfg.Notify, tokens, log.Named("notify"))
}

// progressLine prints a running count of finished downloads.
type progressLine struct {
	w     io.Writer
	items atomic.Int64
	bytes atomic.Int64
}

func (p *progressLine) Advance(n int) {
	items := p.items.Add(int64(n))
	fmt.Fprintf(p.w, "  %d finished, %.1f MB\n", items, float64(p.bytes.Load())/(1024*1024))
}

func (p *progressLine) AddBytes(n int64) { p.bytes.Add(n) }
