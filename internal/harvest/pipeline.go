// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest runs the fetch and download loop for one session.
//
// A run walks the requested categories in order (or issues one free-text
// search), attempts up to the number of articles still needed from each
// page, fans downloads out under a concurrency gate, and waits for every
// scheduled download before moving on. Workers report outcomes over a
// channel; the Run goroutine alone updates the session counters, the
// ledger, the catalog, and the notification sinks.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-harvester/internal/download"
	"github.com/pdiddy/paper-harvester/internal/feed"
	"github.com/pdiddy/paper-harvester/internal/notify"
	"github.com/pdiddy/paper-harvester/internal/throttle"
	"github.com/pdiddy/paper-harvester/pkg/types"
)

// ErrInterrupted is returned by Run when ctx was cancelled. The session is
// still finished and saved.
var ErrInterrupted = errors.New("interrupted by user")

// Fetcher supplies metadata pages.
type Fetcher interface {
	FetchCategory(ctx context.Context, category string, offset, pageSize int) ([]types.ArticleRecord, error)
	Search(ctx context.Context, query string, categories []string, maxResults int) ([]types.ArticleRecord, error)
}

// Downloader fetches one artifact. Implementations report every failure in
// the outcome.
type Downloader interface {
	Download(ctx context.Context, rec types.ArticleRecord, dir string, f types.Format, known download.KnownSet) types.DownloadOutcome
}

// Ledger is the durable dedup index.
type Ledger interface {
	Contains(id string) bool
	Record(o types.DownloadOutcome) error
}

// SessionSaver persists finished sessions.
type SessionSaver interface {
	Save(rec *types.SessionRecord) error
}

// Indexer stores fetched records for later lookup.
type Indexer interface {
	Upsert(ctx context.Context, recs []types.ArticleRecord) error
}

// Publisher delivers outcome events.
type Publisher interface {
	Publish(ctx context.Context, evt notify.Event) (int, error)
}

// Options wires a Pipeline. Fetcher, Downloader, Ledger, and Sessions are
// required; Catalog and Notifier may be nil.
type Options struct {
	Fetcher    Fetcher
	Downloader Downloader
	Ledger     Ledger
	Sessions   SessionSaver
	Catalog    Indexer
	Notifier   Publisher
	Logger     *zap.Logger

	// Out receives one human-readable line per processed page.
	Out io.Writer

	Dir              string
	Formats          []types.Format
	BatchSize        int
	MaxConcurrent    int
	PagesPerCategory int
}

// Request describes one run. When Query is set, Categories filter the
// search instead of being walked.
type Request struct {
	Categories []string
	Query      string
	Target     int
}

// Result is what a run produced. Session is always set once Run gets past
// request validation.
type Result struct {
	Session *types.SessionRecord
	Records []types.ArticleRecord
}

// Pipeline is reusable across runs but runs are not concurrent-safe with
// each other.
type Pipeline struct {
	fetcher    Fetcher
	downloader Downloader
	ledger     Ledger
	sessions   SessionSaver
	catalog    Indexer
	notifier   Publisher
	log        *zap.Logger
	out        io.Writer

	dir       string
	formats   []types.Format
	batchSize int
	pages     int
	gate      *throttle.Gate
}

// New validates opts and builds a Pipeline.
func New(opts Options) (*Pipeline, error) {
	switch {
	case opts.Fetcher == nil:
		return nil, errors.New("harvest: fetcher is required")
	case opts.Downloader == nil:
		return nil, errors.New("harvest: downloader is required")
	case opts.Ledger == nil:
		return nil, errors.New("harvest: ledger is required")
	case opts.Sessions == nil:
		return nil, errors.New("harvest: session store is required")
	}

	p := &Pipeline{
		fetcher:    opts.Fetcher,
		downloader: opts.Downloader,
		ledger:     opts.Ledger,
		sessions:   opts.Sessions,
		catalog:    opts.Catalog,
		notifier:   opts.Notifier,
		log:        opts.Logger,
		out:        opts.Out,
		dir:        opts.Dir,
		formats:    append([]types.Format(nil), opts.Formats...),
		batchSize:  opts.BatchSize,
		pages:      max(opts.PagesPerCategory, 1),
		gate:       throttle.NewGate(opts.MaxConcurrent),
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	if p.out == nil {
		p.out = io.Discard
	}
	if len(p.formats) == 0 {
		p.formats = []types.Format{types.FormatSource}
	}
	if p.batchSize <= 0 {
		p.batchSize = feed.MaxPageSize
	}
	p.batchSize = min(p.batchSize, feed.MaxPageSize)
	return p, nil
}

// run carries the state of one Run call.
type run struct {
	sess    *types.SessionRecord
	res     *Result
	target  int
	fetched map[string]bool
	done    map[string]bool
}

func (r *run) needed() int { return r.target - len(r.done) }

// Run executes req. The session is finished and saved exactly once on
// every path; a save failure is joined into the returned error.
func (p *Pipeline) Run(ctx context.Context, req Request) (res *Result, err error) {
	if req.Target < 1 {
		return nil, fmt.Errorf("target count must be at least 1, got %d", req.Target)
	}
	query := strings.TrimSpace(req.Query)
	if query == "" && len(req.Categories) == 0 {
		return nil, errors.New("no categories or query given")
	}

	sess := types.NewSessionRecord(req.Categories, req.Target, p.formats)
	sess.Query = query
	r := &run{
		sess:    sess,
		res:     &Result{Session: sess},
		target:  req.Target,
		fetched: make(map[string]bool),
		done:    make(map[string]bool),
	}
	log := p.log.With(zap.String("session", sess.ID))
	log.Info("harvest started",
		zap.Strings("categories", req.Categories),
		zap.String("query", query),
		zap.Int("target", req.Target))

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
		switch {
		case errors.Is(err, ErrInterrupted):
			sess.AddError("Interrupted by user")
		case err != nil:
			sess.AddError("Critical error: " + err.Error())
		}
		sess.Finish()
		if saveErr := p.sessions.Save(sess); saveErr != nil {
			err = errors.Join(err, fmt.Errorf("saving session %s: %w", sess.ID, saveErr))
		}
		res = r.res
		s := sess.Summary()
		log.Info("harvest finished",
			zap.Int("found", s.Found),
			zap.Int("downloaded", s.Downloaded),
			zap.Int("skipped", s.Skipped),
			zap.Int("failed", s.Failed),
			zap.Int("errors", s.ErrorCount),
			zap.Error(err))
	}()

	if query != "" {
		return r.res, p.runSearch(ctx, r, query, req.Categories)
	}
	return r.res, p.runCategories(ctx, r, req.Categories)
}

func (p *Pipeline) runCategories(ctx context.Context, r *run, categories []string) error {
	for _, category := range categories {
		if ctx.Err() != nil {
			return ErrInterrupted
		}
		if r.needed() <= 0 {
			return nil
		}

		offset := 0
		for page := 0; page < p.pages && r.needed() > 0; page++ {
			pageSize := min(p.batchSize, r.needed())
			recs, err := p.fetcher.FetchCategory(ctx, category, offset, pageSize)
			if err != nil {
				if ctx.Err() != nil {
					return ErrInterrupted
				}
				msg := fmt.Sprintf("Failed to process category %s: %v", category, err)
				p.log.Error("category fetch failed", zap.String("category", category), zap.Error(err))
				r.sess.AddError(msg)
				break
			}
			offset += pageSize

			if err := p.process(ctx, r, category, recs); err != nil {
				return err
			}
			if len(recs) < pageSize {
				break
			}
		}
	}
	if ctx.Err() != nil {
		return ErrInterrupted
	}
	return nil
}

func (p *Pipeline) runSearch(ctx context.Context, r *run, query string, categories []string) error {
	recs, err := p.fetcher.Search(ctx, query, categories, r.target)
	if err != nil {
		if ctx.Err() != nil {
			return ErrInterrupted
		}
		p.log.Error("search failed", zap.String("query", query), zap.Error(err))
		r.sess.AddError(fmt.Sprintf("Failed to search %q: %v", query, err))
		return nil
	}
	if err := p.process(ctx, r, "search", recs); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ErrInterrupted
	}
	return nil
}

// task is one scheduled (record, format) download.
type task struct {
	rec    types.ArticleRecord
	format types.Format
}

// result is what a task reports back. dropped means the task never got a
// gate slot; crash holds a recovered worker panic.
type result struct {
	task
	out     types.DownloadOutcome
	dropped bool
	crash   any
}

// process handles one fetched page: it records what was found, skips
// known identifiers, and downloads the rest before returning.
func (p *Pipeline) process(ctx context.Context, r *run, label string, recs []types.ArticleRecord) error {
	r.sess.Found += len(recs)
	for _, rec := range recs {
		if !r.fetched[rec.ID] {
			r.fetched[rec.ID] = true
			r.res.Records = append(r.res.Records, rec)
		}
	}
	p.index(ctx, recs)

	attempt := recs[:min(len(recs), max(r.needed(), 0))]
	var tasks []task
	skipped := 0
	for _, rec := range attempt {
		if p.ledger.Contains(rec.ID) {
			skipped++
			continue
		}
		for _, f := range p.formats {
			tasks = append(tasks, task{rec: rec, format: f})
		}
	}
	r.sess.Skipped += skipped

	downloaded, failed := r.sess.Downloaded, r.sess.Failed
	dropped := p.fanOut(ctx, r, tasks)

	fmt.Fprintf(p.out, "%s: %d found, %d attempted, %d downloaded, %d skipped, %d failed\n",
		label, len(recs), len(attempt),
		r.sess.Downloaded-downloaded, skipped, r.sess.Failed-failed)
	if dropped > 0 {
		p.log.Warn("downloads not started before interrupt", zap.Int("dropped", dropped))
		return ErrInterrupted
	}
	return nil
}

// fanOut runs tasks under the gate and consumes their results on the
// calling goroutine. It returns the number of tasks dropped because ctx
// was cancelled before they got a slot.
func (p *Pipeline) fanOut(ctx context.Context, r *run, tasks []task) int {
	if len(tasks) == 0 {
		return 0
	}
	results := make(chan result, len(tasks))
	for _, t := range tasks {
		go func(t task) {
			res := result{task: t}
			defer func() {
				if rec := recover(); rec != nil {
					res.crash = rec
				}
				results <- res
			}()

			release, err := p.gate.Acquire(ctx)
			if err != nil {
				res.dropped = true
				return
			}
			defer release()
			// The previous ledger check already filtered known records.
			res.out = p.downloader.Download(context.WithoutCancel(ctx), t.rec, p.dir, t.format, nil)
		}(t)
	}

	dropped := 0
	for range tasks {
		res := <-results
		if res.dropped {
			dropped++
			continue
		}
		p.consume(ctx, r, res)
	}
	return dropped
}

func (p *Pipeline) consume(ctx context.Context, r *run, res result) {
	id := res.rec.ID
	if res.crash != nil {
		r.sess.Failed++
		r.sess.AddError(fmt.Sprintf("Download exception for %s: %v", id, res.crash))
		p.log.Error("download worker panicked", zap.String("id", id), zap.Any("panic", res.crash))
		return
	}

	out := res.out
	switch {
	case out.Success:
		if err := p.ledger.Record(out); err != nil {
			r.sess.AddError(fmt.Sprintf("%s: recording outcome: %v", id, err))
			p.log.Error("ledger append failed", zap.String("id", id), zap.Error(err))
		}
		if !r.done[id] {
			r.done[id] = true
			r.sess.Downloaded++
		}
	case out.IsSkip():
		r.sess.Skipped++
	default:
		r.sess.Failed++
		r.sess.AddError(fmt.Sprintf("%s: %s", id, out.ErrorMessage))
	}
	p.publish(ctx, r.sess.ID, res.rec, out)
}

func (p *Pipeline) index(ctx context.Context, recs []types.ArticleRecord) {
	if p.catalog == nil || len(recs) == 0 {
		return
	}
	if err := p.catalog.Upsert(context.WithoutCancel(ctx), recs); err != nil {
		p.log.Warn("catalog update failed", zap.Int("records", len(recs)), zap.Error(err))
	}
}

func (p *Pipeline) publish(ctx context.Context, sessionID string, rec types.ArticleRecord, out types.DownloadOutcome) {
	if p.notifier == nil {
		return
	}
	evt := notify.NewEvent(sessionID, rec, out)
	if _, err := p.notifier.Publish(context.WithoutCancel(ctx), evt); err != nil {
		p.log.Warn("outcome notification failed", zap.String("id", rec.ID), zap.Error(err))
	}
}
