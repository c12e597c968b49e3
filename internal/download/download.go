// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package download fetches one article artifact to local storage and
// reports the attempt as a types.DownloadOutcome. Every failure is
// captured in the outcome; nothing escapes the worker boundary as an
// error or panic.
package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-harvester/internal/httputil"
	"github.com/pdiddy/paper-harvester/internal/throttle"
	"github.com/pdiddy/paper-harvester/pkg/types"
)

// KnownSet reports whether an identifier was already downloaded.
type KnownSet interface {
	Contains(id string) bool
}

// Progress receives optional progress updates. It is a side channel and
// has no effect on outcomes.
type Progress interface {
	Advance(items int)
	AddBytes(n int64)
}

// Options configures a Worker.
type Options struct {
	HTTP     *resty.Client
	Limiter  *throttle.Limiter
	Logger   *zap.Logger
	Progress Progress
}

// Worker downloads article artifacts. It is safe for concurrent use.
type Worker struct {
	http     *resty.Client
	limiter  *throttle.Limiter
	log      *zap.Logger
	progress Progress
	now      func() time.Time
}

// NewWorker builds a Worker. A nil HTTP client gets a default one with a
// 30s timeout.
func NewWorker(opts Options) *Worker {
	w := &Worker{
		http:     opts.HTTP,
		limiter:  opts.Limiter,
		log:      opts.Logger,
		progress: opts.Progress,
		now:      time.Now,
	}
	if w.http == nil {
		w.http = httputil.NewClient(30*time.Second, "")
	}
	if w.log == nil {
		w.log = zap.NewNop()
	}
	return w
}

// Download fetches rec in format f into dir. When known contains the
// identifier it returns a skip outcome without touching the network.
func (w *Worker) Download(ctx context.Context, rec types.ArticleRecord, dir string, f types.Format, known KnownSet) (out types.DownloadOutcome) {
	start := w.now()
	out = types.DownloadOutcome{Identifier: rec.ID, Format: f}
	defer func() {
		if r := recover(); r != nil {
			out.Success = false
			out.Skipped = false
			out.ErrorMessage = fmt.Sprintf("download failed: panic: %v", r)
		}
		out.ElapsedSeconds = w.now().Sub(start).Seconds()
		out.Timestamp = w.now().UTC()
		if w.progress != nil {
			w.progress.Advance(1)
		}
	}()

	if known != nil && known.Contains(rec.ID) {
		out.Skipped = true
		out.ErrorMessage = types.AlreadyDownloaded
		return out
	}

	locator, err := resolve(rec, f)
	if err != nil {
		out.ErrorMessage = err.Error()
		return out
	}

	dest := filepath.Join(dir, rec.Filename(f))
	size, err := w.fetch(ctx, locator, dest)
	if err != nil {
		out.ErrorMessage = fmt.Sprintf("download failed: %v", err)
		w.log.Warn("download failed",
			zap.String("id", rec.ID),
			zap.String("format", string(f)),
			zap.String("url", locator),
			zap.Error(err))
		return out
	}

	sum, err := Checksum(dest)
	if err != nil {
		out.ErrorMessage = fmt.Sprintf("download failed: %v", err)
		return out
	}

	out.Success = true
	out.StoredPath = dest
	out.ByteSize = size
	out.Checksum = sum
	w.log.Debug("downloaded",
		zap.String("id", rec.ID),
		zap.String("format", string(f)),
		zap.Int64("bytes", size))
	return out
}

// ErrNoLocator is wrapped by outcomes for records without a URL in the
// requested format.
var ErrNoLocator = errors.New("no download link available")

func resolve(rec types.ArticleRecord, f types.Format) (string, error) {
	switch f {
	case types.FormatPDF:
		if rec.PDFURL == "" {
			return "", fmt.Errorf("no PDF link available: %w", ErrNoLocator)
		}
		return rec.PDFURL, nil
	case types.FormatSource:
		if rec.SourceURL == "" {
			return "", fmt.Errorf("no source link available: %w", ErrNoLocator)
		}
		return rec.SourceURL, nil
	default:
		return "", fmt.Errorf("unsupported download format %q", f)
	}
}

// fetch streams url into dest through a temp file in the same directory,
// returning the byte count. The rename makes a rerun overwrite the
// previous file; a failed attempt leaves no partial file behind.
func (w *Worker) fetch(ctx context.Context, url, dest string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("creating directory: %w", err)
	}

	var size int64
	err := w.limiter.Do(ctx, func(ctx context.Context) error {
		resp, err := w.http.R().
			SetContext(ctx).
			SetDoNotParseResponse(true).
			Get(url)
		if err != nil {
			return fmt.Errorf("HTTP request: %w", err)
		}
		body := resp.RawBody()
		defer body.Close()

		if err := httputil.CheckStatus(resp.StatusCode(), url); err != nil {
			return err
		}

		tmpFile, err := os.CreateTemp(filepath.Dir(dest), ".download-*.tmp")
		if err != nil {
			return fmt.Errorf("creating temp file: %w", err)
		}
		tmpPath := tmpFile.Name()

		n, copyErr := io.Copy(tmpFile, &countingReader{r: body, progress: w.progress})
		closeErr := tmpFile.Close()
		if copyErr != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("writing download: %w", copyErr)
		}
		if closeErr != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("closing temp file: %w", closeErr)
		}
		if err := os.Rename(tmpPath, dest); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("renaming temp file: %w", err)
		}
		size = n
		return nil
	})
	return size, err
}

// Checksum returns the hex SHA-256 of the file at path.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening for checksum: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

type countingReader struct {
	r        io.Reader
	progress Progress
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 && c.progress != nil {
		c.progress.AddBytes(int64(n))
	}
	return n, err
}
