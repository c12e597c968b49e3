// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps the append-only log of download outcomes. The log
// doubles as the dedup index: every identifier in it is treated as already
// downloaded.
//
// Each line is one JSON object with at least an "identifier" field, or a
// bare identifier. Lines that are not valid JSON objects are read as bare
// identifiers, so a corrupted line never aborts a load.
package ledger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-harvester/pkg/types"
)

// maxLineBytes bounds a single ledger line.
const maxLineBytes = 1 << 20

// Ledger is the in-memory view of the log plus its single append path.
// All methods are safe for concurrent use.
type Ledger struct {
	path string
	log  *zap.Logger
	now  func() time.Time

	mu       sync.Mutex
	ids      map[string]struct{}
	outcomes []types.DownloadOutcome
}

// New returns an empty ledger backed by path. Call Load to hydrate it.
func New(path string, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		path: path,
		log:  log,
		now:  time.Now,
		ids:  make(map[string]struct{}),
	}
}

// Open creates a ledger for path and loads it.
func Open(path string, log *zap.Logger) (*Ledger, error) {
	l := New(path, log)
	if err := l.Load(); err != nil {
		return nil, err
	}
	return l, nil
}

// Path returns the backing file.
func (l *Ledger) Path() string { return l.path }

// Load replaces the in-memory state by replaying the log. A missing file
// is an empty ledger.
func (l *Ledger) Load() error {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		l.mu.Lock()
		l.ids = make(map[string]struct{})
		l.outcomes = nil
		l.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading ledger %s: %w", l.path, err)
	}

	ids := make(map[string]struct{})
	var outcomes []types.DownloadOutcome
	fallbacks := 0

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		e, ok := parseLine(sc.Text())
		if !ok {
			continue
		}
		if e.bare {
			fallbacks++
		}
		ids[e.id] = struct{}{}
		if e.outcome != nil {
			outcomes = append(outcomes, *e.outcome)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scanning ledger %s at line %d: %w", l.path, lineNo+1, err)
	}

	l.mu.Lock()
	l.ids = ids
	l.outcomes = outcomes
	l.mu.Unlock()

	l.log.Debug("ledger loaded",
		zap.String("path", l.path),
		zap.Int("identifiers", len(ids)),
		zap.Int("outcomes", len(outcomes)),
		zap.Int("bare_lines", fallbacks))
	return nil
}

// entry is one decoded log line.
type entry struct {
	id      string
	bare    bool
	outcome *types.DownloadOutcome
}

// parseLine decodes one line. ok is false for blank lines and JSON objects
// that carry no identifier.
func parseLine(line string) (entry, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return entry{}, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &fields); err != nil || fields == nil {
		id := types.NormalizeID(strings.Trim(line, `"`))
		return entry{id: id, bare: true}, id != ""
	}

	id := stringField(fields, "identifier")
	if id == "" {
		id = stringField(fields, "arxiv_id")
	}
	id = types.NormalizeID(id)
	if id == "" {
		return entry{}, false
	}

	e := entry{id: id}
	if _, has := fields["success"]; has {
		var o types.DownloadOutcome
		if err := json.Unmarshal([]byte(line), &o); err == nil {
			o.Identifier = id
			e.outcome = &o
		}
	}
	return e, true
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Contains reports whether id is known.
func (l *Ledger) Contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.ids[id]
	return ok
}

// Record appends one line to the log and then adds the outcome to memory.
// A failed append leaves the in-memory view unchanged. The mutex
// serializes appends so lines never interleave.
func (l *Ledger) Record(o types.DownloadOutcome) error {
	if o.Identifier == "" {
		return types.ErrEmptyIdentifier
	}
	line, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encoding outcome %s: %w", o.Identifier, err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := appendLine(l.path, line); err != nil {
		return fmt.Errorf("appending %s to ledger: %w", o.Identifier, err)
	}
	l.ids[o.Identifier] = struct{}{}
	l.outcomes = append(l.outcomes, o)
	return nil
}

func appendLine(path string, line []byte) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// IDs returns the known identifiers in no particular order.
func (l *Ledger) IDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.ids))
	for id := range l.ids {
		out = append(out, id)
	}
	return out
}

// Outcomes returns a copy of the outcome list in log order.
func (l *Ledger) Outcomes() []types.DownloadOutcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]types.DownloadOutcome(nil), l.outcomes...)
}

// Stats aggregates the ledger contents.
type Stats struct {
	TotalIDs   int                  `json:"total_identifiers" yaml:"total_identifiers"`
	Outcomes   int                  `json:"outcomes" yaml:"outcomes"`
	Successful int                  `json:"successful" yaml:"successful"`
	Failed     int                  `json:"failed" yaml:"failed"`
	TotalBytes int64                `json:"total_bytes" yaml:"total_bytes"`
	ByFormat   map[types.Format]int `json:"by_format" yaml:"by_format"`
}

// Stats returns aggregate counts. ByFormat counts successful outcomes.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := Stats{
		TotalIDs: len(l.ids),
		Outcomes: len(l.outcomes),
		ByFormat: make(map[types.Format]int),
	}
	for _, o := range l.outcomes {
		switch {
		case o.Success:
			st.Successful++
			st.TotalBytes += o.ByteSize
			if o.Format != "" {
				st.ByFormat[o.Format]++
			}
		case o.IsFailure():
			st.Failed++
		}
	}
	return st
}
