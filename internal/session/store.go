// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session persists one YAML file per harvest run.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-harvester/pkg/types"
)

const (
	filePrefix = "session_"
	fileExt    = ".yaml"
)

// ErrNotFound is returned by Load for an unknown session id.
var ErrNotFound = errors.New("session not found")

// Store reads and writes session files under one directory.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir. The directory is created on the
// first Save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the sessions directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file for session id.
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, filePrefix+id+fileExt)
}

// Save writes rec to its session file, replacing any previous version.
func (s *Store) Save(rec *types.SessionRecord) error {
	if rec == nil || rec.ID == "" {
		return errors.New("session has no id")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating sessions directory: %w", err)
	}

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", rec.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing session %s: %w", rec.ID, err)
	}
	if err := os.Rename(tmpPath, s.Path(rec.ID)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming session file: %w", err)
	}
	return nil
}

// Load reads session id.
func (s *Store) Load(id string) (*types.SessionRecord, error) {
	data, err := os.ReadFile(s.Path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading session %s: %w", id, err)
	}
	var rec types.SessionRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing session %s: %w", id, err)
	}
	return &rec, nil
}

// List returns summaries of every readable session, newest first.
// Unreadable files are skipped.
func (s *Store) List() ([]types.SessionSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading sessions directory: %w", err)
	}

	var out []types.SessionSummary
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExt) {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileExt)
		rec, err := s.Load(id)
		if err != nil {
			continue
		}
		out = append(out, rec.Summary())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})
	return out, nil
}
