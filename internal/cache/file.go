// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const fileExt = ".cache"

// FileCache stores one file per entry. Expiry is computed from the file's
// modification time.
type FileCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewFileCache creates dir if needed and returns a cache rooted there.
func NewFileCache(dir string, ttl time.Duration) (*FileCache, error) {
	if dir == "" {
		return nil, errors.New("file cache directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &FileCache{dir: dir, ttl: ttl, now: time.Now}, nil
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, hashKey(key)+fileExt)
}

// Get returns the payload for key. An expired entry is removed and reported
// as a miss.
func (c *FileCache) Get(key string) ([]byte, bool, error) {
	p := c.path(key)
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("stat cache entry: %w", err)
	}
	if expired(info.ModTime(), c.now(), c.ttl) {
		_ = os.Remove(p)
		return nil, false, nil
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, false, fmt.Errorf("read cache entry: %w", err)
	}
	return data, true, nil
}

// Set writes the payload through a temp file so readers never see a
// partial entry.
func (c *FileCache) Set(key string, value []byte) error {
	tmp, err := os.CreateTemp(c.dir, ".cache-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache entry: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close cache entry: %w", err)
	}
	if err := os.Rename(tmpPath, c.path(key)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename cache entry: %w", err)
	}
	return nil
}

func (c *FileCache) Delete(key string) error {
	err := os.Remove(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (c *FileCache) Clear() (int, error) {
	return c.sweep(func(fs.FileInfo) bool { return true })
}

func (c *FileCache) ClearExpired() (int, error) {
	now := c.now()
	return c.sweep(func(info fs.FileInfo) bool { return expired(info.ModTime(), now, c.ttl) })
}

func (c *FileCache) sweep(remove func(fs.FileInfo) bool) (int, error) {
	removed := 0
	err := c.walk(func(p string, info fs.FileInfo) error {
		if !remove(info) {
			return nil
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		removed++
		return nil
	})
	return removed, err
}

func (c *FileCache) Stats() (Stats, error) {
	st := Stats{Backend: "file", TTL: c.ttl, Where: c.dir}
	now := c.now()
	err := c.walk(func(_ string, info fs.FileInfo) error {
		st.Entries++
		st.Bytes += info.Size()
		if expired(info.ModTime(), now, c.ttl) {
			st.Expired++
		}
		return nil
	})
	return st, err
}

func (c *FileCache) Close() error { return nil }

func (c *FileCache) walk(fn func(path string, info fs.FileInfo) error) error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("read cache directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if err := fn(filepath.Join(c.dir, e.Name()), info); err != nil {
			return err
		}
	}
	return nil
}
