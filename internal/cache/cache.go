// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache memoizes feed responses with a time-to-live. Entries are
// opaque byte payloads keyed by a string derived from the full query; each
// backend hashes the key into its storage name.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/pdiddy/paper-harvester/pkg/types"
)

// Cache is a keyed store with expiry. Get reports ok=false for missing and
// expired entries alike.
type Cache interface {
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
	Delete(key string) error
	// Clear removes every entry and returns how many were removed.
	Clear() (int, error)
	// ClearExpired removes entries older than the TTL.
	ClearExpired() (int, error)
	Stats() (Stats, error)
	Close() error
}

// Stats summarizes cache contents.
type Stats struct {
	Backend string        `json:"backend" yaml:"backend"`
	Entries int           `json:"entries" yaml:"entries"`
	Expired int           `json:"expired" yaml:"expired"`
	Bytes   int64         `json:"bytes" yaml:"bytes"`
	TTL     time.Duration `json:"ttl" yaml:"ttl"`
	Where   string        `json:"location" yaml:"location"`
}

// New opens the backend selected by cfg. A disabled cache is a no-op that
// never hits.
func New(cfg types.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	switch cfg.Backend {
	case "", types.CacheBackendFile:
		return NewFileCache(cfg.Dir, cfg.TTL)
	case types.CacheBackendBbolt:
		return OpenBolt(cfg.Path, cfg.TTL)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// hashKey returns the storage name for key.
func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func expired(written, now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(written) > ttl
}

// Noop is the disabled cache.
type Noop struct{}

func (Noop) Get(string) ([]byte, bool, error) { return nil, false, nil }
func (Noop) Set(string, []byte) error         { return nil }
func (Noop) Delete(string) error              { return nil }
func (Noop) Clear() (int, error)              { return 0, nil }
func (Noop) ClearExpired() (int, error)       { return 0, nil }
func (Noop) Stats() (Stats, error)            { return Stats{Backend: "disabled"}, nil }
func (Noop) Close() error                     { return nil }
