// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-harvester/pkg/types"
)

// backends returns each backend wired to a shared adjustable clock.
func backends(t *testing.T, ttl time.Duration, now *time.Time) map[string]Cache {
	t.Helper()

	fc, err := NewFileCache(filepath.Join(t.TempDir(), "files"), ttl)
	require.NoError(t, err)
	fc.now = func() time.Time { return *now }

	bc, err := OpenBolt(filepath.Join(t.TempDir(), "cache.db"), ttl)
	require.NoError(t, err)
	bc.now = func() time.Time { return *now }
	t.Cleanup(func() { bc.Close() })

	return map[string]Cache{"file": fc, "bbolt": bc}
}

func TestCache_SetGet(t *testing.T) {
	now := time.Now()
	for name, c := range backends(t, time.Hour, &now) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := c.Get("missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, c.Set("search_query=cat:cs.AI&start=0", []byte(`[{"id":"1"}]`)))
			got, ok, err := c.Get("search_query=cat:cs.AI&start=0")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `[{"id":"1"}]`, string(got))

			require.NoError(t, c.Set("empty", []byte{}))
			got, ok, err = c.Get("empty")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Empty(t, got)

			require.NoError(t, c.Delete("empty"))
			_, ok, _ = c.Get("empty")
			assert.False(t, ok)
		})
	}
}

// advance moves time forward by d for existing entries. The file backend
// derives age from mtime, so its entries are back-dated instead of moving
// the clock.
func advance(t *testing.T, c Cache, now *time.Time, d time.Duration) {
	fc, ok := c.(*FileCache)
	if !ok {
		*now = now.Add(d)
		return
	}
	entries, err := os.ReadDir(fc.dir)
	require.NoError(t, err)
	for _, e := range entries {
		p := filepath.Join(fc.dir, e.Name())
		info, err := os.Stat(p)
		require.NoError(t, err)
		old := info.ModTime().Add(-d)
		require.NoError(t, os.Chtimes(p, old, old))
	}
}

func TestCache_TTL(t *testing.T) {
	start := time.Now()
	for name := range backends(t, time.Hour, &start) {
		t.Run(name, func(t *testing.T) {
			now := start
			c := backends(t, time.Hour, &now)[name]

			require.NoError(t, c.Set("fresh", []byte("a")))
			_, ok, err := c.Get("fresh")
			require.NoError(t, err)
			assert.True(t, ok, "fresh entry should be served")

			advance(t, c, &now, 2*time.Hour)

			_, ok, err = c.Get("fresh")
			require.NoError(t, err)
			assert.False(t, ok, "entry older than TTL should miss")

			st, err := c.Stats()
			require.NoError(t, err)
			assert.Equal(t, 0, st.Entries, "expired entry is removed on read")
		})
	}
}

func TestCache_ClearExpiredAndClear(t *testing.T) {
	start := time.Now()
	for name := range backends(t, time.Hour, &start) {
		t.Run(name, func(t *testing.T) {
			now := start
			c := backends(t, time.Hour, &now)[name]

			require.NoError(t, c.Set("old", []byte("1")))
			advance(t, c, &now, 90*time.Minute)
			require.NoError(t, c.Set("new", []byte("22")))

			st, err := c.Stats()
			require.NoError(t, err)
			assert.Equal(t, 2, st.Entries)
			assert.Equal(t, 1, st.Expired)

			n, err := c.ClearExpired()
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			_, ok, _ := c.Get("new")
			assert.True(t, ok)

			n, err = c.Clear()
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			st, err = c.Stats()
			require.NoError(t, err)
			assert.Equal(t, 0, st.Entries)
		})
	}
}

func TestNew(t *testing.T) {
	c, err := New(types.CacheConfig{Enabled: false})
	require.NoError(t, err)
	assert.IsType(t, Noop{}, c)
	require.NoError(t, c.Set("k", []byte("v")))
	_, ok, _ := c.Get("k")
	assert.False(t, ok)

	c, err = New(types.CacheConfig{Enabled: true, Dir: t.TempDir(), TTL: time.Hour})
	require.NoError(t, err)
	assert.IsType(t, &FileCache{}, c)

	c, err = New(types.CacheConfig{Enabled: true, Backend: types.CacheBackendBbolt, Path: filepath.Join(t.TempDir(), "c.db")})
	require.NoError(t, err)
	assert.IsType(t, &BoltCache{}, c)
	require.NoError(t, c.Close())

	_, err = New(types.CacheConfig{Enabled: true, Backend: "redis"})
	assert.Error(t, err)
}
