// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	responseBucket = "responses"
	stampBytes     = 8
)

var errBucketMissing = errors.New("response bucket missing")

// BoltCache keeps entries in a single bbolt bucket. Each value is an
// 8-byte big-endian write time (unix nanoseconds) followed by the payload.
type BoltCache struct {
	db   *bolt.DB
	path string
	ttl  time.Duration
	now  func() time.Time
}

// OpenBolt opens or creates the database at path.
func OpenBolt(path string, ttl time.Duration) (*BoltCache, error) {
	if path == "" {
		return nil, errors.New("bbolt cache path is empty")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt cache: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(responseBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}
	return &BoltCache{db: db, path: path, ttl: ttl, now: time.Now}, nil
}

func (b *BoltCache) Get(key string) ([]byte, bool, error) {
	k := []byte(hashKey(key))
	var out []byte
	var found, stale bool
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(responseBucket))
		if bucket == nil {
			return errBucketMissing
		}
		v := bucket.Get(k)
		if v == nil {
			return nil
		}
		written, ok := decodeStamp(v)
		if !ok || expired(written, b.now(), b.ttl) {
			stale = true
			return nil
		}
		out = append([]byte{}, v[stampBytes:]...)
		found = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if stale {
		_ = b.Delete(key)
		return nil, false, nil
	}
	return out, found, nil
}

func (b *BoltCache) Set(key string, value []byte) error {
	buf := make([]byte, stampBytes+len(value))
	binary.BigEndian.PutUint64(buf, uint64(b.now().UnixNano()))
	copy(buf[stampBytes:], value)
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(responseBucket))
		if bucket == nil {
			return errBucketMissing
		}
		return bucket.Put([]byte(hashKey(key)), buf)
	})
}

func (b *BoltCache) Delete(key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(responseBucket))
		if bucket == nil {
			return errBucketMissing
		}
		return bucket.Delete([]byte(hashKey(key)))
	})
}

func (b *BoltCache) Clear() (int, error) {
	return b.sweep(func(time.Time, bool) bool { return true })
}

func (b *BoltCache) ClearExpired() (int, error) {
	now := b.now()
	return b.sweep(func(written time.Time, ok bool) bool {
		return !ok || expired(written, now, b.ttl)
	})
}

func (b *BoltCache) sweep(remove func(written time.Time, ok bool) bool) (int, error) {
	removed := 0
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(responseBucket))
		if bucket == nil {
			return errBucketMissing
		}
		var doomed [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			if written, ok := decodeStamp(v); remove(written, ok) {
				doomed = append(doomed, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range doomed {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		removed = len(doomed)
		return nil
	})
	return removed, err
}

func (b *BoltCache) Stats() (Stats, error) {
	st := Stats{Backend: "bbolt", TTL: b.ttl, Where: b.path}
	now := b.now()
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(responseBucket))
		if bucket == nil {
			return errBucketMissing
		}
		return bucket.ForEach(func(_, v []byte) error {
			st.Entries++
			st.Bytes += int64(len(v))
			if written, ok := decodeStamp(v); !ok || expired(written, now, b.ttl) {
				st.Expired++
			}
			return nil
		})
	})
	return st, err
}

func (b *BoltCache) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func decodeStamp(v []byte) (time.Time, bool) {
	if len(v) < stampBytes {
		return time.Time{}, false
	}
	nanos := int64(binary.BigEndian.Uint64(v[:stampBytes]))
	if nanos <= 0 {
		return time.Time{}, false
	}
	return time.Unix(0, nanos), true
}
