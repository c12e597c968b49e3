// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const backupLayout = "20060102_150405.000000"

// backupName returns a timestamped sibling of the live log.
func (l *Ledger) backupName() string {
	stamp := l.now().Format(backupLayout)
	return filepath.Join(filepath.Dir(l.path), fmt.Sprintf("backup_%s.jsonl", stamp))
}

// Backup copies the live log to dst, or to a timestamped sibling when dst
// is empty, and returns the path written.
func (l *Ledger) Backup(dst string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backupLocked(dst)
}

func (l *Ledger) backupLocked(dst string) (string, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return "", fmt.Errorf("reading ledger for backup: %w", err)
	}
	if dst == "" {
		dst = l.backupName()
	}
	if err := writeAtomic(dst, data); err != nil {
		return "", fmt.Errorf("writing backup: %w", err)
	}
	l.log.Info("ledger backed up", zap.String("backup", dst))
	return dst, nil
}

// Deduplicate backs up the log, then rewrites it keeping only the first
// line for each identifier, and reloads. Blank lines and objects without
// an identifier are dropped. It returns the number of lines
// removed and the backup path. A missing log is a no-op.
func (l *Ledger) Deduplicate() (removed int, backup string, err error) {
	l.mu.Lock()
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		l.mu.Unlock()
		return 0, "", nil
	}
	if err != nil {
		l.mu.Unlock()
		return 0, "", fmt.Errorf("reading ledger: %w", err)
	}

	backup, err = l.backupLocked("")
	if err != nil {
		l.mu.Unlock()
		return 0, "", err
	}

	var kept bytes.Buffer
	seen := make(map[string]struct{})
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		e, ok := parseLine(sc.Text())
		if !ok {
			removed++
			continue
		}
		if _, dup := seen[e.id]; dup {
			removed++
			continue
		}
		seen[e.id] = struct{}{}
		kept.Write(bytes.TrimSpace(sc.Bytes()))
		kept.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		l.mu.Unlock()
		return 0, backup, fmt.Errorf("scanning ledger: %w", err)
	}

	err = writeAtomic(l.path, kept.Bytes())
	l.mu.Unlock()
	if err != nil {
		return 0, backup, fmt.Errorf("rewriting ledger: %w", err)
	}

	l.log.Info("ledger deduplicated", zap.Int("removed", removed), zap.Int("kept", len(seen)))
	return removed, backup, l.Load()
}

// Restore replaces the live log with the contents of the backup at path
// and reloads. The current log, if any, is backed up first; the returned
// string names that backup.
func (l *Ledger) Restore(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading backup %s: %w", path, err)
	}

	l.mu.Lock()
	var prior string
	if _, statErr := os.Stat(l.path); statErr == nil {
		prior, err = l.backupLocked("")
		if err != nil {
			l.mu.Unlock()
			return "", err
		}
	}
	err = writeAtomic(l.path, data)
	l.mu.Unlock()
	if err != nil {
		return prior, fmt.Errorf("restoring ledger: %w", err)
	}

	l.log.Info("ledger restored", zap.String("from", path), zap.String("previous", prior))
	return prior, l.Load()
}

// writeAtomic writes data through a temp file in the destination directory
// and renames it into place.
func writeAtomic(dst string, data []byte) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".ledger-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
