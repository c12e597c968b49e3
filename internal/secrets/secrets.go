// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// The filename is the key and the trimmed file contents are the value.
//
// Known keys: notify-webhook-token (bearer token for HTTP notify sinks).
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Set maps secret names to their values.
type Set map[string]string

// Load reads every regular, non-hidden file in dir. A missing directory
// yields an empty set. Unreadable files are logged and skipped.
func Load(dir string, log *zap.Logger) (Set, error) {
	if log == nil {
		log = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	set := make(Set)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			set[name] = value
		}
	}
	return set, nil
}

// Get returns the named secret, falling back to the environment variable
// derived from it (notify-webhook-token -> PAPER_HARVESTER_NOTIFY_WEBHOOK_TOKEN).
func (s Set) Get(name string) string {
	if v, ok := s[name]; ok {
		return v
	}
	return strings.TrimSpace(os.Getenv(EnvName(name)))
}

// EnvName is the environment variable consulted for a secret.
func EnvName(name string) string {
	return "PAPER_HARVESTER_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
