// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config assembles types.Config from defaults, an optional YAML
// file, a .env file, and PAPER_HARVESTER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-harvester/pkg/types"
)

// EnvPrefix is prepended to every environment override, with "." in a key
// replaced by "_" (download.max_concurrent -> PAPER_HARVESTER_DOWNLOAD_MAX_CONCURRENT).
const EnvPrefix = "PAPER_HARVESTER"

const (
	defaultBaseURL        = "http://export.arxiv.org/api/query"
	defaultPDFTemplate    = "https://arxiv.org/pdf/{id}"
	defaultSourceTemplate = "https://arxiv.org/e-print/{id}"
)

// SetDefaults registers every key with its default so environment
// overrides are visible to Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("home", "~/.paper-harvester")

	v.SetDefault("api.base_url", defaultBaseURL)
	v.SetDefault("api.pdf_template", defaultPDFTemplate)
	v.SetDefault("api.source_template", defaultSourceTemplate)
	v.SetDefault("api.rate_limit", 3*time.Second)
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.max_connections", 10)
	v.SetDefault("api.user_agent", "")
	v.SetDefault("api.max_retries", 3)
	v.SetDefault("api.retry_base_delay", 2*time.Second)

	// Paths left empty are derived from home in Load.
	v.SetDefault("download.dir", "")
	v.SetDefault("download.ledger_path", "")
	v.SetDefault("download.sessions_dir", "")
	v.SetDefault("download.batch_size", 100)
	v.SetDefault("download.max_concurrent", 5)
	v.SetDefault("download.formats", []string{string(types.FormatSource)})
	v.SetDefault("download.pages_per_category", 1)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", string(types.CacheBackendFile))
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.path", "")
	v.SetDefault("cache.ttl", 168*time.Hour)

	v.SetDefault("catalog.enabled", true)
	v.SetDefault("catalog.path", "")

	v.SetDefault("notify.timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// ReadIn loads .env from the working directory, wires environment
// overrides, and reads cfgFile, or the first paper-harvester.yaml found in
// the working directory or ~/.config/paper-harvester. It returns the config
// file used, which is empty when none was found.
func ReadIn(v *viper.Viper, cfgFile string) (string, error) {
	_ = godotenv.Load()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("paper-harvester")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "paper-harvester"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("reading config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Load unmarshals v into a validated Config with home-relative paths filled
// in and "~" expanded.
func Load(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}

	formats, err := parseFormatList(v.GetStringSlice("download.formats"))
	if err != nil {
		return cfg, err
	}
	cfg.Download.Formats = formats

	home, err := expandHome(cfg.Home)
	if err != nil {
		return cfg, err
	}
	cfg.Home = home

	paths := []struct {
		dst  *string
		name string
	}{
		{&cfg.Download.Dir, "downloads"},
		{&cfg.Download.LedgerPath, "downloaded_ids.jsonl"},
		{&cfg.Cache.Dir, "cache"},
		{&cfg.Cache.Path, "cache.db"},
		{&cfg.Catalog.Path, "catalog.db"},
	}
	for _, p := range paths {
		if *p.dst == "" {
			*p.dst = filepath.Join(home, p.name)
		}
		if *p.dst, err = expandHome(*p.dst); err != nil {
			return cfg, err
		}
	}
	if cfg.Download.SessionsDir == "" {
		cfg.Download.SessionsDir = filepath.Join(filepath.Dir(cfg.Download.LedgerPath), "sessions")
	}
	if cfg.Download.SessionsDir, err = expandHome(cfg.Download.SessionsDir); err != nil {
		return cfg, err
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values no component can run with.
func Validate(cfg types.Config) error {
	var errs []error
	if cfg.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url must be set"))
	}
	if cfg.API.RateLimit < 0 {
		errs = append(errs, errors.New("api.rate_limit must not be negative"))
	}
	if cfg.API.Timeout <= 0 {
		errs = append(errs, errors.New("api.timeout must be positive"))
	}
	if cfg.API.MaxConnections < 1 {
		errs = append(errs, errors.New("api.max_connections must be at least 1"))
	}
	if cfg.API.MaxRetries < 1 {
		errs = append(errs, errors.New("api.max_retries must be at least 1"))
	}
	if cfg.Download.BatchSize < 1 {
		errs = append(errs, errors.New("download.batch_size must be at least 1"))
	}
	if cfg.Download.MaxConcurrent < 1 {
		errs = append(errs, errors.New("download.max_concurrent must be at least 1"))
	}
	if cfg.Download.PagesPerCategory < 1 {
		errs = append(errs, errors.New("download.pages_per_category must be at least 1"))
	}
	if len(cfg.Download.Formats) == 0 {
		errs = append(errs, errors.New("download.formats must not be empty"))
	}
	switch cfg.Cache.Backend {
	case "", types.CacheBackendFile, types.CacheBackendBbolt:
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q is not file or bbolt", cfg.Cache.Backend))
	}
	if cfg.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must not be negative"))
	}
	return errors.Join(errs...)
}

// parseFormatList accepts each entry in the same forms as the --format
// flag, so ["both"] and ["source", "pdf"] are equivalent.
func parseFormatList(names []string) ([]types.Format, error) {
	if len(names) == 0 {
		return []types.Format{types.FormatSource}, nil
	}
	var out []types.Format
	seen := make(map[types.Format]bool)
	for _, n := range names {
		fs, err := types.ParseFormats(n)
		if err != nil {
			return nil, fmt.Errorf("download.formats: %w", err)
		}
		for _, f := range fs {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out, nil
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expanding %s: %w", p, err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
