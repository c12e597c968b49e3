package types

import "time"

// APIConfig holds settings for talking to the remote metadata and content
// endpoints.
type APIConfig struct {
	// BaseURL is the metadata query endpoint.
	BaseURL string `mapstructure:"base_url" json:"base_url" yaml:"base_url"`

	// PDFTemplate and SourceTemplate are content locators; "{id}" is
	// replaced by the normalized identifier.
	PDFTemplate    string `mapstructure:"pdf_template" json:"pdf_template" yaml:"pdf_template"`
	SourceTemplate string `mapstructure:"source_template" json:"source_template" yaml:"source_template"`

	// RateLimit is the fixed delay slept before every outbound call (default 3s).
	RateLimit time.Duration `mapstructure:"rate_limit" json:"rate_limit" yaml:"rate_limit"`

	// Timeout is the per-request transport ceiling (default 30s).
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`

	// MaxConnections caps simultaneous outbound requests (default 10).
	MaxConnections int `mapstructure:"max_connections" json:"max_connections" yaml:"max_connections"`

	UserAgent string `mapstructure:"user_agent" json:"user_agent" yaml:"user_agent"`

	// MaxRetries is the attempt ceiling for feed requests (default 3).
	MaxRetries int `mapstructure:"max_retries" json:"max_retries" yaml:"max_retries"`

	// RetryBaseDelay is the first backoff interval; it doubles per attempt.
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay" json:"retry_base_delay" yaml:"retry_base_delay"`
}

// DownloadConfig holds settings for the harvest pipeline and its workers.
type DownloadConfig struct {
	// Dir is where downloaded files are written.
	Dir string `mapstructure:"dir" json:"dir" yaml:"dir"`

	// LedgerPath is the append-only outcome log.
	LedgerPath string `mapstructure:"ledger_path" json:"ledger_path" yaml:"ledger_path"`

	// SessionsDir holds one file per run.
	SessionsDir string `mapstructure:"sessions_dir" json:"sessions_dir" yaml:"sessions_dir"`

	// BatchSize is the page size requested per category fetch (default 100).
	BatchSize int `mapstructure:"batch_size" json:"batch_size" yaml:"batch_size"`

	// MaxConcurrent caps simultaneous download workers (default 5).
	MaxConcurrent int `mapstructure:"max_concurrent" json:"max_concurrent" yaml:"max_concurrent"`

	// Formats lists the artifacts downloaded per article (default [source]).
	Formats []Format `mapstructure:"formats" json:"formats" yaml:"formats"`

	// PagesPerCategory bounds how many pages are pulled from one category
	// before moving on (default 1).
	PagesPerCategory int `mapstructure:"pages_per_category" json:"pages_per_category" yaml:"pages_per_category"`
}

// CacheBackend selects the response cache storage.
type CacheBackend string

const (
	CacheBackendFile  CacheBackend = "file"
	CacheBackendBbolt CacheBackend = "bbolt"
)

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Enabled bool         `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Backend CacheBackend `mapstructure:"backend" json:"backend" yaml:"backend"`

	// Dir is used by the file backend.
	Dir string `mapstructure:"dir" json:"dir" yaml:"dir"`

	// Path is the bbolt database file.
	Path string `mapstructure:"path" json:"path" yaml:"path"`

	// TTL is the entry lifetime (default 168h).
	TTL time.Duration `mapstructure:"ttl" json:"ttl" yaml:"ttl"`
}

// CatalogConfig controls the SQLite index of discovered articles.
type CatalogConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" json:"path" yaml:"path"`
}

// SinkConfig describes one outcome notification target.
type SinkConfig struct {
	// Type is "http" or "sqs".
	Type string `mapstructure:"type" json:"type" yaml:"type"`

	// URL is the webhook endpoint (http).
	URL string `mapstructure:"url" json:"url,omitempty" yaml:"url,omitempty"`

	// QueueURL and Region address the queue (sqs).
	QueueURL string `mapstructure:"queue_url" json:"queue_url,omitempty" yaml:"queue_url,omitempty"`
	Region   string `mapstructure:"region" json:"region,omitempty" yaml:"region,omitempty"`
}

// NotifyConfig lists the sinks that receive outcome events.
type NotifyConfig struct {
	Sinks   []SinkConfig  `mapstructure:"sinks" json:"sinks" yaml:"sinks"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
}

// LogConfig selects logger level and encoding.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level"`
	Format string `mapstructure:"format" json:"format" yaml:"format"`
}

// Config groups all component configurations. It is built once at startup
// and passed to each component explicitly.
type Config struct {
	Home     string         `mapstructure:"home" json:"home" yaml:"home"`
	API      APIConfig      `mapstructure:"api" json:"api" yaml:"api"`
	Download DownloadConfig `mapstructure:"download" json:"download" yaml:"download"`
	Cache    CacheConfig    `mapstructure:"cache" json:"cache" yaml:"cache"`
	Catalog  CatalogConfig  `mapstructure:"catalog" json:"catalog" yaml:"catalog"`
	Notify   NotifyConfig   `mapstructure:"notify" json:"notify" yaml:"notify"`
	Log      LogConfig      `mapstructure:"log" json:"log" yaml:"log"`
}
