// Package config represents the docfind configuration, loaded with Viper
// from docfind.toml and DOCFIND_* environment variables.
package config

// Config represents the core docfind configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Search   SearchConfig   `mapstructure:"search"`
	Caption  CaptionConfig  `mapstructure:"caption"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the docfind web server
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// IngestConfig configures the ingestion pipeline
type IngestConfig struct {
	// Source tag recorded on documents ingested from the plain local filesystem
	SourceLocalFS string `mapstructure:"source_local_fs"`

	// Files below this root are attributed to the collection named by the
	// first path segment under it (e.g. download archives sorted by origin).
	// Empty disables the derivation.
	DownloadRoot string `mapstructure:"download_root"`

	// Prefix prepended to the derived collection name
	DownloadSourcePrefix string `mapstructure:"download_source_prefix"`

	// Directory names never descended into during scans
	ExcludedDirNames []string `mapstructure:"excluded_dir_names"`

	// Directory name suffixes never descended into (sidecar asset folders
	// of note-taking tools, e.g. "page.assets")
	ExcludedDirSuffixes []string `mapstructure:"excluded_dir_suffixes"`

	// File extensions excluded before the inclusion filter is applied
	ExcludedExtensions []string `mapstructure:"excluded_extensions"`

	// Retry files whose last conversion failed even when unchanged.
	// When false, any unchanged document is skipped regardless of status.
	RetryFailed bool `mapstructure:"retry_failed"`

	// Per-run file throttle; 0 = unlimited
	MaxFilesPerSecond float64 `mapstructure:"max_files_per_second"`

	// Most-recent events retained per session for late consumers
	HistoryLimit int `mapstructure:"history_limit"`

	// Idle heartbeat period for streaming readers, in seconds
	HeartbeatSeconds int `mapstructure:"heartbeat_seconds"`

	// Extension tokens per converter family
	NativeMarkdownTypes []string `mapstructure:"native_markdown_types"`
	PlainTextTypes      []string `mapstructure:"plain_text_types"`
	CodeTypes           []string `mapstructure:"code_types"`
	StructuredTypes     []string `mapstructure:"structured_types"`
	HTMLTypes           []string `mapstructure:"html_types"`
	ImageTypes          []string `mapstructure:"image_types"`
	VideoTypes          []string `mapstructure:"video_types"`
	DrawioTypes         []string `mapstructure:"drawio_types"`
	XmindTypes          []string `mapstructure:"xmind_types"`
}

// SearchConfig configures corpus search
type SearchConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// CaptionConfig configures the vision model used by the image converter.
// An empty provider disables image captioning; image files then fail
// conversion with a descriptive error instead of silently passing.
type CaptionConfig struct {
	Provider       string `mapstructure:"provider"` // "", "openai", "ollama"
	Model          string `mapstructure:"model"`
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Prompt         string `mapstructure:"prompt"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}
