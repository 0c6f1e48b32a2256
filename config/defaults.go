package config

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "docfind.db")

	// Server defaults
	v.SetDefault("server.port", 8090)
	// Prefix-matched so any local port passes
	v.SetDefault("server.allowed_origins", []string{"http://localhost", "https://localhost"})

	// Ingest defaults
	v.SetDefault("ingest.source_local_fs", "local_fs")
	v.SetDefault("ingest.download_root", "")
	v.SetDefault("ingest.download_source_prefix", "collection_")
	v.SetDefault("ingest.excluded_dir_names", []string{".git", "node_modules", "__pycache__"})
	v.SetDefault("ingest.excluded_dir_suffixes", []string{".assets"})
	v.SetDefault("ingest.excluded_extensions", []string{"tmp", "part", "crdownload"})
	v.SetDefault("ingest.retry_failed", true)
	v.SetDefault("ingest.max_files_per_second", 0.0)
	v.SetDefault("ingest.history_limit", 1000)
	v.SetDefault("ingest.heartbeat_seconds", 2)

	// Converter families. Tokens are extensions without the dot, lower-case.
	v.SetDefault("ingest.native_markdown_types", []string{"md", "markdown"})
	v.SetDefault("ingest.plain_text_types", []string{"txt", "log", "csv"})
	v.SetDefault("ingest.code_types", []string{"go", "py", "js", "ts", "java", "c", "cpp", "rs", "sh", "sql", "yaml", "yml", "json", "toml"})
	v.SetDefault("ingest.structured_types", []string{"docx"})
	v.SetDefault("ingest.html_types", []string{"html", "htm"})
	v.SetDefault("ingest.image_types", []string{"png", "jpg", "jpeg", "gif", "webp"})
	v.SetDefault("ingest.video_types", []string{"mp4", "mov", "mkv", "avi"})
	v.SetDefault("ingest.drawio_types", []string{"drawio"})
	v.SetDefault("ingest.xmind_types", []string{"xmind"})

	// Search defaults
	v.SetDefault("search.default_limit", 20)
	v.SetDefault("search.max_limit", 100)

	// Caption defaults (disabled until a provider is configured)
	v.SetDefault("caption.provider", "")
	v.SetDefault("caption.model", "gpt-4o-mini")
	v.SetDefault("caption.base_url", "")
	v.SetDefault("caption.prompt", "Describe this image in detail so it can be found by text search. Include any visible text verbatim.")
	v.SetDefault("caption.timeout_seconds", 120)
}

// BindSensitiveEnvVars binds secrets to environment variables so they never
// need to live in the config file.
func BindSensitiveEnvVars(v *viper.Viper) {
	_ = v.BindEnv("caption.api_key", "DOCFIND_CAPTION_API_KEY")
}
