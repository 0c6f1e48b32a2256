package config

import "github.com/docfind/docfind/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return errors.Newf("server.port must be positive, got %d", c.Server.Port)
	}

	if c.Ingest.SourceLocalFS == "" {
		return errors.New("ingest.source_local_fs cannot be empty")
	}
	if c.Ingest.MaxFilesPerSecond < 0 {
		return errors.Newf("ingest.max_files_per_second must be >= 0, got %f", c.Ingest.MaxFilesPerSecond)
	}
	if c.Ingest.HistoryLimit <= 0 {
		return errors.Newf("ingest.history_limit must be > 0, got %d", c.Ingest.HistoryLimit)
	}
	if c.Ingest.HeartbeatSeconds <= 0 {
		return errors.Newf("ingest.heartbeat_seconds must be > 0, got %d", c.Ingest.HeartbeatSeconds)
	}

	if c.Search.DefaultLimit <= 0 {
		return errors.Newf("search.default_limit must be > 0, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return errors.Newf("search.max_limit must be >= search.default_limit, got %d < %d",
			c.Search.MaxLimit, c.Search.DefaultLimit)
	}

	// Validate caption configuration only when a provider is set
	if c.Caption.Provider != "" {
		switch c.Caption.Provider {
		case "openai", "ollama":
		default:
			return errors.Newf("caption.provider must be \"openai\" or \"ollama\", got %q", c.Caption.Provider)
		}
		if c.Caption.Model == "" {
			return errors.New("caption.model cannot be empty when a provider is set")
		}
		if c.Caption.TimeoutSeconds <= 0 {
			return errors.Newf("caption.timeout_seconds must be > 0, got %d", c.Caption.TimeoutSeconds)
		}
	}

	return nil
}
