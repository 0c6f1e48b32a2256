// Package convert holds the file-to-markdown converter families and their
// registration against the ingest type registry.
package convert

import (
	"go.uber.org/zap"

	"github.com/docfind/docfind/config"
	"github.com/docfind/docfind/errors"
	"github.com/docfind/docfind/ingest"
)

// RegisterDefaults binds every configured converter family to its extension
// tokens. Which extensions land in which family is configuration; the
// conversion behavior per family is fixed here.
func RegisterDefaults(reg *ingest.Registry, cfg config.IngestConfig, captioner *Captioner, logger *zap.SugaredLogger) error {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	families := []struct {
		handler ingest.Handler
		tokens  []string
	}{
		{Direct, cfg.NativeMarkdownTypes},
		{PlainText, cfg.PlainTextTypes},
		{Code, cfg.CodeTypes},
		{NewHTML().Handle, cfg.HTMLTypes},
		{Docx, cfg.StructuredTypes},
		{Drawio, cfg.DrawioTypes},
		{Xmind, cfg.XmindTypes},
		{VideoMetadata, cfg.VideoTypes},
		{NewImageHandler(captioner), cfg.ImageTypes},
	}

	for _, f := range families {
		if len(f.tokens) == 0 {
			continue
		}
		if err := reg.Register(f.handler, f.tokens...); err != nil {
			return errors.Wrap(err, "register converters")
		}
	}

	logger.Debugw("Converters registered", "types", len(reg.Types()))
	return nil
}
