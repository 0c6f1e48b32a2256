package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/docfind/docfind/config"
	"github.com/docfind/docfind/errors"
	"github.com/docfind/docfind/ingest"
)

const defaultCaptionPrompt = "Describe this image in detail so it can be found by text search. " +
	"Transcribe any visible text verbatim."

// Captioner describes images with a vision-capable model
type Captioner struct {
	llm     llms.Model
	prompt  string
	timeout time.Duration
}

// NewCaptioner builds the configured vision model client. An empty
// provider returns (nil, nil): captioning is optional and its absence is a
// per-file conversion failure, not a startup failure.
func NewCaptioner(cfg config.CaptionConfig) (*Captioner, error) {
	if cfg.Provider == "" {
		return nil, nil
	}

	var model llms.Model
	var err error
	switch cfg.Provider {
	case "openai":
		opts := []openai.Option{openai.WithModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err = ollama.New(opts...)
	default:
		return nil, errors.Newf("unsupported caption provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "create %s caption model", cfg.Provider)
	}

	prompt := cfg.Prompt
	if prompt == "" {
		prompt = defaultCaptionPrompt
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &Captioner{llm: model, prompt: prompt, timeout: timeout}, nil
}

// Caption returns a textual description of the image at path
func (c *Captioner) Caption(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "read image %s", path)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryPart(imageMIME(path), data),
				llms.TextPart(c.prompt),
			},
		},
	}
	resp, err := c.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", errors.Wrap(err, "caption image")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("caption model returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

func imageMIME(path string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

// NewImageHandler returns the image conversion handler. With no captioner
// configured, image files fail conversion with an actionable message
// rather than silently storing empty documents.
func NewImageHandler(captioner *Captioner) ingest.Handler {
	return func(path, fileType string) ingest.Result {
		if captioner == nil {
			return ingest.Failed(
				"image captioning not configured; set caption.provider to ingest %s",
				filepath.Base(path),
			)
		}

		caption, err := captioner.Caption(context.Background(), path)
		if err != nil {
			return ingest.Failed("image captioning failed for %s: %v", filepath.Base(path), err)
		}

		content := fmt.Sprintf("# %s\n\n%s", filepath.Base(path), caption)
		return ingest.Converted(content, ingest.ConversionImageToMD)
	}
}
