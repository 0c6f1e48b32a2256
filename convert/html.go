package convert

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/docfind/docfind/ingest"
)

// HTML converts saved web pages to markdown
type HTML struct {
	conv *converter.Converter
}

// NewHTML builds the shared HTML converter. The converter is stateless
// across calls and safe to reuse for every file.
func NewHTML() *HTML {
	return &HTML{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Handle converts one HTML file
func (h *HTML) Handle(path, fileType string) ingest.Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return ingest.Failed("Error reading file %s: %v", filepath.Base(path), err)
	}

	md, err := h.conv.ConvertString(string(sanitizeUTF8(data)))
	if err != nil {
		return ingest.Failed("HTML conversion failed for %s: %v", filepath.Base(path), err)
	}
	return ingest.Converted(strings.TrimSpace(md), ingest.ConversionHTMLToMD)
}
