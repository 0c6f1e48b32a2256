package convert

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/docfind/docfind/ingest"
)

// draw.io files wrap one or more <diagram> pages; each page holds either
// an inline <mxGraphModel> or a base64+deflate compressed payload.
type mxFile struct {
	Diagrams []mxDiagram `xml:"diagram"`
}

type mxDiagram struct {
	Name  string        `xml:"name,attr"`
	Model *mxGraphModel `xml:"mxGraphModel"`
	Raw   string        `xml:",chardata"`
}

type mxGraphModel struct {
	Cells []mxCell `xml:"root>mxCell"`
}

type mxCell struct {
	ID    string `xml:"id,attr"`
	Value string `xml:"value,attr"`
}

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// Drawio extracts the text labels of every diagram page into a markdown
// outline. Geometry is discarded: the searchable payload of a diagram is
// what its boxes say.
func Drawio(path, fileType string) ingest.Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return ingest.Failed("Error reading file %s: %v", filepath.Base(path), err)
	}

	var file mxFile
	if err := xml.Unmarshal(data, &file); err != nil {
		return ingest.Failed("draw.io XML parse failed for %s: %v", filepath.Base(path), err)
	}
	if len(file.Diagrams) == 0 {
		return ingest.Failed("no diagram elements in %s", filepath.Base(path))
	}

	var sb strings.Builder
	total := 0
	pages := make([]string, 0, len(file.Diagrams))
	for _, d := range file.Diagrams {
		name := d.Name
		if name == "" {
			name = "Untitled page"
		}
		texts := diagramTexts(d)
		total += len(texts)

		var page strings.Builder
		fmt.Fprintf(&page, "## %s\n", name)
		if len(texts) == 0 {
			page.WriteString("\n*No text content on this page*\n")
		} else {
			page.WriteString("\n")
			for _, t := range texts {
				fmt.Fprintf(&page, "- %s\n", t)
			}
		}
		pages = append(pages, page.String())
	}

	fmt.Fprintf(&sb, "# %s\n\n", filepath.Base(path))
	fmt.Fprintf(&sb, "%d pages, %d text items\n\n---\n\n", len(file.Diagrams), total)
	sb.WriteString(strings.Join(pages, "\n"))

	return ingest.Converted(sb.String(), ingest.ConversionDrawioToMD)
}

func diagramTexts(d mxDiagram) []string {
	model := d.Model
	if model == nil {
		decoded := decodeDrawioPayload(strings.TrimSpace(d.Raw))
		if decoded == "" {
			return nil
		}
		var m mxGraphModel
		if err := xml.Unmarshal([]byte(decoded), &m); err != nil {
			return nil
		}
		model = &m
	}

	var texts []string
	for _, cell := range model.Cells {
		if cell.ID == "0" || cell.ID == "1" {
			continue
		}
		if t := cleanLabel(cell.Value); t != "" {
			texts = append(texts, t)
		}
	}
	return texts
}

// decodeDrawioPayload tries the compression variants draw.io has used over
// the years, most common first: base64 + raw deflate, base64 + zlib, plain
// base64, and finally URL-encoded text.
func decodeDrawioPayload(payload string) string {
	if payload == "" {
		return ""
	}

	if raw, err := base64.StdEncoding.DecodeString(payload); err == nil {
		if xmlText, err := inflate(raw); err == nil {
			return urlUnescape(xmlText)
		}
		if r, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			if out, err := io.ReadAll(r); err == nil {
				return urlUnescape(string(out))
			}
		}
		return urlUnescape(string(raw))
	}

	return urlUnescape(payload)
}

func inflate(data []byte) (string, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func urlUnescape(s string) string {
	if unescaped, err := url.QueryUnescape(s); err == nil {
		return unescaped
	}
	return s
}

// cleanLabel strips the inline HTML draw.io embeds in cell labels and
// collapses whitespace
func cleanLabel(value string) string {
	if value == "" {
		return ""
	}
	text := htmlTagPattern.ReplaceAllString(value, " ")
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}
