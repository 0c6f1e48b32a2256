package convert

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/docfind/docfind/ingest"
)

// Docx extracts the paragraph text of a Word document from the
// word/document.xml entry of its archive. Heading styles map to markdown
// headings; everything else becomes plain paragraphs.
func Docx(path, fileType string) ingest.Result {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return ingest.Failed("Error opening %s: %v", filepath.Base(path), err)
	}
	defer zr.Close()

	var docEntry *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docEntry = f
			break
		}
	}
	if docEntry == nil {
		return ingest.Failed("word/document.xml not found in %s", filepath.Base(path))
	}

	rc, err := docEntry.Open()
	if err != nil {
		return ingest.Failed("Error reading document.xml in %s: %v", filepath.Base(path), err)
	}
	defer rc.Close()

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n", filepath.Base(path))

	decoder := xml.NewDecoder(rc)
	var inParagraph bool
	var paragraphStyle string
	var text strings.Builder

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "p":
				inParagraph = true
				paragraphStyle = ""
				text.Reset()
			case t.Name.Local == "pStyle" && inParagraph:
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						paragraphStyle = attr.Value
					}
				}
			case t.Name.Local == "tab" && inParagraph:
				text.WriteByte('\t')
			case t.Name.Local == "br" && inParagraph:
				text.WriteByte('\n')
			}

		case xml.CharData:
			if inParagraph {
				text.Write(t)
			}

		case xml.EndElement:
			if t.Name.Local == "p" && inParagraph {
				inParagraph = false
				para := strings.TrimSpace(text.String())
				if para == "" {
					continue
				}
				if level := headingLevel(paragraphStyle); level > 0 {
					fmt.Fprintf(&sb, "\n%s %s\n", strings.Repeat("#", level+1), para)
				} else {
					fmt.Fprintf(&sb, "\n%s\n", para)
				}
			}
		}
	}

	return ingest.Converted(sb.String(), ingest.ConversionStructuredMD)
}

// headingLevel maps a Word paragraph style to an outline level:
// "Heading1" → 1, "Title" → 1, "Subtitle" → 2, localized prefixes included.
func headingLevel(style string) int {
	lower := strings.ToLower(style)
	if lower == "title" {
		return 1
	}
	if lower == "subtitle" {
		return 2
	}
	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if rest, ok := strings.CutPrefix(lower, prefix); ok {
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}
