package convert

import (
	"archive/zip"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/docfind/docfind/ingest"
)

// XMind archives carry their mind map either as content.json (current
// format) or content.xml (legacy). Both are a tree of titled topics; the
// markdown rendering is a nested bullet outline per sheet.

type xmindJSONSheet struct {
	RootTopic *xmindJSONTopic `json:"rootTopic"`
}

type xmindJSONTopic struct {
	Title    string `json:"title"`
	Children struct {
		Attached []xmindJSONTopic `json:"attached"`
	} `json:"children"`
}

type xmindXMLContent struct {
	Sheets []xmindXMLSheet `xml:"sheet"`
}

type xmindXMLSheet struct {
	Topic *xmindXMLTopic `xml:"topic"`
}

type xmindXMLTopic struct {
	Title  string          `xml:"title"`
	Topics []xmindXMLTopic `xml:"children>topics>topic"`
}

// Xmind converts a mind map archive to a markdown outline
func Xmind(path, fileType string) ingest.Result {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return ingest.Failed("Error opening %s: %v", filepath.Base(path), err)
	}
	defer zr.Close()

	var jsonEntry, xmlEntry *zip.File
	for _, f := range zr.File {
		switch f.Name {
		case "content.json":
			jsonEntry = f
		case "content.xml":
			xmlEntry = f
		}
	}

	switch {
	case jsonEntry != nil:
		return xmindFromJSON(path, jsonEntry)
	case xmlEntry != nil:
		return xmindFromXML(path, xmlEntry)
	default:
		return ingest.Failed("%s contains neither content.json nor content.xml", filepath.Base(path))
	}
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func xmindFromJSON(path string, entry *zip.File) ingest.Result {
	data, err := readZipEntry(entry)
	if err != nil {
		return ingest.Failed("Error reading content.json in %s: %v", filepath.Base(path), err)
	}

	var sheets []xmindJSONSheet
	if err := json.Unmarshal(data, &sheets); err != nil {
		return ingest.Failed("XMind content.json parse failed for %s: %v", filepath.Base(path), err)
	}

	var docs []string
	for _, sheet := range sheets {
		if sheet.RootTopic == nil {
			continue
		}
		var sb strings.Builder
		renderJSONTopic(&sb, *sheet.RootTopic, true, -1)
		docs = append(docs, strings.TrimSpace(sb.String()))
	}
	return ingest.Converted(strings.Join(docs, "\n\n"), ingest.ConversionXmindToMD)
}

func renderJSONTopic(sb *strings.Builder, topic xmindJSONTopic, isRoot bool, depth int) {
	title := flattenTitle(topic.Title)
	if isRoot {
		fmt.Fprintf(sb, "# %s\n\n", title)
	} else {
		fmt.Fprintf(sb, "%s- %s\n", strings.Repeat("  ", depth), title)
	}
	for _, child := range topic.Children.Attached {
		renderJSONTopic(sb, child, false, depth+1)
	}
}

func xmindFromXML(path string, entry *zip.File) ingest.Result {
	data, err := readZipEntry(entry)
	if err != nil {
		return ingest.Failed("Error reading content.xml in %s: %v", filepath.Base(path), err)
	}

	var content xmindXMLContent
	if err := xml.Unmarshal(data, &content); err != nil {
		return ingest.Failed("XMind content.xml parse failed for %s: %v", filepath.Base(path), err)
	}

	var docs []string
	for _, sheet := range content.Sheets {
		if sheet.Topic == nil {
			continue
		}
		var sb strings.Builder
		renderXMLTopic(&sb, *sheet.Topic, true, -1)
		docs = append(docs, strings.TrimSpace(sb.String()))
	}
	return ingest.Converted(strings.Join(docs, "\n\n"), ingest.ConversionXmindToMD)
}

func renderXMLTopic(sb *strings.Builder, topic xmindXMLTopic, isRoot bool, depth int) {
	title := flattenTitle(topic.Title)
	if isRoot {
		fmt.Fprintf(sb, "# %s\n\n", title)
	} else {
		fmt.Fprintf(sb, "%s- %s\n", strings.Repeat("  ", depth), title)
	}
	for _, child := range topic.Topics {
		renderXMLTopic(sb, child, false, depth+1)
	}
}

// flattenTitle keeps multi-line topic titles on one outline line
func flattenTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", "")
	return strings.ReplaceAll(title, "\n", " ")
}
