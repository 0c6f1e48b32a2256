package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/docfind/docfind/ingest"
)

// Direct passes native markdown through unchanged
func Direct(path, fileType string) ingest.Result {
	text, res := readText(path)
	if !res.Success {
		return res
	}
	return ingest.Converted(text, ingest.ConversionDirect)
}

// PlainText wraps plain text under a title heading so every stored
// document opens with its file name
func PlainText(path, fileType string) ingest.Result {
	text, res := readText(path)
	if !res.Success {
		return res
	}
	content := fmt.Sprintf("# %s\n\n%s", filepath.Base(path), text)
	return ingest.Converted(content, ingest.ConversionTextToMD)
}

// Code fences source files with their language token so rendered search
// results keep syntax highlighting
func Code(path, fileType string) ingest.Result {
	text, res := readText(path)
	if !res.Success {
		return res
	}
	lang := strings.ToLower(fileType)
	content := fmt.Sprintf("# %s\n\n```%s\n%s\n```", filepath.Base(path), lang, text)
	return ingest.Converted(content, ingest.ConversionCodeToMD)
}

// readText reads a file as UTF-8, dropping invalid byte sequences rather
// than failing: text files in the wild carry mixed encodings and a lossy
// read beats no document at all.
func readText(path string) (string, ingest.Result) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", ingest.Failed("Error reading file %s: %v", filepath.Base(path), err)
	}
	return string(sanitizeUTF8(data)), ingest.Result{Success: true}
}

func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}
	return []byte(strings.ToValidUTF8(string(data), ""))
}
