package ingest

import (
	"fmt"
	"strings"
)

// ConversionType records which converter family produced a document's markdown
type ConversionType string

const (
	ConversionDirect        ConversionType = "DIRECT"
	ConversionTextToMD      ConversionType = "TEXT_TO_MD"
	ConversionCodeToMD      ConversionType = "CODE_TO_MD"
	ConversionStructuredMD  ConversionType = "STRUCTURED_TO_MD"
	ConversionImageToMD     ConversionType = "IMAGE_TO_MD"
	ConversionVideoMetadata ConversionType = "VIDEO_METADATA"
	ConversionDrawioToMD    ConversionType = "DRAWIO_TO_MD"
	ConversionXmindToMD     ConversionType = "XMIND_TO_MD"
	ConversionHTMLToMD      ConversionType = "HTML_TO_MD"
)

// Result is the immutable outcome of one conversion attempt.
//
// Build values with Converted or Failed; the zero value is invalid.
// Invariant: Success == true iff Content and Type are set and Err is empty;
// Success == false iff Err is set and Type is empty.
type Result struct {
	Success bool           `json:"success"`
	Content string         `json:"content,omitempty"`
	Type    ConversionType `json:"conversion_type,omitempty"`
	Err     string         `json:"error,omitempty"`
}

// Converted builds a successful Result. NUL characters are stripped from the
// content before the result is considered final — columns and search backends
// reject them.
func Converted(content string, ctype ConversionType) Result {
	return Result{
		Success: true,
		Content: strings.ReplaceAll(content, "\x00", ""),
		Type:    ctype,
	}
}

// Failed builds a failed Result carrying the error detail
func Failed(format string, args ...any) Result {
	return Result{
		Success: false,
		Err:     fmt.Sprintf(format, args...),
	}
}

// Valid reports whether the value satisfies the Result invariant.
// Content may legitimately be empty on success (an empty markdown file
// converts to an empty document), so only Type and Err are load-bearing.
func (r Result) Valid() bool {
	if r.Success {
		return r.Type != "" && r.Err == ""
	}
	return r.Err != "" && r.Type == "" && r.Content == ""
}
