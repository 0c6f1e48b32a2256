package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/docfind/docfind/errors"
)

// Metadata is the normalized description of a file on disk
type Metadata struct {
	FileName   string    // base name, as stored on disk
	FileType   string    // extension without the dot, lower-cased
	FileSize   int64     // bytes
	CreatedAt  time.Time // UTC; best effort, falls back to mtime where the platform has no ctime
	ModifiedAt time.Time // UTC
	Path       string    // absolute, NFC-normalized, forward slashes, case preserved
}

// Probe stats a path and returns its normalized metadata.
// A path that no longer exists returns (nil, nil) — files vanishing between
// directory listing and probe is an expected race, not a fault.
func Probe(path string) (*Metadata, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", path)
	}

	normalized, err := NormalizePath(path)
	if err != nil {
		return nil, err
	}

	return &Metadata{
		FileName:   info.Name(),
		FileType:   ExtensionToken(path),
		FileSize:   info.Size(),
		CreatedAt:  createdTime(info).UTC(),
		ModifiedAt: info.ModTime().UTC(),
		Path:       normalized,
	}, nil
}

// NormalizePath converts a path to its canonical form: absolute,
// Unicode NFC, single separator style. Case is preserved; comparisons
// are the storage layer's concern.
func NormalizePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "resolve absolute path for %s", path)
	}
	return norm.NFC.String(filepath.ToSlash(abs)), nil
}

// ExtensionToken returns the lower-cased extension without the dot,
// or "" for files with no extension.
func ExtensionToken(path string) string {
	ext := filepath.Ext(path)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
