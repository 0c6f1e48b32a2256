package ingest

import (
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docfind/docfind/config"
	"github.com/docfind/docfind/errors"
)

// ErrBadDate marks an unparseable date filter. Fatal to the run:
// no partial scan results are ever returned.
var ErrBadDate = errors.New("invalid date format")

// SidecarSuffix marks optional per-file metadata sidecars. Sidecars are
// never scanned as documents themselves.
const SidecarSuffix = ".meta.json"

// ScanOptions filters a directory scan
type ScanOptions struct {
	Recursive bool
	Types     []string   // extension tokens; empty = all supported
	DateFrom  *time.Time // inclusive lower bound on mtime
	DateTo    *time.Time // inclusive upper bound on mtime
}

// Scanner walks a directory tree and returns candidate files in
// deterministic (lexical) order. Downstream progress percentages are
// computed from list position, so ordering is part of the contract.
type Scanner struct {
	cfg    config.IngestConfig
	logger *zap.SugaredLogger
}

// NewScanner creates a Scanner with the configured exclusion rules
func NewScanner(cfg config.IngestConfig, logger *zap.SugaredLogger) *Scanner {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Scanner{cfg: cfg, logger: logger}
}

// ParseDateRange parses user-supplied date filter strings.
// Accepts "2006-01-02" or RFC 3339. A bare date means local midnight UTC
// for the lower bound and end of that calendar day for the upper bound.
// Returns ErrBadDate-wrapped errors on unparseable input.
func ParseDateRange(fromStr, toStr string) (*time.Time, *time.Time, error) {
	var from, to *time.Time

	if fromStr != "" {
		t, err := parseDate(fromStr)
		if err != nil {
			return nil, nil, errors.Wrapf(ErrBadDate, "date_from %q", fromStr)
		}
		from = &t
	}
	if toStr != "" {
		t, err := parseDate(toStr)
		if err != nil {
			return nil, nil, errors.Wrapf(ErrBadDate, "date_to %q", toStr)
		}
		// Inclusive through the end of the calendar day
		if len(toStr) == len("2006-01-02") {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		to = &t
	}
	return from, to, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Scan returns the ordered list of absolute normalized paths under root
// matching the options. Directory exclusions are applied during traversal:
// children of excluded directories are never visited.
func (s *Scanner) Scan(root string, opts ScanOptions) ([]string, error) {
	typeFilter := make(map[string]bool, len(opts.Types))
	for _, t := range opts.Types {
		typeFilter[strings.ToLower(strings.TrimSpace(t))] = true
	}
	excludedExt := make(map[string]bool, len(s.cfg.ExcludedExtensions))
	for _, e := range s.cfg.ExcludedExtensions {
		excludedExt[strings.ToLower(e)] = true
	}

	var matched []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return errors.Wrapf(err, "scan root %s inaccessible", root)
			}
			// Vanished or unreadable entries below the root are skipped,
			// not fatal
			s.logger.Debugw("Skipping unreadable entry", "path", path, "error", err)
			return nil
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			if s.excludedDir(d.Name()) {
				return filepath.SkipDir
			}
			if !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasSuffix(path, SidecarSuffix) {
			return nil
		}

		ext := ExtensionToken(path)
		if excludedExt[ext] {
			return nil
		}
		if len(typeFilter) > 0 && !typeFilter[ext] {
			return nil
		}

		meta, err := Probe(path)
		if err != nil {
			return err
		}
		if meta == nil {
			// Disappeared between listing and probe
			return nil
		}

		if opts.DateFrom != nil && meta.ModifiedAt.Before(*opts.DateFrom) {
			return nil
		}
		if opts.DateTo != nil && meta.ModifiedAt.After(*opts.DateTo) {
			return nil
		}

		matched = append(matched, meta.Path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debugw("Scan complete", "root", root, "matched", len(matched))
	return matched, nil
}

// excludedDir reports directories pruned from traversal: exact-name
// exclusions plus suffix exclusions (".assets" sidecar folders of
// note-taking tools).
func (s *Scanner) excludedDir(name string) bool {
	for _, n := range s.cfg.ExcludedDirNames {
		if name == n {
			return true
		}
	}
	for _, suffix := range s.cfg.ExcludedDirSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
