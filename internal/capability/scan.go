package capability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
)

const (
	// DefaultMarker precedes the documents of interest.
	DefaultMarker = "Bulk endpoint response"
	// DefaultMaxSourceBytes caps how much of one source is read.
	DefaultMaxSourceBytes = 64 * 1024 * 1024 // 64MB
)

// ScanConfig selects what FindJSON searches.
type ScanConfig struct {
	// Sources are file paths or glob patterns.
	Sources        []string `yaml:"sources"`
	Marker         string   `yaml:"marker"`
	MaxSourceBytes int64    `yaml:"max_source_bytes"`
}

// Scanner finds JSON documents that follow a marker in its sources.
type Scanner struct {
	log *slog.Logger
	cfg ScanConfig
}

// NewScanner creates a Scanner. Missing config values use the defaults.
func NewScanner(log *slog.Logger, cfg *ScanConfig) *Scanner {
	c := ScanConfig{}
	if cfg != nil {
		c = *cfg
	}

	if c.Marker == "" {
		c.Marker = DefaultMarker
	}

	if c.MaxSourceBytes <= 0 {
		c.MaxSourceBytes = DefaultMaxSourceBytes
	}

	return &Scanner{log: log, cfg: c}
}

// Scan returns every distinct valid JSON object found after an occurrence of
// the marker, in discovery order. Unreadable sources are logged and skipped.
func (s *Scanner) Scan(ctx context.Context) ([]string, error) {
	paths, err := s.expand()
	if err != nil {
		return nil, err
	}

	s.log.Debug("Beginning scan", "sources", len(paths), "marker", s.cfg.Marker)

	seen := make(map[uint64]struct{})

	var docs []string

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return docs, err
		}

		data, err := s.read(path)
		if err != nil {
			s.log.Warn("Skipping unreadable source", "path", path, "error", err)

			continue
		}

		for _, doc := range FindAfterMarker(data, s.cfg.Marker) {
			if !json.Valid([]byte(doc)) {
				s.log.Debug("Discarding invalid JSON candidate", "path", path, "length", len(doc))

				continue
			}

			h := xxhash.Sum64String(doc)
			if _, dup := seen[h]; dup {
				continue
			}

			seen[h] = struct{}{}
			docs = append(docs, doc)
		}
	}

	s.log.Debug("Finished scan", "documents", len(docs))

	return docs, nil
}

func (s *Scanner) expand() ([]string, error) {
	var paths []string

	for _, src := range s.cfg.Sources {
		matches, err := filepath.Glob(src)
		if err != nil {
			return nil, fmt.Errorf("expand source %q: %w", src, err)
		}

		if len(matches) == 0 {
			// Let read report the missing file.
			matches = []string{src}
		}

		paths = append(paths, matches...)
	}

	return paths, nil
}

func (s *Scanner) read(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxSourceBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	return string(data), nil
}

// FindAfterMarker extracts, for each occurrence of marker in data, the first
// balanced JSON object that follows it.
func FindAfterMarker(data, marker string) []string {
	if marker == "" {
		return nil
	}

	var out []string

	for offset := 0; ; {
		i := strings.Index(data[offset:], marker)
		if i < 0 {
			return out
		}

		start := offset + i + len(marker)

		if doc, ok := ExtractObject(data[start:]); ok {
			out = append(out, doc)
		}

		offset = start
	}
}

// ExtractObject returns the first balanced {...} object in s.
//
// Braces inside string literals are ignored and escaped quotes do not end a
// string. Square and round brackets must balance inside the object; any
// closing bracket without its opener rejects the candidate.
func ExtractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	var (
		curly, square, round int
		backslashes          int
		inString             bool
	)

	for i := start; i < len(s); i++ {
		c := s[i]

		if c == '\\' {
			backslashes++

			continue
		}

		escaped := backslashes%2 == 1
		backslashes = 0

		if c == '"' {
			if !(inString && escaped) {
				inString = !inString
			}

			continue
		}

		if inString {
			continue
		}

		switch c {
		case '{':
			curly++
		case '}':
			curly--
		case '[':
			square++
		case ']':
			square--
		case '(':
			round++
		case ')':
			round--
		}

		if curly < 0 || square < 0 || round < 0 {
			return "", false
		}

		if c == '}' && curly == 0 {
			if square != 0 || round != 0 {
				return "", false
			}

			return s[start : i+1], true
		}
	}

	return "", false
}
