package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/angeloszaimis/string-search/internal/apperr"
)

// Load reads path and returns its non-empty trimmed lines in file order.
// Duplicates are kept.
func Load(path string) ([]string, error) {
	lines, _, err := load(path)
	return lines, err
}

// Fingerprint returns the hex BLAKE3 digest of raw dataset bytes.
func Fingerprint(raw []byte) string {
	sum := blake3.Sum256(raw)
	return fmt.Sprintf("%x", sum[:])
}

func load(path string) ([]string, string, error) {
	raw, err := readFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", apperr.FileAccess("file not found", err)
		}
		return nil, "", apperr.FileAccess("failed to load file", err)
	}

	if !utf8.Valid(raw) {
		return nil, "", apperr.Encoding("file is not valid UTF-8", nil)
	}

	return splitLines(raw), Fingerprint(raw), nil
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst":
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open zstd stream: %w", err)
		}
		defer dec.Close()
		return io.ReadAll(dec)
	case ".gz":
		dec, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		defer dec.Close()
		return io.ReadAll(dec)
	default:
		return io.ReadAll(f)
	}
}

func splitLines(raw []byte) []string {
	lines := make([]string, 0, bytes.Count(raw, []byte{'\n'})+1)
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
