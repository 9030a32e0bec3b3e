package dataset

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Provider supplies the lines a request is searched against. Implementations
// must be safe for concurrent use.
type Provider interface {
	Lines() ([]string, error)
	// Rereads reports whether every call goes back to the file.
	Rereads() bool
}

// Snapshot holds lines loaded once at startup. The slice is never written
// after construction so readers need no lock.
type Snapshot struct {
	lines       []string
	fingerprint string
}

func NewSnapshot(path string, logger *slog.Logger) (*Snapshot, error) {
	start := time.Now()
	lines, fingerprint, err := load(path)
	if err != nil {
		return nil, err
	}

	logger.Info("Dataset loaded",
		slog.String("path", path),
		slog.Int("lines", len(lines)),
		slog.String("blake3", fingerprint),
		slog.Duration("took", time.Since(start)))

	return &Snapshot{lines: lines, fingerprint: fingerprint}, nil
}

func (s *Snapshot) Lines() ([]string, error) {
	return s.lines, nil
}

func (s *Snapshot) Rereads() bool {
	return false
}

func (s *Snapshot) Fingerprint() string {
	return s.fingerprint
}

// Reread loads the file on every call. There is no caching between requests;
// only the last seen fingerprint is kept so content changes can be logged.
type Reread struct {
	path   string
	logger *slog.Logger
	last   atomic.Value // string
}

func NewReread(path string, logger *slog.Logger) *Reread {
	r := &Reread{path: path, logger: logger}
	r.last.Store("")
	return r
}

func (r *Reread) Lines() ([]string, error) {
	start := time.Now()
	lines, fingerprint, err := load(r.path)
	if err != nil {
		r.logger.Error("Error loading file",
			slog.String("path", r.path),
			slog.Any("err", err))
		return nil, err
	}

	r.logger.Debug("File reread",
		slog.String("path", r.path),
		slog.Int("lines", len(lines)),
		slog.Duration("took", time.Since(start)))

	if prev := r.last.Swap(fingerprint).(string); prev != "" && prev != fingerprint {
		r.logger.Info("Dataset changed on disk",
			slog.String("path", r.path),
			slog.String("blake3", fingerprint))
	}

	return lines, nil
}

func (r *Reread) Rereads() bool {
	return true
}

// New returns a Reread provider when reread is set, otherwise a Snapshot.
func New(path string, reread bool, logger *slog.Logger) (Provider, error) {
	if reread {
		return NewReread(path, logger), nil
	}

	snapshot, err := NewSnapshot(path, logger)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}
