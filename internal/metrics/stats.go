package metrics

import (
	"sync"
	"time"
)

type Stats struct {
	mutex         sync.RWMutex
	totalQueries  int64
	avgResponseMs float64
	active        int
	maxConcurrent int
	startTime     time.Time
}

type Snapshot struct {
	TotalQueries  int64         `json:"total_queries"`
	AvgResponseMs float64       `json:"avg_response_time"`
	MaxConcurrent int           `json:"max_concurrent"`
	Active        int           `json:"active"`
	Uptime        time.Duration `json:"uptime"`
}

func NewStats() *Stats {
	return &Stats{
		startTime: time.Now(),
	}
}

// Begin marks a handler as active and raises the concurrency high-water mark
// if needed.
func (s *Stats) Begin() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.active++
	s.maxConcurrent = max(s.maxConcurrent, s.active)
}

// End marks a handler as finished.
func (s *Stats) End() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.active > 0 {
		s.active--
	}
}

// Record counts one answered query and folds its search time into the
// running mean: avg = (avg*(n-1) + sample) / n.
func (s *Stats) Record(sample time.Duration) {
	ms := float64(sample) / float64(time.Millisecond)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.totalQueries++
	n := float64(s.totalQueries)
	s.avgResponseMs = (s.avgResponseMs*(n-1) + ms) / n
}

func (s *Stats) Snapshot() Snapshot {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return Snapshot{
		TotalQueries:  s.totalQueries,
		AvgResponseMs: s.avgResponseMs,
		MaxConcurrent: s.maxConcurrent,
		Active:        s.active,
		Uptime:        time.Since(s.startTime),
	}
}
