package search

import (
	"fmt"
	"strings"
	"time"
)

const (
	Linear      = "linear"
	Binary      = "binary"
	Jump        = "jump"
	Exponential = "exponential"
	Set         = "set"
)

// Algorithm reports whether needle equals a full line of haystack. Both the
// needle and every line are compared with surrounding whitespace trimmed.
type Algorithm interface {
	Name() string
	Contains(needle string, haystack []string) bool
}

// MultiSearcher is implemented by algorithms that can test several needles in
// one pass over the dataset.
type MultiSearcher interface {
	ContainsAny(needles []string, haystack []string) bool
}

// Names lists every algorithm accepted by New, in a stable order.
func Names() []string {
	return []string{Linear, Binary, Jump, Exponential, Set}
}

func New(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Linear:
		return NewLinearSearch(), nil
	case Binary:
		return NewBinarySearch(), nil
	case Jump:
		return NewJumpSearch(), nil
	case Exponential:
		return NewExponentialSearch(), nil
	case Set:
		return NewSetSearch(), nil
	default:
		return nil, fmt.Errorf("unknown search algorithm %q", name)
	}
}

// Run searches haystack for the trimmed needle and reports how long it took.
func Run(alg Algorithm, needle string, haystack []string) (bool, time.Duration) {
	start := time.Now()
	found := alg.Contains(strings.TrimSpace(needle), haystack)
	return found, time.Since(start)
}
