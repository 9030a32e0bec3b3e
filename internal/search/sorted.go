package search

import (
	"math"
	"slices"
	"sort"
	"strings"
)

// sortedCopy trims and sorts a copy of haystack. The sorted algorithms call it
// on every lookup so the caller's slice is never reordered.
func sortedCopy(haystack []string) []string {
	sorted := make([]string, len(haystack))
	for i, line := range haystack {
		sorted[i] = strings.TrimSpace(line)
	}
	slices.Sort(sorted)
	return sorted
}

func binaryContains(needle string, sorted []string) bool {
	i := sort.SearchStrings(sorted, needle)
	return i < len(sorted) && sorted[i] == needle
}

type binarySearch struct{}

func (binarySearch) Name() string {
	return Binary
}

func (binarySearch) Contains(needle string, haystack []string) bool {
	return binaryContains(strings.TrimSpace(needle), sortedCopy(haystack))
}

func NewBinarySearch() Algorithm {
	return binarySearch{}
}

type jumpSearch struct{}

func (jumpSearch) Name() string {
	return Jump
}

func (jumpSearch) Contains(needle string, haystack []string) bool {
	needle = strings.TrimSpace(needle)
	sorted := sortedCopy(haystack)
	n := len(sorted)
	if n == 0 {
		return false
	}

	step := int(math.Sqrt(float64(n)))
	if step < 1 {
		step = 1
	}

	prev, curr := 0, 0
	for curr < n && sorted[curr] <= needle {
		prev = curr
		curr = min(curr+step, n)
	}

	for i := prev; i < curr; i++ {
		if sorted[i] == needle {
			return true
		}
	}
	return false
}

func NewJumpSearch() Algorithm {
	return jumpSearch{}
}

type exponentialSearch struct{}

func (exponentialSearch) Name() string {
	return Exponential
}

func (exponentialSearch) Contains(needle string, haystack []string) bool {
	needle = strings.TrimSpace(needle)
	sorted := sortedCopy(haystack)
	n := len(sorted)
	if n == 0 {
		return false
	}
	if sorted[0] == needle {
		return true
	}

	bound := 1
	for bound < n && sorted[bound] <= needle {
		bound *= 2
	}

	return binaryContains(needle, sorted[bound/2:min(bound, n)])
}

func NewExponentialSearch() Algorithm {
	return exponentialSearch{}
}
