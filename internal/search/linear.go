package search

import "strings"

type linearSearch struct{}

func (linearSearch) Name() string {
	return Linear
}

func (linearSearch) Contains(needle string, haystack []string) bool {
	needle = strings.TrimSpace(needle)
	for _, line := range haystack {
		if strings.TrimSpace(line) == needle {
			return true
		}
	}
	return false
}

func NewLinearSearch() Algorithm {
	return linearSearch{}
}
