package search

import "strings"

type setSearch struct{}

func (setSearch) Name() string {
	return Set
}

func (s setSearch) Contains(needle string, haystack []string) bool {
	return s.ContainsAny([]string{needle}, haystack)
}

// ContainsAny reports whether at least one needle is present.
func (setSearch) ContainsAny(needles []string, haystack []string) bool {
	if len(needles) == 0 {
		return false
	}

	members := make(map[string]struct{}, len(haystack))
	for _, line := range haystack {
		members[strings.TrimSpace(line)] = struct{}{}
	}

	for _, needle := range needles {
		if _, ok := members[strings.TrimSpace(needle)]; ok {
			return true
		}
	}
	return false
}

func NewSetSearch() Algorithm {
	return setSearch{}
}
