package model

import "strings"

// ClassifierSourceMarker is the canonical source line recorded on posts that
// received classifier tags. Older tools wrote it with varying case, Ensure
// rewrites those to this spelling.
const ClassifierSourceMarker = "Deepbooru"

// SourceList is an ordered, duplicate-free list of source lines. Posts store
// sources as a single newline-joined text field, so every mutation goes
// through this type to keep ordering and uniqueness stable.
type SourceList []string

func ParseSources(text string) SourceList {
	var out SourceList
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = out.Merge(line)
	}
	return out
}

// Merge appends the given lines that are not already present, preserving the
// order of first occurrence.
func (s SourceList) Merge(lines ...string) SourceList {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || s.Contains(line) {
			continue
		}
		s = append(s, line)
	}
	return s
}

// Ensure guarantees exactly one entry equal to marker. An existing entry that
// differs only in case is rewritten to the canonical spelling, otherwise the
// marker is appended. Applying Ensure twice equals applying it once.
func (s SourceList) Ensure(marker string) SourceList {
	for i, line := range s {
		if strings.EqualFold(line, marker) {
			s[i] = marker
			return s
		}
	}
	return append(s, marker)
}

func (s SourceList) Remove(entry string) SourceList {
	out := s[:0]
	for _, line := range s {
		if strings.EqualFold(line, entry) {
			continue
		}
		out = append(out, line)
	}
	return out
}

func (s SourceList) Contains(entry string) bool {
	for _, line := range s {
		if line == entry {
			return true
		}
	}
	return false
}

func (s SourceList) String() string {
	return strings.Join(s, "\n")
}
