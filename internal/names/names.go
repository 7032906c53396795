// Package names normalizes identity display names into comparison keys.
// Two names refer to the same identity when their keys are equal.
package names

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Key returns the case-insensitive comparison key for a display name:
// surrounding whitespace trimmed, NFC-normalized, Unicode case-folded.
func Key(name string) string {
	s := norm.NFC.String(strings.TrimSpace(name))
	// Casers keep state, so a fresh one is used per call.
	return cases.Fold().String(s)
}

// Equal reports whether two display names refer to the same identity.
func Equal(a, b string) bool {
	return Key(a) == Key(b)
}

// Set is a set of name keys.
type Set map[string]struct{}

// NewSet builds a set from display names. Blank names are skipped.
func NewSet(names ...string) Set {
	set := make(Set, len(names))
	for _, n := range names {
		if k := Key(n); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

// Contains reports whether name (in any casing) is in the set.
func (s Set) Contains(name string) bool {
	_, ok := s[Key(name)]
	return ok
}
