// Package scopes holds the space-delimited scope lists of OAuth2 requests
// and the rules deciding whether a requested list is acceptable.
package scopes

import (
	"slices"
	"strings"
)

// Scopes is an ordered set of scope names.
type Scopes []string

// New builds a Scopes from names, dropping blanks and duplicates.
func New(names ...string) Scopes {
	return Scopes{}.Add(names...)
}

// FromString splits a space-delimited scope string.
func FromString(s string) Scopes {
	return New(strings.Fields(s)...)
}

func (s Scopes) String() string {
	return strings.Join(s, " ")
}

func (s Scopes) IsEmpty() bool {
	return len(s) == 0
}

func (s Scopes) Has(name string) bool {
	return slices.Contains(s, name)
}

// HasAll reports whether every scope in other is present in s.
func (s Scopes) HasAll(other Scopes) bool {
	for _, name := range other {
		if !s.Has(name) {
			return false
		}
	}
	return true
}

// Equal reports whether s and other hold the same scopes in any order.
func (s Scopes) Equal(other Scopes) bool {
	return len(s) == len(other) && s.HasAll(other) && other.HasAll(s)
}

// Add returns a copy of s with names appended, skipping blanks and duplicates.
func (s Scopes) Add(names ...string) Scopes {
	out := make(Scopes, 0, len(s)+len(names))
	out = append(out, s...)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || out.Has(name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// IsValid reports whether requested is an acceptable scope string: non-blank,
// free of control whitespace, and contained in the server scopes. When the
// client restricts its scopes, requested must also be contained in them.
func IsValid(requested string, server Scopes, client Scopes) bool {
	if strings.TrimSpace(requested) == "" {
		return false
	}
	if strings.ContainsAny(requested, "\r\n\t") {
		return false
	}

	want := FromString(requested)
	if !server.HasAll(want) {
		return false
	}
	if !client.IsEmpty() && !client.HasAll(want) {
		return false
	}
	return true
}
