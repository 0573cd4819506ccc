package domain

import (
	"slices"
	"strings"
)

// Transitions describes the allowed moves of a lifecycle status. States with
// no outgoing edges are terminal.
type Transitions[S ~string] map[S][]S

// Allows reports whether moving from one status to another is permitted.
func (t Transitions[S]) Allows(from, to S) bool {
	return slices.Contains(t[from], to)
}

// Terminal reports whether the status has no outgoing transitions.
func (t Transitions[S]) Terminal(status S) bool {
	_, known := t[status]
	return known && len(t[status]) == 0
}

// Known reports whether the status appears in the table.
func (t Transitions[S]) Known(status S) bool {
	_, ok := t[status]
	return ok
}

// ParseStatus normalizes a raw status string.
func ParseStatus[S ~string](raw string) S {
	return S(strings.ToLower(strings.TrimSpace(raw)))
}
