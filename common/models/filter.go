package models

import (
	"fmt"
	"slices"
)

// Facet is a categorical dimension usable for filtering
type Facet string

const (
	FacetOrg      Facet = "org"
	FacetCategory Facet = "category"
	FacetVocab    Facet = "vocab"
)

// Facets lists every facet in display order
var Facets = []Facet{FacetOrg, FacetCategory, FacetVocab}

// ParseFacet validates a facet name
func ParseFacet(name string) (Facet, error) {
	for _, f := range Facets {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown facet: %s", name)
}

// FilterSelection maps a facet to its accepted values.
// A missing or empty value list means no restriction on that facet.
type FilterSelection map[Facet][]string

// Accepts reports whether value passes the facet restriction
func (s FilterSelection) Accepts(f Facet, value string) bool {
	accepted := s[f]
	if len(accepted) == 0 {
		return true
	}
	return slices.Contains(accepted, value)
}

// Toggle adds value to the facet selection, or removes it if already present.
// Returns a new selection; the receiver is not modified.
func (s FilterSelection) Toggle(f Facet, value string) FilterSelection {
	next := s.Clone()
	current := next[f]
	if idx := slices.Index(current, value); idx >= 0 {
		next[f] = slices.Delete(slices.Clone(current), idx, idx+1)
	} else {
		next[f] = append(slices.Clone(current), value)
	}
	return next
}

// Clone returns a deep copy
func (s FilterSelection) Clone() FilterSelection {
	out := make(FilterSelection, len(s))
	for f, values := range s {
		out[f] = slices.Clone(values)
	}
	return out
}

// IsEmpty reports whether no facet is restricted
func (s FilterSelection) IsEmpty() bool {
	for _, values := range s {
		if len(values) > 0 {
			return false
		}
	}
	return true
}
