// Package explore holds the client-side record pipeline: keyword search,
// facet filtering, pagination and tag colour assignment. Every function here
// is pure; callers own caching.
package explore

import (
	"sort"
	"strings"

	"github.com/lyzr/explorer/common/models"
)

// VisibleRecords returns the records that match every keyword and every
// restricted facet, in the order they appear in all
func VisibleRecords(all []models.Record, keywords KeywordSet, filters models.FilterSelection) []models.Record {
	lowered := keywords.lowered()

	visible := make([]models.Record, 0, len(all))
	for i := range all {
		if MatchesKeywords(&all[i], lowered) && MatchesFilters(&all[i], filters) {
			visible = append(visible, all[i])
		}
	}
	return visible
}

// MatchesKeywords reports whether the record satisfies every keyword.
// Keywords must already be lower-cased. A keyword matches when it is a
// substring of the display name, concept name, code id or any tag text.
func MatchesKeywords(r *models.Record, lowered []string) bool {
	for _, kw := range lowered {
		if !matchesKeyword(r, kw) {
			return false
		}
	}
	return true
}

func matchesKeyword(r *models.Record, kw string) bool {
	if containsFold(r.CodeDisplay, kw) {
		return true
	}
	if r.ConceptName != nil && containsFold(*r.ConceptName, kw) {
		return true
	}
	if containsFold(r.CodeID, kw) {
		return true
	}
	for _, t := range r.Tags {
		if containsFold(t.Text, kw) {
			return true
		}
	}
	return false
}

func containsFold(field, loweredKeyword string) bool {
	return field != "" && strings.Contains(strings.ToLower(field), loweredKeyword)
}

// MatchesFilters reports whether the record's value is accepted for every
// facet that has a non-empty selection
func MatchesFilters(r *models.Record, filters models.FilterSelection) bool {
	for _, f := range models.Facets {
		if !filters.Accepts(f, r.FacetValue(f)) {
			return false
		}
	}
	return true
}

// FacetOptions computes the sorted distinct values of each facet. An empty
// string is a value like any other and sorts first.
func FacetOptions(all []models.Record) map[models.Facet][]string {
	seen := make(map[models.Facet]map[string]struct{}, len(models.Facets))
	for _, f := range models.Facets {
		seen[f] = make(map[string]struct{})
	}

	for i := range all {
		for _, f := range models.Facets {
			seen[f][all[i].FacetValue(f)] = struct{}{}
		}
	}

	options := make(map[models.Facet][]string, len(models.Facets))
	for f, values := range seen {
		list := make([]string, 0, len(values))
		for v := range values {
			list = append(list, v)
		}
		sort.Strings(list)
		options[f] = list
	}
	return options
}
