package explore

import (
	"slices"
	"strings"
)

// KeywordSet is an ordered set of free-text search keywords
type KeywordSet struct {
	values []string
}

// NewKeywordSet builds a set from values, dropping blanks and duplicates
func NewKeywordSet(values ...string) KeywordSet {
	var ks KeywordSet
	for _, v := range values {
		ks = ks.Add(v)
	}
	return ks
}

// Add returns a set with keyword appended. Blank or already present
// keywords leave the set unchanged.
func (ks KeywordSet) Add(keyword string) KeywordSet {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" || slices.Contains(ks.values, keyword) {
		return ks
	}
	return KeywordSet{values: append(slices.Clone(ks.values), keyword)}
}

// Remove returns a set without keyword
func (ks KeywordSet) Remove(keyword string) KeywordSet {
	idx := slices.Index(ks.values, keyword)
	if idx < 0 {
		return ks
	}
	return KeywordSet{values: slices.Delete(slices.Clone(ks.values), idx, idx+1)}
}

// Values returns the keywords in insertion order
func (ks KeywordSet) Values() []string {
	return slices.Clone(ks.values)
}

// Len returns the number of keywords
func (ks KeywordSet) Len() int {
	return len(ks.values)
}

func (ks KeywordSet) lowered() []string {
	out := make([]string, len(ks.values))
	for i, v := range ks.values {
		out[i] = strings.ToLower(v)
	}
	return out
}
