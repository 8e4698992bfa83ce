package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveRecordID(t *testing.T) {
	assert.Equal(t, "QS0xMjMtR2x1Y29zZSwgZmFzdGluZy01", DeriveRecordID("A", "123", "Glucose, fasting", 5))

	// UTF-8 bytes are encoded, not code points
	assert.Equal(t, "w5wtMS14LTA=", DeriveRecordID("Ü", "1", "x", 0))

	// Stable across calls
	assert.Equal(t, DeriveRecordID("B", "9", "y", 3), DeriveRecordID("B", "9", "y", 3))
}

func TestDeriveRecordIDText(t *testing.T) {
	assert.Equal(t, DeriveRecordID("A", "123", "Glucose, fasting", 1234), DeriveRecordIDText("A", "123", "Glucose, fasting", "1234"))

	// thousands separators are part of the id
	grouped := DeriveRecordIDText("A", "123", "Glucose, fasting", "1,234")
	assert.Equal(t, "QS0xMjMtR2x1Y29zZSwgZmFzdGluZy0xLDIzNA==", grouped)
	assert.NotEqual(t, DeriveRecordID("A", "123", "Glucose, fasting", 1234), grouped)
}

func TestNormalizeTagText(t *testing.T) {
	text, err := NormalizeTagText("  urgent \n")
	require.NoError(t, err)
	assert.Equal(t, "urgent", text)

	_, err = NormalizeTagText("   ")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestFilterSelection_Accepts(t *testing.T) {
	sel := FilterSelection{FacetOrg: {"A"}, FacetCategory: {}}

	assert.True(t, sel.Accepts(FacetOrg, "A"))
	assert.False(t, sel.Accepts(FacetOrg, "B"))

	// Empty and missing selections do not restrict
	assert.True(t, sel.Accepts(FacetCategory, "anything"))
	assert.True(t, sel.Accepts(FacetVocab, "anything"))
}

func TestFilterSelection_Toggle(t *testing.T) {
	base := FilterSelection{}

	on := base.Toggle(FacetOrg, "A")
	assert.Equal(t, []string{"A"}, on[FacetOrg])
	assert.Empty(t, base[FacetOrg], "toggle must not mutate the receiver")

	off := on.Toggle(FacetOrg, "A")
	assert.Empty(t, off[FacetOrg])
	assert.Equal(t, []string{"A"}, on[FacetOrg])
	assert.True(t, off.IsEmpty())
}

func TestParseFacet(t *testing.T) {
	f, err := ParseFacet("vocab")
	require.NoError(t, err)
	assert.Equal(t, FacetVocab, f)

	_, err = ParseFacet("colour")
	assert.Error(t, err)
}

func TestTag_IsPlaceholder(t *testing.T) {
	assert.True(t, (&Tag{ID: TempTagPrefix + "01H"}).IsPlaceholder())
	assert.True(t, (&Tag{ID: "x", Pending: true}).IsPlaceholder())
	assert.False(t, (&Tag{ID: "3f1c"}).IsPlaceholder())
}

func TestGroupTagsByRecord(t *testing.T) {
	grouped := GroupTagsByRecord([]Tag{
		{ID: "1", RecordID: "r1", Text: "a"},
		{ID: "2", RecordID: "r2", Text: "b"},
		{ID: "3", RecordID: "r1", Text: "c"},
	})

	require.Len(t, grouped["r1"], 2)
	assert.Equal(t, "a", grouped["r1"][0].Text)
	assert.Equal(t, "c", grouped["r1"][1].Text)
	assert.Len(t, grouped["r2"], 1)
}
