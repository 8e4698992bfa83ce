package models

import (
	"encoding/base64"
	"strconv"
	"time"
)

// Record represents one imported data row (a coded concept with its
// organizational metadata)
// Maps to: records table
type Record struct {
	// Stable identifier, unique within an active data_version
	ID string `db:"id" json:"id"`

	CodeID      string  `db:"code_id" json:"code_id"`
	CodeDisplay string  `db:"code_display" json:"code_display"`
	ConceptID   *string `db:"concept_id" json:"concept_id,omitempty"`
	ConceptName *string `db:"concept_name" json:"concept_name,omitempty"`

	// Facet columns
	Org      string `db:"org" json:"org"`
	Category string `db:"category" json:"category"`
	Vocab    string `db:"vocab" json:"vocab"`

	Count int64 `db:"count" json:"count"`

	// Versioning: re-imports supersede rows by flipping is_active on the old version
	IsActive    bool      `db:"is_active" json:"is_active"`
	DataVersion string    `db:"data_version" json:"data_version"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	// Attached after load, not a column
	Tags []Tag `db:"-" json:"tags"`
}

// FacetValue returns the record's value for a facet
func (r *Record) FacetValue(f Facet) string {
	switch f {
	case FacetOrg:
		return r.Org
	case FacetCategory:
		return r.Category
	case FacetVocab:
		return r.Vocab
	default:
		return ""
	}
}

// TagTexts returns the labels of the attached tags in order
func (r *Record) TagTexts() []string {
	texts := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		texts = append(texts, t.Text)
	}
	return texts
}

// DeriveRecordID builds the content-derived identifier used when a row has
// no backend-assigned id: base64 of "org-code_id-code_display-count"
func DeriveRecordID(org, codeID, codeDisplay string, count int64) string {
	return DeriveRecordIDText(org, codeID, codeDisplay, strconv.FormatInt(count, 10))
}

// DeriveRecordIDText is DeriveRecordID for a count still in its source
// text. The text is used as written, so "1,234" and "1234" give different
// ids; importers must pass the cell exactly as the file had it.
func DeriveRecordIDText(org, codeID, codeDisplay, count string) string {
	unique := org + "-" + codeID + "-" + codeDisplay + "-" + count
	return base64.StdEncoding.EncodeToString([]byte(unique))
}

// DataVersion describes one import batch
// Maps to: data_versions table
type DataVersion struct {
	Version     string    `db:"version" json:"version"`
	RecordCount int64     `db:"record_count" json:"record_count"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	Notes       *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
