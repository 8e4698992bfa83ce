package repository

import (
	"context"
	"fmt"

	"github.com/lyzr/explorer/common/dbx"
	"github.com/lyzr/explorer/common/models"
)

// MaxFetchRange is the largest row window FetchRecords serves in one call
const MaxFetchRange = 5000

// RecordRepository handles read access to imported records
type RecordRepository struct {
	db dbx.DBTX
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db dbx.DBTX) *RecordRepository {
	return &RecordRepository{db: db}
}

// FetchRecords returns active records in the inclusive row range [from, to],
// ordered by display name
func (r *RecordRepository) FetchRecords(ctx context.Context, from, to int) ([]models.Record, error) {
	if from < 0 || to < from {
		return nil, fmt.Errorf("%w: invalid record range [%d, %d]", models.ErrValidation, from, to)
	}
	if to-from >= MaxFetchRange {
		return nil, fmt.Errorf("%w: record range [%d, %d] exceeds %d rows", models.ErrValidation, from, to, MaxFetchRange)
	}

	query := `
		SELECT id, code_id, code_display, concept_id, concept_name, org, category, vocab,
		       count, is_active, data_version, created_at
		FROM records
		WHERE is_active = true
		ORDER BY code_display ASC, id ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, to-from+1, from)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}
	defer rows.Close()

	records := make([]models.Record, 0, min(to-from+1, 1024))
	for rows.Next() {
		var rec models.Record
		err := rows.Scan(
			&rec.ID,
			&rec.CodeID,
			&rec.CodeDisplay,
			&rec.ConceptID,
			&rec.ConceptName,
			&rec.Org,
			&rec.Category,
			&rec.Vocab,
			&rec.Count,
			&rec.IsActive,
			&rec.DataVersion,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

// CountActive returns the number of active records
func (r *RecordRepository) CountActive(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM records WHERE is_active = true`

	var count int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}

	return count, nil
}
