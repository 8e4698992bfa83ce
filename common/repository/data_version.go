package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lyzr/explorer/common/dbx"
	"github.com/lyzr/explorer/common/models"
)

// DataVersionRepository reads import batch metadata
type DataVersionRepository struct {
	db dbx.DBTX
}

// NewDataVersionRepository creates a new data version repository
func NewDataVersionRepository(db dbx.DBTX) *DataVersionRepository {
	return &DataVersionRepository{db: db}
}

// List returns all data versions, newest first
func (r *DataVersionRepository) List(ctx context.Context) ([]models.DataVersion, error) {
	query := `
		SELECT version, record_count, is_active, notes, created_at
		FROM data_versions
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list data versions: %w", err)
	}
	defer rows.Close()

	versions := []models.DataVersion{}
	for rows.Next() {
		var v models.DataVersion
		if err := rows.Scan(&v.Version, &v.RecordCount, &v.IsActive, &v.Notes, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan data version: %w", err)
		}
		versions = append(versions, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating data versions: %w", err)
	}

	return versions, nil
}

// Active returns the newest active data version
func (r *DataVersionRepository) Active(ctx context.Context) (*models.DataVersion, error) {
	query := `
		SELECT version, record_count, is_active, notes, created_at
		FROM data_versions
		WHERE is_active = true
		ORDER BY created_at DESC
		LIMIT 1
	`

	v := &models.DataVersion{}
	err := r.db.QueryRowContext(ctx, query).Scan(&v.Version, &v.RecordCount, &v.IsActive, &v.Notes, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("active data version: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get active data version: %w", err)
	}

	return v, nil
}
