package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lyzr/explorer/common/dbx"
	"github.com/lyzr/explorer/common/models"
)

// pgUniqueViolation is the SQLSTATE for the (record_id, tag_text) constraint
const pgUniqueViolation = "23505"

// TagRepository handles database operations for record tags
type TagRepository struct {
	db dbx.DBTX
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db dbx.DBTX) *TagRepository {
	return &TagRepository{db: db}
}

// Create inserts a tag. tag.ID must be set; CreatedAt is filled from the database.
// Returns models.ErrConflict when the record already carries the same text.
func (r *TagRepository) Create(ctx context.Context, tag *models.Tag) error {
	query := `
		INSERT INTO tags (id, record_id, tag_text, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		tag.ID,
		tag.RecordID,
		tag.Text,
		tag.CreatedBy,
	).Scan(&tag.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("tag %q on record %s: %w", tag.Text, tag.RecordID, models.ErrConflict)
		}
		return fmt.Errorf("failed to create tag: %w", err)
	}

	return nil
}

// Delete removes a tag and returns the deleted row
func (r *TagRepository) Delete(ctx context.Context, tagID string) (*models.Tag, error) {
	query := `
		DELETE FROM tags
		WHERE id = $1
		RETURNING id, record_id, tag_text, created_by, created_at
	`

	tag := &models.Tag{}
	err := r.db.QueryRowContext(ctx, query, tagID).Scan(
		&tag.ID,
		&tag.RecordID,
		&tag.Text,
		&tag.CreatedBy,
		&tag.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tag %s: %w", tagID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to delete tag: %w", err)
	}

	return tag, nil
}

// ListByRecord retrieves the tags of one record, newest first
func (r *TagRepository) ListByRecord(ctx context.Context, recordID string) ([]models.Tag, error) {
	query := `
		SELECT id, record_id, tag_text, created_by, created_at
		FROM tags
		WHERE record_id = $1
		ORDER BY created_at DESC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags by record: %w", err)
	}
	defer rows.Close()

	return scanTags(rows)
}

// FetchAllTags retrieves every tag in one query, newest first
func (r *TagRepository) FetchAllTags(ctx context.Context) ([]models.Tag, error) {
	query := `
		SELECT id, record_id, tag_text, created_by, created_at
		FROM tags
		ORDER BY created_at DESC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	return scanTags(rows)
}

func scanTags(rows *sql.Rows) ([]models.Tag, error) {
	tags := []models.Tag{}
	for rows.Next() {
		var tag models.Tag
		err := rows.Scan(
			&tag.ID,
			&tag.RecordID,
			&tag.Text,
			&tag.CreatedBy,
			&tag.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}

	return tags, nil
}
