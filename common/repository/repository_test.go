package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lyzr/explorer/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var recordColumns = []string{
	"id", "code_id", "code_display", "concept_id", "concept_name", "org", "category", "vocab",
	"count", "is_active", "data_version", "created_at",
}

var tagColumns = []string{"id", "record_id", "tag_text", "created_by", "created_at"}

func TestRecordRepository_FetchRecords(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRecordRepository(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(recordColumns).
		AddRow("r1", "123", "Glucose, fasting", "c1", "Glucose", "A", "Lab", "LOINC", int64(5), true, "v1", now).
		AddRow("r2", "456", "Heart rate", nil, nil, "B", "Vitals", "SNOMED", int64(2), true, "v1", now)

	mock.ExpectQuery(`SELECT .* FROM records\s+WHERE is_active = true\s+ORDER BY code_display`).
		WithArgs(1000, 1000).
		WillReturnRows(rows)

	records, err := repo.FetchRecords(context.Background(), 1000, 1999)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "r1", records[0].ID)
	require.NotNil(t, records[0].ConceptID)
	assert.Equal(t, "c1", *records[0].ConceptID)
	assert.Nil(t, records[1].ConceptID)
	assert.Equal(t, "SNOMED", records[1].Vocab)
	assert.Equal(t, int64(2), records[1].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_FetchRecords_InvalidRange(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewRecordRepository(db)

	_, err := repo.FetchRecords(context.Background(), 10, 5)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestRecordRepository_FetchRecords_RangeTooWide(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRecordRepository(db)

	_, err := repo.FetchRecords(context.Background(), 0, 1<<40-1)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = repo.FetchRecords(context.Background(), 7, 7+MaxFetchRange)
	assert.ErrorIs(t, err, models.ErrValidation)

	// rejected before any query runs
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_FetchRecords_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRecordRepository(db)

	mock.ExpectQuery(`SELECT .* FROM records`).WillReturnError(errors.New("connection reset"))

	_, err := repo.FetchRecords(context.Background(), 0, 999)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch records")
}

func TestRecordRepository_CountActive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRecordRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM records`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2500)))

	n, err := repo.CountActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2500), n)
}

func TestTagRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTagRepository(db)
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	user := "alice"

	mock.ExpectQuery(`INSERT INTO tags \(id, record_id, tag_text, created_by\)`).
		WithArgs("t1", "r1", "urgent", "alice").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	tag := &models.Tag{ID: "t1", RecordID: "r1", Text: "urgent", CreatedBy: &user}
	require.NoError(t, repo.Create(context.Background(), tag))
	assert.Equal(t, created, tag.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTagRepository_Create_UniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTagRepository(db)

	mock.ExpectQuery(`INSERT INTO tags`).
		WithArgs("t1", "r1", "urgent", nil).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})

	err := repo.Create(context.Background(), &models.Tag{ID: "t1", RecordID: "r1", Text: "urgent"})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestTagRepository_Create_OtherError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTagRepository(db)

	mock.ExpectQuery(`INSERT INTO tags`).WillReturnError(errors.New("db is down"))

	err := repo.Create(context.Background(), &models.Tag{ID: "t1", RecordID: "r1", Text: "urgent"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, models.ErrConflict))
}

func TestTagRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTagRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`DELETE FROM tags\s+WHERE id = \$1\s+RETURNING`).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows(tagColumns).AddRow("t1", "r1", "urgent", nil, now))

	tag, err := repo.Delete(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "r1", tag.RecordID)
	assert.Equal(t, "urgent", tag.Text)
	assert.Nil(t, tag.CreatedBy)
}

func TestTagRepository_Delete_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTagRepository(db)

	mock.ExpectQuery(`DELETE FROM tags`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(tagColumns))

	_, err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTagRepository_ListByRecord(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTagRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM tags\s+WHERE record_id = \$1`).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(tagColumns).
			AddRow("t2", "r1", "review needed", "bob", now).
			AddRow("t1", "r1", "urgent", nil, now.Add(-time.Minute)))

	tags, err := repo.ListByRecord(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "review needed", tags[0].Text)
	require.NotNil(t, tags[0].CreatedBy)
	assert.Equal(t, "bob", *tags[0].CreatedBy)
}

func TestTagRepository_FetchAllTags_Empty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTagRepository(db)

	mock.ExpectQuery(`SELECT .* FROM tags\s+ORDER BY`).
		WillReturnRows(sqlmock.NewRows(tagColumns))

	tags, err := repo.FetchAllTags(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tags)
	assert.Empty(t, tags)
}

func TestDataVersionRepository_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDataVersionRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM data_versions`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "record_count", "is_active", "notes", "created_at"}).
			AddRow("v2", int64(1200), true, "reimport", now).
			AddRow("v1", int64(1100), false, nil, now.Add(-24*time.Hour)))

	versions, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.True(t, versions[0].IsActive)
	assert.Nil(t, versions[1].Notes)
}

func TestDataVersionRepository_Active_None(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDataVersionRepository(db)

	mock.ExpectQuery(`WHERE is_active = true`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "record_count", "is_active", "notes", "created_at"}))

	_, err := repo.Active(context.Background())
	assert.ErrorIs(t, err, models.ErrNotFound)
}
