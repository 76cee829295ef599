package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/retrieval-plane/models"
)

func newMockRepo(t *testing.T) (*VectorEntryRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	repo := NewVectorEntryRepository(NewDBFromConn(sqlDB, zap.NewNop()), zap.NewNop())
	return repo.(*VectorEntryRepository), mock
}

func TestVectorEntryRepository_ListByIndex(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"index_name", "id", "doc", "embedding", "created_at"}).
		AddRow("pokemon", "a", []byte(`{"content":[{"text":"a"}]}`), []byte(`{"embedding":[1,0]}`), now).
		AddRow("pokemon", "b", []byte(`{"content":[{"text":"b"}]}`), []byte(`{"embedding":[0,1]}`), now)
	mock.ExpectQuery("SELECT (.+) FROM vector_entries WHERE index_name = \\$1").
		WithArgs("pokemon").
		WillReturnRows(rows)

	entries, err := repo.ListByIndex(context.Background(), "pokemon")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].ID)
	assert.JSONEq(t, `{"embedding":[0,1]}`, string(entries[1].Embedding))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVectorEntryRepository_ListByIndex_QueryError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM vector_entries").
		WillReturnError(errors.New("connection refused"))

	_, err := repo.ListByIndex(context.Background(), "pokemon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestVectorEntryRepository_ListIDs(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT id FROM vector_entries").
		WithArgs("pokemon").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("x").AddRow("y"))

	ids, err := repo.ListIDs(context.Background(), "pokemon")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVectorEntryRepository_Upsert(t *testing.T) {
	t.Run("commits all rows", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		now := time.Now()
		entries := []*models.VectorEntry{
			{IndexName: "pokemon", ID: "a", Document: []byte(`{}`), Embedding: []byte(`{}`), CreatedAt: now},
			{IndexName: "pokemon", ID: "b", Document: []byte(`{}`), Embedding: []byte(`{}`), CreatedAt: now},
		}

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO vector_entries").
			WithArgs("pokemon", "a", []byte(`{}`), []byte(`{}`), now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO vector_entries").
			WithArgs("pokemon", "b", []byte(`{}`), []byte(`{}`), now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Upsert(context.Background(), entries))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		entries := []*models.VectorEntry{
			{IndexName: "pokemon", ID: "a"},
			{IndexName: "pokemon", ID: "b"},
		}

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO vector_entries").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO vector_entries").WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		err := repo.Upsert(context.Background(), entries)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to upsert vector entry b")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty is a no-op", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		require.NoError(t, repo.Upsert(context.Background(), nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestVectorEntryRepository_DeleteAndCount(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM vector_entries").
		WithArgs("pokemon", "a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM vector_entries").
		WithArgs("pokemon").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	require.NoError(t, repo.Delete(context.Background(), "pokemon", "a"))
	count, err := repo.CountByIndex(context.Background(), "pokemon")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_HealthCheck(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	db := NewDBFromConn(sqlDB, zap.NewNop())
	require.NoError(t, db.HealthCheck(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
