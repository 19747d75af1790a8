package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/example/marketflow/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	selectSnapshot = regexp.QuoteMeta("SELECT version, data FROM snapshots WHERE id = $1")
	insertSnapshot = regexp.QuoteMeta("INSERT INTO snapshots (id, version, data, updated_at)")
	updateSnapshot = regexp.QuoteMeta("UPDATE snapshots SET version = $2, data = $3, updated_at = $4")
)

func newTestPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgresStore(db, "test"), mock
}

// ============================================
// Postgres Store Tests
// ============================================

func TestPostgresStore_EnsureSchema(t *testing.T) {
	repo, mock := newTestPostgresStore(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS snapshots")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
}

func TestPostgresStore_LoadMissingRow(t *testing.T) {
	repo, mock := newTestPostgresStore(t)
	mock.ExpectQuery(selectSnapshot).WithArgs("test").WillReturnError(sql.ErrNoRows)

	snap, err := repo.Load(context.Background())

	require.NoError(t, err)
	assert.Zero(t, snap.Version)
	assert.Equal(t, DefaultOrderCounter, snap.Meta.OrderCounter)
}

func TestPostgresStore_LoadRow(t *testing.T) {
	repo, mock := newTestPostgresStore(t)
	stored := NewSnapshot()
	stored.Products = append(stored.Products, model.Product{ID: "p1", Name: "Milk"})
	data, err := encodeSnapshot(stored)
	require.NoError(t, err)
	mock.ExpectQuery(selectSnapshot).WithArgs("test").
		WillReturnRows(sqlmock.NewRows([]string{"version", "data"}).AddRow(int64(4), data))

	snap, err := repo.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(4), snap.Version)
	require.Len(t, snap.Products, 1)
	assert.Equal(t, "Milk", snap.Products[0].Name)
}

func TestPostgresStore_FirstSaveInserts(t *testing.T) {
	repo, mock := newTestPostgresStore(t)
	mock.ExpectExec(insertSnapshot).
		WithArgs("test", int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	snap := NewSnapshot()

	require.NoError(t, repo.Save(context.Background(), snap))
	assert.Equal(t, int64(1), snap.Version)
}

func TestPostgresStore_FirstSaveLosesRace(t *testing.T) {
	repo, mock := newTestPostgresStore(t)
	mock.ExpectExec(insertSnapshot).WillReturnResult(sqlmock.NewResult(0, 0))
	snap := NewSnapshot()

	err := repo.Save(context.Background(), snap)

	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Zero(t, snap.Version)
}

func TestPostgresStore_UpdateGuardsVersion(t *testing.T) {
	repo, mock := newTestPostgresStore(t)
	mock.ExpectExec(updateSnapshot).
		WithArgs("test", int64(3), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	snap := NewSnapshot()
	snap.Version = 2

	require.NoError(t, repo.Save(context.Background(), snap))
	assert.Equal(t, int64(3), snap.Version)
}

func TestPostgresStore_StaleUpdateConflicts(t *testing.T) {
	repo, mock := newTestPostgresStore(t)
	mock.ExpectExec(updateSnapshot).
		WithArgs("test", int64(3), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	snap := NewSnapshot()
	snap.Version = 2

	err := repo.Save(context.Background(), snap)

	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, int64(2), snap.Version)
}

func TestPostgresStore_UpdateRetriesOnConflict(t *testing.T) {
	repo, mock := newTestPostgresStore(t)
	stale, err := encodeSnapshot(NewSnapshot())
	require.NoError(t, err)
	rows := func(version int64) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"version", "data"}).AddRow(version, stale)
	}
	mock.ExpectQuery(selectSnapshot).WillReturnRows(rows(1))
	mock.ExpectExec(updateSnapshot).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(selectSnapshot).WillReturnRows(rows(2))
	mock.ExpectExec(updateSnapshot).
		WithArgs("test", int64(3), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	snap, err := Update(context.Background(), repo, func(s *Snapshot) error {
		s.NextInvoiceNumber()
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.Version)
}
