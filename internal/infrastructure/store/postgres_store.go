package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const createSnapshotsTable = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	version    BIGINT NOT NULL,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps the snapshot as a JSONB row. The version column is
// the compare-and-swap guard.
type PostgresStore struct {
	db *sql.DB
	id string
}

func NewPostgresStore(db *sql.DB, snapshotID string) *PostgresStore {
	return &PostgresStore{db: db, id: snapshotID}
}

// EnsureSchema creates the snapshots table if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createSnapshotsTable); err != nil {
		return fmt.Errorf("create snapshots table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (*Snapshot, error) {
	var (
		version int64
		data    []byte
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT version, data FROM snapshots WHERE id = $1", s.id,
	).Scan(&version, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return NewSnapshot(), nil
	}
	if err != nil {
		return nil, err
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	snap.Version = version
	return snap, nil
}

func (s *PostgresStore) Save(ctx context.Context, snap *Snapshot) error {
	expected := snap.Version
	snap.Version = expected + 1
	data, err := encodeSnapshot(snap)
	if err != nil {
		snap.Version = expected
		return err
	}

	var res sql.Result
	if expected == 0 {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO snapshots (id, version, data, updated_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO NOTHING`,
			s.id, snap.Version, data, time.Now().UTC(),
		)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE snapshots SET version = $2, data = $3, updated_at = $4
			 WHERE id = $1 AND version = $5`,
			s.id, snap.Version, data, time.Now().UTC(), expected,
		)
	}
	if err != nil {
		snap.Version = expected
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		snap.Version = expected
		return err
	}
	if n == 0 {
		snap.Version = expected
		return ErrVersionConflict
	}
	return nil
}

// ConnectPostgres opens and pings a lib/pq pool.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}
