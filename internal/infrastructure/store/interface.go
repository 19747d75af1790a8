package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrVersionConflict  = errors.New("snapshot version conflict")
	ErrTooManyConflicts = errors.New("snapshot update aborted after repeated conflicts")

	// ErrNoChange may be returned by an Update callback to skip the save.
	ErrNoChange = errors.New("no change")
)

// MaxUpdateAttempts bounds the load-apply-save loop in Update.
const MaxUpdateAttempts = 5

// Repository loads and saves the whole state snapshot.
//
// Save is a compare-and-swap: it succeeds only when the stored version still
// equals snap.Version, and bumps snap.Version on success. Otherwise it returns
// ErrVersionConflict and stores nothing.
type Repository interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
}

// Update runs fn against a fresh snapshot and saves the result. On a version
// conflict the snapshot is reloaded and fn runs again, so fn must derive all
// its effects from the snapshot it is given. An error from fn aborts without
// saving and is returned as is, ErrNoChange included.
func Update(ctx context.Context, repo Repository, fn func(*Snapshot) error) (*Snapshot, error) {
	for attempt := 0; attempt < MaxUpdateAttempts; attempt++ {
		snap, err := repo.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		if err := fn(snap); err != nil {
			return nil, err
		}
		err = repo.Save(ctx, snap)
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, fmt.Errorf("save snapshot: %w", err)
		}
	}
	return nil, ErrTooManyConflicts
}
