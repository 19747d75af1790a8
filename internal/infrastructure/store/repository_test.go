package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/example/marketflow/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================
// Shared Repository Contract
// ============================================

func repositoryContract(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	snap, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Zero(t, snap.Version)
	assert.Equal(t, DefaultOrderCounter, snap.Meta.OrderCounter)

	snap.Products = append(snap.Products, model.Product{ID: "p1", Name: "Milk"})
	require.NoError(t, repo.Save(ctx, snap))
	assert.Equal(t, int64(1), snap.Version)

	stale, err := repo.Load(ctx)
	require.NoError(t, err)
	fresh, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fresh.Version)
	require.Len(t, fresh.Products, 1)
	assert.Equal(t, "Milk", fresh.Products[0].Name)

	fresh.Products[0].Name = "Oat milk"
	require.NoError(t, repo.Save(ctx, fresh))

	stale.Products[0].Name = "Whole milk"
	err = repo.Save(ctx, stale)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, int64(1), stale.Version)

	final, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), final.Version)
	assert.Equal(t, "Oat milk", final.Products[0].Name)
}

func TestMemoryStore_Contract(t *testing.T) {
	repositoryContract(t, NewMemoryStore())
}

func TestFileStore_Contract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "snapshot.json")
	repositoryContract(t, NewFileStore(path))
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.json")

	_, err := Update(ctx, NewFileStore(path), func(s *Snapshot) error {
		s.NextOrderNumber()
		return nil
	})
	require.NoError(t, err)

	snap, err := NewFileStore(path).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultOrderCounter+1, snap.Meta.OrderCounter)
	assert.Equal(t, int64(1), snap.Version)
}

func TestMemoryStore_LoadReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore()
	_, err := Update(ctx, repo, func(s *Snapshot) error {
		s.Products = append(s.Products, model.Product{ID: "p1", Name: "Bread"})
		return nil
	})
	require.NoError(t, err)

	a, err := repo.Load(ctx)
	require.NoError(t, err)
	a.Products[0].Name = "changed"

	b, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bread", b.Products[0].Name)
}

// ============================================
// Update Tests
// ============================================

type conflictingRepo struct {
	*MemoryStore
	conflicts int
	saves     int
}

func (r *conflictingRepo) Save(ctx context.Context, snap *Snapshot) error {
	r.saves++
	if r.conflicts > 0 {
		r.conflicts--
		return ErrVersionConflict
	}
	return r.MemoryStore.Save(ctx, snap)
}

func TestUpdate_RetriesOnConflict(t *testing.T) {
	repo := &conflictingRepo{MemoryStore: NewMemoryStore(), conflicts: 2}
	calls := 0

	snap, err := Update(context.Background(), repo, func(s *Snapshot) error {
		calls++
		s.NextInvoiceNumber()
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, repo.saves)
	assert.Equal(t, DefaultInvoiceCounter+1, snap.Meta.InvoiceCounter)
}

func TestUpdate_GivesUp(t *testing.T) {
	repo := &conflictingRepo{MemoryStore: NewMemoryStore(), conflicts: MaxUpdateAttempts}

	_, err := Update(context.Background(), repo, func(*Snapshot) error { return nil })

	assert.ErrorIs(t, err, ErrTooManyConflicts)
	assert.Equal(t, MaxUpdateAttempts, repo.saves)
}

func TestUpdate_FnErrorSkipsSave(t *testing.T) {
	repo := &conflictingRepo{MemoryStore: NewMemoryStore()}
	boom := errors.New("boom")

	_, err := Update(context.Background(), repo, func(*Snapshot) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.Zero(t, repo.saves)
}

func TestUpdate_ConcurrentWritersLoseNothing(t *testing.T) {
	repo := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				// Retry past ErrTooManyConflicts; only lost updates matter here.
				for {
					_, err := Update(ctx, repo, func(s *Snapshot) error {
						s.NextOrderNumber()
						return nil
					})
					if err == nil {
						break
					}
					if !errors.Is(err, ErrTooManyConflicts) {
						errs <- err
						return
					}
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	snap, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultOrderCounter+40, snap.Meta.OrderCounter)
	assert.Equal(t, int64(40), snap.Version)
}

// ============================================
// Latency Decorator Tests
// ============================================

func TestWithLatency_ZeroIsPassthrough(t *testing.T) {
	repo := NewMemoryStore()
	assert.Same(t, repo, WithLatency(repo, 0))
}

func TestWithLatency_HonoursCancellation(t *testing.T) {
	repo := WithLatency(NewMemoryStore(), time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, repo.Save(ctx, NewSnapshot()), context.Canceled)
}

func TestWithLatency_Delays(t *testing.T) {
	repo := WithLatency(NewMemoryStore(), 20*time.Millisecond)

	start := time.Now()
	_, err := repo.Load(context.Background())

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestUpdate_NoChangeSkipsSave(t *testing.T) {
	repo := &conflictingRepo{MemoryStore: NewMemoryStore()}

	_, err := Update(context.Background(), repo, func(*Snapshot) error { return ErrNoChange })

	assert.ErrorIs(t, err, ErrNoChange)
	assert.Zero(t, repo.saves)
}
