package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/marketflow/internal/config"
	"github.com/example/marketflow/internal/infrastructure/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenRepository_Memory(t *testing.T) {
	repo, closeFn, err := OpenRepository(context.Background(), config.StoreConfig{Driver: config.DriverMemory}, zap.NewNop())

	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, repo)
	assert.NoError(t, closeFn())
}

func TestOpenRepository_FileWithLatency(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	repo, closeFn, err := OpenRepository(ctx, config.StoreConfig{
		Driver:  config.DriverFile,
		File:    path,
		Latency: time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)
	defer closeFn()

	_, err = store.Update(ctx, repo, func(s *store.Snapshot) error {
		s.NextOrderNumber()
		return nil
	})
	require.NoError(t, err)

	reopened := store.NewFileStore(path)
	snap, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Version)
	assert.Equal(t, store.DefaultOrderCounter+1, snap.Meta.OrderCounter)
}

func TestOpenRepository_UnknownDriver(t *testing.T) {
	_, _, err := OpenRepository(context.Background(), config.StoreConfig{Driver: "mongo"}, zap.NewNop())

	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
