package bootstrap

import (
	"context"
	"fmt"

	"github.com/example/marketflow/internal/config"
	"github.com/example/marketflow/internal/infrastructure/store"
	"go.uber.org/zap"
)

// OpenRepository builds the snapshot repository selected by cfg.Driver,
// wrapped in the latency decorator when cfg.Latency is set. The returned
// close function releases whatever connection the backend holds.
func OpenRepository(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (store.Repository, func() error, error) {
	noop := func() error { return nil }

	var (
		repo    store.Repository
		closeFn = noop
	)
	switch cfg.Driver {
	case config.DriverMemory:
		repo = store.NewMemoryStore()

	case config.DriverFile:
		repo = store.NewFileStore(cfg.File)

	case config.DriverPostgres:
		db, err := store.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		pg := store.NewPostgresStore(db, cfg.SnapshotID)
		if err := pg.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		repo, closeFn = pg, db.Close

	case config.DriverRedis:
		client, err := store.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		repo, closeFn = store.NewRedisStore(client, cfg.SnapshotID), client.Close

	case config.DriverDynamo:
		client, err := store.NewDynamoClient(ctx, cfg.DynamoRegion, cfg.DynamoEndpoint)
		if err != nil {
			return nil, nil, fmt.Errorf("configure dynamodb: %w", err)
		}
		repo = store.NewDynamoStore(client, cfg.DynamoTable, cfg.SnapshotID)

	default:
		return nil, nil, fmt.Errorf("%w: unknown store driver %q", config.ErrInvalidConfig, cfg.Driver)
	}

	logger.Info("snapshot store ready",
		zap.String("driver", cfg.Driver),
		zap.String("snapshot_id", cfg.SnapshotID),
		zap.Duration("latency", cfg.Latency))
	return store.WithLatency(repo, cfg.Latency), closeFn, nil
}
