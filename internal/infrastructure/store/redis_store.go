package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the snapshot in a hash {version, data}. Save uses
// WATCH/MULTI so a concurrent writer aborts the transaction.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, snapshotID string) *RedisStore {
	return &RedisStore{client: client, key: "marketflow:snapshot:" + snapshotID}
}

// NewRedisClient dials addr and pings it.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

func (s *RedisStore) Load(ctx context.Context) (*Snapshot, error) {
	vals, err := s.client.HMGet(ctx, s.key, "version", "data").Result()
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	data, ok := vals[1].(string)
	if !ok || data == "" {
		return NewSnapshot(), nil
	}
	snap, err := decodeSnapshot([]byte(data))
	if err != nil {
		return nil, err
	}
	rawVersion, _ := vals[0].(string)
	version, err := strconv.ParseInt(rawVersion, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot version %q: %w", rawVersion, err)
	}
	snap.Version = version
	return snap, nil
}

func (s *RedisStore) Save(ctx context.Context, snap *Snapshot) error {
	expected := snap.Version
	snap.Version = expected + 1
	data, err := encodeSnapshot(snap)
	if err != nil {
		snap.Version = expected
		return err
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, s.key, "version").Int64()
		if errors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return err
		}
		if current != expected {
			return ErrVersionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.key, "version", snap.Version, "data", string(data))
			return nil
		})
		return err
	}, s.key)

	if err != nil {
		snap.Version = expected
		if errors.Is(err, redis.TxFailedErr) {
			return ErrVersionConflict
		}
		return err
	}
	return nil
}
