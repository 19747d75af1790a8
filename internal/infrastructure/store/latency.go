package store

import (
	"context"
	"time"
)

type latencyRepository struct {
	next  Repository
	delay time.Duration
}

// WithLatency delays every Load and Save by d. Cancelling ctx ends the wait
// early. A non-positive d returns repo unchanged.
func WithLatency(repo Repository, d time.Duration) Repository {
	if d <= 0 {
		return repo
	}
	return &latencyRepository{next: repo, delay: d}
}

func (r *latencyRepository) wait(ctx context.Context) error {
	t := time.NewTimer(r.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *latencyRepository) Load(ctx context.Context) (*Snapshot, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.next.Load(ctx)
}

func (r *latencyRepository) Save(ctx context.Context, snap *Snapshot) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	return r.next.Save(ctx, snap)
}
