package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// OverdueSweeper marks past-due invoices and reports how many changed.
type OverdueSweeper interface {
	MarkOverdueInvoices(ctx context.Context) (int, error)
}

// Scheduler runs background maintenance jobs.
type Scheduler struct {
	cron    *cron.Cron
	sweeper OverdueSweeper
	logger  *zap.Logger
	timeout time.Duration
}

// New registers the overdue sweep under spec, which accepts standard cron
// fields with optional seconds as well as descriptors such as "@every 1h".
func New(spec string, loc *time.Location, sweeper OverdueSweeper, logger *zap.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc), cron.WithParser(cronParser)),
		sweeper: sweeper,
		logger:  logger.Named("scheduler"),
		timeout: time.Minute,
	}
	if _, err := s.cron.AddFunc(spec, s.SweepOverdue); err != nil {
		return nil, fmt.Errorf("schedule overdue sweep %q: %w", spec, err)
	}
	return s, nil
}

// SweepOverdue runs one sweep. Failures are logged and retried on the next tick.
func (s *Scheduler) SweepOverdue() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.sweeper.MarkOverdueInvoices(ctx)
	if err != nil {
		s.logger.Error("overdue sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("invoices marked overdue", zap.Int("count", n))
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
