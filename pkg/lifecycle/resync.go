package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/recordkit/recordkit/pkg/async"
	"github.com/recordkit/recordkit/pkg/observability"
	"github.com/recordkit/recordkit/pkg/record"
	"github.com/recordkit/recordkit/pkg/storage"
)

// Sweeper replays mirror writes for records flagged with sync_flag = 1.
// It runs on a cron schedule and clears the flag on each record whose mirror
// write finally succeeds.
type Sweeper struct {
	store   storage.RecordStore
	mirror  storage.MirrorStore
	logger  *observability.Logger
	metrics *observability.Metrics
	cron    *cron.Cron
	batch   int
	workers int
}

// NewSweeper creates a sweeper over the given stores. batch caps how many
// flagged records one sweep picks up.
func NewSweeper(store storage.RecordStore, mirror storage.MirrorStore, logger *observability.Logger, metrics *observability.Metrics, batch int) *Sweeper {
	if batch <= 0 {
		batch = 100
	}
	return &Sweeper{
		store:   store,
		mirror:  mirror,
		logger:  logger,
		metrics: metrics,
		cron:    cron.New(),
		batch:   batch,
		workers: 4,
	}
}

// Start schedules the sweep. The schedule uses standard cron syntax, e.g.
// "*/5 * * * *" for every five minutes.
func (s *Sweeper) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		synced, err := s.SweepOnce(context.Background())
		if err != nil {
			s.logger.WithError(err).Error("re-sync sweep failed")
			return
		}
		if synced > 0 {
			s.logger.WithField("synced", synced).Info("re-sync sweep completed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule re-sync sweep: %w", err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule. A sweep already in flight runs to completion.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}

// SweepOnce replays one batch of flagged records and returns how many
// synced. Records whose mirror write still fails stay flagged for the next
// sweep.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	pending, err := s.store.ListPendingSync(ctx, s.batch)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ResyncSweepsTotal.WithLabelValues("failure").Inc()
		}
		return 0, fmt.Errorf("failed to list pending records: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ResyncPendingTotal.Set(float64(len(pending)))
	}

	errs := async.ForEach(ctx, pending, s.workers, "mirror re-sync", 10*time.Second,
		func(ctx context.Context, rec *record.Record) error {
			if err := s.mirror.Upsert(ctx, rec); err != nil {
				return fmt.Errorf("mirror write: %w", err)
			}
			if err := s.store.SetSyncFlag(ctx, rec.ID, nil); err != nil {
				return fmt.Errorf("clear sync flag: %w", err)
			}
			return nil
		})

	synced := 0
	for i, err := range errs {
		if err != nil {
			s.logger.WithError(err).WithField("record_id", pending[i].ID).Warn("record still unsynced")
			continue
		}
		synced++
	}

	if s.metrics != nil {
		s.metrics.ResyncSweepsTotal.WithLabelValues("success").Inc()
		s.metrics.ResyncPendingTotal.Set(float64(len(pending) - synced))
	}
	return synced, nil
}
