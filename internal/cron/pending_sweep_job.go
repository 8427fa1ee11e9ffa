package cron

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/checkout-backend/pkg/logger"
)

// PendingSweepJobName identifies the pending intent sweeper in logs and metrics.
const PendingSweepJobName = "pending-intent-sweep"

type pendingSweeper interface {
	Sweep(now time.Time) int
	Len() int
}

type pendingGauge interface {
	SetPendingSize(n int)
}

// PendingSweepJob evicts expired intents from the in-process pending store.
type PendingSweepJob struct {
	store pendingSweeper
	gauge pendingGauge
	logg  *logger.Logger
	now   func() time.Time
}

func NewPendingSweepJob(store pendingSweeper, gauge pendingGauge, logg *logger.Logger, now func() time.Time) (*PendingSweepJob, error) {
	if store == nil {
		return nil, errors.New("pending store required")
	}
	if now == nil {
		now = time.Now
	}
	return &PendingSweepJob{store: store, gauge: gauge, logg: logg, now: now}, nil
}

func (j *PendingSweepJob) Name() string { return PendingSweepJobName }

func (j *PendingSweepJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	evicted := j.store.Sweep(j.now())
	remaining := j.store.Len()
	if j.gauge != nil {
		j.gauge.SetPendingSize(remaining)
	}
	if evicted > 0 {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"evicted":   evicted,
			"remaining": remaining,
		}), "pending.swept")
	}
	return nil
}
