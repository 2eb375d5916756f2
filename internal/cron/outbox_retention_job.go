package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/pkg/db"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/metrics"
)

const (
	outboxRetentionName  = "outbox-retention"
	outboxRetentionDays  = 30
	outboxRetentionBatch = 1000
)

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         db.TxRunner
	Repository outboxRetentionRepo
	Metrics    *metrics.CronJobMetrics
	// Retention is in days.
	Retention  int
	BatchSize  int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) (int64, error)
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	db        db.TxRunner
	repo      outboxRetentionRepo
	metrics   *metrics.CronJobMetrics
	retention int
	batch     int
	now       func() time.Time
}

// NewOutboxRetentionJob prunes published outbox rows past the retention
// window. Pending and parked rows stay for inspection.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		metrics:   params.Metrics,
		retention: params.Retention,
		batch:     params.BatchSize,
		now:       time.Now,
	}
	if job.retention <= 0 {
		job.retention = outboxRetentionDays
	}
	if job.batch <= 0 {
		job.batch = outboxRetentionBatch
	}
	return job, nil
}

func (j *outboxRetentionJob) Name() string { return outboxRetentionName }

// Run deletes in batches, one transaction each, so a large backlog never
// holds a long lock on outbox_events.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retention)
	var total int64
	for {
		var deleted int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			deleted, err = j.repo.DeletePublishedBefore(ctx, tx, cutoff, j.batch)
			return err
		})
		if err != nil {
			return fmt.Errorf("prune outbox before %s: %w", cutoff.Format(time.DateOnly), err)
		}
		total += deleted
		if deleted < int64(j.batch) || ctx.Err() != nil {
			break
		}
	}

	j.metrics.AddAffected(outboxRetentionName, total)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   total,
	}), "outbox retention cleanup complete")
	return ctx.Err()
}
