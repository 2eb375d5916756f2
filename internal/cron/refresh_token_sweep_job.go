package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/metrics"
)

const refreshTokenSweepName = "refresh-token-sweep"

type expiredTokenDeleter interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type RefreshTokenSweepJobParams struct {
	Logger  *logger.Logger
	Tokens  expiredTokenDeleter
	Metrics *metrics.CronJobMetrics
	// Grace keeps rows around for a while after expiry.
	Grace time.Duration
}

// NewRefreshTokenSweepJob deletes refresh token rows that expired before now
// minus the grace period.
func NewRefreshTokenSweepJob(params RefreshTokenSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Tokens == nil {
		return nil, fmt.Errorf("token repository required")
	}
	grace := params.Grace
	if grace < 0 {
		grace = 0
	}
	return &refreshTokenSweepJob{
		logg:    params.Logger,
		tokens:  params.Tokens,
		metrics: params.Metrics,
		grace:   grace,
		now:     time.Now,
	}, nil
}

type refreshTokenSweepJob struct {
	logg    *logger.Logger
	tokens  expiredTokenDeleter
	metrics *metrics.CronJobMetrics
	grace   time.Duration
	now     func() time.Time
}

func (j *refreshTokenSweepJob) Name() string { return refreshTokenSweepName }

func (j *refreshTokenSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.grace)
	deleted, err := j.tokens.DeleteExpired(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	j.metrics.AddAffected(refreshTokenSweepName, deleted)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{"cutoff": cutoff, "rows_deleted": deleted}), "expired refresh tokens swept")
	return nil
}
