package cron

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/outbox"
)

func TestOutboxRetentionJobDeletesOldPublishedRows(t *testing.T) {
	client := dbtest.Client(t)
	conn := client.DB()
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -45)
	recent := now.AddDate(0, 0, -2)

	for _, publishedAt := range []*time.Time{&old, &recent, nil} {
		row := &models.OutboxEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   1,
			Payload:       json.RawMessage(`{}`),
			PublishedAt:   publishedAt,
		}
		if err := conn.Create(row).Error; err != nil {
			t.Fatalf("seed outbox: %v", err)
		}
	}

	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.Nop(),
		DB:         client,
		Repository: outbox.NewRepository(conn),
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job := jobIface.(*outboxRetentionJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var left int64
	if err := conn.Model(&models.OutboxEvent{}).Count(&left).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if left != 2 {
		t.Fatalf("expected 2 rows to remain, got %d", left)
	}
}

type countingOutboxRepo struct {
	remaining int64
	calls     []int
}

func (c *countingOutboxRepo) DeletePublishedBefore(_ context.Context, _ *gorm.DB, _ time.Time, limit int) (int64, error) {
	c.calls = append(c.calls, limit)
	n := min(c.remaining, int64(limit))
	c.remaining -= n
	return n, nil
}

func TestOutboxRetentionJobDeletesInBatches(t *testing.T) {
	repo := &countingOutboxRepo{remaining: 5}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.Nop(),
		DB:         passthroughTx{},
		Repository: repo,
		BatchSize:  2,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(repo.calls) != 3 || repo.remaining != 0 {
		t.Fatalf("expected three batches draining everything, got calls=%v remaining=%d", repo.calls, repo.remaining)
	}
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.Nop(),
		DB:         passthroughTx{},
		Repository: failingOutboxRepo{},
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type failingOutboxRepo struct{}

func (failingOutboxRepo) DeletePublishedBefore(context.Context, *gorm.DB, time.Time, int) (int64, error) {
	return 0, errors.New("boom")
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
