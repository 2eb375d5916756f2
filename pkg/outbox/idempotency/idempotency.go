package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL applies when the consumer configures none. It outlives the
// Pub/Sub redelivery window.
const DefaultTTL = 7 * 24 * time.Hour

// MarkerStore is the slice of the Redis client the tracker needs.
type MarkerStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Manager remembers which event ids each consumer has handled. A marker is
// written before the handler runs and removed again when it fails, so the
// redelivery is processed for real.
type Manager struct {
	store MarkerStore
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(store MarkerStore, ttl time.Duration) (*Manager, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	case ttl == 0:
		ttl = DefaultTTL
	}
	return &Manager{store: store, ttl: ttl, now: time.Now}, nil
}

// CheckAndMarkProcessed reports true when consumer already took eventID.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID string) (bool, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	fresh, err := m.store.SetNX(ctx, key, m.now().UTC().Format(time.RFC3339), m.ttl)
	if err != nil {
		return false, fmt.Errorf("mark %s processed by %s: %w", eventID, consumer, err)
	}
	return !fresh, nil
}

// Release drops the marker written by CheckAndMarkProcessed.
func (m *Manager) Release(ctx context.Context, consumer string, eventID string) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

// key builds <prefix>:idempotency:evt:processed:<consumer>:<event id>.
func (m *Manager) key(consumer string, eventID string) (string, error) {
	consumer = strings.TrimSpace(consumer)
	if consumer == "" || strings.Contains(consumer, ":") {
		return "", fmt.Errorf("invalid consumer name %q", consumer)
	}
	id, err := uuid.Parse(eventID)
	if err != nil || id == uuid.Nil {
		return "", fmt.Errorf("invalid event id %q", eventID)
	}
	return m.store.IdempotencyKey("evt:processed:"+consumer, id.String()), nil
}
