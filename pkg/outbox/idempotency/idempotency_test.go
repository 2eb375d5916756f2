package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	seen        map[string]bool
	setNXError  error
	lastTTL     time.Duration
	lastDeleted string
}

func newFakeStore() *fakeStore {
	return &fakeStore{seen: map[string]bool{}}
}

func (f *fakeStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if f.setNXError != nil {
		return false, f.setNXError
	}
	f.lastTTL = ttl
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.seen, key)
		f.lastDeleted = key
	}
	return nil
}

func TestCheckAndMarkProcessed(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, 24*time.Hour)
	require.NoError(t, err)

	eventID := uuid.NewString()
	already, err := manager.CheckAndMarkProcessed(context.Background(), "inventory-alerts", eventID)
	require.NoError(t, err)
	require.False(t, already)
	require.Equal(t, 24*time.Hour, store.lastTTL)

	already, err = manager.CheckAndMarkProcessed(context.Background(), "inventory-alerts", eventID)
	require.NoError(t, err)
	require.True(t, already)
}

func TestReleaseAllowsReprocessing(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	eventID := uuid.NewString()
	_, err = manager.CheckAndMarkProcessed(context.Background(), "inventory-alerts", eventID)
	require.NoError(t, err)

	require.NoError(t, manager.Release(context.Background(), "inventory-alerts", eventID))
	require.Equal(t, "sf:idempotency:evt:processed:inventory-alerts:"+eventID, store.lastDeleted)

	already, err := manager.CheckAndMarkProcessed(context.Background(), "inventory-alerts", eventID)
	require.NoError(t, err)
	require.False(t, already)
}

func TestCheckAndMarkProcessedRejectsBadInput(t *testing.T) {
	manager, err := NewManager(newFakeStore(), time.Hour)
	require.NoError(t, err)

	_, err = manager.CheckAndMarkProcessed(context.Background(), "", uuid.NewString())
	require.Error(t, err)
	_, err = manager.CheckAndMarkProcessed(context.Background(), "inventory-alerts", "not-a-uuid")
	require.Error(t, err)
	_, err = manager.CheckAndMarkProcessed(context.Background(), "a:b", uuid.NewString())
	require.Error(t, err)
}

func TestCheckAndMarkProcessedPropagatesStoreError(t *testing.T) {
	store := newFakeStore()
	store.setNXError = errors.New("boom")
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	_, err = manager.CheckAndMarkProcessed(context.Background(), "inventory-alerts", uuid.NewString())
	require.Error(t, err)
}

func TestNewManagerValidates(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	require.Error(t, err)
	_, err = NewManager(newFakeStore(), -time.Second)
	require.Error(t, err)

	store := newFakeStore()
	manager, err := NewManager(store, 0)
	require.NoError(t, err)
	_, err = manager.CheckAndMarkProcessed(context.Background(), "inventory-alerts", uuid.NewString())
	require.NoError(t, err)
	require.Equal(t, DefaultTTL, store.lastTTL)
}
