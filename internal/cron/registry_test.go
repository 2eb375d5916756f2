package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedJob string

func (n namedJob) Name() string            { return string(n) }
func (namedJob) Run(context.Context) error { return nil }

func TestRegistryOrderAndIsolation(t *testing.T) {
	registry := NewRegistry(nil, namedJob("refresh-token-sweep"))
	require.NoError(t, registry.Register(namedJob("outbox_retention")))

	assert.Equal(t, []string{"refresh-token-sweep", "outbox_retention"}, registry.Names())

	jobs := registry.Jobs()
	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0])
}

func TestRegistryRejectsBadJobs(t *testing.T) {
	registry := NewRegistry(namedJob("sweep"))

	assert.ErrorContains(t, registry.Register(namedJob("sweep")), "twice")
	assert.Error(t, registry.Register(nil))
	for _, bad := range []string{"", "Sweep", "9lives", "has space"} {
		assert.Error(t, registry.Register(namedJob(bad)), bad)
	}
	assert.Len(t, registry.Jobs(), 1)
	assert.Panics(t, func() { NewRegistry(namedJob("a"), namedJob("a")) })
}
