//go:build integration

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"confcheckin/internal/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

type failingHandler struct{ calls atomic.Int32 }

func (h *failingHandler) Process(context.Context, json.RawMessage) error {
	h.calls.Add(1)
	return errors.New("smtp unavailable")
}

func TestPool_RetriesThenDeadLetters(t *testing.T) {
	ctx := context.Background()

	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(rdURL)
	require.NoError(t, err)

	d := NewDispatcher(rdb)
	require.NoError(t, d.EnqueueEmail(ctx, EmailJobPayload{Kind: EmailCheckedIn, ToEmail: "a@example.com"}))

	h := &failingHandler{}
	p := NewPool(rdb, nil)
	p.Register(JobTypeEmail, h)

	runCtx, cancel := context.WithCancel(ctx)
	p.Start(runCtx, 1)
	t.Cleanup(func() {
		cancel()
		p.Wait()
	})

	dead := NewDeadLetters(rdb)
	require.Eventually(t, func() bool {
		n, err := dead.Len(ctx, QueueEmail)
		return err == nil && n == 1
	}, 20*time.Second, 100*time.Millisecond)

	assert.Equal(t, int32(MaxAttempts), h.calls.Load())

	entries, err := dead.Peek(ctx, QueueEmail, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, QueueEmail, entry.Queue)
	assert.Equal(t, JobTypeEmail, entry.JobType)
	assert.Equal(t, MaxAttempts, entry.Attempts)
	assert.Equal(t, "smtp unavailable", entry.Reason)
	assert.False(t, entry.FailedAt.IsZero())
}

func TestPool_UnknownJobTypeGoesStraightToDLQ(t *testing.T) {
	ctx := context.Background()

	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })
	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(rdURL)
	require.NoError(t, err)

	require.NoError(t, NewDispatcher(rdb).EnqueueEmail(ctx, EmailJobPayload{Kind: EmailWelcome, ToEmail: "b@example.com"}))

	// no handler registered for JobTypeEmail
	p := NewPool(rdb, nil)
	runCtx, cancel := context.WithCancel(ctx)
	p.Start(runCtx, 1)
	t.Cleanup(func() {
		cancel()
		p.Wait()
	})

	dead := NewDeadLetters(rdb)
	require.Eventually(t, func() bool {
		n, err := dead.Len(ctx, QueueEmail)
		return err == nil && n == 1
	}, 10*time.Second, 100*time.Millisecond)

	entries, err := dead.Peek(ctx, QueueEmail, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "no handler registered", entries[0].Reason)
	assert.Equal(t, 0, entries[0].Attempts)
}
