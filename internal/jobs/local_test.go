package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suntvalg/suntvalg-server/internal/repository/memory"
)

func TestLocalDispatcherRunsJobs(t *testing.T) {
	registry := NewRegistry()
	var mu sync.Mutex
	var seen []string
	registry.Register(KindWelcomeEmail, func(ctx context.Context, job Job) error {
		var p WelcomeEmailPayload
		if err := job.Decode(&p); err != nil {
			return err
		}
		mu.Lock()
		seen = append(seen, p.Email)
		mu.Unlock()
		return nil
	})

	d := NewLocalDispatcher(registry, nil, WithWorkers(2))
	d.Start()

	for _, email := range []string{"a@b.com", "c@d.com", "e@f.com"} {
		job, _ := NewWelcomeEmailJob(email, "no")
		require.NoError(t, d.Enqueue(context.Background(), job))
	}

	require.NoError(t, d.Shutdown(context.Background()))
	assert.ElementsMatch(t, []string{"a@b.com", "c@d.com", "e@f.com"}, seen)

	job, _ := NewWelcomeEmailJob("late@b.com", "no")
	assert.ErrorIs(t, d.Enqueue(context.Background(), job), ErrDispatcherClosed)
}

func TestLocalDispatcherDeadLettersFailures(t *testing.T) {
	registry := NewRegistry()
	registry.Register(KindInboundEmail, func(ctx context.Context, job Job) error {
		return errors.New("llm unavailable")
	})
	store := memory.NewJobFailureRepository()
	d := NewLocalDispatcher(registry, NewDeadLetters(store, registry, 3, zerolog.Nop()), WithWorkers(1))
	d.Start()

	job, _ := NewInboundEmailJob(InboundEmailPayload{From: "a@b.com", Subject: "Hi", Content: "Hello"})
	require.NoError(t, d.Enqueue(context.Background(), job))
	require.NoError(t, d.Shutdown(context.Background()))

	failures, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, KindInboundEmail, failures[0].Kind)
	assert.Equal(t, "llm unavailable", failures[0].LastError)
	assert.JSONEq(t, string(job.Payload), string(failures[0].Payload))
}

func TestLocalDispatcherQueueFull(t *testing.T) {
	registry := NewRegistry()
	store := memory.NewJobFailureRepository()
	// not started, so the single buffered slot fills up
	d := NewLocalDispatcher(registry, NewDeadLetters(store, registry, 3, zerolog.Nop()), WithBufferSize(1))

	first, _ := NewWelcomeEmailJob("a@b.com", "no")
	second, _ := NewWelcomeEmailJob("c@d.com", "no")
	require.NoError(t, d.Enqueue(context.Background(), first))
	require.NoError(t, d.Enqueue(context.Background(), second))

	failures, _ := store.List(context.Background(), 10)
	require.Len(t, failures, 1)
	assert.Equal(t, "job queue full", failures[0].LastError)
	assert.False(t, failures[0].Exhausted())
}

func TestLocalDispatcherTimeout(t *testing.T) {
	registry := NewRegistry()
	registry.Register(KindInboundEmail, func(ctx context.Context, job Job) error {
		<-ctx.Done()
		return ctx.Err()
	})
	store := memory.NewJobFailureRepository()
	d := NewLocalDispatcher(registry, NewDeadLetters(store, registry, 3, zerolog.Nop()),
		WithWorkers(1), WithJobTimeout(20*time.Millisecond))
	d.Start()

	job, _ := NewInboundEmailJob(InboundEmailPayload{From: "a@b.com"})
	require.NoError(t, d.Enqueue(context.Background(), job))
	require.NoError(t, d.Shutdown(context.Background()))

	failures, _ := store.List(context.Background(), 10)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].LastError, "deadline exceeded")
}
