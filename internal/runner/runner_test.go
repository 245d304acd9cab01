package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTask struct {
	name     string
	schedule string
	runs     atomic.Int32
	err      error
}

func (t *countingTask) Name() string           { return t.name }
func (t *countingTask) Schedule() string       { return t.schedule }
func (t *countingTask) Timeout() time.Duration { return time.Second }
func (t *countingTask) Run(ctx context.Context) error {
	t.runs.Add(1)
	return t.err
}

func TestTaskRegistry(t *testing.T) {
	registry := NewTaskRegistry()
	task := &countingTask{name: "stats", schedule: "* * * * * *"}
	registry.Register(task)

	got, ok := registry.Get("stats")
	require.True(t, ok)
	assert.Same(t, task, got)

	_, ok = registry.Get("missing")
	assert.False(t, ok)

	all := registry.All()
	delete(all, "stats")
	assert.Len(t, registry.All(), 1)
}

func TestRunnerExecutesScheduledTasks(t *testing.T) {
	registry := NewTaskRegistry()
	task := &countingTask{name: "every-second", schedule: "* * * * * *"}
	registry.Register(task)
	r := NewRunner(registry, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	assert.Eventually(t, func() bool { return task.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunnerRejectsBadSchedule(t *testing.T) {
	registry := NewTaskRegistry()
	registry.Register(&countingTask{name: "broken", schedule: "not a schedule"})
	r := NewRunner(registry, zerolog.Nop())

	err := r.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestRunOnce(t *testing.T) {
	registry := NewTaskRegistry()
	task := &countingTask{name: "retry", schedule: "0 * * * * *", err: errors.New("boom")}
	registry.Register(task)
	r := NewRunner(registry, zerolog.Nop())

	assert.EqualError(t, r.RunOnce(context.Background(), "retry"), "boom")
	assert.Equal(t, int32(1), task.runs.Load())
	assert.Error(t, r.RunOnce(context.Background(), "missing"))
}
