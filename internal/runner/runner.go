package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Runner manages and executes scheduled background tasks
type Runner struct {
	cron     *cron.Cron
	registry *TaskRegistry
	logger   zerolog.Logger
	wg       sync.WaitGroup
}

// NewRunner creates a new task runner
func NewRunner(registry *TaskRegistry, logger zerolog.Logger) *Runner {
	return &Runner{
		cron:     cron.New(cron.WithSeconds()),
		registry: registry,
		logger:   logger.With().Str("component", "runner").Logger(),
	}
}

// Start schedules every registered task and blocks until ctx is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	r.logger.Info().Msg("starting task runner")

	for name, task := range r.registry.All() {
		r.logger.Info().Str("task", name).Str("schedule", task.Schedule()).Msg("registering task")

		_, err := r.cron.AddFunc(task.Schedule(), func() {
			r.executeTask(ctx, task)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule task %s: %w", name, err)
		}
	}

	r.cron.Start()
	r.logger.Info().Int("tasks", len(r.registry.All())).Msg("task runner started")

	<-ctx.Done()
	r.Stop()
	return nil
}

// executeTask runs a single task with timeout and error handling
func (r *Runner) executeTask(ctx context.Context, task Task) {
	r.wg.Add(1)
	defer r.wg.Done()

	taskCtx, cancel := context.WithTimeout(ctx, task.Timeout())
	defer cancel()

	start := time.Now()
	err := task.Run(taskCtx)
	duration := time.Since(start)

	if err != nil {
		r.logger.Error().Err(err).Str("task", task.Name()).Dur("duration", duration).Msg("task failed")
	} else {
		r.logger.Debug().Str("task", task.Name()).Dur("duration", duration).Msg("task completed")
	}
}

// RunOnce executes the named task immediately, outside its schedule.
func (r *Runner) RunOnce(ctx context.Context, name string) error {
	task, ok := r.registry.Get(name)
	if !ok {
		return fmt.Errorf("unknown task %q", name)
	}
	taskCtx, cancel := context.WithTimeout(ctx, task.Timeout())
	defer cancel()
	return task.Run(taskCtx)
}

// Stop gracefully shuts down the runner
func (r *Runner) Stop() {
	r.logger.Info().Msg("stopping task runner")

	// Stop accepting new tasks
	ctx := r.cron.Stop()

	// Wait for running tasks to complete
	r.wg.Wait()
	<-ctx.Done()

	r.logger.Info().Msg("task runner stopped")
}
