package tasks

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/suntvalg/suntvalg-server/internal/runner"
)

// Cleaner forgets idle per-client state.
type Cleaner interface {
	Cleanup() int
}

// RateLimitCleanupTask prunes idle clients from the rate limiter.
type RateLimitCleanupTask struct {
	cleaner Cleaner
	logger  zerolog.Logger
}

func NewRateLimitCleanupTask(cleaner Cleaner, logger zerolog.Logger) runner.Task {
	return &RateLimitCleanupTask{cleaner: cleaner, logger: logger}
}

func (t *RateLimitCleanupTask) Name() string {
	return "rate-limit-cleanup"
}

// Schedule returns the cron schedule (every 10 minutes)
func (t *RateLimitCleanupTask) Schedule() string {
	return "0 */10 * * * *"
}

func (t *RateLimitCleanupTask) Timeout() time.Duration {
	return 10 * time.Second
}

func (t *RateLimitCleanupTask) Run(ctx context.Context) error {
	if n := t.cleaner.Cleanup(); n > 0 {
		t.logger.Debug().Int("removed", n).Msg("rate limiter clients pruned")
	}
	return nil
}
