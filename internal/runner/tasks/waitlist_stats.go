package tasks

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/suntvalg/suntvalg-server/internal/runner"
)

// StatsRefresher recomputes the waitlist gauge.
type StatsRefresher interface {
	RefreshStats(ctx context.Context) (int, error)
}

// WaitlistStatsTask keeps the waitlist gauge in step with the database, which
// also counts signups made by other replicas.
type WaitlistStatsTask struct {
	stats  StatsRefresher
	logger zerolog.Logger
}

func NewWaitlistStatsTask(stats StatsRefresher, logger zerolog.Logger) runner.Task {
	return &WaitlistStatsTask{stats: stats, logger: logger}
}

func (t *WaitlistStatsTask) Name() string {
	return "waitlist-stats"
}

// Schedule returns the cron schedule (every 5 minutes)
func (t *WaitlistStatsTask) Schedule() string {
	return "0 */5 * * * *"
}

func (t *WaitlistStatsTask) Timeout() time.Duration {
	return 30 * time.Second
}

func (t *WaitlistStatsTask) Run(ctx context.Context) error {
	n, err := t.stats.RefreshStats(ctx)
	if err != nil {
		return err
	}
	t.logger.Debug().Int("entries", n).Msg("waitlist stats refreshed")
	return nil
}
