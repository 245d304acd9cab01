package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/suntvalg/suntvalg-server/internal/runner"
)

// PendingCounter reports how many failed jobs await an operator.
type PendingCounter interface {
	Pending(ctx context.Context) (int, error)
}

// DeadLetterReportTask keeps the dead-letter gauge current and warns while
// failed jobs are waiting. It never runs them: retries are an operator action
// (suntvalg dead-letters retry).
type DeadLetterReportTask struct {
	deadLetters PendingCounter
	logger      zerolog.Logger
}

func NewDeadLetterReportTask(deadLetters PendingCounter, logger zerolog.Logger) runner.Task {
	return &DeadLetterReportTask{
		deadLetters: deadLetters,
		logger:      logger,
	}
}

func (t *DeadLetterReportTask) Name() string {
	return "dead-letter-report"
}

func (t *DeadLetterReportTask) Schedule() string {
	return "0 */15 * * * *"
}

func (t *DeadLetterReportTask) Timeout() time.Duration {
	return 10 * time.Second
}

func (t *DeadLetterReportTask) Run(ctx context.Context) error {
	n, err := t.deadLetters.Pending(ctx)
	if err != nil {
		return fmt.Errorf("count dead letters: %w", err)
	}
	if n > 0 {
		t.logger.Warn().Int("pending", n).Msg("failed jobs are waiting in the dead-letter store")
	}
	return nil
}
