package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/suntvalg/suntvalg-server/internal/metrics"
	"github.com/suntvalg/suntvalg-server/internal/models"
	"github.com/suntvalg/suntvalg-server/internal/repository"
)

// DefaultMaxAttempts bounds how often an operator retry runs the same job.
const DefaultMaxAttempts = 5

// DeadLetters records failed jobs. Nothing retries them on its own: a failure
// stays pending until Retry is called (the dead-letters retry command), and is
// parked once it fails permanently or reaches maxAttempts.
type DeadLetters struct {
	store       repository.JobFailureRepository
	registry    *Registry
	maxAttempts int
	now         func() time.Time
	logger      zerolog.Logger
}

// RetryStats summarizes one retry pass.
type RetryStats struct {
	Succeeded int
	Failed    int
	Parked    int
}

func NewDeadLetters(store repository.JobFailureRepository, registry *Registry, maxAttempts int, logger zerolog.Logger) *DeadLetters {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &DeadLetters{
		store:       store,
		registry:    registry,
		maxAttempts: maxAttempts,
		now:         time.Now,
		logger:      logger,
	}
}

// Record stores a job that failed its first run. A checkpoint carried by cause
// replaces the payload. Permanent failures are parked immediately.
func (d *DeadLetters) Record(ctx context.Context, job Job, cause error) error {
	next := d.pendingUntil(1, cause)
	stored, err := d.store.Record(ctx, &models.JobFailure{
		Kind:          job.Kind,
		Payload:       payloadAfter(job, cause),
		LastError:     errorText(cause),
		Attempts:      1,
		NextAttemptAt: next,
	})
	if err != nil {
		return err
	}

	d.logger.Warn().
		Int64("failure_id", stored.ID).
		Str("kind", job.Kind).
		Bool("parked", next == nil).
		AnErr("cause", cause).
		Msg("job dead-lettered")
	d.refreshGauge(ctx)
	return nil
}

// Retry runs up to limit pending failures again, synchronously.
func (d *DeadLetters) Retry(ctx context.Context, limit int) (RetryStats, error) {
	var stats RetryStats

	due, err := d.store.Due(ctx, d.now(), limit)
	if err != nil {
		return stats, fmt.Errorf("failed to load dead letters: %w", err)
	}

	for _, f := range due {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		job := Job{Kind: f.Kind, Payload: f.Payload}
		runErr := d.registry.Handle(ctx, job)
		if runErr == nil {
			stats.Succeeded++
			if err := d.store.Delete(ctx, f.ID); err != nil {
				return stats, fmt.Errorf("failed to clear dead letter %d: %w", f.ID, err)
			}
			d.logger.Info().Int64("failure_id", f.ID).Str("kind", f.Kind).Int("attempt", f.Attempts+1).Msg("dead letter retried")
			continue
		}

		attempts := f.Attempts + 1
		next := d.pendingUntil(attempts, runErr)
		if next == nil {
			stats.Parked++
		} else {
			stats.Failed++
		}
		if err := d.store.Reschedule(ctx, f.ID, attempts, payloadAfter(job, runErr), errorText(runErr), next); err != nil {
			return stats, fmt.Errorf("failed to reschedule dead letter %d: %w", f.ID, err)
		}
		d.logger.Warn().Int64("failure_id", f.ID).Str("kind", f.Kind).Int("attempt", attempts).Bool("parked", next == nil).AnErr("cause", runErr).Msg("dead letter retry failed")
	}

	d.refreshGauge(ctx)
	return stats, nil
}

// Pending counts stored failures and refreshes the dead-letter gauge.
func (d *DeadLetters) Pending(ctx context.Context) (int, error) {
	n, err := d.store.Count(ctx)
	if err != nil {
		return 0, err
	}
	metrics.DeadLetters.Set(float64(n))
	return n, nil
}

// pendingUntil returns the time from which a failure is eligible for an
// operator retry, or nil when it is parked.
func (d *DeadLetters) pendingUntil(attempts int, cause error) *time.Time {
	if Permanent(cause) || attempts >= d.maxAttempts {
		return nil
	}
	now := d.now()
	return &now
}

func (d *DeadLetters) refreshGauge(ctx context.Context) {
	if _, err := d.Pending(ctx); err != nil {
		d.logger.Debug().Err(err).Msg("failed to count dead letters")
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
