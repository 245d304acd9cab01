package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/suntvalg/suntvalg-server/internal/models"
)

const jobFailureColumns = `id, kind, payload, last_error, attempts, next_attempt_at, created_at, updated_at`

const (
	insertJobFailureQuery = `
		INSERT INTO job_failures (kind, payload, last_error, attempts, next_attempt_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + jobFailureColumns

	dueJobFailuresQuery = `
		SELECT ` + jobFailureColumns + `
		FROM job_failures
		WHERE next_attempt_at IS NOT NULL AND next_attempt_at <= $1
		ORDER BY next_attempt_at ASC
		LIMIT $2`

	rescheduleJobFailureQuery = `
		UPDATE job_failures
		SET attempts = $2, payload = $3, last_error = $4, next_attempt_at = $5, updated_at = NOW()
		WHERE id = $1`

	deleteJobFailureQuery = `DELETE FROM job_failures WHERE id = $1`

	listJobFailuresQuery = `
		SELECT ` + jobFailureColumns + `
		FROM job_failures
		ORDER BY created_at DESC
		LIMIT $1`

	countJobFailuresQuery = `SELECT COUNT(*) FROM job_failures`
)

type SQLJobFailureRepository struct {
	db *sqlx.DB
}

func NewJobFailureRepository(db *sqlx.DB) *SQLJobFailureRepository {
	return &SQLJobFailureRepository{db: db}
}

func (r *SQLJobFailureRepository) Record(ctx context.Context, failure *models.JobFailure) (*models.JobFailure, error) {
	attempts := failure.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var stored models.JobFailure
	err := r.db.GetContext(ctx, &stored, insertJobFailureQuery,
		failure.Kind,
		[]byte(failure.Payload),
		failure.LastError,
		attempts,
		failure.NextAttemptAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record job failure: %w", err)
	}
	return &stored, nil
}

func (r *SQLJobFailureRepository) Due(ctx context.Context, now time.Time, limit int) ([]models.JobFailure, error) {
	failures := []models.JobFailure{}
	if err := r.db.SelectContext(ctx, &failures, dueJobFailuresQuery, now, limit); err != nil {
		return nil, fmt.Errorf("failed to load due job failures: %w", err)
	}
	return failures, nil
}

func (r *SQLJobFailureRepository) Reschedule(ctx context.Context, id int64, attempts int, payload json.RawMessage, lastError string, next *time.Time) error {
	res, err := r.db.ExecContext(ctx, rescheduleJobFailureQuery, id, attempts, []byte(payload), lastError, next)
	if err != nil {
		return fmt.Errorf("failed to reschedule job failure %d: %w", id, err)
	}
	return expectAffected(res.RowsAffected())
}

func (r *SQLJobFailureRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, deleteJobFailureQuery, id)
	if err != nil {
		return fmt.Errorf("failed to delete job failure %d: %w", id, err)
	}
	return expectAffected(res.RowsAffected())
}

func (r *SQLJobFailureRepository) List(ctx context.Context, limit int) ([]models.JobFailure, error) {
	failures := []models.JobFailure{}
	if err := r.db.SelectContext(ctx, &failures, listJobFailuresQuery, limit); err != nil {
		return nil, fmt.Errorf("failed to list job failures: %w", err)
	}
	return failures, nil
}

func (r *SQLJobFailureRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, countJobFailuresQuery); err != nil {
		return 0, fmt.Errorf("failed to count job failures: %w", err)
	}
	return n, nil
}

func expectAffected(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ JobFailureRepository = (*SQLJobFailureRepository)(nil)
