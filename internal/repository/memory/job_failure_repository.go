package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/suntvalg/suntvalg-server/internal/models"
	"github.com/suntvalg/suntvalg-server/internal/repository"
)

// JobFailureRepository keeps dead letters in memory.
type JobFailureRepository struct {
	mu       sync.Mutex
	nextID   int64
	failures map[int64]*models.JobFailure
	now      func() time.Time
}

func NewJobFailureRepository() *JobFailureRepository {
	return &JobFailureRepository{
		failures: make(map[int64]*models.JobFailure),
		now:      time.Now,
	}
}

func (r *JobFailureRepository) Record(ctx context.Context, failure *models.JobFailure) (*models.JobFailure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	stored := *failure
	stored.ID = r.nextID
	if stored.Attempts < 1 {
		stored.Attempts = 1
	}
	stored.CreatedAt = r.now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	r.failures[stored.ID] = &stored

	cp := stored
	return &cp, nil
}

func (r *JobFailureRepository) Due(ctx context.Context, now time.Time, limit int) ([]models.JobFailure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []models.JobFailure
	for _, f := range r.failures {
		if f.NextAttemptAt != nil && !f.NextAttemptAt.After(now) {
			due = append(due, *f)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextAttemptAt.Before(*due[j].NextAttemptAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *JobFailureRepository) Reschedule(ctx context.Context, id int64, attempts int, payload json.RawMessage, lastError string, next *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.failures[id]
	if !ok {
		return repository.ErrNotFound
	}
	f.Attempts = attempts
	f.Payload = append(json.RawMessage(nil), payload...)
	f.LastError = lastError
	f.NextAttemptAt = next
	f.UpdatedAt = r.now().UTC()
	return nil
}

func (r *JobFailureRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.failures[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.failures, id)
	return nil
}

func (r *JobFailureRepository) List(ctx context.Context, limit int) ([]models.JobFailure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.JobFailure, 0, len(r.failures))
	for _, f := range r.failures {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *JobFailureRepository) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failures), nil
}

var _ repository.JobFailureRepository = (*JobFailureRepository)(nil)
