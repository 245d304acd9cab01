package models

import (
	"encoding/json"
	"time"
)

// JobFailure is a dead-lettered background job.
type JobFailure struct {
	ID            int64           `json:"id" db:"id"`
	Kind          string          `json:"kind" db:"kind"`
	Payload       json.RawMessage `json:"payload" db:"payload"`
	LastError     string          `json:"lastError" db:"last_error"`
	Attempts      int             `json:"attempts" db:"attempts"`
	NextAttemptAt *time.Time      `json:"nextAttemptAt,omitempty" db:"next_attempt_at"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
}

// Exhausted reports whether the failure is parked for manual inspection.
func (f *JobFailure) Exhausted() bool {
	return f.NextAttemptAt == nil
}
