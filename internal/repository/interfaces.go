package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/suntvalg/suntvalg-server/internal/models"
)

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("not found")

// WaitlistRepository stores pre-launch signups.
type WaitlistRepository interface {
	// Create inserts entry unless its email is already present, in which case
	// the stored entry is returned with created=false.
	Create(ctx context.Context, entry *models.WaitlistEntry) (stored *models.WaitlistEntry, created bool, err error)
	GetByEmail(ctx context.Context, email string) (*models.WaitlistEntry, error)
	List(ctx context.Context) ([]models.WaitlistEntry, error)
	Count(ctx context.Context) (int, error)
}

// ConversationRepository stores conversations and their messages.
type ConversationRepository interface {
	// GetOrCreate returns the conversation for email, creating it atomically
	// with language and waitlistID when none exists.
	GetOrCreate(ctx context.Context, email, language string, waitlistID *uuid.UUID) (*models.Conversation, error)
	GetByEmail(ctx context.Context, email string) (*models.Conversation, error)
	AddMessage(ctx context.Context, conversationID int64, direction models.Direction, subject *string, content string) (*models.Message, error)
	// ListMessages returns the conversation history oldest first.
	ListMessages(ctx context.Context, conversationID int64) ([]models.Message, error)
}

// JobFailureRepository stores dead-lettered background jobs. A failure with a
// nil next attempt is parked and never picked up by Due. Reschedule replaces
// the payload so a retried job can carry the progress of its last run.
type JobFailureRepository interface {
	Record(ctx context.Context, failure *models.JobFailure) (*models.JobFailure, error)
	Due(ctx context.Context, now time.Time, limit int) ([]models.JobFailure, error)
	Reschedule(ctx context.Context, id int64, attempts int, payload json.RawMessage, lastError string, next *time.Time) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit int) ([]models.JobFailure, error)
	Count(ctx context.Context) (int, error)
}
