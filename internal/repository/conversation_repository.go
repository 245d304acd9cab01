package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/suntvalg/suntvalg-server/internal/models"
)

const (
	insertConversationQuery = `
		INSERT INTO email_conversations (email, language, waitlist_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO NOTHING
		RETURNING id, waitlist_id, email, language, created_at`

	selectConversationByEmailQuery = `
		SELECT id, waitlist_id, email, language, created_at
		FROM email_conversations
		WHERE email = $1`

	insertMessageQuery = `
		INSERT INTO email_messages (conversation_id, direction, subject, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, conversation_id, direction, subject, content, created_at`

	listMessagesQuery = `
		SELECT id, conversation_id, direction, subject, content, created_at
		FROM email_messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC`
)

type SQLConversationRepository struct {
	db *sqlx.DB
}

func NewConversationRepository(db *sqlx.DB) *SQLConversationRepository {
	return &SQLConversationRepository{db: db}
}

// GetOrCreate relies on the unique index on email_conversations.email so that
// concurrent first contacts from one address converge on a single row.
func (r *SQLConversationRepository) GetOrCreate(ctx context.Context, email, language string, waitlistID *uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, insertConversationQuery, email, language, waitlistID)
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	existing, err := r.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing conversation: %w", err)
	}
	return existing, nil
}

func (r *SQLConversationRepository) GetByEmail(ctx context.Context, email string) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, selectConversationByEmailQuery, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return &conv, nil
}

func (r *SQLConversationRepository) AddMessage(ctx context.Context, conversationID int64, direction models.Direction, subject *string, content string) (*models.Message, error) {
	if !direction.Valid() {
		return nil, fmt.Errorf("invalid message direction %q", direction)
	}

	var msg models.Message
	err := r.db.GetContext(ctx, &msg, insertMessageQuery, conversationID, direction, subject, content)
	if err != nil {
		return nil, fmt.Errorf("failed to add %s message: %w", direction, err)
	}
	return &msg, nil
}

func (r *SQLConversationRepository) ListMessages(ctx context.Context, conversationID int64) ([]models.Message, error) {
	messages := []models.Message{}
	if err := r.db.SelectContext(ctx, &messages, listMessagesQuery, conversationID); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}
