package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/suntvalg/suntvalg-server/internal/models"
	"github.com/suntvalg/suntvalg-server/internal/repository"
)

// ConversationRepository provides an in-memory implementation of repository.ConversationRepository
type ConversationRepository struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
	messages      map[int64][]models.Message
	nextConvID    int64
	nextMsgID     int64
	now           func() time.Time
}

// NewConversationRepository creates a new in-memory conversation repository
func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{
		conversations: make(map[string]*models.Conversation),
		messages:      make(map[int64][]models.Message),
		now:           time.Now,
	}
}

func (r *ConversationRepository) GetOrCreate(ctx context.Context, email, language string, waitlistID *uuid.UUID) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(email)
	if conv, ok := r.conversations[key]; ok {
		cp := *conv
		return &cp, nil
	}

	r.nextConvID++
	conv := &models.Conversation{
		ID:        r.nextConvID,
		Email:     email,
		Language:  language,
		CreatedAt: r.now().UTC(),
	}
	if waitlistID != nil {
		id := *waitlistID
		conv.WaitlistID = &id
	}
	r.conversations[key] = conv

	cp := *conv
	return &cp, nil
}

func (r *ConversationRepository) GetByEmail(ctx context.Context, email string) (*models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.conversations[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *conv
	return &cp, nil
}

func (r *ConversationRepository) AddMessage(ctx context.Context, conversationID int64, direction models.Direction, subject *string, content string) (*models.Message, error) {
	if !direction.Valid() {
		return nil, fmt.Errorf("invalid message direction %q", direction)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.hasConversation(conversationID) {
		return nil, fmt.Errorf("failed to add %s message: conversation %d: %w", direction, conversationID, repository.ErrNotFound)
	}

	r.nextMsgID++
	msg := models.Message{
		ID:             r.nextMsgID,
		ConversationID: conversationID,
		Direction:      direction,
		Content:        content,
		CreatedAt:      r.now().UTC(),
	}
	if subject != nil {
		s := *subject
		msg.Subject = &s
	}
	r.messages[conversationID] = append(r.messages[conversationID], msg)

	cp := msg
	return &cp, nil
}

// ListMessages returns messages in insertion order, which matches
// (created_at, id) ordering for a single process.
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID int64) ([]models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Message, len(r.messages[conversationID]))
	copy(out, r.messages[conversationID])
	return out, nil
}

// Conversations returns a snapshot of every stored conversation.
func (r *ConversationRepository) Conversations() []models.Conversation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Conversation, 0, len(r.conversations))
	for _, c := range r.conversations {
		out = append(out, *c)
	}
	return out
}

func (r *ConversationRepository) hasConversation(id int64) bool {
	for _, c := range r.conversations {
		if c.ID == id {
			return true
		}
	}
	return false
}

var _ repository.ConversationRepository = (*ConversationRepository)(nil)
