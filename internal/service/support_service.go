package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/suntvalg/suntvalg-server/internal/email/inbound"
	"github.com/suntvalg/suntvalg-server/internal/language"
	"github.com/suntvalg/suntvalg-server/internal/models"
	"github.com/suntvalg/suntvalg-server/internal/notifications"
	"github.com/suntvalg/suntvalg-server/internal/repository"
)

// DefaultConversationLanguage is used for senders that never joined the waitlist.
const DefaultConversationLanguage = "en"

// ErrEmptyReply is returned when the model produced no text to send.
var ErrEmptyReply = errors.New("model returned an empty reply")

// ReplyComposer produces the assistant's next message for a conversation.
type ReplyComposer interface {
	Compose(ctx context.Context, lang string, history []models.Message) (string, error)
}

// ReplySender delivers a composed reply to the customer.
type ReplySender interface {
	SendReply(ctx context.Context, to, subject, reply string) error
}

// SupportService answers inbound support email with a model-written reply
// threaded into the sender's conversation.
type SupportService struct {
	waitlist      repository.WaitlistRepository
	conversations repository.ConversationRepository
	composer      ReplyComposer
	sender        ReplySender
	logger        zerolog.Logger
}

func NewSupportService(
	waitlist repository.WaitlistRepository,
	conversations repository.ConversationRepository,
	composer ReplyComposer,
	sender ReplySender,
	logger zerolog.Logger,
) *SupportService {
	return &SupportService{
		waitlist:      waitlist,
		conversations: conversations,
		composer:      composer,
		sender:        sender,
		logger:        logger,
	}
}

// Progress records how far a ProcessIncomingEmail run got. A zero Progress
// means nothing was stored yet.
type Progress struct {
	// InboundMessageID is set once the inbound message is stored.
	InboundMessageID int64
	// Reply is set once the model's reply is stored as the outbound message.
	Reply string
}

// IncompleteError is returned when a run fails after the inbound message was
// stored. Passing its Progress to ResumeIncomingEmail finishes the run without
// storing the inbound message or the reply a second time.
type IncompleteError struct {
	Progress Progress
	Err      error
}

func (e *IncompleteError) Error() string { return e.Err.Error() }

func (e *IncompleteError) Unwrap() error { return e.Err }

// ProcessIncomingEmail records the inbound message, asks the model for a reply
// over the whole conversation, records the reply and emails it back. The first
// failing step aborts the run; earlier steps are not rolled back.
func (s *SupportService) ProcessIncomingEmail(ctx context.Context, from, subject, content string) error {
	return s.ResumeIncomingEmail(ctx, from, subject, content, Progress{})
}

// ResumeIncomingEmail runs the steps of ProcessIncomingEmail that progress
// does not mark as done.
func (s *SupportService) ResumeIncomingEmail(ctx context.Context, from, subject, content string, progress Progress) error {
	email := strings.ToLower(strings.TrimSpace(from))
	if email == "" {
		return fmt.Errorf("sender is required")
	}
	if strings.TrimSpace(subject) == "" {
		subject = inbound.DefaultSubject
	}

	conv, err := s.inboundConversation(ctx, email, subject, content, &progress)
	if err != nil {
		return err
	}
	log := s.logger.With().Int64("conversation_id", conv.ID).Str("language", conv.Language).Logger()

	incomplete := func(err error) error {
		return &IncompleteError{Progress: progress, Err: err}
	}

	if progress.Reply == "" {
		history, err := s.conversations.ListMessages(ctx, conv.ID)
		if err != nil {
			return incomplete(fmt.Errorf("failed to load conversation history: %w", err))
		}

		reply, err := s.composer.Compose(ctx, conv.Language, history)
		if err != nil {
			return incomplete(fmt.Errorf("failed to compose reply: %w", err))
		}
		if strings.TrimSpace(reply) == "" {
			return incomplete(ErrEmptyReply)
		}

		replySubject := notifications.ReplySubject(subject)
		if _, err := s.conversations.AddMessage(ctx, conv.ID, models.DirectionOutbound, &replySubject, reply); err != nil {
			return incomplete(fmt.Errorf("failed to store reply: %w", err))
		}
		progress.Reply = reply
	} else {
		log.Info().Int64("inbound_message_id", progress.InboundMessageID).Msg("resending stored reply")
	}

	if err := s.sender.SendReply(ctx, email, subject, progress.Reply); err != nil {
		return incomplete(err)
	}

	log.Info().Msg("support reply sent")
	return nil
}

// inboundConversation stores the inbound message unless progress says it is
// already there, and returns the sender's conversation.
func (s *SupportService) inboundConversation(ctx context.Context, email, subject, content string, progress *Progress) (*models.Conversation, error) {
	if progress.InboundMessageID != 0 {
		conv, err := s.conversations.GetByEmail(ctx, email)
		if err != nil {
			return nil, &IncompleteError{Progress: *progress, Err: fmt.Errorf("failed to get conversation: %w", err)}
		}
		return conv, nil
	}

	lang, waitlistID, err := s.resolveLanguage(ctx, email)
	if err != nil {
		return nil, err
	}

	conv, err := s.conversations.GetOrCreate(ctx, email, lang, waitlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	msg, err := s.conversations.AddMessage(ctx, conv.ID, models.DirectionInbound, &subject, content)
	if err != nil {
		return nil, fmt.Errorf("failed to store inbound message: %w", err)
	}
	progress.InboundMessageID = msg.ID
	return conv, nil
}

// resolveLanguage reads the language the sender chose on the waitlist.
func (s *SupportService) resolveLanguage(ctx context.Context, email string) (string, *uuid.UUID, error) {
	entry, err := s.waitlist.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return DefaultConversationLanguage, nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to look up waitlist entry: %w", err)
	}

	id := entry.ID
	return language.OrDefault(entry.Language, DefaultConversationLanguage), &id, nil
}
