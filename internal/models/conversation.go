package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
)

// Direction tells whether a stored message was received or generated.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == DirectionInbound || d == DirectionOutbound
}

// Role maps a direction onto a chat completion role.
func (d Direction) Role() string {
	if d == DirectionOutbound {
		return openai.ChatMessageRoleAssistant
	}
	return openai.ChatMessageRoleUser
}

// Conversation is the email thread between one sender address and the
// support assistant.
type Conversation struct {
	ID         int64      `json:"id" db:"id"`
	WaitlistID *uuid.UUID `json:"waitlistId,omitempty" db:"waitlist_id"`
	Email      string     `json:"email" db:"email"`
	Language   string     `json:"language" db:"language"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
}

// Message belongs to exactly one conversation and is never modified.
type Message struct {
	ID             int64     `json:"id" db:"id"`
	ConversationID int64     `json:"conversationId" db:"conversation_id"`
	Direction      Direction `json:"direction" db:"direction"`
	Subject        *string   `json:"subject,omitempty" db:"subject"`
	Content        string    `json:"content" db:"content"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}
