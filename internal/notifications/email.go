package notifications

import (
	"context"
	"errors"
)

var (
	ErrNoRecipients = errors.New("no recipients specified")
	ErrNotConfigured = errors.New("email provider not configured")
)

// EmailMessage is one outbound email. HTML and Text are alternatives of the
// same content; either may be empty.
type EmailMessage struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

// EmailProvider delivers an EmailMessage through a transport.
type EmailProvider interface {
	Send(ctx context.Context, msg EmailMessage) error
}

func (m EmailMessage) validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}
	return nil
}
