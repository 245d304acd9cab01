package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/suntvalg/suntvalg-server/internal/email/inbound"
	"github.com/suntvalg/suntvalg-server/internal/jobs"
	"github.com/suntvalg/suntvalg-server/internal/notifications"
)

// ErrMissingBody is returned when an inbound email has no usable content even
// after asking the provider for it.
var ErrMissingBody = errors.New("inbound email has no body")

// WelcomeSender sends the localized waitlist welcome email.
type WelcomeSender interface {
	SendWelcome(ctx context.Context, to, lang string) error
}

// BodyFetcher loads a received email from the provider when the webhook
// carried only metadata.
type BodyFetcher interface {
	GetReceivedEmail(ctx context.Context, id string) (*notifications.ReceivedEmail, error)
}

// RegisterJobHandlers wires the background job kinds to the services. fetcher
// may be nil, in which case emails without a body are dropped.
func RegisterJobHandlers(registry *jobs.Registry, welcome WelcomeSender, support *SupportService, fetcher BodyFetcher, logger zerolog.Logger) {
	registry.Register(jobs.KindWelcomeEmail, func(ctx context.Context, job jobs.Job) error {
		var p jobs.WelcomeEmailPayload
		if err := job.Decode(&p); err != nil {
			return err
		}
		return welcome.SendWelcome(ctx, p.Email, p.Language)
	})

	registry.Register(jobs.KindInboundEmail, func(ctx context.Context, job jobs.Job) error {
		var p jobs.InboundEmailPayload
		if err := job.Decode(&p); err != nil {
			return err
		}

		content, err := resolveContent(ctx, p, fetcher)
		if errors.Is(err, ErrMissingBody) {
			logger.Warn().Str("message_id", p.MessageID).Str("from", p.From).Msg("dropping inbound email without body")
			return nil
		}
		if err != nil {
			return err
		}

		err = support.ResumeIncomingEmail(ctx, p.From, p.Subject, content, Progress{
			InboundMessageID: p.InboundMessageID,
			Reply:            p.Reply,
		})
		if errors.Is(err, ErrEmptyReply) {
			err = jobs.MarkPermanent(err)
		}

		var incomplete *IncompleteError
		if errors.As(err, &incomplete) {
			p.Content = content
			p.InboundMessageID = incomplete.Progress.InboundMessageID
			p.Reply = incomplete.Progress.Reply
			return jobs.WithCheckpoint(err, p)
		}
		return err
	})
}

func resolveContent(ctx context.Context, p jobs.InboundEmailPayload, fetcher BodyFetcher) (string, error) {
	if strings.TrimSpace(p.Content) != "" {
		return p.Content, nil
	}
	if fetcher == nil || p.MessageID == "" {
		return "", ErrMissingBody
	}

	received, err := fetcher.GetReceivedEmail(ctx, p.MessageID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch body of %s: %w", p.MessageID, err)
	}
	content := inbound.ResolveBody(received.Text, received.HTML)
	if content == "" {
		return "", ErrMissingBody
	}
	return content, nil
}
