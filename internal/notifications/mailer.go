package notifications

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/suntvalg/suntvalg-server/internal/metrics"
)

const (
	DefaultWelcomeFrom = "hello@suntvalg.app"
	DefaultReplyFrom   = "SuntValg Support <hello@suntvalg.app>"
)

// Mailer composes the application's emails and hands them to a provider.
type Mailer struct {
	provider    EmailProvider
	templates   *Templates
	welcomeFrom string
	replyFrom   string
	logger      zerolog.Logger
}

// MailerOption customizes Mailer.
type MailerOption func(*Mailer)

// WithMailerLogger overrides the logger used for diagnostics.
func WithMailerLogger(logger zerolog.Logger) MailerOption {
	return func(m *Mailer) {
		m.logger = logger
	}
}

// WithSenders overrides the From addresses of welcome and reply emails.
func WithSenders(welcomeFrom, replyFrom string) MailerOption {
	return func(m *Mailer) {
		if welcomeFrom != "" {
			m.welcomeFrom = welcomeFrom
		}
		if replyFrom != "" {
			m.replyFrom = replyFrom
		}
	}
}

func NewMailer(provider EmailProvider, templates *Templates, opts ...MailerOption) *Mailer {
	m := &Mailer{
		provider:    provider,
		templates:   templates,
		welcomeFrom: DefaultWelcomeFrom,
		replyFrom:   DefaultReplyFrom,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// SendWelcome sends the waitlist welcome email in lang, falling back to the
// base language when lang has no copy.
func (m *Mailer) SendWelcome(ctx context.Context, to, lang string) (err error) {
	defer func() { metrics.EmailsSent.WithLabelValues("welcome", metrics.Result(err)).Inc() }()

	rendered, err := m.templates.RenderWelcome(lang)
	if err != nil {
		return err
	}

	err = m.provider.Send(ctx, EmailMessage{
		From:    m.welcomeFrom,
		To:      []string{to},
		Subject: rendered.Subject,
		HTML:    rendered.HTML,
		Text:    rendered.Text,
	})
	if err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}

	_, used := m.templates.WelcomeContent(lang)
	m.logger.Info().Str("to", to).Str("language", used).Msg("welcome email sent")
	return nil
}

// SendReply sends an assistant reply to the original sender.
func (m *Mailer) SendReply(ctx context.Context, to, subject, reply string) (err error) {
	defer func() { metrics.EmailsSent.WithLabelValues("reply", metrics.Result(err)).Inc() }()

	rendered, err := m.templates.RenderReply(subject, reply)
	if err != nil {
		return err
	}

	err = m.provider.Send(ctx, EmailMessage{
		From:    m.replyFrom,
		To:      []string{to},
		Subject: rendered.Subject,
		HTML:    rendered.HTML,
		Text:    rendered.Text,
	})
	if err != nil {
		return fmt.Errorf("failed to send reply email: %w", err)
	}

	m.logger.Info().Str("to", to).Msg("reply sent")
	return nil
}
