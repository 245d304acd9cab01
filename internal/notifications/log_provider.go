package notifications

import (
	"context"

	"github.com/rs/zerolog"
)

// LogProvider writes outbound email to the log instead of delivering it.
// It is meant for local development without provider credentials.
type LogProvider struct {
	logger zerolog.Logger
}

func NewLogProvider(logger zerolog.Logger) *LogProvider {
	return &LogProvider{logger: logger}
}

func (p *LogProvider) Send(_ context.Context, msg EmailMessage) error {
	if err := msg.validate(); err != nil {
		return err
	}
	p.logger.Info().
		Str("from", msg.From).
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Int("text_bytes", len(msg.Text)).
		Int("html_bytes", len(msg.HTML)).
		Msg("email not delivered (log provider)")
	return nil
}
