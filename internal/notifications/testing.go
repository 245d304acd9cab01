package notifications

import (
	"context"
	"sync"
)

// RecordingProvider keeps every message it is asked to send. It can be told
// to fail so callers' error paths can be exercised.
type RecordingProvider struct {
	mu   sync.Mutex
	sent []EmailMessage
	Err  error
}

func (p *RecordingProvider) Send(_ context.Context, msg EmailMessage) error {
	if err := msg.validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.sent = append(p.sent, msg)
	return nil
}

// Sent returns a copy of the delivered messages.
func (p *RecordingProvider) Sent() []EmailMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EmailMessage, len(p.sent))
	copy(out, p.sent)
	return out
}
