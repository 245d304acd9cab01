package notifications

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPProviderSend(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	p := NewSMTPProvider(SMTPConfig{Host: "mail.local", Port: 2525, User: "u", Password: "p"})
	p.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	p.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, string(msg)
		return nil
	}

	err := p.Send(context.Background(), EmailMessage{
		From:    DefaultReplyFrom,
		To:      []string{"a@b.com"},
		Subject: "Re: Spørsmål",
		Text:    "plain body",
		HTML:    "<p>html body</p>",
	})
	require.NoError(t, err)

	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "hello@suntvalg.app", gotFrom)
	assert.Equal(t, []string{"a@b.com"}, gotTo)
	assert.Contains(t, gotMsg, "multipart/alternative")
	assert.Contains(t, gotMsg, "text/plain")
	assert.Contains(t, gotMsg, "text/html")
	assert.Contains(t, gotMsg, "Message-Id:")
	assert.True(t, strings.Contains(gotMsg, "plain body") || strings.Contains(gotMsg, "cGxhaW4gYm9keQ"))
}

func TestSMTPProviderErrors(t *testing.T) {
	t.Run("no recipients", func(t *testing.T) {
		p := NewSMTPProvider(SMTPConfig{Host: "mail.local", Port: 25})
		assert.ErrorIs(t, p.Send(context.Background(), EmailMessage{From: DefaultWelcomeFrom}), ErrNoRecipients)
	})

	t.Run("no host", func(t *testing.T) {
		p := NewSMTPProvider(SMTPConfig{})
		err := p.Send(context.Background(), EmailMessage{From: DefaultWelcomeFrom, To: []string{"a@b.com"}})
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("bad recipient", func(t *testing.T) {
		p := NewSMTPProvider(SMTPConfig{Host: "mail.local", Port: 25})
		p.send = func(string, smtp.Auth, string, []string, []byte) error { return nil }
		err := p.Send(context.Background(), EmailMessage{From: DefaultWelcomeFrom, To: []string{"not an address"}})
		assert.Error(t, err)
	})

	t.Run("transport failure", func(t *testing.T) {
		p := NewSMTPProvider(SMTPConfig{Host: "mail.local", Port: 25})
		p.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("421 try later") }
		err := p.Send(context.Background(), EmailMessage{From: DefaultWelcomeFrom, To: []string{"a@b.com"}, Text: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "421")
	})
}
