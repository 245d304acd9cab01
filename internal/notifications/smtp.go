package notifications

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/smtp"
	"strconv"
	"time"

	gomail "github.com/emersion/go-message/mail"
)

// SMTPConfig holds the transport settings of SMTPProvider.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

// SMTPProvider delivers email over plain SMTP, upgrading with STARTTLS when
// the server offers it.
type SMTPProvider struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	now  func() time.Time
}

func NewSMTPProvider(cfg SMTPConfig) *SMTPProvider {
	return &SMTPProvider{cfg: cfg, send: smtp.SendMail, now: time.Now}
}

func (s *SMTPProvider) Send(_ context.Context, msg EmailMessage) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if s.cfg.Host == "" {
		return ErrNotConfigured
	}

	from, err := gomail.ParseAddress(msg.From)
	if err != nil {
		return fmt.Errorf("invalid sender %q: %w", msg.From, err)
	}

	raw, err := s.buildMessage(from, msg)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if s.cfg.User != "" && s.cfg.Password != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}

	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	if err := s.send(addr, auth, from.Address, msg.To, raw); err != nil {
		return fmt.Errorf("failed to send via SMTP: %w", err)
	}
	return nil
}

// buildMessage renders msg as multipart/alternative with a text and an HTML part.
func (s *SMTPProvider) buildMessage(from *gomail.Address, msg EmailMessage) ([]byte, error) {
	var h gomail.Header
	h.SetDate(s.now())
	h.SetAddressList("From", []*gomail.Address{from})
	h.SetSubject(msg.Subject)

	to := make([]*gomail.Address, 0, len(msg.To))
	for _, rcpt := range msg.To {
		addr, err := gomail.ParseAddress(rcpt)
		if err != nil {
			return nil, fmt.Errorf("invalid recipient %q: %w", rcpt, err)
		}
		to = append(to, addr)
	}
	h.SetAddressList("To", to)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}

	var buf bytes.Buffer
	mw, err := gomail.CreateInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}

	if msg.Text != "" {
		if err := writePart(mw, "text/plain", msg.Text); err != nil {
			return nil, err
		}
	}
	if msg.HTML != "" {
		if err := writePart(mw, "text/html", msg.HTML); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish message: %w", err)
	}

	return buf.Bytes(), nil
}

func writePart(mw *gomail.InlineWriter, contentType, body string) error {
	var ph gomail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := mw.CreatePart(ph)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("failed to write %s part: %w", contentType, err)
	}
	return w.Close()
}
