// Package webhook authenticates inbound provider callbacks signed with the
// svix scheme (svix-id, svix-timestamp and svix-signature headers).
package webhook

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	svix "github.com/svix/svix-webhooks/go"
)

const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"
)

var (
	ErrSecretNotConfigured = errors.New("webhook secret not configured")
	ErrSecretInvalid       = errors.New("webhook secret is malformed")
	ErrMissingHeaders      = errors.New("missing webhook signature headers")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
)

// SecretFunc returns the current signing secret. It is called per request so
// that configuration reloads take effect without a restart.
type SecretFunc func() string

// Verifier checks request signatures against the configured secret.
type Verifier struct {
	secret SecretFunc

	mu       sync.Mutex
	cachedAt string
	cached   *svix.Webhook
}

// NewVerifier builds a Verifier around a secret source.
func NewVerifier(secret SecretFunc) *Verifier {
	return &Verifier{secret: secret}
}

// StaticSecret adapts a fixed secret to a SecretFunc.
func StaticSecret(secret string) SecretFunc {
	return func() string { return secret }
}

// Configured reports whether a signing secret is available.
func (v *Verifier) Configured() bool {
	return v != nil && v.secret != nil && v.secret() != ""
}

// Verify authenticates body against the signature headers. It fails closed:
// an absent secret is an error, never a pass.
func (v *Verifier) Verify(body []byte, header http.Header) error {
	if !v.Configured() {
		return ErrSecretNotConfigured
	}
	if header.Get(HeaderID) == "" || header.Get(HeaderTimestamp) == "" || header.Get(HeaderSignature) == "" {
		return ErrMissingHeaders
	}

	wh, err := v.webhook()
	if err != nil {
		return err
	}
	if err := wh.Verify(body, header); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

func (v *Verifier) webhook() (*svix.Webhook, error) {
	secret := v.secret()

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.cached != nil && v.cachedAt == secret {
		return v.cached, nil
	}
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSecretInvalid, err)
	}
	v.cached = wh
	v.cachedAt = secret
	return wh, nil
}
