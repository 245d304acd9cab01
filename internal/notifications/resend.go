package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultResendURL = "https://api.resend.com"

// ResendProvider sends and retrieves email through the Resend HTTP API.
type ResendProvider struct {
	client *resty.Client
}

// ReceivedEmail is the body of an inbound email as stored by the provider.
type ReceivedEmail struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

type resendSendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

type resendSendResponse struct {
	ID string `json:"id"`
}

type resendError struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

// NewResendProvider creates a client for baseURL (empty means the public API).
func NewResendProvider(apiKey, baseURL string) *ResendProvider {
	if baseURL == "" {
		baseURL = defaultResendURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "suntvalg-server/1.0").
		SetTimeout(20 * time.Second)

	return &ResendProvider{client: client}
}

func (p *ResendProvider) Send(ctx context.Context, msg EmailMessage) error {
	if err := msg.validate(); err != nil {
		return err
	}

	var result resendSendResponse
	var apiErr resendError
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(resendSendRequest{
			From:    msg.From,
			To:      msg.To,
			Subject: msg.Subject,
			HTML:    msg.HTML,
			Text:    msg.Text,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/emails")
	if err != nil {
		return fmt.Errorf("failed to call resend: %w", err)
	}

	if resp.IsError() {
		if apiErr.Message != "" {
			return fmt.Errorf("resend API error (status %d): %s: %s", resp.StatusCode(), apiErr.Name, apiErr.Message)
		}
		return fmt.Errorf("resend API error (status %d): %s", resp.StatusCode(), resp.String())
	}

	return nil
}

// GetReceivedEmail fetches an inbound email whose webhook carried no body.
func (p *ResendProvider) GetReceivedEmail(ctx context.Context, id string) (*ReceivedEmail, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("received email id is empty")
	}

	var result ReceivedEmail
	resp, err := p.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&result).
		Get("/emails/receiving/{id}")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch received email: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("resend API error (status %d): %s", resp.StatusCode(), resp.String())
	}

	return &result, nil
}
