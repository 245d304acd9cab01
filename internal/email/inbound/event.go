package inbound

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// EventTypeEmailReceived is the only event type the pipeline acts on.
	EventTypeEmailReceived = "email.received"

	// DefaultSubject is used when the inbound email carries none.
	DefaultSubject = "No Subject"
)

// Event is the envelope of an inbound email provider webhook.
type Event struct {
	Type      string    `json:"type"`
	CreatedAt string    `json:"created_at,omitempty"`
	Data      EventData `json:"data"`
}

// EventData carries the received email. From is kept raw because providers
// send it as a string, an object or an array.
type EventData struct {
	ID      string          `json:"id,omitempty"`
	EmailID string          `json:"email_id,omitempty"`
	From    json.RawMessage `json:"from"`
	To      json.RawMessage `json:"to,omitempty"`
	Subject string          `json:"subject"`
	Text    string          `json:"text"`
	HTML    string          `json:"html"`
}

// MessageID returns the provider identifier of the received email.
func (d EventData) MessageID() string {
	if d.EmailID != "" {
		return d.EmailID
	}
	return d.ID
}

// SubjectOrDefault returns the trimmed subject or DefaultSubject.
func (d EventData) SubjectOrDefault() string {
	if s := strings.TrimSpace(d.Subject); s != "" {
		return s
	}
	return DefaultSubject
}

// ParseEvent decodes a verified webhook body.
func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("failed to decode webhook event: %w", err)
	}
	return &ev, nil
}
