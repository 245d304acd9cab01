// Package jobs runs the work the HTTP handlers hand off: welcome emails and
// inbound email replies. Jobs run on an in-process worker pool or on asynq.
// A job runs once; failures land in a dead-letter store and are only run again
// when an operator asks for it.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/suntvalg/suntvalg-server/internal/metrics"
)

const (
	KindWelcomeEmail = "email:welcome"
	KindInboundEmail = "email:inbound"
)

var (
	ErrUnknownKind      = errors.New("no handler registered for job kind")
	ErrInvalidPayload   = errors.New("invalid job payload")
	ErrDispatcherClosed = errors.New("dispatcher is closed")

	// ErrPermanent marks failures that a retry would repeat.
	ErrPermanent = errors.New("permanent failure")
)

// Job is a unit of background work. Payload is the JSON encoding of one of the
// payload types below.
type Job struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// WelcomeEmailPayload asks for the waitlist welcome email.
type WelcomeEmailPayload struct {
	Email    string `json:"email"`
	Language string `json:"language"`
}

// InboundEmailPayload carries one received email to the reply pipeline. An
// empty Content means the body still has to be fetched from the provider.
//
// InboundMessageID and Reply are set on a dead-lettered job once the inbound
// message (and the stored reply) exist, so a retry continues from there.
type InboundEmailPayload struct {
	MessageID        string `json:"messageId,omitempty"`
	From             string `json:"from"`
	Subject          string `json:"subject"`
	Content          string `json:"content"`
	InboundMessageID int64  `json:"inboundMessageId,omitempty"`
	Reply            string `json:"reply,omitempty"`
}

func NewJob(kind string, payload any) (Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}
	return Job{Kind: kind, Payload: raw}, nil
}

func NewWelcomeEmailJob(email, language string) (Job, error) {
	return NewJob(KindWelcomeEmail, WelcomeEmailPayload{Email: email, Language: language})
}

func NewInboundEmailJob(p InboundEmailPayload) (Job, error) {
	return NewJob(KindInboundEmail, p)
}

// Decode unmarshals the payload into v.
func (j Job) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, j.Kind, err)
	}
	return nil
}

// Dispatcher accepts jobs for asynchronous execution. Enqueue returns once the
// job is accepted; execution errors never reach the caller.
type Dispatcher interface {
	Enqueue(ctx context.Context, job Job) error
}

type Handler func(ctx context.Context, job Job) error

// Registry maps job kinds to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(kind string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Handle runs the handler for job.Kind. A panicking handler is reported as an
// error.
func (r *Registry) Handle(ctx context.Context, job Job) (err error) {
	r.mu.RLock()
	h, ok := r.handlers[job.Kind]
	r.mu.RUnlock()
	if !ok {
		err = fmt.Errorf("%w: %s", ErrUnknownKind, job.Kind)
		metrics.Jobs.WithLabelValues(job.Kind, metrics.Result(err)).Inc()
		return err
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Kind, rec)
		}
		metrics.Jobs.WithLabelValues(job.Kind, metrics.Result(err)).Inc()
	}()

	return h(ctx, job)
}

// Permanent reports whether retrying job would fail the same way.
func Permanent(err error) bool {
	return errors.Is(err, ErrPermanent) || errors.Is(err, ErrUnknownKind) || errors.Is(err, ErrInvalidPayload)
}

// MarkPermanent wraps err so the job is parked instead of offered for retry.
func MarkPermanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// CheckpointError is a failure that carries a replacement payload recording
// how far the job got. The dead-letter store keeps that payload, so a retry
// skips the work that already succeeded.
type CheckpointError struct {
	Payload json.RawMessage
	Err     error
}

func (e *CheckpointError) Error() string { return e.Err.Error() }

func (e *CheckpointError) Unwrap() error { return e.Err }

// WithCheckpoint attaches payload to err. If payload cannot be encoded err is
// returned unchanged.
func WithCheckpoint(err error, payload any) error {
	if err == nil {
		return nil
	}
	raw, encErr := json.Marshal(payload)
	if encErr != nil {
		return err
	}
	return &CheckpointError{Payload: raw, Err: err}
}

// payloadAfter returns the payload a failed job should be stored with.
func payloadAfter(job Job, err error) json.RawMessage {
	var cp *CheckpointError
	if errors.As(err, &cp) && len(cp.Payload) > 0 {
		return cp.Payload
	}
	return job.Payload
}
