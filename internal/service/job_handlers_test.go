package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suntvalg/suntvalg-server/internal/jobs"
	"github.com/suntvalg/suntvalg-server/internal/models"
	"github.com/suntvalg/suntvalg-server/internal/notifications"
	"github.com/suntvalg/suntvalg-server/internal/repository/memory"
)

type stubFetcher struct {
	email *notifications.ReceivedEmail
	err   error
	ids   []string
}

func (f *stubFetcher) GetReceivedEmail(ctx context.Context, id string) (*notifications.ReceivedEmail, error) {
	f.ids = append(f.ids, id)
	return f.email, f.err
}

func newHandlerFixture(t *testing.T, fetcher BodyFetcher) (*jobs.Registry, *supportFixture) {
	t.Helper()
	f := newSupportFixture(t)
	templates, err := notifications.LoadTemplates()
	require.NoError(t, err)

	registry := jobs.NewRegistry()
	RegisterJobHandlers(registry, notifications.NewMailer(f.provider, templates), f.service, fetcher, zerolog.Nop())
	return registry, f
}

func TestWelcomeJobHandler(t *testing.T) {
	registry, f := newHandlerFixture(t, nil)

	job, err := jobs.NewWelcomeEmailJob("a@b.com", "pl")
	require.NoError(t, err)
	require.NoError(t, registry.Handle(context.Background(), job))

	sent := f.provider.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"a@b.com"}, sent[0].To)
}

func TestInboundJobHandler(t *testing.T) {
	registry, f := newHandlerFixture(t, nil)

	job, err := jobs.NewInboundEmailJob(jobs.InboundEmailPayload{From: "a@b.com", Subject: "Hi", Content: "Hello"})
	require.NoError(t, err)
	require.NoError(t, registry.Handle(context.Background(), job))

	assert.Len(t, f.messages(t, "a@b.com"), 2)
	assert.Len(t, f.provider.Sent(), 1)
}

func TestInboundJobHandlerFetchesMissingBody(t *testing.T) {
	fetcher := &stubFetcher{email: &notifications.ReceivedEmail{ID: "em_1", HTML: "<p>Fetched&nbsp;body</p>"}}
	registry, f := newHandlerFixture(t, fetcher)

	job, _ := jobs.NewInboundEmailJob(jobs.InboundEmailPayload{MessageID: "em_1", From: "a@b.com", Subject: "Hi"})
	require.NoError(t, registry.Handle(context.Background(), job))

	assert.Equal(t, []string{"em_1"}, fetcher.ids)
	msgs := f.messages(t, "a@b.com")
	require.NotEmpty(t, msgs)
	assert.Equal(t, "Fetched body", msgs[0].Content)
}

func TestInboundJobHandlerDropsEmptyBody(t *testing.T) {
	fetcher := &stubFetcher{email: &notifications.ReceivedEmail{ID: "em_1"}}
	registry, f := newHandlerFixture(t, fetcher)

	job, _ := jobs.NewInboundEmailJob(jobs.InboundEmailPayload{MessageID: "em_1", From: "a@b.com", Subject: "Hi"})
	require.NoError(t, registry.Handle(context.Background(), job))

	assert.Empty(t, f.conversations.Conversations())
	assert.Empty(t, f.provider.Sent())
}

func TestInboundJobHandlerFetchFailureIsRetryable(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("502 from provider")}
	registry, _ := newHandlerFixture(t, fetcher)

	job, _ := jobs.NewInboundEmailJob(jobs.InboundEmailPayload{MessageID: "em_1", From: "a@b.com"})
	err := registry.Handle(context.Background(), job)
	require.Error(t, err)
	assert.False(t, jobs.Permanent(err))
}

// runAsDeadLetter handles job once and dead-letters it the way the asynq error
// handler does when it fails.
func runAsDeadLetter(t *testing.T, registry *jobs.Registry, job jobs.Job) (*jobs.DeadLetters, *memory.JobFailureRepository) {
	t.Helper()
	store := memory.NewJobFailureRepository()
	deadLetters := jobs.NewDeadLetters(store, registry, jobs.DefaultMaxAttempts, zerolog.Nop())

	err := registry.Handle(context.Background(), job)
	require.Error(t, err)
	require.NoError(t, deadLetters.Record(context.Background(), job, err))
	return deadLetters, store
}

func TestInboundRetryAfterSendFailureKeepsHistory(t *testing.T) {
	registry, f := newHandlerFixture(t, nil)
	f.provider.Err = errors.New("provider down")

	job, _ := jobs.NewInboundEmailJob(jobs.InboundEmailPayload{From: "a@b.com", Subject: "Hi", Content: "Hello"})
	deadLetters, store := runAsDeadLetter(t, registry, job)

	f.provider.Err = nil
	stats, err := deadLetters.Retry(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Succeeded)

	msgs := f.messages(t, "a@b.com")
	require.Len(t, msgs, 2)
	assert.Equal(t, models.DirectionInbound, msgs[0].Direction)
	assert.Equal(t, models.DirectionOutbound, msgs[1].Direction)
	assert.Len(t, f.completion.requests, 1)

	sent := f.provider.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "Thanks for writing!")

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInboundRetryAfterModelFailureStoresInboundOnce(t *testing.T) {
	registry, f := newHandlerFixture(t, nil)
	f.completion.err = errors.New("rate limited")

	job, _ := jobs.NewInboundEmailJob(jobs.InboundEmailPayload{From: "a@b.com", Subject: "Hi", Content: "Hello"})
	deadLetters, _ := runAsDeadLetter(t, registry, job)

	stats, err := deadLetters.Retry(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	require.Len(t, f.messages(t, "a@b.com"), 1)

	f.completion.err = nil
	stats, err = deadLetters.Retry(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Succeeded)

	msgs := f.messages(t, "a@b.com")
	require.Len(t, msgs, 2)
	assert.Equal(t, models.DirectionInbound, msgs[0].Direction)
	assert.Equal(t, models.DirectionOutbound, msgs[1].Direction)
	assert.Len(t, f.provider.Sent(), 1)
}

func TestInboundFailureCheckpointsProgress(t *testing.T) {
	registry, f := newHandlerFixture(t, nil)
	f.provider.Err = errors.New("provider down")

	job, _ := jobs.NewInboundEmailJob(jobs.InboundEmailPayload{From: "a@b.com", Subject: "Hi", Content: "Hello"})
	err := registry.Handle(context.Background(), job)
	require.Error(t, err)

	var checkpoint *jobs.CheckpointError
	require.ErrorAs(t, err, &checkpoint)
	var p jobs.InboundEmailPayload
	require.NoError(t, jobs.Job{Kind: jobs.KindInboundEmail, Payload: checkpoint.Payload}.Decode(&p))
	assert.NotZero(t, p.InboundMessageID)
	assert.Equal(t, "Thanks for writing!", p.Reply)
	assert.Equal(t, "Hello", p.Content)
}

func TestInboundEmptyReplyIsPermanent(t *testing.T) {
	registry, f := newHandlerFixture(t, nil)
	f.completion.reply = ""

	job, _ := jobs.NewInboundEmailJob(jobs.InboundEmailPayload{From: "a@b.com", Subject: "Hi", Content: "Hello"})
	err := registry.Handle(context.Background(), job)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyReply)
	assert.True(t, jobs.Permanent(err))

	store := memory.NewJobFailureRepository()
	deadLetters := jobs.NewDeadLetters(store, registry, jobs.DefaultMaxAttempts, zerolog.Nop())
	require.NoError(t, deadLetters.Record(context.Background(), job, err))

	failures, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Nil(t, failures[0].NextAttemptAt)

	stats, err := deadLetters.Retry(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, jobs.RetryStats{}, stats)
	assert.Len(t, f.messages(t, "a@b.com"), 1)
}
