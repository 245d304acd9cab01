package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suntvalg/suntvalg-server/internal/jobs"
	"github.com/suntvalg/suntvalg-server/internal/repository/memory"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []jobs.Job
	err  error
}

func (d *recordingDispatcher) Enqueue(ctx context.Context, job jobs.Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

func TestWaitlistJoin(t *testing.T) {
	repo := memory.NewWaitlistRepository()
	dispatcher := &recordingDispatcher{}
	svc := NewWaitlistService(repo, dispatcher, zerolog.Nop())
	ctx := context.Background()
	source := " instagram "

	entry, created, err := svc.Join(ctx, JoinRequest{Email: "  Kari@Example.NO ", Source: &source})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "kari@example.no", entry.Email)
	assert.Equal(t, "no", entry.Language)
	require.NotNil(t, entry.Source)
	assert.Equal(t, "instagram", *entry.Source)
	assert.Nil(t, entry.Campaign)

	require.Len(t, dispatcher.jobs, 1)
	assert.Equal(t, jobs.KindWelcomeEmail, dispatcher.jobs[0].Kind)
	var p jobs.WelcomeEmailPayload
	require.NoError(t, dispatcher.jobs[0].Decode(&p))
	assert.Equal(t, jobs.WelcomeEmailPayload{Email: "kari@example.no", Language: "no"}, p)

	again, created, err := svc.Join(ctx, JoinRequest{Email: "kari@example.no", Language: "en"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, entry.ID, again.ID)
	assert.Equal(t, "no", again.Language)
	assert.Len(t, dispatcher.jobs, 1)
}

func TestWaitlistJoinNormalizesLanguage(t *testing.T) {
	svc := NewWaitlistService(memory.NewWaitlistRepository(), &recordingDispatcher{}, zerolog.Nop())

	entry, _, err := svc.Join(context.Background(), JoinRequest{Email: "a@b.com", Language: "pl-PL"})
	require.NoError(t, err)
	assert.Equal(t, "pl", entry.Language)

	entry, _, err = svc.Join(context.Background(), JoinRequest{Email: "c@d.com", Language: "nb"})
	require.NoError(t, err)
	assert.Equal(t, "no", entry.Language)
}

func TestWaitlistJoinSucceedsWhenSchedulingFails(t *testing.T) {
	dispatcher := &recordingDispatcher{err: errors.New("queue down")}
	svc := NewWaitlistService(memory.NewWaitlistRepository(), dispatcher, zerolog.Nop())

	entry, created, err := svc.Join(context.Background(), JoinRequest{Email: "a@b.com"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "a@b.com", entry.Email)
}

func TestWaitlistListAndStats(t *testing.T) {
	svc := NewWaitlistService(memory.NewWaitlistRepository(), &recordingDispatcher{}, zerolog.Nop())
	ctx := context.Background()

	for _, email := range []string{"a@b.com", "c@d.com"} {
		_, _, err := svc.Join(ctx, JoinRequest{Email: email})
		require.NoError(t, err)
	}

	entries, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	n, err := svc.RefreshStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
