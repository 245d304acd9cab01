package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suntvalg/suntvalg-server/internal/models"
)

var waitlistColumns = []string{"id", "email", "language", "source", "campaign", "created_at"}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestWaitlistCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWaitlistRepository(db)
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	source := "instagram"

	mock.ExpectQuery(regexp.QuoteMeta(insertWaitlistQuery)).
		WithArgs("a@b.com", "no", &source, nil).
		WillReturnRows(sqlmock.NewRows(waitlistColumns).
			AddRow("7f3c1f8e-8d57-4f7e-9b0c-2f4a3c1d9e10", "a@b.com", "no", "instagram", nil, now))

	entry, created, err := repo.Create(context.Background(), &models.WaitlistEntry{
		Email:  "a@b.com",
		Source: &source,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "a@b.com", entry.Email)
	assert.Equal(t, "no", entry.Language)
	require.NotNil(t, entry.Source)
	assert.Equal(t, "instagram", *entry.Source)
	assert.Nil(t, entry.Campaign)
	assert.Equal(t, "7f3c1f8e-8d57-4f7e-9b0c-2f4a3c1d9e10", entry.ID.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistCreateExisting(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWaitlistRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(insertWaitlistQuery)).
		WithArgs("a@b.com", "en", nil, nil).
		WillReturnRows(sqlmock.NewRows(waitlistColumns))
	mock.ExpectQuery(regexp.QuoteMeta(selectWaitlistByEmailQuery)).
		WithArgs("a@b.com").
		WillReturnRows(sqlmock.NewRows(waitlistColumns).
			AddRow("7f3c1f8e-8d57-4f7e-9b0c-2f4a3c1d9e10", "a@b.com", "no", nil, nil, now))

	entry, created, err := repo.Create(context.Background(), &models.WaitlistEntry{Email: "a@b.com", Language: "en"})
	require.NoError(t, err)
	assert.False(t, created)
	// the stored entry wins over the incoming request
	assert.Equal(t, "no", entry.Language)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistCreateFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWaitlistRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(insertWaitlistQuery)).
		WillReturnError(errors.New("connection reset"))

	_, _, err := repo.Create(context.Background(), &models.WaitlistEntry{Email: "a@b.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create waitlist entry")
}

func TestWaitlistGetByEmailNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWaitlistRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(selectWaitlistByEmailQuery)).
		WithArgs("ghost@b.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@b.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWaitlistList(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWaitlistRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(listWaitlistQuery)).
		WillReturnRows(sqlmock.NewRows(waitlistColumns).
			AddRow("7f3c1f8e-8d57-4f7e-9b0c-2f4a3c1d9e10", "b@b.com", "en", nil, "launch", now).
			AddRow("0b6f0c55-2e8a-4d53-bb5b-6c2b6a1c2f44", "a@b.com", "no", nil, nil, now.Add(-time.Hour)))

	entries, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b@b.com", entries[0].Email)
	require.NotNil(t, entries[0].Campaign)
	assert.Equal(t, "launch", *entries[0].Campaign)
}

func TestWaitlistListEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWaitlistRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(listWaitlistQuery)).
		WillReturnRows(sqlmock.NewRows(waitlistColumns))

	entries, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestWaitlistCount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWaitlistRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(countWaitlistQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}
