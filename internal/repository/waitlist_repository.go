package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/suntvalg/suntvalg-server/internal/models"
)

const (
	insertWaitlistQuery = `
		INSERT INTO waitlist (email, language, source, campaign)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
		RETURNING id, email, language, source, campaign, created_at`

	selectWaitlistByEmailQuery = `
		SELECT id, email, language, source, campaign, created_at
		FROM waitlist
		WHERE email = $1`

	listWaitlistQuery = `
		SELECT id, email, language, source, campaign, created_at
		FROM waitlist
		ORDER BY created_at DESC`

	countWaitlistQuery = `SELECT COUNT(*) FROM waitlist`
)

type SQLWaitlistRepository struct {
	db *sqlx.DB
}

func NewWaitlistRepository(db *sqlx.DB) *SQLWaitlistRepository {
	return &SQLWaitlistRepository{db: db}
}

func (r *SQLWaitlistRepository) Create(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, bool, error) {
	language := entry.Language
	if language == "" {
		language = models.DefaultWaitlistLanguage
	}

	var stored models.WaitlistEntry
	err := r.db.GetContext(ctx, &stored, insertWaitlistQuery,
		entry.Email,
		language,
		entry.Source,
		entry.Campaign,
	)
	if err == nil {
		return &stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create waitlist entry: %w", err)
	}

	// ON CONFLICT DO NOTHING returns no row; the entry already exists.
	existing, err := r.GetByEmail(ctx, entry.Email)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load existing waitlist entry: %w", err)
	}
	return existing, false, nil
}

func (r *SQLWaitlistRepository) GetByEmail(ctx context.Context, email string) (*models.WaitlistEntry, error) {
	var entry models.WaitlistEntry
	err := r.db.GetContext(ctx, &entry, selectWaitlistByEmailQuery, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get waitlist entry: %w", err)
	}
	return &entry, nil
}

func (r *SQLWaitlistRepository) List(ctx context.Context) ([]models.WaitlistEntry, error) {
	entries := []models.WaitlistEntry{}
	if err := r.db.SelectContext(ctx, &entries, listWaitlistQuery); err != nil {
		return nil, fmt.Errorf("failed to list waitlist: %w", err)
	}
	return entries, nil
}

func (r *SQLWaitlistRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, countWaitlistQuery); err != nil {
		return 0, fmt.Errorf("failed to count waitlist: %w", err)
	}
	return n, nil
}
