package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/suntvalg/suntvalg-server/internal/jobs"
	"github.com/suntvalg/suntvalg-server/internal/language"
	"github.com/suntvalg/suntvalg-server/internal/metrics"
	"github.com/suntvalg/suntvalg-server/internal/models"
	"github.com/suntvalg/suntvalg-server/internal/repository"
)

// JoinRequest is a waitlist signup as submitted by the landing page.
type JoinRequest struct {
	Email    string
	Language string
	Source   *string
	Campaign *string
}

// WaitlistService manages pre-launch signups.
type WaitlistService struct {
	repo       repository.WaitlistRepository
	dispatcher jobs.Dispatcher
	logger     zerolog.Logger
}

func NewWaitlistService(repo repository.WaitlistRepository, dispatcher jobs.Dispatcher, logger zerolog.Logger) *WaitlistService {
	return &WaitlistService{
		repo:       repo,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Join adds the signup unless the email is already present. A new signup
// schedules the welcome email; failing to schedule it does not fail Join.
func (s *WaitlistService) Join(ctx context.Context, req JoinRequest) (*models.WaitlistEntry, bool, error) {
	entry := &models.WaitlistEntry{
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Language: language.OrDefault(req.Language, models.DefaultWaitlistLanguage),
		Source:   trimmed(req.Source),
		Campaign: trimmed(req.Campaign),
	}

	stored, created, err := s.repo.Create(ctx, entry)
	if err != nil {
		return nil, false, fmt.Errorf("failed to add to waitlist: %w", err)
	}
	if !created {
		return stored, false, nil
	}

	metrics.WaitlistEntries.Inc()
	s.logger.Info().Str("email", stored.Email).Str("language", stored.Language).Msg("waitlist signup")

	job, err := jobs.NewWelcomeEmailJob(stored.Email, stored.Language)
	if err == nil {
		err = s.dispatcher.Enqueue(ctx, job)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("email", stored.Email).Msg("failed to schedule welcome email")
	}
	return stored, true, nil
}

// List returns every signup, newest first.
func (s *WaitlistService) List(ctx context.Context) ([]models.WaitlistEntry, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch waitlist: %w", err)
	}
	return entries, nil
}

// RefreshStats sets the signup gauge from the store.
func (s *WaitlistService) RefreshStats(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count waitlist: %w", err)
	}
	metrics.WaitlistEntries.Set(float64(n))
	return n, nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
