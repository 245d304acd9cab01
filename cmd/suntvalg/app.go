package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/suntvalg/suntvalg-server/internal/assistant"
	"github.com/suntvalg/suntvalg-server/internal/config"
	"github.com/suntvalg/suntvalg-server/internal/database"
	"github.com/suntvalg/suntvalg-server/internal/jobs"
	"github.com/suntvalg/suntvalg-server/internal/logger"
	"github.com/suntvalg/suntvalg-server/internal/notifications"
	"github.com/suntvalg/suntvalg-server/internal/repository"
	"github.com/suntvalg/suntvalg-server/internal/repository/memory"
	"github.com/suntvalg/suntvalg-server/internal/service"
)

const (
	storePostgres = "postgres"
	storeMemory   = "memory"
)

// app holds everything the commands share.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	db            *sqlx.DB
	waitlistRepo  repository.WaitlistRepository
	conversations repository.ConversationRepository
	failures      repository.JobFailureRepository

	registry    *jobs.Registry
	deadLetters *jobs.DeadLetters
	mailer      *notifications.Mailer
	support     *service.SupportService

	closers []func() error
}

// loadConfig reads configuration and validates secrets. Warnings are logged,
// errors abort startup.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	if err := config.Load(configPathFlag); err != nil {
		return nil, zerolog.Nop(), err
	}
	cfg := config.Get()
	log := logger.New(cfg)

	warnings, err := config.ValidateSecrets(cfg)
	for _, w := range warnings {
		log.Warn().Msg(w)
	}
	if err != nil {
		return nil, log, err
	}

	config.OnReload(func(name string, err error) {
		if err != nil {
			log.Error().Err(err).Str("file", name).Msg("config reload failed")
			return
		}
		log.Info().Str("file", name).Msg("config reloaded")
	})
	return cfg, log, nil
}

// openStores connects the repositories for the selected backend.
func openStores(ctx context.Context, a *app) error {
	switch storeFlag {
	case storeMemory:
		a.logger.Warn().Msg("using in-memory storage, data is lost on exit")
		a.waitlistRepo = memory.NewWaitlistRepository()
		a.conversations = memory.NewConversationRepository()
		a.failures = memory.NewJobFailureRepository()
		return nil
	case storePostgres:
	default:
		return fmt.Errorf("unknown store %q", storeFlag)
	}

	db, err := database.Open(ctx, a.cfg.Database)
	if err != nil {
		return err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)

	if a.cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, database.Up, a.logger); err != nil {
			return err
		}
	}

	a.waitlistRepo = repository.NewWaitlistRepository(db)
	a.conversations = repository.NewConversationRepository(db)
	a.failures = repository.NewJobFailureRepository(db)
	return nil
}

func newEmailProvider(cfg *config.Config, log zerolog.Logger) (notifications.EmailProvider, error) {
	switch cfg.Email.Provider {
	case "resend":
		if cfg.Email.ResendAPIKey == "" {
			log.Warn().Msg("email.resend_api_key not set, emails will only be logged")
			return notifications.NewLogProvider(log), nil
		}
		return notifications.NewResendProvider(cfg.Email.ResendAPIKey, cfg.Email.ResendURL), nil
	case "smtp":
		return notifications.NewSMTPProvider(notifications.SMTPConfig{
			Host:     cfg.Email.SMTP.Host,
			Port:     cfg.Email.SMTP.Port,
			User:     cfg.Email.SMTP.User,
			Password: cfg.Email.SMTP.Password,
		}), nil
	case "log":
		return notifications.NewLogProvider(log), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Email.Provider)
	}
}

// newApp builds the shared services and registers the job handlers.
func newApp(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: log}

	if err := openStores(ctx, a); err != nil {
		a.Close()
		return nil, err
	}

	provider, err := newEmailProvider(cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	templates, err := notifications.LoadTemplates()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.mailer = notifications.NewMailer(provider, templates,
		notifications.WithMailerLogger(log.With().Str("component", "mailer").Logger()),
		notifications.WithSenders(cfg.Email.From, cfg.Email.SenderAddress()),
	)

	prompts, err := assistant.LoadPromptTable()
	if err != nil {
		a.Close()
		return nil, err
	}
	composer := assistant.NewComposer(
		assistant.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL),
		prompts,
		assistant.WithModel(cfg.OpenAI.Model),
		assistant.WithMaxTokens(cfg.OpenAI.MaxTokens),
		assistant.WithComposerLogger(log.With().Str("component", "assistant").Logger()),
	)

	a.support = service.NewSupportService(a.waitlistRepo, a.conversations, composer, a.mailer,
		log.With().Str("component", "support").Logger())

	var fetcher service.BodyFetcher
	if cfg.Webhook.FetchMissingBody && cfg.Email.ResendAPIKey != "" {
		fetcher = notifications.NewResendProvider(cfg.Email.ResendAPIKey, cfg.Email.ResendURL)
	}

	a.registry = jobs.NewRegistry()
	service.RegisterJobHandlers(a.registry, a.mailer, a.support, fetcher, log.With().Str("component", "jobs").Logger())
	a.deadLetters = jobs.NewDeadLetters(a.failures, a.registry, cfg.Jobs.MaxAttempts,
		log.With().Str("component", "dead-letters").Logger())

	return a, nil
}

// redisClient connects to the queue backend.
func (a *app) redisClient(ctx context.Context) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", a.cfg.Redis.Addr, err)
	}
	a.closers = append(a.closers, rdb.Close)
	return rdb, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
