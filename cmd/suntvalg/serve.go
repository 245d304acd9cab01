package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/suntvalg/suntvalg-server/internal/api"
	"github.com/suntvalg/suntvalg-server/internal/config"
	"github.com/suntvalg/suntvalg-server/internal/jobs"
	"github.com/suntvalg/suntvalg-server/internal/middleware"
	"github.com/suntvalg/suntvalg-server/internal/runner"
	"github.com/suntvalg/suntvalg-server/internal/runner/tasks"
	"github.com/suntvalg/suntvalg-server/internal/service"
	"github.com/suntvalg/suntvalg-server/internal/webhook"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and scheduled tasks",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	log := a.logger
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	var (
		dispatcher jobs.Dispatcher
		local      *jobs.LocalDispatcher
	)
	switch cfg.Jobs.Backend {
	case "asynq":
		rdb, err := a.redisClient(ctx)
		if err != nil {
			return err
		}
		client := asynq.NewClient(jobs.RedisConnOpt(rdb))
		a.closers = append(a.closers, client.Close)
		dispatcher = jobs.NewAsynqDispatcher(client, cfg.Jobs.Timeout, a.deadLetters)
		log.Info().Str("redis", cfg.Redis.Addr).Msg("jobs are processed by the worker command")
	default:
		local = jobs.NewLocalDispatcher(a.registry, a.deadLetters,
			jobs.WithWorkers(cfg.Jobs.Workers),
			jobs.WithBufferSize(cfg.Jobs.BufferSize),
			jobs.WithJobTimeout(cfg.Jobs.Timeout),
			jobs.WithLogger(log.With().Str("component", "jobs").Logger()),
		)
		local.Start()
		dispatcher = local
	}

	waitlist := service.NewWaitlistService(a.waitlistRepo, dispatcher, log.With().Str("component", "waitlist").Logger())

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	}

	deps := api.Dependencies{
		Waitlist: waitlist,
		Verifier: webhook.NewVerifier(func() string {
			return config.Get().Webhook.Secret
		}),
		Dispatcher:       dispatcher,
		FetchMissingBody: cfg.Webhook.FetchMissingBody,
		RateLimiter:      limiter,
		Logger:           log,
	}
	if a.db != nil {
		deps.DB = a.db
	}
	if cfg.Metrics.Enabled {
		deps.MetricsPath = cfg.Metrics.Path
	}

	srv := &http.Server{
		Addr:              cfg.Server.GetServerAddr(),
		Handler:           api.NewRouter(deps),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	registry := runner.NewTaskRegistry()
	registry.Register(tasks.NewDeadLetterReportTask(a.deadLetters, log))
	registry.Register(tasks.NewWaitlistStatsTask(waitlist, log))
	if limiter != nil {
		registry.Register(tasks.NewRateLimitCleanupTask(limiter, log))
	}
	taskRunner := runner.NewRunner(registry, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.App.Env).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return taskRunner.Start(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if local != nil {
			err = errors.Join(err, local.Shutdown(shutdownCtx))
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
