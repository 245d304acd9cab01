package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/suntvalg/suntvalg-server/internal/jobs"
)

var workerConcurrency int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process queued jobs from redis",
	Long:  "Consumes welcome and inbound email jobs enqueued by serve when jobs.backend is asynq.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		rdb, err := a.redisClient(ctx)
		if err != nil {
			return err
		}

		concurrency := workerConcurrency
		if concurrency <= 0 {
			concurrency = a.cfg.Jobs.Workers
		}

		srv, mux := jobs.NewAsynqServer(jobs.RedisConnOpt(rdb), a.registry, a.deadLetters, concurrency, a.logger)
		if err := srv.Start(mux); err != nil {
			return fmt.Errorf("failed to start worker: %w", err)
		}
		a.logger.Info().Int("concurrency", concurrency).Strs("kinds", a.registry.Kinds()).Msg("worker started")

		<-ctx.Done()
		srv.Shutdown()
		a.logger.Info().Msg("worker stopped")
		return nil
	},
}

func init() {
	workerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 0, "Concurrent jobs (defaults to jobs.workers)")
}
