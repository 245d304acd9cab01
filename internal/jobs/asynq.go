package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const DefaultQueue = "default"

// RedisConnOpt derives asynq connection options from an existing client.
func RedisConnOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

// AsynqDispatcher enqueues jobs as asynq tasks; a worker process started with
// NewAsynqServer executes them. Tasks are enqueued without retries, so a
// failure goes straight to the dead-letter store.
type AsynqDispatcher struct {
	client      *asynq.Client
	timeout     time.Duration
	queue       string
	deadLetters *DeadLetters
}

// NewAsynqDispatcher returns a dispatcher on client. deadLetters may be nil;
// when set, jobs that cannot be enqueued are recorded there.
func NewAsynqDispatcher(client *asynq.Client, timeout time.Duration, deadLetters *DeadLetters) *AsynqDispatcher {
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	return &AsynqDispatcher{
		client:      client,
		timeout:     timeout,
		queue:       DefaultQueue,
		deadLetters: deadLetters,
	}
}

func (d *AsynqDispatcher) Enqueue(ctx context.Context, job Job) error {
	info, err := d.client.EnqueueContext(ctx, newTask(job), taskOptions(d.timeout, d.queue)...)
	if err != nil {
		err = fmt.Errorf("failed to enqueue %s: %w", job.Kind, err)
		if d.deadLetters == nil {
			return err
		}
		return d.deadLetters.Record(context.WithoutCancel(ctx), job, err)
	}
	zerolog.Ctx(ctx).Debug().Str("kind", job.Kind).Str("task_id", info.ID).Msg("job enqueued")
	return nil
}

func (d *AsynqDispatcher) Close() error {
	return d.client.Close()
}

func taskOptions(timeout time.Duration, queue string) []asynq.Option {
	return []asynq.Option{
		asynq.MaxRetry(0),
		asynq.Timeout(timeout),
		asynq.Queue(queue),
	}
}

func newTask(job Job) *asynq.Task {
	return asynq.NewTask(job.Kind, job.Payload)
}

func jobFromTask(t *asynq.Task) Job {
	return Job{Kind: t.Type(), Payload: t.Payload()}
}

// NewAsynqServer builds a worker server that runs every registered kind.
// Failed tasks are dead-lettered.
func NewAsynqServer(opt asynq.RedisConnOpt, registry *Registry, deadLetters *DeadLetters, concurrency int, logger zerolog.Logger) (*asynq.Server, *asynq.ServeMux) {
	if concurrency <= 0 {
		concurrency = DefaultWorkers
	}

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency:  concurrency,
		Queues:       map[string]int{DefaultQueue: 1},
		Logger:       asynqLogger{logger: logger},
		ErrorHandler: deadLetterErrorHandler(deadLetters, logger),
	})

	mux := asynq.NewServeMux()
	for _, kind := range registry.Kinds() {
		mux.HandleFunc(kind, asynqHandler(registry))
	}
	return srv, mux
}

func deadLetterErrorHandler(deadLetters *DeadLetters, logger zerolog.Logger) asynq.ErrorHandlerFunc {
	return func(ctx context.Context, task *asynq.Task, err error) {
		logger.Error().Err(err).Str("kind", task.Type()).Msg("task failed")
		if deadLetters == nil {
			return
		}
		if recErr := deadLetters.Record(context.WithoutCancel(ctx), jobFromTask(task), err); recErr != nil {
			logger.Error().Err(recErr).Str("kind", task.Type()).Msg("failed to dead-letter task")
		}
	}
}

func asynqHandler(registry *Registry) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		return registry.Handle(ctx, jobFromTask(t))
	}
}

// asynqLogger routes asynq's internal logging through zerolog.
type asynqLogger struct {
	logger zerolog.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.logger.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.logger.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.logger.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.logger.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.logger.Fatal().Msg(fmt.Sprint(args...)) }

var _ Dispatcher = (*AsynqDispatcher)(nil)
