package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultWorkers    = 4
	DefaultBufferSize = 100
	DefaultJobTimeout = 2 * time.Minute
)

// LocalDispatcher executes jobs on a fixed pool of goroutines fed by a bounded
// queue. Failed jobs go to the dead-letter store; a full queue dead-letters
// the job straight away so the request path never blocks.
type LocalDispatcher struct {
	registry    *Registry
	deadLetters *DeadLetters
	workers     int
	timeout     time.Duration
	logger      zerolog.Logger

	queue   chan Job
	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

type LocalOption func(*LocalDispatcher)

func WithWorkers(n int) LocalOption {
	return func(d *LocalDispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

func WithJobTimeout(timeout time.Duration) LocalOption {
	return func(d *LocalDispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

func WithBufferSize(n int) LocalOption {
	return func(d *LocalDispatcher) {
		if n > 0 {
			d.queue = make(chan Job, n)
		}
	}
}

func WithLogger(logger zerolog.Logger) LocalOption {
	return func(d *LocalDispatcher) {
		d.logger = logger
	}
}

func NewLocalDispatcher(registry *Registry, deadLetters *DeadLetters, opts ...LocalOption) *LocalDispatcher {
	d := &LocalDispatcher{
		registry:    registry,
		deadLetters: deadLetters,
		workers:     DefaultWorkers,
		timeout:     DefaultJobTimeout,
		logger:      zerolog.Nop(),
		queue:       make(chan Job, DefaultBufferSize),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Start launches the workers. It is a no-op when already started.
func (d *LocalDispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(i)
	}
	d.logger.Info().Int("workers", d.workers).Int("buffer", cap(d.queue)).Msg("job workers started")
}

func (d *LocalDispatcher) Enqueue(ctx context.Context, job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- job:
		return nil
	default:
	}

	d.logger.Warn().Str("kind", job.Kind).Msg("job queue full, dead-lettering")
	if d.deadLetters == nil {
		return fmt.Errorf("job queue full: %s", job.Kind)
	}
	return d.deadLetters.Record(ctx, job, errors.New("job queue full"))
}

// Shutdown stops accepting jobs and waits for queued jobs to finish or ctx to
// expire.
func (d *LocalDispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info().Msg("job workers stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *LocalDispatcher) work(id int) {
	defer d.wg.Done()
	for job := range d.queue {
		d.run(id, job)
	}
}

// Jobs outlive the request that enqueued them, so each run gets a fresh
// context bounded only by the job timeout.
func (d *LocalDispatcher) run(worker int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	start := time.Now()
	err := d.registry.Handle(ctx, job)
	log := d.logger.With().Int("worker", worker).Str("kind", job.Kind).Dur("duration", time.Since(start)).Logger()
	if err == nil {
		log.Debug().Msg("job completed")
		return
	}

	log.Error().Err(err).Msg("job failed")
	if d.deadLetters == nil {
		return
	}
	if recErr := d.deadLetters.Record(context.Background(), job, err); recErr != nil {
		log.Error().Err(recErr).Msg("failed to dead-letter job")
	}
}

var _ Dispatcher = (*LocalDispatcher)(nil)
