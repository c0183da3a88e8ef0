// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"appointment-booking/internal/domain"
	"appointment-booking/internal/domain/ports/adapter"
	"appointment-booking/internal/infra/metrics"
)

// Compile-time check
var _ adapter.TaskQueue = (*Pool)(nil)

type Options struct {
	Workers     int
	QueueSize   int
	MaxRetries  int
	Backoff     time.Duration
	TaskTimeout time.Duration
}

type job struct {
	name string
	task adapter.Task
}

// Pool runs submitted tasks on a fixed set of workers. Submit never blocks:
// a full queue drops the task. Failed tasks are retried with exponential
// backoff. Stop drains what is already queued.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan job
	quit chan struct{}

	mu     sync.RWMutex
	closed bool

	n       int
	opts    Options
	log     zerolog.Logger
	started bool
}

func NewPool(opts Options, logger *zerolog.Logger) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = opts.Workers * 4
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = 30 * time.Second
	}
	return &Pool{
		jobs: make(chan job, opts.QueueSize),
		quit: make(chan struct{}),
		n:    opts.Workers,
		opts: opts,
		log:  logger.With().Str("component", "worker_pool").Logger(),
	}
}

// Start launches the workers. Tasks get a context derived from ctx that is
// not cancelled with it, so queued work can finish during shutdown.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	base := context.WithoutCancel(ctx)
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for j := range p.jobs {
				p.run(base, id, j)
			}
		}(i)
	}
	p.log.Info().Int("workers", p.n).Int("queue", cap(p.jobs)).Msg("worker pool started")
}

// Stop rejects new tasks and waits for queued ones to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.quit)
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
	p.log.Info().Msg("worker pool stopped")
}

func (p *Pool) Submit(name string, task adapter.Task) error {
	if task == nil {
		return domain.ErrInvalidArgument
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		metrics.IncTaskDropped(name)
		return domain.ErrQueueFull
	}
	select {
	case p.jobs <- job{name: name, task: task}:
		return nil
	default:
		// drop when saturated to avoid back-pressure on request handlers
		metrics.IncTaskDropped(name)
		p.log.Warn().Str("task", name).Msg("worker queue full; task dropped")
		return domain.ErrQueueFull
	}
}

func (p *Pool) run(ctx context.Context, workerID int, j job) {
	log := p.log.With().Str("task", j.name).Int("worker", workerID).Logger()
	for attempt := 0; ; attempt++ {
		err := p.attempt(ctx, j)
		if err == nil {
			metrics.IncTask(j.name, "completed")
			return
		}
		if attempt >= p.opts.MaxRetries {
			metrics.IncTask(j.name, "failed")
			log.Error().Err(err).Int("attempts", attempt+1).Msg("task failed")
			return
		}
		metrics.IncTask(j.name, "retried")
		wait := p.opts.Backoff << attempt
		log.Warn().Err(err).Int("attempt", attempt+1).Dur("backoff", wait).Msg("task error; retrying")
		select {
		case <-time.After(wait):
		case <-p.quit:
			// no more retries once shutting down; run one final attempt
			if err := p.attempt(ctx, j); err != nil {
				metrics.IncTask(j.name, "failed")
				log.Error().Err(err).Msg("task failed during shutdown")
			} else {
				metrics.IncTask(j.name, "completed")
			}
			return
		}
	}
}

func (p *Pool) attempt(ctx context.Context, j job) (err error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.TaskTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return j.task(ctx)
}
