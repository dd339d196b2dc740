package enrich

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/swapi-roster/pkg/logging"
	"github.com/Sternrassler/swapi-roster/pkg/swapi"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("enrichment pool closed")

// Kind selects which reference list a job enriches.
type Kind string

const (
	// KindVehicles replaces vehicle URLs with vehicle names.
	KindVehicles Kind = "vehicles"

	// KindSpecies replaces species URLs with avatar references.
	KindSpecies Kind = "species"
)

// Job is one unit of enrichment work for a single character.
type Job struct {
	Kind      Kind
	Character swapi.Character
}

// Result carries the enriched values for the character identified by URL.
type Result struct {
	Kind   Kind
	URL    string
	Values []string
}

// PoolConfig holds worker pool configuration.
type PoolConfig struct {
	// MaxConcurrency is the number of workers.
	MaxConcurrency int
	// QueueSize is the job buffer (default: 4 * MaxConcurrency).
	QueueSize int
	// JobTimeout bounds a single job (0 = no limit beyond the pool context).
	JobTimeout time.Duration
}

// DefaultPoolConfig returns the default pool configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConcurrency: 8,
		QueueSize:      32,
	}
}

// Pool runs enrichment jobs on a fixed number of workers. Results are
// delivered on a single channel which is closed once the pool is closed and
// every worker has exited.
type Pool struct {
	enricher *Enricher
	config   PoolConfig
	logger   zerolog.Logger

	jobs    chan Job
	results chan Result

	mu     sync.RWMutex
	closed bool
	once   sync.Once
	wg     sync.WaitGroup
}

// NewPool creates a pool for enricher. Workers start with Start.
func NewPool(enricher *Enricher, config PoolConfig) *Pool {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 8
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 4 * config.MaxConcurrency
	}

	return &Pool{
		enricher: enricher,
		config:   config,
		logger:   logging.NewLogger(logging.ComponentPool),
		jobs:     make(chan Job, config.QueueSize),
		results:  make(chan Result, config.QueueSize),
	}
}

// Start launches the workers. They stop when ctx is done or when the job
// queue is closed and drained.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.config.MaxConcurrency; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

// Submit queues a job. It blocks while the queue is full.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobs <- job:
		poolQueueDepth.Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results returns the channel on which job results are delivered.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Close stops accepting jobs. Queued jobs are still processed.
func (p *Pool) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.jobs)
		p.mu.Unlock()
	})
}

func (p *Pool) worker(ctx context.Context, workerID int) {
	defer p.wg.Done()
	jobsProcessed := 0

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug().
				Int("worker_id", workerID).
				Int("jobs_processed", jobsProcessed).
				Msg("Enrichment worker stopping (context cancelled)")
			return
		case job, ok := <-p.jobs:
			if !ok {
				if jobsProcessed > 0 {
					p.logger.Debug().
						Int("worker_id", workerID).
						Int("jobs_processed", jobsProcessed).
						Msg("Enrichment worker completed")
				}
				return
			}
			poolQueueDepth.Dec()

			result := p.run(ctx, job)
			poolJobsTotal.WithLabelValues(string(job.Kind)).Inc()
			jobsProcessed++

			select {
			case p.results <- result:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (p *Pool) run(ctx context.Context, job Job) Result {
	if p.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.JobTimeout)
		defer cancel()
	}
	return p.enricher.Run(ctx, job)
}
