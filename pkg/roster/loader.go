package roster

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/swapi-roster/pkg/enrich"
	"github.com/Sternrassler/swapi-roster/pkg/logging"
	"github.com/Sternrassler/swapi-roster/pkg/pagination"
	"github.com/Sternrassler/swapi-roster/pkg/swapi"
)

// DefaultRootURL is the first page of the character listing, relative to
// the client base URL.
const DefaultRootURL = "people/"

// LoaderConfig holds loader configuration.
type LoaderConfig struct {
	// RootURL is the first page to fetch.
	RootURL string
	// Pagination configures the page walk.
	Pagination pagination.Config
	// Pool configures the enrichment workers.
	Pool enrich.PoolConfig
}

// DefaultLoaderConfig returns the default loader configuration.
func DefaultLoaderConfig() LoaderConfig {
	return LoaderConfig{
		RootURL:    DefaultRootURL,
		Pagination: pagination.DefaultConfig(),
		Pool:       enrich.DefaultPoolConfig(),
	}
}

// Summary describes one completed load.
type Summary struct {
	RunID    string        `json:"run_id"`
	Pages    int           `json:"pages"`
	Appended int           `json:"appended"`
	Enriched int           `json:"enriched"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// Loader walks the character listing into a Roster and enriches every
// appended character on a bounded worker pool.
type Loader struct {
	walker   *pagination.Walker
	enricher *enrich.Enricher
	roster   *Roster
	config   LoaderConfig
}

// NewLoader creates a loader.
func NewLoader(pages pagination.PageFetcher, enricher *enrich.Enricher, r *Roster, config LoaderConfig) *Loader {
	if config.RootURL == "" {
		config.RootURL = DefaultRootURL
	}
	if config.Pool.MaxConcurrency <= 0 {
		config.Pool.MaxConcurrency = enrich.DefaultPoolConfig().MaxConcurrency
	}
	return &Loader{
		walker:   pagination.NewWalker(pages, config.Pagination),
		enricher: enricher,
		roster:   r,
		config:   config,
	}
}

// Load fetches every page, appends it to the roster and waits until all
// enrichment jobs have been applied. A page failure ends the walk and is
// returned; characters loaded before it stay in the roster and are still
// enriched.
func (l *Loader) Load(ctx context.Context) (Summary, error) {
	start := time.Now()
	summary := Summary{RunID: uuid.New().String()}
	logger := logging.ForRun(logging.ComponentLoader, summary.RunID)

	logger.Info().
		Str("root", l.config.RootURL).
		Int("workers", l.config.Pool.MaxConcurrency).
		Msg("Starting roster load")

	pool := enrich.NewPool(l.enricher, l.config.Pool)
	pool.Start(ctx)

	var enriched, skipped atomic.Int64
	applied := make(chan struct{})
	go func() {
		defer close(applied)
		for res := range pool.Results() {
			if err := l.roster.Apply(ctx, res); err != nil {
				skipped.Add(1)
				logger.Warn().
					Err(err).
					Str(logging.FieldURL, res.URL).
					Str("kind", string(res.Kind)).
					Msg("Could not apply enrichment")
				continue
			}
			enriched.Add(1)
		}
	}()

	pages, walkErr := l.walker.WithLogger(logging.ForRun(logging.ComponentPagination, summary.RunID)).Walk(ctx, l.config.RootURL, func(page *swapi.Page) error {
		added, err := l.roster.Append(ctx, page)
		if err != nil {
			return fmt.Errorf("append page: %w", err)
		}
		summary.Appended += len(added)
		return l.schedule(ctx, pool, added)
	})

	pool.Close()
	<-applied

	summary.Pages = pages
	summary.Enriched = int(enriched.Load())
	summary.Skipped = int(skipped.Load())
	summary.Duration = time.Since(start)
	rosterLoadDuration.Observe(summary.Duration.Seconds())

	if walkErr != nil {
		rosterLoadsTotal.WithLabelValues("error").Inc()
		logEvent(logger.Error(), summary).Err(walkErr).Msg("Roster load stopped early")
		return summary, walkErr
	}

	rosterLoadsTotal.WithLabelValues("ok").Inc()
	logEvent(logger.Info(), summary).Msg("Roster load complete")
	return summary, nil
}

// schedule queues a vehicles and a species job for each character.
func (l *Loader) schedule(ctx context.Context, pool *enrich.Pool, characters []swapi.Character) error {
	for _, c := range characters {
		for _, kind := range []enrich.Kind{enrich.KindVehicles, enrich.KindSpecies} {
			if err := pool.Submit(ctx, enrich.Job{Kind: kind, Character: c}); err != nil {
				return fmt.Errorf("queue %s enrichment for %s: %w", kind, c.URL, err)
			}
		}
	}
	return nil
}

func logEvent(ev *zerolog.Event, s Summary) *zerolog.Event {
	return ev.
		Int("pages", s.Pages).
		Int("appended", s.Appended).
		Int("enriched", s.Enriched).
		Int("skipped", s.Skipped).
		Dur("duration", s.Duration)
}
