package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/swapi-roster/pkg/logging"
	"github.com/Sternrassler/swapi-roster/pkg/swapi"
)

// ErrMaxPages is returned when a walk stops at Config.MaxPages while the
// upstream still reports a next page.
var ErrMaxPages = errors.New("page limit reached")

// Config holds walker configuration.
type Config struct {
	// MaxPages stops the walk after this many pages (0 = unlimited).
	MaxPages int
	// Timeout per page fetch (0 = no per-page timeout).
	Timeout time.Duration
}

// DefaultConfig returns the default walker configuration.
func DefaultConfig() Config {
	return Config{
		MaxPages: 0,
		Timeout:  30 * time.Second,
	}
}

// PageFetcher fetches a single character page. *swapi.Client implements it.
type PageFetcher interface {
	FetchCharacterPage(ctx context.Context, url string) (*swapi.Page, error)
}

// PageFunc is called once per fetched page, in page order. Returning an
// error stops the walk.
type PageFunc func(page *swapi.Page) error

// Walker follows next links across a paginated listing.
type Walker struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewWalker creates a new walker.
func NewWalker(fetcher PageFetcher, config Config) *Walker {
	if config.MaxPages < 0 {
		config.MaxPages = 0
	}
	return &Walker{
		fetcher: fetcher,
		config:  config,
		logger:  logging.NewLogger(logging.ComponentPagination),
	}
}

// WithLogger returns a copy of w that logs to logger.
func (w *Walker) WithLogger(logger zerolog.Logger) *Walker {
	c := *w
	c.logger = logger
	return &c
}

// Walk fetches rootURL and every page reachable through next links, calling
// onPage for each. It returns the number of pages handed to onPage. The
// first fetch error ends the walk; pages delivered before it stay delivered.
func (w *Walker) Walk(ctx context.Context, rootURL string, onPage PageFunc) (int, error) {
	start := time.Now()
	pages := 0
	records := 0
	next := rootURL

	for {
		if w.config.MaxPages > 0 && pages >= w.config.MaxPages {
			w.logger.Warn().
				Int("pages", pages).
				Str("next", next).
				Msg("Page limit reached, stopping walk")
			return pages, fmt.Errorf("%w (%d pages)", ErrMaxPages, pages)
		}

		page, err := w.fetch(ctx, next)
		if err != nil {
			pagesFetchedTotal.WithLabelValues("error").Inc()
			w.logger.Error().
				Err(err).
				Str(logging.FieldURL, next).
				Int("pages", pages).
				Msg("Page fetch failed")
			return pages, fmt.Errorf("fetch page %d (%s): %w", pages+1, next, err)
		}
		pagesFetchedTotal.WithLabelValues("ok").Inc()

		pages++
		records += len(page.Results)

		if err := onPage(page); err != nil {
			return pages, fmt.Errorf("handle page %d: %w", pages, err)
		}

		w.logger.Info().
			Int("page", pages).
			Int("results", len(page.Results)).
			Int("count", page.Count).
			Msg("Page loaded")

		url, ok := page.NextURL()
		if !ok {
			break
		}
		next = url
	}

	w.logger.Info().
		Str("root", rootURL).
		Int("pages", pages).
		Int("records", records).
		Dur("duration", time.Since(start)).
		Msg("Walk complete")

	return pages, nil
}

func (w *Walker) fetch(ctx context.Context, url string) (*swapi.Page, error) {
	if w.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.config.Timeout)
		defer cancel()
	}
	return w.fetcher.FetchCharacterPage(ctx, url)
}
