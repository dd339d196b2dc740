// Package enrich replaces resource references on characters with display
// values: vehicle names, species avatars and on-demand detail fields.
//
// Per-entry failures are swallowed. A vehicle or species that cannot be
// fetched is left out of the result, so enriched lists may be shorter than
// the reference lists they came from.
package enrich

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/swapi-roster/pkg/avatar"
	"github.com/Sternrassler/swapi-roster/pkg/logging"
	"github.com/Sternrassler/swapi-roster/pkg/swapi"
)

// ResourceFetcher fetches the resources referenced by a character.
// *swapi.Client implements it.
type ResourceFetcher interface {
	FetchVehicle(ctx context.Context, url string) (*swapi.Vehicle, error)
	FetchSpecies(ctx context.Context, url string) (*swapi.Species, error)
	FetchHomeworld(ctx context.Context, url string) (*swapi.Homeworld, error)
	FetchFilm(ctx context.Context, url string) (*swapi.Film, error)
}

// Enricher derives display values for characters.
type Enricher struct {
	fetcher ResourceFetcher
	logger  zerolog.Logger
}

// New creates an Enricher backed by fetcher.
func New(fetcher ResourceFetcher) *Enricher {
	return &Enricher{
		fetcher: fetcher,
		logger:  logging.NewLogger(logging.ComponentEnrich),
	}
}

// Vehicles fetches each vehicle URL in order and returns the vehicle names.
// Vehicles that fail to load are skipped.
func (e *Enricher) Vehicles(ctx context.Context, urls []string) []string {
	start := time.Now()
	names := make([]string, 0, len(urls))

	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}
		v, err := e.fetcher.FetchVehicle(ctx, u)
		if err != nil {
			enrichSkippedTotal.WithLabelValues(string(KindVehicles), errorClass(err)).Inc()
			e.logger.Warn().
				Err(err).
				Str(logging.FieldURL, u).
				Msg("Skipping vehicle")
			continue
		}
		names = append(names, v.Name)
	}

	enrichDuration.WithLabelValues(string(KindVehicles)).Observe(time.Since(start).Seconds())
	return names
}

// Species fetches each species URL in order and returns the avatar
// reference derived from each species language.
func (e *Enricher) Species(ctx context.Context, urls []string) []string {
	start := time.Now()
	avatars := make([]string, 0, len(urls))

	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}
		s, err := e.fetcher.FetchSpecies(ctx, u)
		if err != nil {
			enrichSkippedTotal.WithLabelValues(string(KindSpecies), errorClass(err)).Inc()
			e.logger.Warn().
				Err(err).
				Str(logging.FieldURL, u).
				Msg("Skipping species")
			continue
		}

		ref := avatar.ForLanguage(s.Language)
		e.logger.Debug().
			Str("species", s.Name).
			Str("language", s.Language).
			Str("avatar", ref).
			Msg("Derived avatar")
		avatars = append(avatars, ref)
	}

	enrichDuration.WithLabelValues(string(KindSpecies)).Observe(time.Since(start).Seconds())
	return avatars
}

// Run applies one job and returns its result.
func (e *Enricher) Run(ctx context.Context, job Job) Result {
	var values []string
	switch job.Kind {
	case KindVehicles:
		values = e.Vehicles(ctx, job.Character.Vehicles)
	case KindSpecies:
		values = e.Species(ctx, job.Character.Species)
	}
	return Result{Kind: job.Kind, URL: job.Character.URL, Values: values}
}

func errorClass(err error) string {
	if class := swapi.ClassOf(err); class != "" {
		return string(class)
	}
	return "other"
}
