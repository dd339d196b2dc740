package enrich

import (
	"context"
	"strings"

	"github.com/Sternrassler/swapi-roster/pkg/logging"
	"github.com/Sternrassler/swapi-roster/pkg/swapi"
)

const (
	// DetailError replaces both detail fields when a detail fetch fails
	// in transport or decoding.
	DetailError = "Error"

	// DetailUnknown stands in for an empty or unavailable homeworld name
	// and for an empty film title.
	DetailUnknown = "Unknown"

	filmSeparator = ", "
)

// Details holds the on-demand fields of a character's detail view.
type Details struct {
	Homeworld string `json:"homeworld"`
	Films     string `json:"films"`
}

// Details fetches the homeworld name and then every film title of c, one
// after the other. Titles are joined with ", ".
//
// A non-2xx homeworld reads DetailUnknown and a non-2xx film is left out.
// A network or parse failure on any fetch degrades both fields to
// DetailError.
func (e *Enricher) Details(ctx context.Context, c swapi.Character) Details {
	failed := Details{Homeworld: DetailError, Films: DetailError}

	homeworld := DetailUnknown
	hw, err := e.fetcher.FetchHomeworld(ctx, c.Homeworld)
	switch {
	case err == nil:
		homeworld = orUnknown(hw.Name)
	case swapi.IsHTTP(err):
		detailFailuresTotal.WithLabelValues("homeworld").Inc()
		e.logger.Warn().
			Err(err).
			Str(logging.FieldURL, c.Homeworld).
			Msg("Homeworld not available")
	default:
		detailFailuresTotal.WithLabelValues("homeworld").Inc()
		e.logger.Error().
			Err(err).
			Str(logging.FieldURL, c.Homeworld).
			Msg("Error fetching character details")
		return failed
	}

	titles := make([]string, 0, len(c.Films))
	for _, u := range c.Films {
		film, err := e.fetcher.FetchFilm(ctx, u)
		if err != nil {
			detailFailuresTotal.WithLabelValues("film").Inc()
			if swapi.IsHTTP(err) {
				e.logger.Warn().
					Err(err).
					Str(logging.FieldURL, u).
					Msg("Skipping film")
				continue
			}
			e.logger.Error().
				Err(err).
				Str(logging.FieldURL, u).
				Msg("Error fetching character details")
			return failed
		}
		titles = append(titles, orUnknown(film.Title))
	}

	return Details{
		Homeworld: homeworld,
		Films:     strings.Join(titles, filmSeparator),
	}
}

func orUnknown(s string) string {
	if s == "" {
		return DetailUnknown
	}
	return s
}
