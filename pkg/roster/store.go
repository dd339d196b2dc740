// Package roster holds the ordered character list and the machinery that
// fills it: a Store, a single-writer Roster that owns the Store, and a
// Loader that walks the listing and schedules enrichment.
package roster

import (
	"errors"

	"github.com/Sternrassler/swapi-roster/pkg/logging"
	"github.com/Sternrassler/swapi-roster/pkg/swapi"
)

// ErrNotFound is returned when no character has the requested URL.
var ErrNotFound = errors.New("character not found")

// Store is an append-only ordered list of characters keyed by URL.
//
// Store is not safe for concurrent use. Roster serializes access to it.
type Store struct {
	items []swapi.Character
	index map[string]int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{index: make(map[string]int)}
}

// Append adds the page's characters to the end of the store in page order
// and returns how many were added. A character whose URL is already stored
// is dropped. Characters without a URL are always added.
func (s *Store) Append(page *swapi.Page) int {
	if page == nil {
		return 0
	}

	added := 0
	for _, c := range page.Results {
		if c.URL != "" {
			if _, exists := s.index[c.URL]; exists {
				rosterDuplicatesTotal.Inc()
				logger := logging.NewLogger(logging.ComponentRoster)
				logger.Warn().
					Str(logging.FieldURL, c.URL).
					Str("name", c.Name).
					Msg("Dropping duplicate character")
				continue
			}
			s.index[c.URL] = len(s.items)
		}
		s.items = append(s.items, c.Clone())
		added++
	}

	rosterCharacters.Set(float64(len(s.items)))
	return added
}

// All returns a copy of every character in insertion order.
func (s *Store) All() []swapi.Character {
	out := make([]swapi.Character, len(s.items))
	for i, c := range s.items {
		out[i] = c.Clone()
	}
	return out
}

// Tail returns copies of the last n characters.
func (s *Store) Tail(n int) []swapi.Character {
	if n > len(s.items) {
		n = len(s.items)
	}
	if n <= 0 {
		return nil
	}
	out := make([]swapi.Character, 0, n)
	for _, c := range s.items[len(s.items)-n:] {
		out = append(out, c.Clone())
	}
	return out
}

// Len returns the number of stored characters.
func (s *Store) Len() int {
	return len(s.items)
}

// FindByURL returns a copy of the character with the given URL.
func (s *Store) FindByURL(url string) (*swapi.Character, bool) {
	i, ok := s.index[url]
	if !ok {
		return nil, false
	}
	c := s.items[i].Clone()
	return &c, true
}

// FindByID returns a copy of the character whose URL ends in id.
func (s *Store) FindByID(id string) (*swapi.Character, bool) {
	if id == "" {
		return nil, false
	}
	for _, c := range s.items {
		if c.ID() == id {
			found := c.Clone()
			return &found, true
		}
	}
	return nil, false
}

// SetVehicles replaces the vehicle list of the character with the given URL.
func (s *Store) SetVehicles(url string, names []string) error {
	c, err := s.lookup(url)
	if err != nil {
		return err
	}
	c.Vehicles = append([]string{}, names...)
	return nil
}

// SetSpecies replaces the species list of the character with the given URL.
func (s *Store) SetSpecies(url string, avatars []string) error {
	c, err := s.lookup(url)
	if err != nil {
		return err
	}
	c.Species = append([]string{}, avatars...)
	return nil
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (s *Store) ToggleFavorite(url string) (bool, error) {
	c, err := s.lookup(url)
	if err != nil {
		return false, err
	}
	c.Favorite = !c.Favorite
	return c.Favorite, nil
}

func (s *Store) lookup(url string) (*swapi.Character, error) {
	i, ok := s.index[url]
	if !ok {
		return nil, ErrNotFound
	}
	return &s.items[i], nil
}
