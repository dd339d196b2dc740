package roster

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/swapi-roster/pkg/enrich"
	"github.com/Sternrassler/swapi-roster/pkg/logging"
	"github.com/Sternrassler/swapi-roster/pkg/swapi"
)

// ErrStopped is returned when the roster's run loop is no longer running.
var ErrStopped = errors.New("roster stopped")

// EventKind describes a change to the roster.
type EventKind string

const (
	// EventAppended is sent after a page of characters was appended.
	EventAppended EventKind = "appended"
	// EventVehicles is sent after a character's vehicles were enriched.
	EventVehicles EventKind = "vehicles"
	// EventSpecies is sent after a character's species were enriched.
	EventSpecies EventKind = "species"
	// EventFavorite is sent after a favorite flag was toggled.
	EventFavorite EventKind = "favorite"
)

// Event notifies subscribers that the roster changed.
type Event struct {
	Kind EventKind
	// URL is the affected character, empty for EventAppended.
	URL string
	// Count is the number of characters appended for EventAppended.
	Count int
}

const subscriberBuffer = 64

// Roster owns a Store and serializes every read and write through a single
// goroutine started by Run. Callers never touch the Store directly.
type Roster struct {
	store  *Store
	ops    chan func(*Store)
	done   chan struct{}
	logger zerolog.Logger

	subMu sync.Mutex
	subs  map[int]chan Event
	next  int
}

// New creates a roster. Call Run before using it.
func New() *Roster {
	return &Roster{
		store:  NewStore(),
		ops:    make(chan func(*Store)),
		done:   make(chan struct{}),
		logger: logging.NewLogger(logging.ComponentRoster),
		subs:   make(map[int]chan Event),
	}
}

// Run executes queued operations until ctx is done. It must be called
// exactly once.
func (r *Roster) Run(ctx context.Context) error {
	defer close(r.done)
	r.logger.Debug().Msg("Roster aggregator started")

	for {
		select {
		case <-ctx.Done():
			r.closeSubscribers()
			r.logger.Debug().Msg("Roster aggregator stopped")
			return ctx.Err()
		case op := <-r.ops:
			op(r.store)
		}
	}
}

// do runs fn on the aggregator goroutine and waits for it to finish.
func (r *Roster) do(ctx context.Context, fn func(*Store)) error {
	finished := make(chan struct{})
	op := func(s *Store) {
		defer close(finished)
		fn(s)
	}

	select {
	case r.ops <- op:
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// Accepted ops always complete; the run loop executes them inline.
	<-finished
	return nil
}

// Append adds a page to the roster and returns the characters that were
// actually appended (duplicates excluded), in page order.
func (r *Roster) Append(ctx context.Context, page *swapi.Page) ([]swapi.Character, error) {
	var added []swapi.Character
	err := r.do(ctx, func(s *Store) {
		n := s.Append(page)
		added = s.Tail(n)
		if n > 0 {
			r.publish(Event{Kind: EventAppended, Count: n})
		}
	})
	return added, err
}

// Apply writes an enrichment result to the character it belongs to.
func (r *Roster) Apply(ctx context.Context, res enrich.Result) error {
	var applyErr error
	err := r.do(ctx, func(s *Store) {
		switch res.Kind {
		case enrich.KindVehicles:
			applyErr = s.SetVehicles(res.URL, res.Values)
			if applyErr == nil {
				r.publish(Event{Kind: EventVehicles, URL: res.URL})
			}
		case enrich.KindSpecies:
			applyErr = s.SetSpecies(res.URL, res.Values)
			if applyErr == nil {
				r.publish(Event{Kind: EventSpecies, URL: res.URL})
			}
		default:
			applyErr = fmt.Errorf("unknown enrichment kind %q", res.Kind)
		}
	})
	if err != nil {
		return err
	}
	return applyErr
}

// Snapshot returns a copy of all characters in order.
func (r *Roster) Snapshot(ctx context.Context) ([]swapi.Character, error) {
	var out []swapi.Character
	err := r.do(ctx, func(s *Store) {
		out = s.All()
	})
	return out, err
}

// Len returns the number of characters.
func (r *Roster) Len(ctx context.Context) (int, error) {
	var n int
	err := r.do(ctx, func(s *Store) {
		n = s.Len()
	})
	return n, err
}

// Find returns a copy of the character with the given URL.
func (r *Roster) Find(ctx context.Context, url string) (swapi.Character, error) {
	var (
		found *swapi.Character
		ok    bool
	)
	if err := r.do(ctx, func(s *Store) {
		found, ok = s.FindByURL(url)
	}); err != nil {
		return swapi.Character{}, err
	}
	if !ok {
		return swapi.Character{}, ErrNotFound
	}
	return *found, nil
}

// FindByID returns a copy of the character whose URL ends in id.
func (r *Roster) FindByID(ctx context.Context, id string) (swapi.Character, error) {
	var (
		found *swapi.Character
		ok    bool
	)
	if err := r.do(ctx, func(s *Store) {
		found, ok = s.FindByID(id)
	}); err != nil {
		return swapi.Character{}, err
	}
	if !ok {
		return swapi.Character{}, ErrNotFound
	}
	return *found, nil
}

// ToggleFavorite flips the favorite flag of the character with the given URL
// and returns the new value.
func (r *Roster) ToggleFavorite(ctx context.Context, url string) (bool, error) {
	var (
		fav       bool
		toggleErr error
	)
	if err := r.do(ctx, func(s *Store) {
		fav, toggleErr = s.ToggleFavorite(url)
		if toggleErr == nil {
			r.publish(Event{Kind: EventFavorite, URL: url})
		}
	}); err != nil {
		return false, err
	}
	return fav, toggleErr
}

// Subscribe returns a channel of change events and a function that ends the
// subscription. Events are dropped for subscribers that fall behind.
func (r *Roster) Subscribe() (<-chan Event, func()) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	id := r.next
	r.next++
	ch := make(chan Event, subscriberBuffer)
	r.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.subMu.Lock()
			defer r.subMu.Unlock()
			if sub, ok := r.subs[id]; ok {
				delete(r.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

func (r *Roster) publish(ev Event) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- ev:
		default:
			r.logger.Debug().
				Str("event", string(ev.Kind)).
				Msg("Dropping event for slow subscriber")
		}
	}
}

func (r *Roster) closeSubscribers() {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for id, ch := range r.subs {
		delete(r.subs, id)
		close(ch)
	}
}
