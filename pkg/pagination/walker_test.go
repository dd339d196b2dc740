package pagination

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/swapi-roster/internal/testutil"
	"github.com/Sternrassler/swapi-roster/pkg/logging"
	"github.com/Sternrassler/swapi-roster/pkg/swapi"
)

// mapFetcher serves pages keyed by URL and records the fetch order.
type mapFetcher struct {
	pages map[string]*swapi.Page
	calls []string
}

func (m *mapFetcher) FetchCharacterPage(ctx context.Context, url string) (*swapi.Page, error) {
	m.calls = append(m.calls, url)
	page, ok := m.pages[url]
	if !ok {
		return nil, &swapi.Error{Class: swapi.ErrorClassHTTP, URL: url, StatusCode: 404}
	}
	return page, nil
}

func strPtr(s string) *string { return &s }

func makePage(next *string, names ...string) *swapi.Page {
	p := &swapi.Page{Count: len(names), Next: next}
	for _, n := range names {
		p.Results = append(p.Results, swapi.Character{Name: n, URL: "people/" + n + "/"})
	}
	return p
}

func TestWalk_SinglePage(t *testing.T) {
	f := &mapFetcher{pages: map[string]*swapi.Page{
		"people/": makePage(nil, "A", "B"),
	}}

	var seen []string
	n, err := NewWalker(f, DefaultConfig()).Walk(context.Background(), "people/", func(p *swapi.Page) error {
		for _, c := range p.Results {
			seen = append(seen, c.Name)
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if n != 1 {
		t.Errorf("pages = %d, want 1", n)
	}
	if len(f.calls) != 1 {
		t.Errorf("fetches = %d, want exactly 1 when next is null", len(f.calls))
	}
	if len(seen) != 2 {
		t.Errorf("seen = %v", seen)
	}
}

func TestWalk_EmptyNextStops(t *testing.T) {
	f := &mapFetcher{pages: map[string]*swapi.Page{
		"people/": makePage(strPtr(""), "A"),
	}}

	n, err := NewWalker(f, DefaultConfig()).Walk(context.Background(), "people/", func(*swapi.Page) error { return nil })
	if err != nil || n != 1 || len(f.calls) != 1 {
		t.Errorf("Walk() = %d, %v with %d fetches, want 1 page", n, err, len(f.calls))
	}
}

func TestWalk_FollowsNext(t *testing.T) {
	f := &mapFetcher{pages: map[string]*swapi.Page{
		"people/":        makePage(strPtr("people/?page=2"), "A", "B"),
		"people/?page=2": makePage(strPtr("people/?page=3"), "C", "D"),
		"people/?page=3": makePage(nil, "E"),
	}}

	var order []string
	n, err := NewWalker(f, DefaultConfig()).Walk(context.Background(), "people/", func(p *swapi.Page) error {
		for _, c := range p.Results {
			order = append(order, c.Name)
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if n != 3 {
		t.Errorf("pages = %d, want 3", n)
	}
	want := "[A B C D E]"
	if got := fmt.Sprint(order); got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
}

func TestWalk_StopsOnFetchError(t *testing.T) {
	f := &mapFetcher{pages: map[string]*swapi.Page{
		"people/": makePage(strPtr("people/?page=2"), "A"),
	}}

	delivered := 0
	n, err := NewWalker(f, DefaultConfig()).Walk(context.Background(), "people/", func(*swapi.Page) error {
		delivered++
		return nil
	})

	if err == nil {
		t.Fatal("Walk() expected error for missing page 2")
	}
	if !swapi.IsHTTP(err) || swapi.StatusCode(err) != 404 {
		t.Errorf("Walk() error = %v, want wrapped 404", err)
	}
	if n != 1 || delivered != 1 {
		t.Errorf("pages = %d, delivered = %d, want 1 and 1", n, delivered)
	}
}

func TestWalk_CallbackError(t *testing.T) {
	f := &mapFetcher{pages: map[string]*swapi.Page{
		"people/":        makePage(strPtr("people/?page=2"), "A"),
		"people/?page=2": makePage(nil, "B"),
	}}
	stop := errors.New("stop")

	_, err := NewWalker(f, DefaultConfig()).Walk(context.Background(), "people/", func(*swapi.Page) error {
		return stop
	})

	if !errors.Is(err, stop) {
		t.Errorf("Walk() error = %v, want callback error", err)
	}
	if len(f.calls) != 1 {
		t.Errorf("fetches = %d, want 1", len(f.calls))
	}
}

func TestWalk_MaxPages(t *testing.T) {
	f := &mapFetcher{pages: map[string]*swapi.Page{
		"loop/": makePage(strPtr("loop/"), "A"),
	}}

	n, err := NewWalker(f, Config{MaxPages: 3}).Walk(context.Background(), "loop/", func(*swapi.Page) error { return nil })

	if !errors.Is(err, ErrMaxPages) {
		t.Errorf("Walk() error = %v, want ErrMaxPages", err)
	}
	if n != 3 || len(f.calls) != 3 {
		t.Errorf("pages = %d, fetches = %d, want 3", n, len(f.calls))
	}
}

func TestWalk_WithClient(t *testing.T) {
	mock := testutil.NewMockSWAPI()
	defer mock.Close()

	mock.SetResponse(testutil.PagePath(1), testutil.NewHealthyResponse(
		`{"count": 3, "next": "{{base}}people/?page=2", "previous": null, "results": [{"name": "Luke Skywalker", "url": "{{base}}people/1/"}, {"name": "C-3PO", "url": "{{base}}people/2/"}]}`))
	mock.SetResponse(testutil.PagePath(2), testutil.NewHealthyResponse(
		`{"count": 3, "next": null, "previous": "{{base}}people/", "results": [{"name": "R2-D2", "url": "{{base}}people/3/"}]}`))

	cfg := swapi.DefaultConfig()
	cfg.BaseURL = mock.BaseURL()
	client, err := swapi.New(cfg)
	if err != nil {
		t.Fatalf("swapi.New() error = %v", err)
	}
	defer client.Close()

	var names []string
	n, err := NewWalker(client, DefaultConfig()).Walk(context.Background(), "people/", func(p *swapi.Page) error {
		for _, c := range p.Results {
			names = append(names, c.Name)
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if n != 2 {
		t.Errorf("pages = %d, want 2", n)
	}
	if got := fmt.Sprint(names); got != "[Luke Skywalker C-3PO R2-D2]" {
		t.Errorf("names = %s", got)
	}
	if mock.GetRequestCount() != 2 {
		t.Errorf("requests = %d, want 2", mock.GetRequestCount())
	}
}

func TestWalk_WithLogger(t *testing.T) {
	f := &mapFetcher{pages: map[string]*swapi.Page{
		"people/": makePage(nil, "A"),
	}}

	buf := &bytes.Buffer{}
	logger := zerolog.New(buf).With().
		Str(logging.FieldComponent, logging.ComponentPagination).
		Str(logging.FieldRunID, "run-7").
		Logger()

	base := NewWalker(f, DefaultConfig())
	if _, err := base.WithLogger(logger).Walk(context.Background(), "people/", func(*swapi.Page) error { return nil }); err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want page loaded and walk complete: %q", len(lines), buf.String())
	}
	for _, raw := range lines {
		var line map[string]any
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			t.Fatalf("log line is not JSON: %v", err)
		}
		if line[logging.FieldRunID] != "run-7" || line["level"] != "info" {
			t.Errorf("line = %v, want info with run_id run-7", line)
		}
	}
}
