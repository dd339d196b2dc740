package roster

import (
	"errors"
	"testing"

	"github.com/Sternrassler/swapi-roster/pkg/swapi"
)

func char(name string) swapi.Character {
	return swapi.Character{
		Name:     name,
		URL:      "https://swapi.dev/api/people/" + name + "/",
		Vehicles: []string{"https://swapi.dev/api/vehicles/14/"},
	}
}

func pageOf(chars ...swapi.Character) *swapi.Page {
	return &swapi.Page{Count: len(chars), Results: chars}
}

func names(chars []swapi.Character) []string {
	out := make([]string, len(chars))
	for i, c := range chars {
		out[i] = c.Name
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestStore_AppendPreservesOrder(t *testing.T) {
	s := NewStore()

	s.Append(pageOf(char("A"), char("B")))
	s.Append(pageOf(char("C"), char("D")))

	got := names(s.All())
	want := []string{"A", "B", "C", "D"}
	if !equal(got, want) {
		t.Errorf("All() = %v, want %v", got, want)
	}
}

func TestStore_AppendDropsDuplicateURLs(t *testing.T) {
	s := NewStore()

	if n := s.Append(pageOf(char("A"), char("B"))); n != 2 {
		t.Errorf("first Append() = %d, want 2", n)
	}
	if n := s.Append(pageOf(char("B"), char("C"))); n != 1 {
		t.Errorf("second Append() = %d, want 1", n)
	}

	if !equal(names(s.All()), []string{"A", "B", "C"}) {
		t.Errorf("All() = %v", names(s.All()))
	}
}

func TestStore_AppendKeepsRecordsWithoutURL(t *testing.T) {
	s := NewStore()
	s.Append(pageOf(swapi.Character{Name: "x"}, swapi.Character{Name: "y"}))

	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestStore_AppendNil(t *testing.T) {
	if n := NewStore().Append(nil); n != 0 {
		t.Errorf("Append(nil) = %d, want 0", n)
	}
}

func TestStore_AllReturnsCopies(t *testing.T) {
	s := NewStore()
	s.Append(pageOf(char("A")))

	all := s.All()
	all[0].Name = "mutated"
	all[0].Vehicles[0] = "mutated"

	c, _ := s.FindByURL(char("A").URL)
	if c.Name != "A" || c.Vehicles[0] == "mutated" {
		t.Error("All() must not expose stored records")
	}
}

func TestStore_Tail(t *testing.T) {
	s := NewStore()
	s.Append(pageOf(char("A"), char("B"), char("C")))

	if got := names(s.Tail(2)); !equal(got, []string{"B", "C"}) {
		t.Errorf("Tail(2) = %v", got)
	}
	if got := s.Tail(0); got != nil {
		t.Errorf("Tail(0) = %v, want nil", got)
	}
	if got := s.Tail(10); len(got) != 3 {
		t.Errorf("Tail(10) len = %d, want 3", len(got))
	}
}

func TestStore_FindByURL(t *testing.T) {
	s := NewStore()
	s.Append(pageOf(char("A"), char("B")))

	c, ok := s.FindByURL(char("B").URL)
	if !ok || c.Name != "B" {
		t.Errorf("FindByURL(B) = %v, %v", c, ok)
	}
	if _, ok := s.FindByURL("https://swapi.dev/api/people/Z/"); ok {
		t.Error("FindByURL should miss unknown URL")
	}
}

func TestStore_FindByID(t *testing.T) {
	s := NewStore()
	s.Append(pageOf(
		swapi.Character{Name: "Luke Skywalker", URL: "https://swapi.dev/api/people/1/"},
		swapi.Character{Name: "R2-D2", URL: "https://swapi.dev/api/people/3/"},
	))

	c, ok := s.FindByID("3")
	if !ok || c.Name != "R2-D2" {
		t.Errorf("FindByID(3) = %v, %v", c, ok)
	}
	if _, ok := s.FindByID(""); ok {
		t.Error("FindByID(\"\") should miss")
	}
}

func TestStore_SetVehiclesAndSpecies(t *testing.T) {
	s := NewStore()
	a := char("A")
	s.Append(pageOf(a))

	if err := s.SetVehicles(a.URL, []string{"Snowspeeder"}); err != nil {
		t.Fatalf("SetVehicles() error = %v", err)
	}
	if err := s.SetSpecies(a.URL, []string{"placeholder"}); err != nil {
		t.Fatalf("SetSpecies() error = %v", err)
	}

	c, _ := s.FindByURL(a.URL)
	if !equal(c.Vehicles, []string{"Snowspeeder"}) || !equal(c.Species, []string{"placeholder"}) {
		t.Errorf("character = %+v", c)
	}

	if err := s.SetVehicles("missing", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetVehicles(missing) error = %v, want ErrNotFound", err)
	}
}

func TestStore_ToggleFavorite(t *testing.T) {
	s := NewStore()
	a := char("A")
	s.Append(pageOf(a))

	fav, err := s.ToggleFavorite(a.URL)
	if err != nil || !fav {
		t.Errorf("first toggle = %v, %v, want true", fav, err)
	}
	fav, err = s.ToggleFavorite(a.URL)
	if err != nil || fav {
		t.Errorf("second toggle = %v, %v, want false", fav, err)
	}
	if _, err := s.ToggleFavorite("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("toggle missing error = %v, want ErrNotFound", err)
	}
}
