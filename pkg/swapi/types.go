package swapi

import (
	"path"
	"strings"
)

// Character is a person record from the people/ endpoint.
//
// Species and Vehicles hold resource URLs when fetched. Enrichment replaces
// them with display values (avatar URLs and vehicle names); the original URLs
// are not kept.
type Character struct {
	Name      string   `json:"name"`
	Height    string   `json:"height"`
	Mass      string   `json:"mass"`
	HairColor string   `json:"hair_color"`
	SkinColor string   `json:"skin_color"`
	EyeColor  string   `json:"eye_color"`
	BirthYear string   `json:"birth_year"`
	Gender    string   `json:"gender"`
	Homeworld string   `json:"homeworld"`
	Films     []string `json:"films"`
	Species   []string `json:"species"`
	Vehicles  []string `json:"vehicles"`
	Starships []string `json:"starships"`
	Created   string   `json:"created"`
	Edited    string   `json:"edited"`

	// Favorite is local state only, upstream never sends it.
	Favorite bool `json:"is_favorite"`

	// URL is the canonical resource URL and the identity of the record.
	URL string `json:"url"`
}

// Clone returns a deep copy of the character.
func (c Character) Clone() Character {
	c.Films = cloneStrings(c.Films)
	c.Species = cloneStrings(c.Species)
	c.Vehicles = cloneStrings(c.Vehicles)
	c.Starships = cloneStrings(c.Starships)
	return c
}

// ID returns the trailing numeric segment of the character URL
// ("https://swapi.dev/api/people/1/" -> "1"), or "" when there is none.
func (c Character) ID() string {
	return ResourceID(c.URL)
}

// Page is one page of the paginated people/ listing.
type Page struct {
	Count    int         `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  []Character `json:"results"`
}

// NextURL returns the next page URL and whether there is one.
func (p *Page) NextURL() (string, bool) {
	if p == nil || p.Next == nil || *p.Next == "" {
		return "", false
	}
	return *p.Next, true
}

// Vehicle is a record from the vehicles/ endpoint.
type Vehicle struct {
	Name                 string   `json:"name"`
	Model                string   `json:"model"`
	Manufacturer         string   `json:"manufacturer"`
	CostInCredits        string   `json:"cost_in_credits"`
	Length               string   `json:"length"`
	MaxAtmospheringSpeed string   `json:"max_atmosphering_speed"`
	Crew                 string   `json:"crew"`
	Passengers           string   `json:"passengers"`
	CargoCapacity        string   `json:"cargo_capacity"`
	Consumables          string   `json:"consumables"`
	VehicleClass         string   `json:"vehicle_class"`
	Pilots               []string `json:"pilots"`
	Films                []string `json:"films"`
	Created              string   `json:"created"`
	Edited               string   `json:"edited"`
	URL                  string   `json:"url"`
}

// Species is a record from the species/ endpoint.
type Species struct {
	Name            string   `json:"name"`
	Classification  string   `json:"classification"`
	Designation     string   `json:"designation"`
	AverageHeight   string   `json:"average_height"`
	SkinColors      string   `json:"skin_colors"`
	HairColors      string   `json:"hair_colors"`
	EyeColors       string   `json:"eye_colors"`
	AverageLifespan string   `json:"average_lifespan"`
	Language        string   `json:"language"`
	Homeworld       *string  `json:"homeworld"`
	People          []string `json:"people"`
	Films           []string `json:"films"`
	Created         string   `json:"created"`
	Edited          string   `json:"edited"`
	URL             string   `json:"url"`
}

// Homeworld is a record from the planets/ endpoint.
type Homeworld struct {
	Name           string   `json:"name"`
	Climate        string   `json:"climate"`
	Diameter       string   `json:"diameter"`
	Gravity        string   `json:"gravity"`
	OrbitalPeriod  string   `json:"orbital_period"`
	RotationPeriod string   `json:"rotation_period"`
	Population     string   `json:"population"`
	SurfaceWater   string   `json:"surface_water"`
	Terrain        string   `json:"terrain"`
	Residents      []string `json:"residents"`
	Films          []string `json:"films"`
	Created        string   `json:"created"`
	Edited         string   `json:"edited"`
	URL            string   `json:"url"`
}

// Film is a record from the films/ endpoint.
type Film struct {
	Title        string   `json:"title"`
	EpisodeID    int      `json:"episode_id"`
	OpeningCrawl string   `json:"opening_crawl"`
	Director     string   `json:"director"`
	Producer     string   `json:"producer"`
	ReleaseDate  string   `json:"release_date"`
	Characters   []string `json:"characters"`
	Planets      []string `json:"planets"`
	Species      []string `json:"species"`
	Starships    []string `json:"starships"`
	Vehicles     []string `json:"vehicles"`
	Created      string   `json:"created"`
	Edited       string   `json:"edited"`
	URL          string   `json:"url"`
}

// ResourceID extracts the last non-empty path segment of a resource URL.
func ResourceID(resourceURL string) string {
	trimmed := strings.TrimRight(resourceURL, "/")
	if trimmed == "" {
		return ""
	}
	id := path.Base(trimmed)
	if strings.Contains(id, ":") {
		return ""
	}
	return id
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
