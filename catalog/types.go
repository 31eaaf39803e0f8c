package catalog

import (
	"cmp"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// AllCategories is the wildcard category that disables category filtering.
const AllCategories = "all"

// IndexEntry is one member of the master index.
type IndexEntry struct {
	ID   int    `json:"id" msgpack:"id"`
	Name string `json:"name" msgpack:"name"`
	URL  string `json:"url" msgpack:"url"`
}

// CategoryMembership is the resolved member set of one category. Found is
// false for a category the upstream does not know.
type CategoryMembership struct {
	Found bool            `json:"found" msgpack:"found"`
	Names map[string]bool `json:"names" msgpack:"names"`
}

func (m CategoryMembership) clone() CategoryMembership {
	names := maps.Clone(m.Names)
	if names == nil {
		names = map[string]bool{}
	}
	return CategoryMembership{Found: m.Found, Names: names}
}

// Has reports whether name belongs to the category.
func (m CategoryMembership) Has(name string) bool {
	return m.Names[name]
}

type Sprites struct {
	FrontDefault    string `json:"frontDefault,omitempty" msgpack:"front_default"`
	OfficialArtwork string `json:"officialArtwork,omitempty" msgpack:"official_artwork"`
}

type Ability struct {
	Name   string `json:"name" msgpack:"name"`
	Hidden bool   `json:"hidden" msgpack:"hidden"`
	Slot   int    `json:"slot" msgpack:"slot"`
}

type Stat struct {
	Name  string `json:"name" msgpack:"name"`
	Value int    `json:"value" msgpack:"value"`
}

// DetailRecord is the normalized form of a single pokemon.
type DetailRecord struct {
	ID             int       `json:"id" msgpack:"id"`
	Name           string    `json:"name" msgpack:"name"`
	Height         int       `json:"height" msgpack:"height"`
	Weight         int       `json:"weight" msgpack:"weight"`
	BaseExperience int       `json:"baseExperience" msgpack:"base_experience"`
	Sprites        Sprites   `json:"sprites" msgpack:"sprites"`
	Types          []string  `json:"types" msgpack:"types"`
	Abilities      []Ability `json:"abilities" msgpack:"abilities"`
	Stats          []Stat    `json:"stats" msgpack:"stats"`
}

func (d DetailRecord) clone() DetailRecord {
	d.Types = slices.Clone(d.Types)
	d.Abilities = slices.Clone(d.Abilities)
	d.Stats = slices.Clone(d.Stats)
	return d
}

// Card is the display form of one pokemon on a catalog page.
type Card struct {
	ID    int      `json:"id"`
	Name  string   `json:"name"`
	Image string   `json:"image"`
	Types []string `json:"types"`
}

// Query selects one catalog page. Empty Category means AllCategories, empty
// Sort means SortIDAsc, and Page < 1 means the first page.
type Query struct {
	Search   string
	Category string
	Sort     string
	Page     int
}

// Page is one window of a filtered, sorted catalog.
type Page struct {
	Items      []Card `json:"items"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalItems int    `json:"totalItems"`
	TotalPages int    `json:"totalPages"`
}

type SortRule string

const (
	SortIDAsc    SortRule = "id-asc"
	SortIDDesc   SortRule = "id-desc"
	SortNameAsc  SortRule = "name-asc"
	SortNameDesc SortRule = "name-desc"
)

// DefaultSort is used when a query names no sort rule.
const DefaultSort = SortIDAsc

// ParseSortRule normalizes s and returns the matching rule.
func ParseSortRule(s string) (SortRule, error) {
	s = normalize(s)
	if s == "" {
		return DefaultSort, nil
	}
	switch rule := SortRule(s); rule {
	case SortIDAsc, SortIDDesc, SortNameAsc, SortNameDesc:
		return rule, nil
	}
	return "", errors.Mark(errors.Wrapf(ErrInvalidSort, "%q", s), ErrInvalidArgument)
}

func (r SortRule) compare(a, b IndexEntry) int {
	switch r {
	case SortIDDesc:
		return cmp.Compare(b.ID, a.ID)
	case SortNameAsc:
		return strings.Compare(a.Name, b.Name)
	case SortNameDesc:
		return strings.Compare(b.Name, a.Name)
	}
	return cmp.Compare(a.ID, b.ID)
}

// FallbackSprite is the default front sprite for a pokemon id.
func FallbackSprite(id int) string {
	return "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/" + strconv.Itoa(id) + ".png"
}

// Image picks the best available image: official artwork, then the front
// sprite, then FallbackSprite.
func (d DetailRecord) Image() string {
	if d.Sprites.OfficialArtwork != "" {
		return d.Sprites.OfficialArtwork
	}
	if d.Sprites.FrontDefault != "" {
		return d.Sprites.FrontDefault
	}
	return FallbackSprite(d.ID)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
