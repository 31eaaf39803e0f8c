package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agentuity/pokedex/logger"
	"github.com/agentuity/pokedex/pokeapi"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type species struct {
	id    int
	name  string
	types []string
	art   bool
}

var fixtureSpecies = []species{
	{7, "squirtle", []string{"water"}, true},
	{1, "bulbasaur", []string{"grass", "poison"}, true},
	{2, "ivysaur", []string{"grass", "poison"}, false},
	{3, "venusaur", []string{"grass", "poison"}, true},
	{4, "charmander", []string{"fire"}, true},
	{5, "charmeleon", []string{"fire"}, true},
	{6, "charizard", []string{"fire", "flying"}, true},
	{25, "pikachu", []string{"electric"}, false},
}

func strPtr(s string) *string { return &s }

// fakeAPI serves a small PokeAPI look-alike and counts requests per path.
type fakeAPI struct {
	mu     sync.Mutex
	hits   map[string]int
	fail   map[string]int
	server *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{hits: map[string]int{}, fail: map[string]int{}}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAPI) URL() string { return f.server.URL + "/api/v2" }

func (f *fakeAPI) Hits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeAPI) TotalHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, v := range f.hits {
		n += v
	}
	return n
}

// Fail makes path answer with status until cleared with status 0.
func (f *fakeAPI) Fail(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == 0 {
		delete(f.fail, path)
		return
	}
	f.fail[path] = status
}

func (f *fakeAPI) resourceURL(kind string, id int) string {
	return f.URL() + "/" + kind + "/" + strconv.Itoa(id) + "/"
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v2")
	f.mu.Lock()
	f.hits[path]++
	status, failing := f.fail[path]
	f.mu.Unlock()
	if failing {
		w.WriteHeader(status)
		return
	}

	switch {
	case path == "/pokemon":
		list := pokeapi.ResourceList{}
		for _, s := range fixtureSpecies {
			list.Results = append(list.Results, pokeapi.NamedResource{Name: s.name, URL: f.resourceURL("pokemon", s.id)})
		}
		list.Results = append(list.Results,
			pokeapi.NamedResource{Name: "missingno", URL: f.URL() + "/pokemon/"},
			pokeapi.NamedResource{Name: "glitch", URL: f.URL() + "/pokemon/abc/"},
			pokeapi.NamedResource{Name: "bulbasaur", URL: f.resourceURL("pokemon", 1)},
		)
		list.Count = len(list.Results)
		writeJSON(w, list)
	case path == "/type":
		list := pokeapi.ResourceList{}
		for i, name := range []string{"water", "fire", "grass", "electric", "poison", "flying"} {
			list.Results = append(list.Results, pokeapi.NamedResource{Name: name, URL: f.resourceURL("type", i+1)})
		}
		writeJSON(w, list)
	case strings.HasPrefix(path, "/type/"):
		name := strings.TrimPrefix(path, "/type/")
		t := pokeapi.Type{Name: name}
		for _, s := range fixtureSpecies {
			for i, tn := range s.types {
				if tn == name {
					t.Pokemon = append(t.Pokemon, pokeapi.TypeMember{Slot: i + 1, Pokemon: &pokeapi.NamedResource{Name: s.name, URL: f.resourceURL("pokemon", s.id)}})
				}
			}
		}
		if t.Pokemon == nil {
			http.NotFound(w, r)
			return
		}
		t.Pokemon = append(t.Pokemon, pokeapi.TypeMember{Slot: 1})
		writeJSON(w, t)
	case strings.HasPrefix(path, "/pokemon/"):
		key := strings.TrimPrefix(path, "/pokemon/")
		for _, s := range fixtureSpecies {
			if s.name == key || strconv.Itoa(s.id) == key {
				writeJSON(w, f.pokemon(s))
				return
			}
		}
		http.NotFound(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAPI) pokemon(s species) pokeapi.Pokemon {
	p := pokeapi.Pokemon{
		ID:             s.id,
		Name:           s.name,
		Height:         s.id * 3,
		Weight:         s.id * 50,
		BaseExperience: func() *int { v := 60 + s.id; return &v }(),
		Sprites:        &pokeapi.Sprites{FrontDefault: strPtr("https://img.example/front/" + s.name + ".png")},
	}
	if s.art {
		p.Sprites.Other = &pokeapi.OtherSprites{OfficialArtwork: &pokeapi.Artwork{FrontDefault: strPtr("https://img.example/art/" + s.name + ".png")}}
	}
	// upstream lists types in slot order; reverse them to check we sort
	for i := len(s.types) - 1; i >= 0; i-- {
		p.Types = append(p.Types, pokeapi.PokemonType{Slot: i + 1, Type: &pokeapi.NamedResource{Name: s.types[i]}})
	}
	p.Abilities = []pokeapi.PokemonAbility{
		{Slot: 3, IsHidden: true, Ability: &pokeapi.NamedResource{Name: "hidden-power"}},
		{Slot: 1, Ability: &pokeapi.NamedResource{Name: "overgrow"}},
	}
	p.Stats = []pokeapi.PokemonStat{
		{BaseStat: 45, Stat: &pokeapi.NamedResource{Name: "hp"}},
		{BaseStat: 49, Stat: &pokeapi.NamedResource{Name: "attack"}},
		{BaseStat: 1},
	}
	return p
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

type testEnv struct {
	api     *fakeAPI
	clock   *fakeClock
	log     *logger.TestLogger
	service *Service
}

func newTestEnv(t *testing.T, backend Backend, opts Options) *testEnv {
	t.Helper()
	ctx := context.Background()
	api := newFakeAPI(t)
	clock := newFakeClock()
	caches, err := NewCaches(ctx, backend, clock.Now)
	require.NoError(t, err)
	t.Cleanup(func() { caches.Close(ctx) })
	log := logger.NewTestLogger()
	client := pokeapi.New(log, api.URL())
	return &testEnv{
		api:     api,
		clock:   clock,
		log:     log,
		service: New(log, client, caches, opts),
	}
}
