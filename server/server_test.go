package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/agentuity/pokedex/catalog"
	"github.com/agentuity/pokedex/logger"
	"github.com/agentuity/pokedex/pokeapi"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	mu        sync.Mutex
	queries   []catalog.Query
	details   []string
	page      catalog.Page
	types     []string
	detail    catalog.DetailRecord
	err       error
	panicking bool
}

func (f *fakeCatalog) QueryPage(_ context.Context, q catalog.Query) (catalog.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.panicking {
		panic("boom")
	}
	return f.page, f.err
}

func (f *fakeCatalog) ListCategories(context.Context) ([]string, error) {
	return f.types, f.err
}

func (f *fakeCatalog) SpeciesDetail(_ context.Context, nameOrID string) (catalog.DetailRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.details = append(f.details, nameOrID)
	return f.detail, f.err
}

func serve(t *testing.T, c Catalog, method, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	New(logger.NewTestLogger(), c).ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestQueryRoute(t *testing.T) {
	fc := &fakeCatalog{page: catalog.Page{
		Items:      []catalog.Card{{ID: 6, Name: "charizard", Image: "art.png", Types: []string{"fire", "flying"}}},
		Page:       1,
		PageSize:   24,
		TotalItems: 1,
		TotalPages: 1,
	}}
	rec := serve(t, fc, http.MethodGet, "/api/pokemon?q=char&type=fire&sort=name-asc&page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	assert.NotEmpty(t, rec.Header().Get("ETag"))
	assert.JSONEq(t, `{"items":[{"id":6,"name":"charizard","image":"art.png","types":["fire","flying"]}],"page":1,"pageSize":24,"totalItems":1,"totalPages":1}`, rec.Body.String())
	assert.Equal(t, []catalog.Query{{Search: "char", Category: "fire", Sort: "name-asc", Page: 2}}, fc.queries)
}

func TestParsePage(t *testing.T) {
	for in, want := range map[string]int{"": 1, "3": 3, "0": 1, "-2": 1, "two": 1, "2.5": 1} {
		assert.Equal(t, want, parsePage(in), in)
	}
}

func TestTypesRoute(t *testing.T) {
	fc := &fakeCatalog{types: []string{"all", "fire", "water"}}
	rec := serve(t, fc, http.MethodGet, "/api/pokemon/types", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"types":["all","fire","water"]}`, rec.Body.String())
}

func TestDetailRoute(t *testing.T) {
	fc := &fakeCatalog{detail: catalog.DetailRecord{ID: 25, Name: "pikachu", Types: []string{"electric"}, Abilities: []catalog.Ability{}, Stats: []catalog.Stat{}}}
	rec := serve(t, fc, http.MethodGet, "/api/pokemon/Pikachu", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got catalog.DetailRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, fc.detail, got)
	assert.Equal(t, []string{"Pikachu"}, fc.details)
}

func TestMethodNotAllowed(t *testing.T) {
	for _, target := range []string{"/api/pokemon", "/api/pokemon/types", "/api/pokemon/1"} {
		rec := serve(t, &fakeCatalog{}, http.MethodPost, target, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, target)
		assert.Equal(t, "GET", rec.Header().Get("Allow"))
		assert.Equal(t, CodeMethodNotAllowed, decodeError(t, rec))
	}
}

func TestErrorMapping(t *testing.T) {
	invalid := &catalog.Error{Kind: catalog.KindInvalidArgument, Op: "detail", Err: catalog.ErrInvalidArgument}
	_, badSort := catalog.ParseSortRule("bogus")
	tests := []struct {
		name   string
		target string
		err    error
		status int
		code   string
	}{
		{"invalid sort", "/api/pokemon?sort=bogus", errors.Wrap(badSort, "query"), http.StatusBadRequest, CodeInvalidSort},
		{"invalid argument", "/api/pokemon", invalid, http.StatusBadRequest, CodeInvalidArgument},
		{"invalid detail", "/api/pokemon/-1", invalid, http.StatusNotFound, CodeNotFound},
		{"not found", "/api/pokemon/agumon", &catalog.Error{Kind: catalog.KindNotFound, Op: "detail", Err: pokeapi.ErrNotFound}, http.StatusNotFound, CodeNotFound},
		{"unavailable", "/api/pokemon", &pokeapi.StatusError{Status: 503}, http.StatusBadGateway, CodeUnavailable},
		{"unavailable types", "/api/pokemon/types", &pokeapi.StatusError{Status: 500}, http.StatusBadGateway, CodeUnavailable},
		{"internal", "/api/pokemon/types", errors.New("mystery"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, &fakeCatalog{err: tt.err}, http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec))
		})
	}
}

func TestPanicRecovered(t *testing.T) {
	log := logger.NewTestLogger()
	req := httptest.NewRequest(http.MethodGet, "/api/pokemon", nil)
	rec := httptest.NewRecorder()
	New(log, &fakeCatalog{panicking: true}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, CodeInternal, decodeError(t, rec))
	assert.Equal(t, 1, log.Count("ERROR"))
}

func TestETag(t *testing.T) {
	fc := &fakeCatalog{types: []string{"all", "fire"}}
	first := serve(t, fc, http.MethodGet, "/api/pokemon/types", nil)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	again := serve(t, fc, http.MethodGet, "/api/pokemon/types", nil)
	assert.Equal(t, etag, again.Header().Get("ETag"))

	cached := serve(t, fc, http.MethodGet, "/api/pokemon/types", http.Header{"If-None-Match": {etag}})
	assert.Equal(t, http.StatusNotModified, cached.Code)
	assert.Empty(t, cached.Body.Bytes())

	fc.types = []string{"all", "water"}
	changed := serve(t, fc, http.MethodGet, "/api/pokemon/types", http.Header{"If-None-Match": {etag}})
	assert.Equal(t, http.StatusOK, changed.Code)
	assert.NotEqual(t, etag, changed.Header().Get("ETag"))
}

func TestRequestID(t *testing.T) {
	fc := &fakeCatalog{types: []string{"all"}}
	rec := serve(t, fc, http.MethodGet, "/api/pokemon/types", http.Header{RequestIDHeader: {"abc-123"}})
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))

	a := serve(t, fc, http.MethodGet, "/api/pokemon/types", nil).Header().Get(RequestIDHeader)
	b := serve(t, fc, http.MethodGet, "/api/pokemon/types", nil).Header().Get(RequestIDHeader)
	assert.NotEqual(t, a, b)
}

func TestServeShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	s := New(logger.NewTestLogger(), &fakeCatalog{types: []string{"all"}})

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/pokemon/types")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestETagMatches(t *testing.T) {
	etag := `"00000000deadbeef"`
	tests := []struct {
		name   string
		values []string
		want   bool
	}{
		{"absent", nil, false},
		{"exact", []string{etag}, true},
		{"other", []string{`"0000000000000001"`}, false},
		{"weak", []string{`W/` + etag}, true},
		{"list", []string{`"0000000000000001", ` + etag}, true},
		{"list without match", []string{`"a", "b"`}, false},
		{"repeated header", []string{`"a"`, `W/` + etag}, true},
		{"wildcard", []string{"*"}, true},
		{"unquoted", []string{"00000000deadbeef"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, etagMatches(tt.values, etag))
		})
	}
}

func TestETagListAndWeak(t *testing.T) {
	fc := &fakeCatalog{types: []string{"all", "fire"}}
	etag := serve(t, fc, http.MethodGet, "/api/pokemon/types", nil).Header().Get("ETag")
	require.NotEmpty(t, etag)

	rec := serve(t, fc, http.MethodGet, "/api/pokemon/types", http.Header{"If-None-Match": {`"stale", W/` + etag}})
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec = serve(t, fc, http.MethodGet, "/api/pokemon/types", http.Header{"If-None-Match": {"*"}})
	assert.Equal(t, http.StatusNotModified, rec.Code)
}
