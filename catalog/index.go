package catalog

import (
	"cmp"
	"context"
	"regexp"
	"slices"
	"strconv"

	"github.com/agentuity/pokedex/cache"
	"github.com/agentuity/pokedex/pokeapi"
	"github.com/cockroachdb/errors"
)

var resourceIDPattern = regexp.MustCompile(`(?i)/pokemon/(\d+)/?$`)

// ParseIDFromURL extracts the numeric id from a pokemon resource URL.
func ParseIDFromURL(u string) (int, bool) {
	m := resourceIDPattern.FindStringSubmatch(u)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// MasterIndex returns every pokemon sorted by ascending id. Upstream entries
// without a parsable id are skipped. The result is the caller's to modify.
func (s *Service) MasterIndex(ctx context.Context) ([]IndexEntry, error) {
	list, err := s.masterIndex(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(list), nil
}

// masterIndex returns the cached index itself, which must not be modified.
func (s *Service) masterIndex(ctx context.Context) ([]IndexEntry, error) {
	if list, ok := s.caches.Index.Get(); ok {
		s.logger.Trace("master index cache hit")
		return list, nil
	}
	payload, err := s.upstream.ListPokemon(ctx, s.opts.ListLimit, 0)
	if err != nil {
		return nil, failList("master index", err)
	}
	list := make([]IndexEntry, 0, len(payload.Results))
	skipped := 0
	for _, r := range payload.Results {
		id, ok := ParseIDFromURL(r.URL)
		name := normalize(r.Name)
		if !ok || name == "" {
			skipped++
			continue
		}
		list = append(list, IndexEntry{ID: id, Name: name, URL: r.URL})
	}
	slices.SortStableFunc(list, func(a, b IndexEntry) int { return cmp.Compare(a.ID, b.ID) })
	list = slices.CompactFunc(list, func(a, b IndexEntry) bool { return a.ID == b.ID })
	if skipped > 0 {
		s.logger.Debug("master index skipped %d malformed entries", skipped)
	}
	s.caches.Index.Set(list, s.opts.TTL.Index)
	s.logger.Debug("master index loaded with %d entries", len(list))
	return list, nil
}

// CategoryList returns the upstream type names in lexicographic order.
func (s *Service) CategoryList(ctx context.Context) ([]string, error) {
	if names, ok := s.caches.Categories.Get(); ok {
		s.logger.Trace("category list cache hit")
		return slices.Clone(names), nil
	}
	payload, err := s.upstream.ListTypes(ctx)
	if err != nil {
		return nil, failList("category list", err)
	}
	names := make([]string, 0, len(payload.Results))
	for _, r := range payload.Results {
		if name := normalize(r.Name); name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	names = slices.Compact(names)
	s.caches.Categories.Set(names, s.opts.TTL.Categories)
	return slices.Clone(names), nil
}

// ListCategories is CategoryList with AllCategories prepended.
func (s *Service) ListCategories(ctx context.Context) ([]string, error) {
	names, err := s.CategoryList(ctx)
	if err != nil {
		return nil, err
	}
	return append([]string{AllCategories}, names...), nil
}

// CategoryMembership resolves the members of a category. An unknown category
// is remembered as Found=false for the membership TTL. An empty name is never
// looked up or cached. The returned Names map is the caller's to modify.
func (s *Service) CategoryMembership(ctx context.Context, name string) (CategoryMembership, error) {
	m, err := s.categoryMembership(ctx, name)
	if err != nil {
		return CategoryMembership{}, err
	}
	return m.clone(), nil
}

// categoryMembership may return the cached Names map itself.
func (s *Service) categoryMembership(ctx context.Context, name string) (CategoryMembership, error) {
	key := normalize(name)
	if key == "" {
		return CategoryMembership{Names: map[string]bool{}}, nil
	}
	cfg := cache.CacheConfig{Key: "type:" + key, Expires: s.opts.TTL.Membership, Logger: s.logger}
	m, err := cache.Exec(ctx, cfg, s.caches.Membership, func(ctx context.Context) (CategoryMembership, bool, error) {
		s.logger.Trace("category %s cache miss", key)
		t, err := s.upstream.GetType(ctx, key)
		if errors.Is(err, pokeapi.ErrNotFound) {
			s.logger.Debug("category %s does not exist upstream, caching negative result", key)
			return CategoryMembership{Found: false, Names: map[string]bool{}}, true, nil
		}
		if err != nil {
			return CategoryMembership{}, false, err
		}
		names := make(map[string]bool, len(t.Pokemon))
		for _, member := range t.Pokemon {
			if member.Pokemon == nil {
				continue
			}
			if n := normalize(member.Pokemon.Name); n != "" {
				names[n] = true
			}
		}
		return CategoryMembership{Found: true, Names: names}, true, nil
	})
	if err != nil {
		return CategoryMembership{}, fail("category "+key, err)
	}
	return m, nil
}
