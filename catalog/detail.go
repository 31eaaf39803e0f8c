package catalog

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/agentuity/pokedex/cache"
	"github.com/agentuity/pokedex/pokeapi"
)

// DetailByName returns the detail record for a pokemon name. The name is
// trimmed and lowercased and must not be empty.
func (s *Service) DetailByName(ctx context.Context, name string) (DetailRecord, error) {
	key := normalize(name)
	if key == "" {
		return DetailRecord{}, fail("detail", invalidArgumentf("pokemon name is required"))
	}
	return s.detail(ctx, "name:"+key, key)
}

// DetailByID returns the detail record for a positive pokemon id.
func (s *Service) DetailByID(ctx context.Context, id int) (DetailRecord, error) {
	if id <= 0 {
		return DetailRecord{}, fail("detail", invalidArgumentf("pokemon id %d is invalid", id))
	}
	ident := strconv.Itoa(id)
	return s.detail(ctx, "id:"+ident, ident)
}

// SpeciesDetail looks up nameOrID by id when it is an integer and by name
// otherwise.
func (s *Service) SpeciesDetail(ctx context.Context, nameOrID string) (DetailRecord, error) {
	v := strings.TrimSpace(nameOrID)
	if id, err := strconv.Atoi(v); err == nil {
		return s.DetailByID(ctx, id)
	}
	return s.DetailByName(ctx, v)
}

func (s *Service) detail(ctx context.Context, key, ident string) (DetailRecord, error) {
	found, rec, err := cache.Get[DetailRecord](ctx, s.caches.Details, key)
	if err != nil {
		return DetailRecord{}, fail("detail "+ident, err)
	}
	if found {
		s.logger.Trace("detail %s cache hit", key)
		return rec.clone(), nil
	}
	p, err := s.upstream.GetPokemon(ctx, ident)
	if err != nil {
		return DetailRecord{}, fail("detail "+ident, err)
	}
	rec = normalizeDetail(p)
	s.storeDetail(ctx, rec)
	return rec.clone(), nil
}

// storeDetail writes rec under both its name and id keys. Records missing
// either are returned to the caller but not cached.
func (s *Service) storeDetail(ctx context.Context, rec DetailRecord) {
	name := normalize(rec.Name)
	if name == "" || rec.ID <= 0 {
		s.logger.Debug("not caching incomplete detail record (id=%d name=%q)", rec.ID, rec.Name)
		return
	}
	ttl := s.opts.TTL.Detail
	if err := s.caches.Details.SetContext(ctx, "name:"+name, rec, ttl); err != nil {
		s.logger.Warn("error caching detail name:%s: %s", name, err)
	}
	if err := s.caches.Details.SetContext(ctx, "id:"+strconv.Itoa(rec.ID), rec, ttl); err != nil {
		s.logger.Warn("error caching detail id:%d: %s", rec.ID, err)
	}
}

func deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

func normalizeDetail(p *pokeapi.Pokemon) DetailRecord {
	rec := DetailRecord{
		ID:             p.ID,
		Name:           p.Name,
		Height:         p.Height,
		Weight:         p.Weight,
		BaseExperience: deref(p.BaseExperience),
		Types:          make([]string, 0, len(p.Types)),
		Abilities:      make([]Ability, 0, len(p.Abilities)),
		Stats:          make([]Stat, 0, len(p.Stats)),
	}
	if sp := p.Sprites; sp != nil {
		rec.Sprites.FrontDefault = deref(sp.FrontDefault)
		if sp.Other != nil && sp.Other.OfficialArtwork != nil {
			rec.Sprites.OfficialArtwork = deref(sp.Other.OfficialArtwork.FrontDefault)
		}
	}

	types := slices.Clone(p.Types)
	slices.SortStableFunc(types, func(a, b pokeapi.PokemonType) int { return cmp.Compare(a.Slot, b.Slot) })
	for _, t := range types {
		if t.Type != nil && t.Type.Name != "" {
			rec.Types = append(rec.Types, t.Type.Name)
		}
	}

	abilities := slices.Clone(p.Abilities)
	slices.SortStableFunc(abilities, func(a, b pokeapi.PokemonAbility) int { return cmp.Compare(a.Slot, b.Slot) })
	for _, a := range abilities {
		if a.Ability != nil && a.Ability.Name != "" {
			rec.Abilities = append(rec.Abilities, Ability{Name: a.Ability.Name, Hidden: a.IsHidden, Slot: a.Slot})
		}
	}

	for _, st := range p.Stats {
		if st.Stat != nil && st.Stat.Name != "" {
			rec.Stats = append(rec.Stats, Stat{Name: st.Stat.Name, Value: st.BaseStat})
		}
	}
	return rec
}
