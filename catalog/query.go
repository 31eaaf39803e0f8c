package catalog

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/agentuity/pokedex/sys"
	"golang.org/x/sync/errgroup"
)

// TotalPages is the number of pages needed for total items, never less than one.
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

// ClampPage moves requested into [1, totalPages].
func ClampPage(requested, totalPages int) int {
	if requested < 1 {
		return 1
	}
	if requested > totalPages {
		return totalPages
	}
	return requested
}

func filter(entries []IndexEntry, keep func(IndexEntry) bool) []IndexEntry {
	out := make([]IndexEntry, 0, len(entries))
	for _, e := range entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// QueryPage filters the master index by category and name substring, sorts
// it, and returns the requested page with a card per entry. A card whose
// detail is missing upstream is returned in degraded form; any other detail
// failure fails the page.
func (s *Service) QueryPage(ctx context.Context, q Query) (Page, error) {
	rule, err := ParseSortRule(q.Sort)
	if err != nil {
		return Page{}, fail("query", err)
	}
	search := normalize(q.Search)
	category := normalize(q.Category)
	if category == "" {
		category = AllCategories
	}

	index, err := s.masterIndex(ctx)
	if err != nil {
		return Page{}, err
	}

	entries := index
	if category != AllCategories {
		m, err := s.categoryMembership(ctx, category)
		if err != nil {
			return Page{}, err
		}
		if !m.Found {
			entries = nil
		} else {
			entries = filter(entries, func(e IndexEntry) bool { return m.Has(e.Name) })
		}
	}
	if search != "" {
		entries = filter(entries, func(e IndexEntry) bool { return strings.Contains(e.Name, search) })
	}

	// entries may still be the cached index; sort a copy
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, rule.compare)

	totalItems := len(sorted)
	totalPages := TotalPages(totalItems, s.opts.PageSize)
	page := ClampPage(q.Page, totalPages)
	start := min((page-1)*s.opts.PageSize, totalItems)
	end := min(start+s.opts.PageSize, totalItems)

	items, err := s.cards(ctx, sorted[start:end])
	if err != nil {
		return Page{}, err
	}
	return Page{
		Items:      items,
		Page:       page,
		PageSize:   s.opts.PageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}, nil
}

// cards resolves every entry concurrently. One failing lookup does not cancel
// the others; the first failure in window order is returned.
func (s *Service) cards(ctx context.Context, window []IndexEntry) ([]Card, error) {
	results := make([]sys.Result[Card], len(window))
	var g errgroup.Group
	if s.opts.Concurrency > 0 {
		g.SetLimit(s.opts.Concurrency)
	}
	for i, entry := range window {
		g.Go(func() error {
			results[i] = s.card(ctx, entry)
			return results[i].Err
		})
	}
	_ = g.Wait()
	return sys.Collect(results)
}

func (s *Service) card(ctx context.Context, entry IndexEntry) sys.Result[Card] {
	d, err := s.DetailByID(ctx, entry.ID)
	if err != nil {
		switch KindOf(err) {
		case KindNotFound, KindInvalidArgument:
			s.logger.Warn("detail for %s (%d) unavailable, using degraded card: %s", entry.Name, entry.ID, err)
			return sys.Ok(degradedCard(entry))
		}
		return sys.Err[Card](err)
	}
	return sys.Ok(cardFor(d, entry))
}

func cardFor(d DetailRecord, entry IndexEntry) Card {
	if d.ID <= 0 {
		d.ID = entry.ID
	}
	c := Card{ID: d.ID, Name: cmp.Or(d.Name, entry.Name), Image: d.Image(), Types: slices.Clone(d.Types)}
	if c.Types == nil {
		c.Types = []string{}
	}
	return c
}

func degradedCard(entry IndexEntry) Card {
	return Card{ID: entry.ID, Name: entry.Name, Image: FallbackSprite(entry.ID), Types: []string{}}
}
