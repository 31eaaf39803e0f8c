package catalog

import (
	"context"
	"time"

	"github.com/agentuity/pokedex/logger"
	"github.com/agentuity/pokedex/pokeapi"
)

// Upstream is the read-only source of catalog data.
type Upstream interface {
	ListPokemon(ctx context.Context, limit, offset int) (*pokeapi.ResourceList, error)
	ListTypes(ctx context.Context) (*pokeapi.ResourceList, error)
	GetType(ctx context.Context, name string) (*pokeapi.Type, error)
	GetPokemon(ctx context.Context, nameOrID string) (*pokeapi.Pokemon, error)
}

var _ Upstream = (*pokeapi.Client)(nil)

// TTLs are the lifetimes of each cached value.
type TTLs struct {
	Index      time.Duration
	Categories time.Duration
	Membership time.Duration
	Detail     time.Duration
}

// DefaultTTLs returns 6 hours for index and category data and 24 hours for
// detail records.
func DefaultTTLs() TTLs {
	return TTLs{
		Index:      6 * time.Hour,
		Categories: 6 * time.Hour,
		Membership: 6 * time.Hour,
		Detail:     24 * time.Hour,
	}
}

const (
	DefaultPageSize  = 24
	DefaultListLimit = 2000
)

type Options struct {
	TTL TTLs
	// PageSize is the number of cards per page.
	PageSize int
	// ListLimit is the page size asked of the upstream for the master index.
	ListLimit int
	// Concurrency bounds parallel detail lookups per page. Zero means one
	// goroutine per card.
	Concurrency int
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		TTL:       DefaultTTLs(),
		PageSize:  DefaultPageSize,
		ListLimit: DefaultListLimit,
	}
}

// Service answers catalog queries from its caches, going upstream on a miss.
// It is safe for concurrent use.
type Service struct {
	upstream Upstream
	caches   *Caches
	logger   logger.Logger
	opts     Options
}

// New returns a Service. Zero fields in opts take their defaults.
func New(log logger.Logger, upstream Upstream, caches *Caches, opts Options) *Service {
	def := DefaultOptions()
	if opts.TTL.Index <= 0 {
		opts.TTL.Index = def.TTL.Index
	}
	if opts.TTL.Categories <= 0 {
		opts.TTL.Categories = def.TTL.Categories
	}
	if opts.TTL.Membership <= 0 {
		opts.TTL.Membership = def.TTL.Membership
	}
	if opts.TTL.Detail <= 0 {
		opts.TTL.Detail = def.TTL.Detail
	}
	if opts.PageSize <= 0 {
		opts.PageSize = def.PageSize
	}
	if opts.ListLimit <= 0 {
		opts.ListLimit = def.ListLimit
	}
	return &Service{
		upstream: upstream,
		caches:   caches,
		logger:   log.WithPrefix("[catalog]"),
		opts:     opts,
	}
}

// PageSize returns the number of cards per page.
func (s *Service) PageSize() int {
	return s.opts.PageSize
}
