// Package config loads the YAML configuration of the pokedex service.
package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/agentuity/pokedex/catalog"
	"github.com/agentuity/pokedex/pokeapi"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Upstream Upstream `yaml:"upstream"`
	Catalog  Catalog  `yaml:"catalog"`
	Cache    Cache    `yaml:"cache"`
	Server   Server   `yaml:"server"`
}

type Upstream struct {
	BaseURL string   `yaml:"base_url"`
	Timeout Duration `yaml:"timeout"`
	// ListLimit is the page size asked for when loading the master index.
	ListLimit int `yaml:"list_limit"`
}

type Catalog struct {
	PageSize    int `yaml:"page_size"`
	Concurrency int `yaml:"concurrency"`
}

type Cache struct {
	Backend       string   `yaml:"backend"`
	IndexTTL      Duration `yaml:"index_ttl"`
	CategoryTTL   Duration `yaml:"category_ttl"`
	MembershipTTL Duration `yaml:"membership_ttl"`
	DetailTTL     Duration `yaml:"detail_ttl"`
}

type Server struct {
	Listen string `yaml:"listen"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	ttl := catalog.DefaultTTLs()
	return Config{
		Upstream: Upstream{
			BaseURL:   pokeapi.DefaultBaseURL,
			Timeout:   Duration(pokeapi.DefaultTimeout),
			ListLimit: catalog.DefaultListLimit,
		},
		Catalog: Catalog{
			PageSize: catalog.DefaultPageSize,
		},
		Cache: Cache{
			Backend:       string(catalog.BackendMemory),
			IndexTTL:      Duration(ttl.Index),
			CategoryTTL:   Duration(ttl.Categories),
			MembershipTTL: Duration(ttl.Membership),
			DetailTTL:     Duration(ttl.Detail),
		},
		Server: Server{
			Listen: ":3000",
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path, a missing
// file or an empty file yields the defaults. Unknown fields are an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, errors.Wrapf(err, "error reading config %s", path)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "error parsing config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return &cfg, nil
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return errors.New("upstream.base_url cannot be empty")
	}
	if c.Upstream.Timeout <= 0 {
		return errors.Newf("upstream.timeout must be positive, got %s", c.Upstream.Timeout)
	}
	if c.Upstream.ListLimit <= 0 {
		return errors.Newf("upstream.list_limit must be positive, got %d", c.Upstream.ListLimit)
	}
	if c.Catalog.PageSize <= 0 {
		return errors.Newf("catalog.page_size must be positive, got %d", c.Catalog.PageSize)
	}
	if c.Catalog.Concurrency < 0 {
		return errors.Newf("catalog.concurrency must be non-negative, got %d", c.Catalog.Concurrency)
	}
	switch catalog.Backend(c.Cache.Backend) {
	case catalog.BackendMemory, catalog.BackendSQLite, catalog.BackendTiered:
	default:
		return errors.Newf("cache.backend must be memory, sqlite or tiered, got %q", c.Cache.Backend)
	}
	for name, d := range map[string]Duration{
		"cache.index_ttl":      c.Cache.IndexTTL,
		"cache.category_ttl":   c.Cache.CategoryTTL,
		"cache.membership_ttl": c.Cache.MembershipTTL,
		"cache.detail_ttl":     c.Cache.DetailTTL,
	} {
		if d <= 0 {
			return errors.Newf("%s must be positive, got %s", name, d)
		}
	}
	return nil
}

// CatalogOptions converts the config into catalog service options.
func (c *Config) CatalogOptions() catalog.Options {
	return catalog.Options{
		TTL: catalog.TTLs{
			Index:      time.Duration(c.Cache.IndexTTL),
			Categories: time.Duration(c.Cache.CategoryTTL),
			Membership: time.Duration(c.Cache.MembershipTTL),
			Detail:     time.Duration(c.Cache.DetailTTL),
		},
		PageSize:    c.Catalog.PageSize,
		ListLimit:   c.Upstream.ListLimit,
		Concurrency: c.Catalog.Concurrency,
	}
}

// Backend returns the configured cache backend.
func (c *Config) Backend() catalog.Backend {
	return catalog.Backend(c.Cache.Backend)
}
