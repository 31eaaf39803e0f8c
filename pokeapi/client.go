package pokeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/agentuity/pokedex/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

// DefaultBaseURL is the public PokeAPI v2 root.
const DefaultBaseURL = "https://pokeapi.co/api/v2"

// DefaultTimeout bounds a single upstream request.
const DefaultTimeout = 10 * time.Second

var tracer = otel.Tracer("github.com/agentuity/pokedex/pokeapi")

// Client is a read-only PokeAPI client. It never retries.
type Client struct {
	baseURL string
	client  *http.Client
	logger  logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout sets the timeout on the underlying http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.client
		hc.Timeout = d
		c.client = &hc
	}
}

// New returns a Client rooted at baseURL (DefaultBaseURL when empty).
func New(log logger.Logger, baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
		logger:  log.WithPrefix("[pokeapi]"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func UserAgent() string {
	gitSHA := Commit
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				gitSHA = setting.Value
			}
		}
	}
	return "pokedex/" + Version + " (" + gitSHA + ")"
}

// Fetch issues a GET for baseURL+pathname and decodes the JSON body into out.
// A 404 yields ErrNotFound, other non-2xx statuses a *StatusError. Transport
// errors are returned as-is.
func (c *Client) Fetch(ctx context.Context, pathname string, out any) error {
	u := c.baseURL + pathname
	ctx, span := tracer.Start(ctx, "pokeapi.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("http.url", u))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent())
	req.Header.Set("Accept", "application/json")

	c.logger.Trace("sending request: GET %s", u)
	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.logger.Debug("GET %s -> %d in %s", u, resp.StatusCode, time.Since(started))

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		span.SetStatus(codes.Error, resp.Status)
		return &StatusError{URL: u, Status: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		span.SetStatus(codes.Error, "decode")
		return fmt.Errorf("error JSON decoding response from %s: %w", u, err)
	}
	return nil
}

// ListPokemon fetches one page of the pokemon index.
func (c *Client) ListPokemon(ctx context.Context, limit, offset int) (*ResourceList, error) {
	var list ResourceList
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	if err := c.Fetch(ctx, "/pokemon?"+q.Encode(), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// ListTypes fetches the list of types.
func (c *Client) ListTypes(ctx context.Context) (*ResourceList, error) {
	var list ResourceList
	if err := c.Fetch(ctx, "/type", &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetType fetches a single type by name.
func (c *Client) GetType(ctx context.Context, name string) (*Type, error) {
	var t Type
	if err := c.Fetch(ctx, "/type/"+url.PathEscape(name), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetPokemon fetches a single pokemon by name or numeric id.
func (c *Client) GetPokemon(ctx context.Context, nameOrID string) (*Pokemon, error) {
	var p Pokemon
	if err := c.Fetch(ctx, "/pokemon/"+url.PathEscape(nameOrID), &p); err != nil {
		return nil, err
	}
	return &p, nil
}
