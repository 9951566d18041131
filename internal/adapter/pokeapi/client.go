// Package pokeapi provides an HTTP client for the PokeAPI reference API.
package pokeapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Strob0t/dexcache/internal/domain"
	"github.com/Strob0t/dexcache/internal/port/refdata"
	"github.com/Strob0t/dexcache/internal/resilience"
)

// maxBodyBytes caps a single upstream response. Pokemon records with all
// their move data run to a few hundred kilobytes.
const maxBodyBytes = 4 << 20

var _ refdata.Fetcher = (*Client)(nil)

// StatusError is returned for upstream responses with status >= 400.
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pokeapi %s: status %d", e.Endpoint, e.StatusCode)
}

// Unwrap lets callers match domain.ErrNotFound for 404s and domain.ErrUpstream otherwise.
func (e *StatusError) Unwrap() []error {
	if e.StatusCode == http.StatusNotFound {
		return []error{domain.ErrNotFound}
	}
	return []error{domain.ErrUpstream}
}

// Client talks to the PokeAPI.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a PokeAPI client rooted at baseURL (e.g. https://pokeapi.co/api/v2).
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
// Not-found responses do not count as upstream failures.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	b.SetFailurePredicate(func(err error) bool {
		return !errors.Is(err, domain.ErrNotFound)
	})
	c.breaker = b
}

// FetchPokemon returns the raw record for a Pokemon name or id.
func (c *Client) FetchPokemon(ctx context.Context, key string) ([]byte, error) {
	data, err := c.get(ctx, "pokemon/"+url.PathEscape(key))
	if err != nil {
		return nil, fmt.Errorf("fetch pokemon %s: %w", key, err)
	}
	return data, nil
}

// FetchEvolutionChain returns the raw evolution chain record.
func (c *Client) FetchEvolutionChain(ctx context.Context, id int) ([]byte, error) {
	data, err := c.get(ctx, "evolution-chain/"+strconv.Itoa(id))
	if err != nil {
		return nil, fmt.Errorf("fetch evolution chain %d: %w", id, err)
	}
	return data, nil
}

// Health checks that the upstream answers a minimal listing request.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.get(ctx, "pokemon?limit=1")
	return err
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	var result []byte
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+endpoint, http.NoBody)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w: %w", domain.ErrUpstream, err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= 400 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
			return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
		if err != nil {
			return fmt.Errorf("read response: %w: %w", domain.ErrUpstream, err)
		}
		if len(data) > maxBodyBytes {
			return fmt.Errorf("%s: %w: response too large (over %d bytes)", endpoint, domain.ErrUpstream, maxBodyBytes)
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			if errors.Is(err, resilience.ErrCircuitOpen) {
				return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
			}
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}
