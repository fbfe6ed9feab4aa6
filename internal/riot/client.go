// Package riot is a thin Riot Games API client. Every outbound request is
// wrapped as an operation and passed through the shared admission limiter, so
// concurrent callers cannot exceed the key's published quota. The client does
// not retry: failures (including 429s) surface to the caller, and a 429 with
// Retry-After only resynchronizes the limiter's window.
package riot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/keithlinneman/riotquota/internal/log"
	"github.com/keithlinneman/riotquota/internal/xerrors"
	"github.com/keithlinneman/riotquota/pkg/ratelimit"
)

const (
	featuredGamesPath  = "/lol/spectator/v5/featured-games"
	summonerByNamePath = "/lol/summoner/v4/summoners/by-name/"
)

// APIError is a non-2xx response from the Riot API.
type APIError struct {
	Endpoint   string
	StatusCode int
	RetryAfter time.Duration // only set on 429s that carried Retry-After
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("riot: %s returned %d (retry after %s)", e.Endpoint, e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("riot: %s returned %d", e.Endpoint, e.StatusCode)
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    ratelimit.Limiter
	pacer      *rate.Limiter
	log        log.Logger

	// OnRequest is called once per completed HTTP exchange, used for
	// incrementing prometheus counters and latency histograms.
	onRequest func(endpoint string, status int, d time.Duration)
}

type Option func(*Client)

// WithLimiter routes every request through the given admission gate.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithHTTPClient replaces the default transport (10s timeout, otel-wrapped).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the region-derived base URL. Used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithLogger(l log.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithPacer spreads requests at perSecond with the given burst, below the
// hard window quota. Riot recommends smoothing bursts; the window limiter
// alone admits a full window's worth of calls at once.
func WithPacer(perSecond float64, burst int) Option {
	return func(c *Client) { c.pacer = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithOnRequest sets a callback for every completed HTTP exchange.
func WithOnRequest(fn func(endpoint string, status int, d time.Duration)) Option {
	return func(c *Client) { c.onRequest = fn }
}

// New creates a client for the given region. The API key is sent on every
// request via the X-Riot-Token header.
func New(region, apiKey string, opts ...Option) (*Client, error) {
	host, err := PlatformHost(region)
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		return nil, xerrors.New("riot: api key must not be empty")
	}

	c := &Client{
		baseURL: "https://" + host,
		apiKey:  apiKey,
		log:     log.Nop{},
	}
	for _, o := range opts {
		o(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return c, nil
}

// FeaturedGames fetches the games currently featured on the region.
func (c *Client) FeaturedGames(ctx context.Context) (*FeaturedGames, error) {
	var out FeaturedGames
	if err := c.get(ctx, "featured_games", featuredGamesPath, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SummonerByName fetches a summoner record by display name.
func (c *Client) SummonerByName(ctx context.Context, name string) (*Summoner, error) {
	if name == "" {
		return nil, xerrors.New("riot: summoner name must not be empty")
	}
	var out Summoner
	if err := c.get(ctx, "summoner_by_name", summonerByNamePath+url.PathEscape(name), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// get runs one GET through the admission gate. Without a limiter the request
// goes straight out (useful in tests and for unthrottled keys).
func (c *Client) get(ctx context.Context, endpoint, path string, out any) error {
	op := func() error { return c.do(ctx, endpoint, path, out) }
	if c.limiter != nil {
		return c.limiter.Call(ctx, op)
	}
	return op()
}

func (c *Client) do(ctx context.Context, endpoint, path string, out any) error {
	if c.pacer != nil {
		if err := c.pacer.Wait(ctx); err != nil {
			return xerrors.Wrap(err, "riot: pace request")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return xerrors.Wrapf(err, "riot: build %s request", endpoint)
	}
	req.Header.Set("X-Riot-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return xerrors.Wrapf(err, "riot: %s request", endpoint)
	}
	defer resp.Body.Close()

	elapsed := time.Since(start)
	if c.onRequest != nil {
		c.onRequest(endpoint, resp.StatusCode, elapsed)
	}
	c.log.Debug(ctx, "riot api call",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"duration_ms", elapsed.Milliseconds(),
	)

	if resp.StatusCode == http.StatusTooManyRequests {
		ra := retryAfter(resp.Header)
		if c.limiter != nil && ra > 0 {
			// resynchronize the window to the server-reported boundary
			c.limiter.ResetIn(ra)
			c.log.Warn(ctx, "throttled by server, resynchronizing quota window",
				"endpoint", endpoint,
				"retry_after", ra,
			)
		}
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, RetryAfter: ra}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return xerrors.Wrapf(err, "riot: decode %s response", endpoint)
		}
	}
	return nil
}

// retryAfter parses the Retry-After header, either delta-seconds or an HTTP date.
func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
