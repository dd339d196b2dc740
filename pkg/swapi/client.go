// Package swapi provides the HTTP client for the Star Wars API with typed
// resource fetches, optional Redis response caching, a shared request budget
// and classified errors.
package swapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/swapi-roster/pkg/cache"
	"github.com/Sternrassler/swapi-roster/pkg/logging"
	"github.com/Sternrassler/swapi-roster/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the root every relative resource URL resolves against.
const DefaultBaseURL = "https://swapi.dev/api/"

// Resource path names as used in metric labels.
const (
	ResourcePeople    = "people"
	ResourceSpecies   = "species"
	ResourceVehicles  = "vehicles"
	ResourcePlanets   = "planets"
	ResourceFilms     = "films"
	resourceUndefined = "other"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 8 << 20

// Client is the SWAPI client.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	budget     *ratelimit.Tracker
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root, e.g. "https://swapi.dev/api/".
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout for a single HTTP exchange.
	Timeout time.Duration

	// Redis enables the response cache and the shared request budget.
	// Nil disables both.
	Redis *redis.Client

	// DailyBudget is the request budget per window (0 = ratelimit.DefaultDailyLimit).
	DailyBudget int

	// Retry policy. The default makes a single attempt.
	Retry RetryConfig

	// CacheStaleWindow is how long an expired entry with a validator stays
	// revalidatable (0 = cache.DefaultStaleWindow).
	CacheStaleWindow time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: "swapi-roster/0.1.0",
		Timeout:   30 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// New creates a new SWAPI client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}

	logger := logging.NewLogger(logging.ComponentClient)

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: base,
		config:  cfg,
		logger:  logger,
	}

	if cfg.Redis != nil {
		c.budget = ratelimit.NewTracker(cfg.Redis, cfg.DailyBudget, logger)
		c.cache = cache.NewManager(cfg.Redis)
		if cfg.CacheStaleWindow > 0 {
			c.cache.SetStaleWindow(cfg.CacheStaleWindow)
		}
	}

	return c, nil
}

// ResolveURL turns a relative resource reference into an absolute URL.
func (c *Client) ResolveURL(ref string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", ref, err)
	}
	if u.IsAbs() {
		return u, nil
	}
	// "people/" and "/people/" both live under the API root
	u.Path = strings.TrimPrefix(u.Path, "/")
	return c.baseURL.ResolveReference(u), nil
}

// Do performs an HTTP request with budget gating and caching.
//
// Any 2xx response is returned to the caller. A non-2xx status, a transport
// failure or a blocked budget is returned as an error; non-2xx and transport
// failures are *Error values.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	resource := resourceOf(req.URL)
	target := req.URL.String()

	startTime := time.Now()
	defer func() {
		swapiRequestDuration.WithLabelValues(resource).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check Cache
	var cacheKey cache.CacheKey
	var cachedEntry *cache.CacheEntry
	if c.cache != nil {
		cacheKey = cache.KeyForURL(req.URL)
		entry, err := c.cache.Get(ctx, cacheKey)
		if err != nil && err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str(logging.FieldURL, target).Msg("Cache get error")
		}
		if entry != nil && !entry.IsExpired() {
			c.logger.Debug().Str(logging.FieldURL, target).Msg("Serving fresh cache entry")
			swapiRequestsTotal.WithLabelValues(resource, "cache").Inc()
			return cache.EntryToResponse(entry, req), nil
		}
		cachedEntry = entry
	}

	// Step 2: Check request budget
	if c.budget != nil {
		allowed, err := c.budget.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Error().Err(err).Msg("Budget check failed")
			return nil, fmt.Errorf("budget check: %w", err)
		}
		if !allowed {
			c.logger.Warn().Str(logging.FieldURL, target).Msg("Request blocked by request budget")
			swapiRequestsTotal.WithLabelValues(resource, "budget_blocked").Inc()
			return nil, fmt.Errorf("request blocked: %w", ratelimit.ErrBudgetExhausted)
		}
	}

	// Step 3: Revalidate a stale entry
	if cachedEntry != nil && cache.ShouldMakeConditionalRequest(cachedEntry) {
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str(logging.FieldURL, target).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str(logging.FieldURL, target).
		Str("method", req.Method).
		Msg("Executing SWAPI request")

	// Step 4: Execute with the configured retry policy
	var resp *http.Response
	err := retryWithBackoff(ctx, c.config.Retry, c.logger, func() error {
		if c.budget != nil {
			if err := c.budget.Record(ctx); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to record request in budget")
			}
		}

		var reqErr error
		resp, reqErr = c.httpClient.Do(req)
		if reqErr != nil {
			swapiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			swapiRequestsTotal.WithLabelValues(resource, "network_error").Inc()
			c.logger.Warn().Err(reqErr).Str(logging.FieldURL, target).Msg("HTTP request failed")
			return &Error{Class: ErrorClassNetwork, URL: target, Err: reqErr}
		}

		swapiRequestsTotal.WithLabelValues(resource, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
			return nil
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			swapiErrorsTotal.WithLabelValues(string(ErrorClassHTTP)).Inc()
			c.logger.Warn().
				Str(logging.FieldURL, target).
				Int(logging.FieldStatusCode, resp.StatusCode).
				Msg("SWAPI request error")
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return &Error{
				Class:      ErrorClassHTTP,
				URL:        target,
				StatusCode: resp.StatusCode,
				Message:    resp.Status,
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Step 5: Handle 304 Not Modified
	if resp.StatusCode == http.StatusNotModified {
		c.logger.Debug().Str(logging.FieldURL, target).Msg("304 Not Modified - using cache")
		cache.NotModifiedResponses.Inc()
		resp.Body.Close()

		refreshed := *cachedEntry
		refreshed.Expires = cache.ExpiresFromHeaders(resp.Header)
		if err := c.cache.UpdateTTL(ctx, cacheKey, refreshed.Expires); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
		}

		return cache.EntryToResponse(&refreshed, req), nil
	}

	// Step 6: Update cache on success
	if c.cache != nil && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			resp.Body.Close()
			return nil, &Error{Class: ErrorClassNetwork, URL: target, Message: "read body", Err: err}
		}
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str(logging.FieldURL, target).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return resp, nil
}

// Get performs a GET request for a resource URL (absolute or relative to BaseURL).
func (c *Client) Get(ctx context.Context, ref string) (*http.Response, error) {
	u, err := c.ResolveURL(ref)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// getJSON fetches ref and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, ref string, out any) error {
	resp, err := c.Get(ctx, ref)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Class: ErrorClassNetwork, URL: ref, Message: "read body", Err: err}
	}

	if err := json.Unmarshal(body, out); err != nil {
		swapiErrorsTotal.WithLabelValues(string(ErrorClassParse)).Inc()
		return &Error{Class: ErrorClassParse, URL: ref, StatusCode: resp.StatusCode, Err: err}
	}

	return nil
}

// FetchCharacterPage fetches one page of the people/ listing.
func (c *Client) FetchCharacterPage(ctx context.Context, ref string) (*Page, error) {
	var page Page
	if err := c.getJSON(ctx, ref, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FetchSpecies fetches one species record.
func (c *Client) FetchSpecies(ctx context.Context, ref string) (*Species, error) {
	var species Species
	if err := c.getJSON(ctx, ref, &species); err != nil {
		return nil, err
	}
	return &species, nil
}

// FetchVehicle fetches one vehicle record.
func (c *Client) FetchVehicle(ctx context.Context, ref string) (*Vehicle, error) {
	var vehicle Vehicle
	if err := c.getJSON(ctx, ref, &vehicle); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// FetchHomeworld fetches one planet record.
func (c *Client) FetchHomeworld(ctx context.Context, ref string) (*Homeworld, error) {
	var planet Homeworld
	if err := c.getJSON(ctx, ref, &planet); err != nil {
		return nil, err
	}
	return &planet, nil
}

// FetchFilm fetches one film record.
func (c *Client) FetchFilm(ctx context.Context, ref string) (*Film, error) {
	var film Film
	if err := c.getJSON(ctx, ref, &film); err != nil {
		return nil, err
	}
	return &film, nil
}

// BaseURL returns the resolved API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// GetCache returns the cache manager, nil without Redis.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}

// Budget returns the request budget tracker, nil without Redis.
func (c *Client) Budget() *ratelimit.Tracker {
	return c.budget
}

// resourceOf maps a URL to its resource name for metric labels
// ("/api/people/1/" -> "people").
func resourceOf(u *url.URL) string {
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for _, s := range segments {
		switch s {
		case ResourcePeople, ResourceSpecies, ResourceVehicles, ResourcePlanets, ResourceFilms:
			return s
		}
	}
	return resourceUndefined
}
