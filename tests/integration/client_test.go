package integration

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/swapi-roster/internal/testutil"
	"github.com/Sternrassler/swapi-roster/pkg/cache"
	"github.com/Sternrassler/swapi-roster/pkg/enrich"
	"github.com/Sternrassler/swapi-roster/pkg/ratelimit"
	"github.com/Sternrassler/swapi-roster/pkg/roster"
	"github.com/Sternrassler/swapi-roster/pkg/swapi"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

func newClient(t *testing.T, mock *testutil.MockSWAPI, redisClient *redis.Client, modify func(*swapi.Config)) *swapi.Client {
	t.Helper()

	cfg := swapi.DefaultConfig()
	cfg.BaseURL = mock.BaseURL()
	cfg.UserAgent = "swapi-roster-integration/1.0"
	cfg.Redis = redisClient
	if modify != nil {
		modify(&cfg)
	}

	c, err := swapi.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

const (
	peoplePage = `{
		"count": 2, "next": null, "previous": null,
		"results": [
			{"name": "Luke Skywalker", "url": "{{base}}people/1/",
			 "species": [], "vehicles": ["{{base}}vehicles/14/"]},
			{"name": "Chewbacca", "url": "{{base}}people/13/",
			 "species": ["{{base}}species/3/"], "vehicles": []}
		]
	}`
)

// TestFullLoadFlow runs a roster load twice against the same Redis: the
// second load is served from the response cache.
func TestFullLoadFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockSWAPI()
	defer mock.Close()

	mock.SetResponse(testutil.PagePath(1), testutil.NewCacheableResponse(peoplePage, `"people-1"`, 5*time.Minute))
	mock.SetResponse("/api/vehicles/14/", testutil.NewCacheableResponse(`{"name": "Snowspeeder"}`, `"v14"`, 5*time.Minute))
	mock.SetResponse("/api/species/3/", testutil.NewCacheableResponse(`{"name": "Wookie", "language": "Shyriiwook"}`, `"s3"`, 5*time.Minute))

	c := newClient(t, mock, redisClient, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	load := func() []swapi.Character {
		r := roster.New()
		runCtx, stop := context.WithCancel(ctx)
		defer stop()
		go r.Run(runCtx)

		if _, err := roster.NewLoader(c, enrich.New(c), r, roster.DefaultLoaderConfig()).Load(ctx); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		snap, err := r.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		return snap
	}

	first := load()
	if mock.GetRequestCount() != 3 {
		t.Errorf("After first load: SWAPI requests = %d, want 3", mock.GetRequestCount())
	}
	if len(first) != 2 || first[0].Vehicles[0] != "Snowspeeder" {
		t.Fatalf("first load = %+v", first)
	}
	if first[1].Species[0] != "https://eu.ui-avatars.com/api/?name=sk" {
		t.Errorf("Chewbacca species = %v", first[1].Species)
	}

	second := load()
	if mock.GetRequestCount() != 3 {
		t.Errorf("After second load: SWAPI requests = %d, want 3 (cached)", mock.GetRequestCount())
	}
	if len(second) != 2 || second[0].Vehicles[0] != "Snowspeeder" {
		t.Errorf("second load = %+v", second)
	}

	state, err := c.Budget().GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Used != 3 {
		t.Errorf("budget used = %d, want 3", state.Used)
	}
}

// TestNotModified tests 304 Not Modified responses use cached data.
func TestNotModified(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockSWAPI()
	defer mock.Close()

	etag := `"stable-etag-123"`
	testData := `{"name": "Tatooine"}`
	mock.SetHandler("/api/planets/1/", testutil.NewConditionalHandler(etag, testData))

	c := newClient(t, mock, redisClient, nil)
	ctx := context.Background()

	resp1, err := c.Get(ctx, "planets/1/")
	if err != nil {
		t.Fatalf("First request failed: %v", err)
	}
	body1, _ := io.ReadAll(resp1.Body)
	resp1.Body.Close()

	if string(body1) != testData {
		t.Errorf("First response body = %s, want %s", string(body1), testData)
	}

	time.Sleep(100 * time.Millisecond)

	// Entry is stale, so this revalidates and gets a 304
	hw, err := c.FetchHomeworld(ctx, "planets/1/")
	if err != nil {
		t.Fatalf("Second request failed: %v", err)
	}
	if hw.Name != "Tatooine" {
		t.Errorf("Homeworld = %q, want cached Tatooine", hw.Name)
	}

	if mock.GetConditionalCount() != 1 {
		t.Errorf("Conditional requests = %d, want 1", mock.GetConditionalCount())
	}

	// The 304 refreshed the entry, so a third fetch stays local
	if _, err := c.FetchHomeworld(ctx, "planets/1/"); err != nil {
		t.Fatalf("Third request failed: %v", err)
	}
	if mock.GetRequestCount() != 2 {
		t.Errorf("SWAPI requests = %d, want 2", mock.GetRequestCount())
	}
}

// TestBudgetBlock tests that requests are blocked when the daily budget is spent.
func TestBudgetBlock(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockSWAPI()
	defer mock.Close()

	ctx := context.Background()
	redisClient.Set(ctx, ratelimit.RedisKeyRequestsUsed, 5, time.Hour)

	c := newClient(t, mock, redisClient, func(cfg *swapi.Config) {
		cfg.DailyBudget = 5
	})

	_, err := c.FetchCharacterPage(ctx, "people/")
	if !errors.Is(err, ratelimit.ErrBudgetExhausted) {
		t.Errorf("Expected ErrBudgetExhausted, got %v", err)
	}

	if mock.GetRequestCount() != 0 {
		t.Errorf("SWAPI requests = %d, want 0 (blocked)", mock.GetRequestCount())
	}
}

// TestNoRetryByDefault tests that a 5xx fails on the first attempt unless
// retries are enabled.
func TestNoRetryByDefault(t *testing.T) {
	mock := testutil.NewMockSWAPI()
	defer mock.Close()

	mock.SetResponse(testutil.PagePath(1), testutil.NewServerErrorResponse())

	c := newClient(t, mock, nil, nil)

	_, err := c.FetchCharacterPage(context.Background(), "people/")
	if !swapi.IsHTTP(err) || swapi.StatusCode(err) != http.StatusInternalServerError {
		t.Errorf("err = %v, want http 500", err)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("SWAPI requests = %d, want 1", mock.GetRequestCount())
	}
}

// TestRetry5xxErrors tests that 5xx errors are retried once retries are enabled.
func TestRetry5xxErrors(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockSWAPI()
	defer mock.Close()

	var requestCount atomic.Int32
	mock.SetHandler("/api/films/1/", func(w http.ResponseWriter, r *http.Request) {
		// First 2 attempts fail with 500
		if requestCount.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail": "server error"}`))
			return
		}

		w.Header().Set("ETag", `"success"`)
		w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"title": "A New Hope"}`))
	})

	c := newClient(t, mock, redisClient, func(cfg *swapi.Config) {
		cfg.Retry.MaxAttempts = 3
		cfg.Retry.InitialBackoff = 100 * time.Millisecond
	})

	film, err := c.FetchFilm(context.Background(), "films/1/")
	if err != nil {
		t.Fatalf("Request failed after retries: %v", err)
	}
	if film.Title != "A New Hope" {
		t.Errorf("Title = %q", film.Title)
	}

	if n := requestCount.Load(); n != 3 {
		t.Errorf("Request attempts = %d, want 3 (2 retries + 1 success)", n)
	}

	// Every attempt counts against the budget
	state, err := c.Budget().GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Used != 3 {
		t.Errorf("budget used = %d, want 3", state.Used)
	}
}

// TestNoRetry4xxErrors tests that 4xx errors do NOT trigger retries.
func TestNoRetry4xxErrors(t *testing.T) {
	mock := testutil.NewMockSWAPI()
	defer mock.Close()

	mock.SetResponse("/api/vehicles/99/", testutil.NewNotFoundResponse())

	c := newClient(t, mock, nil, func(cfg *swapi.Config) {
		cfg.Retry.MaxAttempts = 3
	})

	_, err := c.FetchVehicle(context.Background(), "vehicles/99/")
	if swapi.StatusCode(err) != http.StatusNotFound {
		t.Errorf("err = %v, want 404", err)
	}
	if errors.Is(err, swapi.ErrRetryExhausted) {
		t.Error("4xx must not be reported as retry exhaustion")
	}

	if mock.GetRequestCount() != 1 {
		t.Errorf("SWAPI requests = %d, want 1 (no retries for 4xx)", mock.GetRequestCount())
	}
}

// TestCacheExpiration tests that expired cache entries are not used.
func TestCacheExpiration(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockSWAPI()
	defer mock.Close()

	// No ETag: an expired entry cannot be revalidated
	mock.SetResponse("/api/species/1/", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"name": "Human", "language": "Galactic Basic"}`,
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Cache-Control": "max-age=1",
		},
	})

	c := newClient(t, mock, redisClient, nil)
	ctx := context.Background()

	if _, err := c.FetchSpecies(ctx, "species/1/"); err != nil {
		t.Fatalf("First request failed: %v", err)
	}

	u, _ := url.Parse(mock.BaseURL() + "species/1/")
	cacheKey := cache.KeyForURL(u)

	entry, err := c.GetCache().Get(ctx, cacheKey)
	if err != nil {
		t.Fatalf("Cache lookup failed: %v", err)
	}
	if entry.IsExpired() {
		t.Error("Entry should not be expired yet")
	}

	time.Sleep(2 * time.Second)

	if _, err := c.GetCache().Get(ctx, cacheKey); !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("Expected cache miss after expiration, got: %v", err)
	}

	if _, err := c.FetchSpecies(ctx, "species/1/"); err != nil {
		t.Fatalf("Third request failed: %v", err)
	}

	if mock.GetRequestCount() != 2 {
		t.Errorf("SWAPI requests = %d, want 2 (cache expired)", mock.GetRequestCount())
	}
}
