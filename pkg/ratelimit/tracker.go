package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrBudgetExhausted is returned when the daily request budget is used up.
var ErrBudgetExhausted = errors.New("request budget exhausted")

// DefaultThrottleDelay is the pause applied to each request in the warning zone.
const DefaultThrottleDelay = 1 * time.Second

// Prometheus metrics for budget tracking.
var (
	swapiBudgetRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swapi_budget_remaining",
		Help: "Number of requests remaining in the current SWAPI budget window",
	})

	swapiBudgetBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapi_budget_blocks_total",
		Help: "Total number of requests blocked because the budget was exhausted",
	})

	swapiBudgetThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapi_budget_throttles_total",
		Help: "Total number of requests throttled because the budget ran low",
	})
)

// Tracker counts SWAPI requests against a shared budget and gates requests.
type Tracker struct {
	redis         *redis.Client
	limit         int
	window        time.Duration
	throttleDelay time.Duration
	logger        zerolog.Logger
}

// NewTracker creates a new budget tracker. A non-positive limit selects
// DefaultDailyLimit.
func NewTracker(redisClient *redis.Client, limit int, logger zerolog.Logger) *Tracker {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	return &Tracker{
		redis:         redisClient,
		limit:         limit,
		window:        DefaultWindow,
		throttleDelay: DefaultThrottleDelay,
		logger:        logger,
	}
}

// SetThrottleDelay overrides the warning-zone pause (tests use 0).
func (t *Tracker) SetThrottleDelay(d time.Duration) {
	t.throttleDelay = d
}

// GetState retrieves the current budget state from Redis.
// Returns a full budget if no window is open.
func (t *Tracker) GetState(ctx context.Context) (*BudgetState, error) {
	used, err := t.redis.Get(ctx, RedisKeyRequestsUsed).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get requests used: %w", err)
	}

	if err == redis.Nil {
		state := &BudgetState{
			Limit:   t.limit,
			ResetAt: time.Now().Add(t.window),
		}
		state.UpdateHealth()
		return state, nil
	}

	ttl, err := t.redis.TTL(ctx, RedisKeyRequestsUsed).Result()
	if err != nil {
		return nil, fmt.Errorf("get budget ttl: %w", err)
	}
	if ttl < 0 {
		ttl = t.window
	}

	state := &BudgetState{
		Limit:   t.limit,
		Used:    used,
		ResetAt: time.Now().Add(ttl),
	}
	state.UpdateHealth()

	return state, nil
}

// Record counts one request. The first request of a window opens it.
func (t *Tracker) Record(ctx context.Context) error {
	pipe := t.redis.TxPipeline()
	incr := pipe.Incr(ctx, RedisKeyRequestsUsed)
	pipe.ExpireNX(ctx, RedisKeyRequestsUsed, t.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record request in redis: %w", err)
	}

	remaining := t.limit - int(incr.Val())
	if remaining < 0 {
		remaining = 0
	}
	swapiBudgetRemaining.Set(float64(remaining))

	return nil
}

// ShouldAllowRequest checks if a request should be allowed.
// Returns false when the budget is exhausted. In the warning zone it waits
// for the throttle delay (or until ctx is done) before allowing.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get budget state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("used", state.Used).
			Int("limit", state.Limit).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("SWAPI request budget exhausted - blocking request")

		swapiBudgetBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("remaining", state.Remaining()).
			Msg("SWAPI request budget low - throttling request")

		swapiBudgetThrottlesTotal.Inc()
		if t.throttleDelay > 0 {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(t.throttleDelay):
			}
		}
	}

	return true, nil
}
