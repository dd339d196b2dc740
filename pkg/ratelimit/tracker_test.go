package ratelimit

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewTracker_DefaultLimit(t *testing.T) {
	tracker := NewTracker(nil, 0, zerolog.Nop())
	if tracker.limit != DefaultDailyLimit {
		t.Errorf("limit = %d, want %d", tracker.limit, DefaultDailyLimit)
	}
	if tracker.window != DefaultWindow {
		t.Errorf("window = %v, want %v", tracker.window, DefaultWindow)
	}
}

func TestTracker_GetState_Empty(t *testing.T) {
	tracker := NewTracker(setupTestRedis(t), 100, zerolog.Nop())

	state, err := tracker.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Used != 0 || state.Remaining() != 100 {
		t.Errorf("state = %+v, want full budget", state)
	}
	if !state.IsHealthy {
		t.Error("empty budget should be healthy")
	}
}

func TestTracker_RecordAndBlock(t *testing.T) {
	tracker := NewTracker(setupTestRedis(t), 3, zerolog.Nop())
	tracker.SetThrottleDelay(0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := tracker.ShouldAllowRequest(ctx)
		if err != nil {
			t.Fatalf("ShouldAllowRequest() error = %v", err)
		}
		if !allowed {
			t.Fatalf("request %d blocked, want allowed", i+1)
		}
		if err := tracker.Record(ctx); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Used != 3 {
		t.Errorf("Used = %d, want 3", state.Used)
	}
	if state.TimeUntilReset() <= 0 {
		t.Error("window should have a TTL")
	}

	allowed, err := tracker.ShouldAllowRequest(ctx)
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if allowed {
		t.Error("request allowed after budget exhausted")
	}
}
