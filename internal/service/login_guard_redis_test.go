package service

import (
	"context"
	"testing"
	"time"
)

func TestRedisLoginGuardBlocksAfterMaxFailures(t *testing.T) {
	_, client := newTestRedis(t)
	guard := NewRedisLoginGuard(client, 3, 10*time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := guard.Allow(ctx, "203.0.113.9")
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !allowed {
			t.Fatalf("blocked after only %d failures", i)
		}
		if err := guard.RecordFailure(ctx, "203.0.113.9"); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}

	allowed, err := guard.Allow(ctx, "203.0.113.9")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if allowed {
		t.Fatal("still allowed after exhausting the failure budget")
	}

	// A different client is unaffected.
	allowed, err = guard.Allow(ctx, "198.51.100.4")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if !allowed {
		t.Fatal("unrelated client blocked")
	}
}

func TestRedisLoginGuardWindowLapses(t *testing.T) {
	mr, client := newTestRedis(t)
	guard := NewRedisLoginGuard(client, 2, 10*time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := guard.RecordFailure(ctx, "203.0.113.9"); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}
	if allowed, _ := guard.Allow(ctx, "203.0.113.9"); allowed {
		t.Fatal("expected block inside the window")
	}

	mr.FastForward(11 * time.Minute)

	if allowed, _ := guard.Allow(ctx, "203.0.113.9"); !allowed {
		t.Fatal("window lapsed but client still blocked")
	}
}

func TestRedisLoginGuardResetClearsBudget(t *testing.T) {
	_, client := newTestRedis(t)
	guard := NewRedisLoginGuard(client, 2, 10*time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := guard.RecordFailure(ctx, "203.0.113.9"); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}
	if err := guard.Reset(ctx, "203.0.113.9"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if allowed, _ := guard.Allow(ctx, "203.0.113.9"); !allowed {
		t.Fatal("blocked after reset")
	}
}
