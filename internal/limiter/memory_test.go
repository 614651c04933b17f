package limiter

import (
	"context"
	"fmt"
	"testing"
	"time"
)

var (
	_ Limiter = (*Memory)(nil)
	_ Limiter = (*PG)(nil)
)

func TestMemory_BlocksAndExpires(t *testing.T) {
	ctx := context.Background()
	now := fixedNow
	l := NewMemory(Settings{Window: time.Minute, MaxFails: 2, BlockFor: 5 * time.Minute})
	l.now = func() time.Time { return now }
	ip := HashIP("10.0.0.1")

	if blocked, _, _ := l.Failure(ctx, "ann@x.io", ip); blocked {
		t.Fatalf("blocked after first failure")
	}
	blocked, dur, _ := l.Failure(ctx, "ann@x.io", ip)
	if !blocked || dur != 5*time.Minute {
		t.Fatalf("want block, got %v %v", blocked, dur)
	}
	if ok, retry, _ := l.Allow(ctx, "ann@x.io", ip); ok || retry != 5*time.Minute {
		t.Fatalf("want denied, got ok=%v retry=%v", ok, retry)
	}
	if ok, _, _ := l.Allow(ctx, "ann@x.io", HashIP("10.0.0.2")); !ok {
		t.Fatalf("other address must not be blocked")
	}

	now = now.Add(6 * time.Minute)
	if ok, _, _ := l.Allow(ctx, "ann@x.io", ip); !ok {
		t.Fatalf("block should have expired")
	}
}

func TestMemory_WindowResetsAndSuccessClears(t *testing.T) {
	ctx := context.Background()
	now := fixedNow
	l := NewMemory(Settings{Window: time.Minute, MaxFails: 2, BlockFor: time.Minute})
	l.now = func() time.Time { return now }
	ip := HashIP("10.0.0.1")

	_, _, _ = l.Failure(ctx, "ann@x.io", ip)
	now = now.Add(2 * time.Minute)
	if blocked, _, _ := l.Failure(ctx, "ann@x.io", ip); blocked {
		t.Fatalf("stale failure must not count")
	}
	_ = l.Success(ctx, "ann@x.io", ip)
	if blocked, _, _ := l.Failure(ctx, "ann@x.io", ip); blocked {
		t.Fatalf("success must reset the counter")
	}
}

func TestMemory_FailurePrunesLapsedEntries(t *testing.T) {
	ctx := context.Background()
	now := fixedNow
	l := NewMemory(Settings{Window: time.Minute, MaxFails: 2, BlockFor: 5 * time.Minute})
	l.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		_, _, _ = l.Failure(ctx, fmt.Sprintf("u%d@x.io", i), HashIP(fmt.Sprintf("10.0.0.%d", i)))
	}
	blockedIP := HashIP("10.0.1.1")
	_, _, _ = l.Failure(ctx, "eve@x.io", blockedIP)
	_, _, _ = l.Failure(ctx, "eve@x.io", blockedIP)
	if len(l.m) != 51 {
		t.Fatalf("want 51 counters, got %d", len(l.m))
	}

	now = now.Add(2 * time.Minute)
	_, _, _ = l.Failure(ctx, "new@x.io", HashIP("10.0.2.1"))
	if len(l.m) != 2 {
		t.Fatalf("want lapsed counters pruned, %d left", len(l.m))
	}
	if ok, _, _ := l.Allow(ctx, "eve@x.io", blockedIP); ok {
		t.Fatalf("active block must survive pruning")
	}
}
