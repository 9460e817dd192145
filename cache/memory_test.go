package cache

import (
	"context"
	"testing"
	"time"

	"github.com/pawdesk/gatehouse"
	"github.com/pawdesk/gatehouse/catalog"
)

func TestMemoryCacheHitMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(time.Minute))

	req := &gatehouse.CheckRequest{
		Role:       catalog.RoleStaff,
		UserID:     "u1",
		Permission: catalog.PermBookingsView,
	}
	result := &gatehouse.CheckResult{Allowed: true, Decision: gatehouse.DecisionAllow}

	// Miss
	_, ok := c.Get(ctx, "f1", req)
	if ok {
		t.Fatal("expected cache miss")
	}

	// Set + Hit
	c.Set(ctx, "f1", req, result)
	got, ok := c.Get(ctx, "f1", req)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !got.Allowed {
		t.Fatal("expected allowed")
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(1 * time.Millisecond))

	req := &gatehouse.CheckRequest{
		Role:       catalog.RoleStaff,
		Permission: catalog.PermBookingsView,
	}
	c.Set(ctx, "f1", req, &gatehouse.CheckResult{Allowed: true})
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(ctx, "f1", req)
	if ok {
		t.Fatal("expected cache miss after TTL expiry")
	}
}

func TestMemoryCacheInvalidateFacility(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	req1 := &gatehouse.CheckRequest{Role: catalog.RoleStaff, UserID: "u1", Permission: catalog.PermBookingsView}
	req2 := &gatehouse.CheckRequest{Role: catalog.RoleManager, UserID: "u2", Permission: catalog.PermReportsView}

	c.Set(ctx, "f1", req1, &gatehouse.CheckResult{Allowed: true})
	c.Set(ctx, "f1", req2, &gatehouse.CheckResult{Allowed: false})
	c.Set(ctx, "f2", req1, &gatehouse.CheckResult{Allowed: true})

	c.InvalidateFacility(ctx, "f1")

	if _, ok := c.Get(ctx, "f1", req1); ok {
		t.Fatal("f1 req1 should be invalidated")
	}
	if _, ok := c.Get(ctx, "f1", req2); ok {
		t.Fatal("f1 req2 should be invalidated")
	}
	if _, ok := c.Get(ctx, "f2", req1); !ok {
		t.Fatal("f2 req1 should still be cached")
	}
}

func TestMemoryCacheInvalidateUser(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	req1 := &gatehouse.CheckRequest{Role: catalog.RoleStaff, UserID: "u1", Permission: catalog.PermBookingsView}
	req2 := &gatehouse.CheckRequest{Role: catalog.RoleStaff, UserID: "u2", Permission: catalog.PermBookingsView}

	c.Set(ctx, "f1", req1, &gatehouse.CheckResult{Allowed: true})
	c.Set(ctx, "f1", req2, &gatehouse.CheckResult{Allowed: true})

	c.InvalidateUser(ctx, "f1", "u1")

	if _, ok := c.Get(ctx, "f1", req1); ok {
		t.Fatal("u1 should be invalidated")
	}
	if _, ok := c.Get(ctx, "f1", req2); !ok {
		t.Fatal("u2 should still be cached")
	}
}

func TestMemoryCacheMaxSize(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithMaxSize(2))

	for i := 0; i < 5; i++ {
		req := &gatehouse.CheckRequest{
			Role:   catalog.RoleStaff,
			UserID: string(rune('a' + i)),
			Route:  "/facility/dashboard",
		}
		c.Set(ctx, "f1", req, &gatehouse.CheckResult{Allowed: true})
	}

	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()
	if size > 2 {
		t.Fatalf("expected max 2 entries, got %d", size)
	}
}
