// Package cache provides caching implementations for Gatehouse check results.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pawdesk/gatehouse"
)

// Compile-time interface check.
var _ gatehouse.Cache = (*Memory)(nil)

// Memory is an in-memory cache with TTL-based expiration.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	maxSize int
}

type entry struct {
	result    *gatehouse.CheckResult
	expiresAt time.Time
}

// MemoryOption configures the memory cache.
type MemoryOption func(*Memory)

// WithTTL sets the cache entry time-to-live.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.ttl = ttl }
}

// WithMaxSize sets the maximum number of cache entries.
func WithMaxSize(n int) MemoryOption {
	return func(m *Memory) { m.maxSize = n }
}

// NewMemory creates a new in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*entry),
		ttl:     time.Minute,
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns a cached check result.
func (m *Memory) Get(_ context.Context, facilityID string, req *gatehouse.CheckRequest) (*gatehouse.CheckResult, bool) {
	key := cacheKey(facilityID, req)
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false
	}
	return e.result, true
}

// Set stores a check result in the cache.
func (m *Memory) Set(_ context.Context, facilityID string, req *gatehouse.CheckRequest, result *gatehouse.CheckResult) {
	key := cacheKey(facilityID, req)
	m.mu.Lock()
	defer m.mu.Unlock()

	// Evict if at capacity.
	if len(m.entries) >= m.maxSize {
		m.evictExpired()
		if len(m.entries) >= m.maxSize {
			m.evictOne()
		}
	}

	m.entries[key] = &entry{
		result:    result,
		expiresAt: time.Now().Add(m.ttl),
	}
}

// InvalidateFacility removes all cached results for a facility.
func (m *Memory) InvalidateFacility(_ context.Context, facilityID string) {
	prefix := facilityID + ":"
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			delete(m.entries, k)
		}
	}
}

// InvalidateUser removes all cached results for a specific user.
func (m *Memory) InvalidateUser(_ context.Context, facilityID, userID string) {
	userKey := fmt.Sprintf("%s:%s:", facilityID, userID)
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if len(k) >= len(userKey) && k[:len(userKey)] == userKey {
			delete(m.entries, k)
		}
	}
}

// cacheKey places the user right after the facility so InvalidateUser can
// match on prefix alone. Role-only checks hash under an empty user segment
// and are only dropped by facility-wide invalidation.
func cacheKey(facilityID string, req *gatehouse.CheckRequest) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s",
		facilityID,
		req.UserID,
		req.Role,
		req.Permission,
		req.Route,
	)
}

// evictExpired removes all expired entries. Must hold write lock.
func (m *Memory) evictExpired() {
	now := time.Now()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}

// evictOne removes one arbitrary entry. Must hold write lock.
func (m *Memory) evictOne() {
	for k := range m.entries {
		delete(m.entries, k)
		return
	}
}
