package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/sanaa/core"
)

// prune expired windows once this many keys are tracked
const pruneThreshold = 1024

type window struct {
	count   int
	resetAt time.Time
}

// MemoryStore is a fixed window counter store kept in process memory.
// It suits single instance deployments only: counters are neither shared nor persisted.
type MemoryStore struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]window
}

var _ core.RateLimiter = (*MemoryStore)(nil)

func NewMemoryStore(conf *core.Config) *MemoryStore {
	return NewMemoryStoreWith(conf.RateLimit.Limit, conf.RateLimit.Window, core.NowFunc)
}

func NewMemoryStoreWith(limit int, period time.Duration, now func() time.Time) *MemoryStore {
	if limit <= 0 {
		limit = 5
	}
	if period <= 0 {
		period = 24 * time.Hour
	}
	if now == nil {
		now = core.NowFunc
	}
	return &MemoryStore{
		limit:   limit,
		period:  period,
		now:     now,
		windows: make(map[string]window),
	}
}

// current returns the live window of key. s.mu must be held.
func (s *MemoryStore) current(key string, now time.Time) window {
	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		return window{resetAt: now.Add(s.period)}
	}
	return w
}

func (s *MemoryStore) usage(w window) core.RateLimitUsage {
	remaining := s.limit - w.count
	if remaining < 0 {
		remaining = 0
	}
	return core.RateLimitUsage{Limit: s.limit, Remaining: remaining, ResetAt: w.resetAt}
}

func (s *MemoryStore) Allow(_ context.Context, key string) (core.RateLimitUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if len(s.windows) >= pruneThreshold {
		s.prune(now)
	}

	w := s.current(key, now)
	if w.count >= s.limit {
		s.windows[key] = w
		return s.usage(w), &core.RateLimitError{Limit: s.limit, ResetAt: w.resetAt}
	}
	w.count++
	s.windows[key] = w
	return s.usage(w), nil
}

func (s *MemoryStore) Usage(_ context.Context, key string) (core.RateLimitUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage(s.current(key, s.now())), nil
}

func (s *MemoryStore) prune(now time.Time) {
	for key, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, key)
		}
	}
}
