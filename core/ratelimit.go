package core

import (
	"context"
	"time"
)

type RateLimitUsage struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimiter counts calls per key within a window.
type RateLimiter interface {
	// Allow consumes one call for key. It returns a *RateLimitError once the key ran out of calls.
	Allow(ctx context.Context, key string) (RateLimitUsage, error)
	// Usage reports the current usage of key without consuming a call.
	Usage(ctx context.Context, key string) (RateLimitUsage, error)
}
