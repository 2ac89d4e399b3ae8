// Package limiter defines the server-side submission cooldown and its backends.
package limiter

import (
	"context"
	"time"
)

// Limiter enforces a per-client cooldown between accepted submissions.
type Limiter interface {
	// Allow reports whether key may submit now and, when it may, starts its cooldown.
	// When denied, the returned duration is the remaining wait.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// Backend names recognised by configuration.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendNone     = "none"
)

// Nop allows everything.
type Nop struct{}

// Allow always allows.
func (Nop) Allow(context.Context, string) (bool, time.Duration, error) { return true, 0, nil }
