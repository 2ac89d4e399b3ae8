package limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// defaultMaxKeys bounds the number of tracked keys.
const defaultMaxKeys = 10000

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Memory is an in-process limiter: one token per window per key.
type Memory struct {
	mu     sync.Mutex
	m      map[string]*entry
	window time.Duration
	burst  int
	max    int
	now    func() time.Time
}

// NewMemory builds an in-memory limiter. burst <= 0 means 1.
func NewMemory(window time.Duration, burst int) *Memory {
	if window <= 0 {
		window = time.Minute
	}
	if burst <= 0 {
		burst = 1
	}
	return &Memory{m: make(map[string]*entry), window: window, burst: burst, max: defaultMaxKeys, now: time.Now}
}

func (l *Memory) get(key string, now time.Time) *rate.Limiter {
	if e, ok := l.m[key]; ok {
		e.lastSeen = now
		return e.lim
	}
	if len(l.m) >= l.max {
		l.sweep(now)
		for len(l.m) >= l.max {
			l.evictOldest()
		}
	}
	lim := rate.NewLimiter(rate.Every(l.window), l.burst)
	l.m[key] = &entry{lim: lim, lastSeen: now}
	return lim
}

// sweep drops keys idle for longer than a full refill.
func (l *Memory) sweep(now time.Time) {
	idle := l.window * time.Duration(l.burst)
	for k, e := range l.m {
		if now.Sub(e.lastSeen) > idle {
			delete(l.m, k)
		}
	}
}

// evictOldest drops the least recently seen key. Its client starts over
// with a fresh limiter.
func (l *Memory) evictOldest() {
	var (
		oldest string
		at     time.Time
		found  bool
	)
	for k, e := range l.m {
		if !found || e.lastSeen.Before(at) {
			oldest, at, found = k, e.lastSeen, true
		}
	}
	delete(l.m, oldest)
}

// Allow consumes a token for key or reports how long until one is available.
func (l *Memory) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	r := l.get(key, now).ReserveN(now, 1)
	if !r.OK() {
		return false, l.window, nil
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d, nil
	}
	return true, 0, nil
}
