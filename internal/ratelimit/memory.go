package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type entry struct {
	windowStart  time.Time
	count        int
	blockedUntil time.Time
}

// MemoryLimiter is the default process-local Limiter. State does not
// survive restarts and is not shared between instances; running more than
// one replica weakens the limits proportionally.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
	logger  *logrus.Logger
	done    chan struct{}
}

func NewMemoryLimiter(logger *logrus.Logger) *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string]*entry),
		now:     time.Now,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

func (l *MemoryLimiter) Admit(_ context.Context, caller, action string, rule Rule) (Decision, error) {
	now := l.now()
	k := key(caller, action)

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[k]
	if !ok {
		l.entries[k] = &entry{windowStart: now, count: 1}
		return Decision{Allowed: true}, nil
	}

	if e.blockedUntil.After(now) {
		return Decision{RetryAfter: e.blockedUntil.Sub(now)}, nil
	}

	if now.Sub(e.windowStart) > rule.Window {
		e.windowStart = now
		e.count = 1
		e.blockedUntil = time.Time{}
		return Decision{Allowed: true}, nil
	}

	e.count++
	if e.count > rule.Limit {
		e.blockedUntil = now.Add(rule.Block)
		l.logger.WithFields(logrus.Fields{
			"caller": caller,
			"action": action,
			"count":  e.count,
		}).Info("Rate limit exceeded, blocking caller")
		return Decision{RetryAfter: rule.Block}, nil
	}

	return Decision{Allowed: true}, nil
}

// StartSweeper removes entries whose window and block have both lapsed,
// bounding the memory the limiter can accumulate. maxAge should be at
// least the longest window in use. Interval 0 disables the sweep, which
// preserves the never-evict behavior of the service this one replaced.
func (l *MemoryLimiter) StartSweeper(interval, maxAge time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.sweep(maxAge)
			case <-l.done:
				return
			}
		}
	}()
}

func (l *MemoryLimiter) sweep(maxAge time.Duration) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for k, e := range l.entries {
		if e.blockedUntil.Before(now) && now.Sub(e.windowStart) > maxAge {
			delete(l.entries, k)
			removed++
		}
	}
	if removed > 0 {
		l.logger.WithField("removed", removed).Debug("Swept expired rate limit entries")
	}
}

func (l *MemoryLimiter) Close() {
	close(l.done)
}

// MemoryFailureCounter keeps failed-login counts in process memory.
// Counts only reset on a successful login, never by age.
type MemoryFailureCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewMemoryFailureCounter() *MemoryFailureCounter {
	return &MemoryFailureCounter{counts: make(map[string]int)}
}

func (c *MemoryFailureCounter) Fail(_ context.Context, caller, tenant string) (int, error) {
	k := key(caller, tenant)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[k]++
	return c.counts[k], nil
}

func (c *MemoryFailureCounter) Reset(_ context.Context, caller, tenant string) error {
	k := key(caller, tenant)
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, k)
	return nil
}
