package ratelimit

import (
	"context"
	"time"
)

// Rule is one fixed-window admission rule with block escalation.
type Rule struct {
	Limit  int
	Window time.Duration
	Block  time.Duration
}

// Decision is the outcome of an admission check. RetryAfter is only set
// when Allowed is false and a block is in effect.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter admits or blocks requests keyed by caller identity and action.
// Counting is fixed-window: a caller that exhausts the limit inside one
// window is blocked for the rule's block duration. Bursts straddling a
// window boundary can briefly exceed the limit; that approximation is
// accepted here in exchange for O(1) state per key.
type Limiter interface {
	Admit(ctx context.Context, caller, action string, rule Rule) (Decision, error)
}

// FailureCounter tracks consecutive failed logins per caller and tenant.
// It is advisory only: callers log on high counts but never gate on them.
type FailureCounter interface {
	Fail(ctx context.Context, caller, tenant string) (int, error)
	Reset(ctx context.Context, caller, tenant string) error
}

func key(caller, action string) string {
	return action + "|" + caller
}
