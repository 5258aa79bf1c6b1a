package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownTenant  = errors.New("unknown tenant")
	ErrBadCredentials = errors.New("invalid credentials")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
	ErrInvalidTime    = errors.New("invalid time of day")
)

// RateLimitError carries how long the caller should wait before retrying.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}
