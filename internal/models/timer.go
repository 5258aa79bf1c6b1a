package models

import (
	"fmt"
	"time"
)

// Default clock-out target seeded for every tenant on first start.
const (
	DefaultHour   = 18
	DefaultMinute = 0
)

// TimerSetting is one tenant's clock-out target time-of-day.
type TimerSetting struct {
	Tenant Tenant `json:"tenant" dynamodbav:"tenant"`
	Hour   int    `json:"hour" dynamodbav:"hour"`
	Minute int    `json:"minute" dynamodbav:"minute"`
}

// ValidTime reports whether hour/minute form a valid time-of-day.
func ValidTime(hour, minute int) bool {
	return hour >= 0 && hour <= 23 && minute >= 0 && minute <= 59
}

// TargetTime formats the setting as HH:MM.
func (s TimerSetting) TargetTime() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// SecondsLeft returns the whole seconds from now until today's target.
// Negative once the target has passed; the original service does not clamp.
func (s TimerSetting) SecondsLeft(now time.Time) int64 {
	target := time.Date(now.Year(), now.Month(), now.Day(), s.Hour, s.Minute, 0, 0, now.Location())
	return int64(target.Sub(now).Seconds())
}
