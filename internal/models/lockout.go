package models

import (
	"math"
	"time"
)

// MaxLockoutSeconds is the longest lock window that still fits in a
// time.Duration.
const MaxLockoutSeconds = math.MaxInt64 / int64(time.Second)

// LockoutState is the persisted brute-force tracker state.
type LockoutState struct {
	FailedAttempts  uint  `json:"failed_attempts"`
	LockoutDuration int64 `json:"lockout_duration"` // seconds
	LockoutStart    int64 `json:"lockout_start"`    // unix seconds, 0 when not locked
}
