package domain

import (
	"time"
)

type AdmissionDecision struct {
	Denied       bool
	CurrentCount int64
}

type AlertMessage struct {
	Date         string `json:"date"`
	CurrentCount int64  `json:"currentCount"`
	Limit        int64  `json:"limit"`
}

type RateLimitResult struct {
	Allow      bool
	Remaining  int
	RetryAfter time.Duration
}
