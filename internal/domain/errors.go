package domain

import "errors"

var (
	ErrInvalidKey       = errors.New("invalid odds key")
	ErrCacheUnavailable = errors.New("cache store unavailable")
	ErrAttemptTimeout   = errors.New("attempt deadline exceeded")
	ErrWorkerFault      = errors.New("worker fault")
	ErrInvalidResult    = errors.New("invalid model result")
	ErrRetriesExhausted = errors.New("retries exhausted")
	ErrNotFound         = errors.New("not found")
)
