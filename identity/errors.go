package identity

import "errors"

// Sentinel errors for cache operations.
var (
	ErrNotCached  = errors.New("no conversation cached")
	ErrLoadFailed = errors.New("load failed")
	ErrSaveFailed = errors.New("save failed")
)
