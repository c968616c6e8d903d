package session

import "time"

const (
	defaultPageSize      = 20
	defaultAwaitTimeout  = 30 * time.Second
	defaultBackfillDelay = 500 * time.Millisecond
)

// Config holds session controller initialization parameters.
type Config struct {
	// PageSize is the fixed message-history page size.
	PageSize int
	// Lang is the language hint attached to outbound messages.
	Lang string
	// AwaitTimeout bounds how long the awaiting-response indicator may stay
	// set without a confirmation before the safety valve clears it.
	AwaitTimeout time.Duration
	// BackfillDelay is the pause between a successful send and the page-0
	// refetch that covers missed push deliveries.
	BackfillDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		PageSize:      defaultPageSize,
		AwaitTimeout:  defaultAwaitTimeout,
		BackfillDelay: defaultBackfillDelay,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.PageSize > 0 {
		c.PageSize = source.PageSize
	}
	if source.Lang != "" {
		c.Lang = source.Lang
	}
	if source.AwaitTimeout > 0 {
		c.AwaitTimeout = source.AwaitTimeout
	}
	if source.BackfillDelay > 0 {
		c.BackfillDelay = source.BackfillDelay
	}
}
