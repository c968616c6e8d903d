// Package identity caches a guest's conversation id on the local machine so
// a returning guest lands back in the same support conversation. Sessions for
// authenticated customers resolve their conversation server-side and do not
// use the cache.
package identity

import "context"

// Cache stores at most one conversation id. Implementations must be safe for
// concurrent use.
type Cache interface {
	// Load returns the cached conversation id, or ErrNotCached when absent.
	Load(ctx context.Context) (string, error)
	// Save persists the conversation id, overwriting any previous value.
	Save(ctx context.Context, conversationID string) error
	// Clear removes the cached id. Clearing an empty cache is not an error.
	Clear(ctx context.Context) error
}

// Config holds cache initialization parameters.
type Config struct {
	Path string `json:"path,omitempty"` // cache file location; empty selects in-memory
}

// DefaultConfig returns the default cache configuration (in-memory).
func DefaultConfig() Config {
	return Config{}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Path != "" {
		c.Path = source.Path
	}
}

// New creates a Cache from configuration: file-backed when Path is set,
// process-local otherwise.
func New(cfg *Config) Cache {
	if cfg.Path == "" {
		return NewMemoryCache()
	}
	return NewFileCache(cfg.Path)
}
