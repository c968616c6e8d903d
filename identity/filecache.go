package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type cacheRecord struct {
	ConversationID string    `json:"conversation_id"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type fileCache struct {
	path string
	mu   sync.Mutex
}

// NewFileCache creates a Cache backed by a single JSON file. Writes go
// through a temp file and rename so a crash never leaves a torn record.
func NewFileCache(path string) Cache {
	return &fileCache{path: path}
}

func (c *fileCache) Load(_ context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotCached
		}
		return "", fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	var record cacheRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return "", fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	if record.ConversationID == "" {
		return "", ErrNotCached
	}

	return record.ConversationID, nil
}

func (c *fileCache) Save(_ context.Context, conversationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(cacheRecord{
		ConversationID: conversationID,
		UpdatedAt:      time.Now(),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	return nil
}

func (c *fileCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	return nil
}

type memoryCache struct {
	conversationID string
	mu             sync.Mutex
}

// NewMemoryCache creates a process-local Cache, used in tests and when no
// cache path is configured.
func NewMemoryCache() Cache {
	return &memoryCache{}
}

func (c *memoryCache) Load(_ context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conversationID == "" {
		return "", ErrNotCached
	}
	return c.conversationID, nil
}

func (c *memoryCache) Save(_ context.Context, conversationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conversationID = conversationID
	return nil
}

func (c *memoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conversationID = ""
	return nil
}
