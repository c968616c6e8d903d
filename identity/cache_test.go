package identity_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/freshplate/supportchat/identity"
)

func TestFileCache_Load_Missing(t *testing.T) {
	cache := identity.NewFileCache(filepath.Join(t.TempDir(), "chat.json"))

	_, err := cache.Load(context.Background())
	if !errors.Is(err, identity.ErrNotCached) {
		t.Errorf("Load() error = %v, want ErrNotCached", err)
	}
}

func TestFileCache_SaveAndLoad(t *testing.T) {
	cache := identity.NewFileCache(filepath.Join(t.TempDir(), "chat.json"))

	if err := cache.Save(context.Background(), "c-42"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	id, err := cache.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if id != "c-42" {
		t.Errorf("Load() = %q, want c-42", id)
	}
}

func TestFileCache_Save_Overwrites(t *testing.T) {
	cache := identity.NewFileCache(filepath.Join(t.TempDir(), "chat.json"))

	if err := cache.Save(context.Background(), "c-1"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := cache.Save(context.Background(), "c-2"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	id, err := cache.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if id != "c-2" {
		t.Errorf("Load() = %q, want c-2", id)
	}
}

func TestFileCache_Save_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "chat.json")
	cache := identity.NewFileCache(path)

	if err := cache.Save(context.Background(), "c-1"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("cache file not created: %v", err)
	}
}

func TestFileCache_Clear(t *testing.T) {
	cache := identity.NewFileCache(filepath.Join(t.TempDir(), "chat.json"))

	if err := cache.Save(context.Background(), "c-1"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := cache.Clear(context.Background()); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	_, err := cache.Load(context.Background())
	if !errors.Is(err, identity.ErrNotCached) {
		t.Errorf("Load() after Clear error = %v, want ErrNotCached", err)
	}

	// Clearing again must not fail.
	if err := cache.Clear(context.Background()); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
}

func TestFileCache_Load_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	cache := identity.NewFileCache(path)
	_, err := cache.Load(context.Background())
	if !errors.Is(err, identity.ErrLoadFailed) {
		t.Errorf("Load() error = %v, want ErrLoadFailed", err)
	}
}

func TestMemoryCache_RoundTrip(t *testing.T) {
	cache := identity.NewMemoryCache()

	if _, err := cache.Load(context.Background()); !errors.Is(err, identity.ErrNotCached) {
		t.Errorf("Load() on empty cache error = %v, want ErrNotCached", err)
	}

	if err := cache.Save(context.Background(), "c-7"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	id, err := cache.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if id != "c-7" {
		t.Errorf("Load() = %q, want c-7", id)
	}

	if err := cache.Clear(context.Background()); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := cache.Load(context.Background()); !errors.Is(err, identity.ErrNotCached) {
		t.Errorf("Load() after Clear error = %v, want ErrNotCached", err)
	}
}

func TestNew_SelectsBackend(t *testing.T) {
	cfg := identity.DefaultConfig()
	if cache := identity.New(&cfg); cache == nil {
		t.Fatal("New() returned nil for in-memory config")
	}

	cfg.Merge(&identity.Config{Path: filepath.Join(t.TempDir(), "chat.json")})
	cache := identity.New(&cfg)
	if err := cache.Save(context.Background(), "c-1"); err != nil {
		t.Fatalf("Save() on file-backed cache error = %v", err)
	}
}
