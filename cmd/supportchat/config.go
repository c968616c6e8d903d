package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/freshplate/supportchat/api"
	"github.com/freshplate/supportchat/identity"
	"github.com/freshplate/supportchat/session"
)

// AppConfig holds initialization parameters for all client subsystems. Each
// subsystem section delegates to that subsystem's config-driven constructor.
type AppConfig struct {
	API      api.Config      `json:"api"`
	Identity identity.Config `json:"identity"`
	Session  SessionSection  `json:"session"`
	// PushURL is the websocket endpoint for live deliveries; empty runs the
	// session on polling-free send/backfill alone.
	PushURL string `json:"push_url,omitempty"`
}

// SessionSection mirrors session.Config with JSON-friendly duration units.
type SessionSection struct {
	PageSize            int    `json:"page_size,omitempty"`
	Lang                string `json:"lang,omitempty"`
	AwaitTimeoutSeconds int    `json:"await_timeout_seconds,omitempty"`
	BackfillDelayMillis int    `json:"backfill_delay_millis,omitempty"`
}

// SessionConfig translates the section into a session.Config.
func (s SessionSection) SessionConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.Merge(&session.Config{
		PageSize:      s.PageSize,
		Lang:          s.Lang,
		AwaitTimeout:  time.Duration(s.AwaitTimeoutSeconds) * time.Second,
		BackfillDelay: time.Duration(s.BackfillDelayMillis) * time.Millisecond,
	})
	return cfg
}

// DefaultAppConfig returns an AppConfig with sensible defaults for all
// subsystems.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		API:      api.DefaultConfig(),
		Identity: identity.DefaultConfig(),
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *AppConfig) Merge(source *AppConfig) {
	c.API.Merge(&source.API)
	c.Identity.Merge(&source.Identity)

	if source.Session.PageSize > 0 {
		c.Session.PageSize = source.Session.PageSize
	}
	if source.Session.Lang != "" {
		c.Session.Lang = source.Session.Lang
	}
	if source.Session.AwaitTimeoutSeconds > 0 {
		c.Session.AwaitTimeoutSeconds = source.Session.AwaitTimeoutSeconds
	}
	if source.Session.BackfillDelayMillis > 0 {
		c.Session.BackfillDelayMillis = source.Session.BackfillDelayMillis
	}
	if source.PushURL != "" {
		c.PushURL = source.PushURL
	}
}

// LoadConfig reads a JSON config file, merges it with defaults, and returns
// the resulting AppConfig.
func LoadConfig(filename string) (*AppConfig, error) {
	cfg := DefaultAppConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded AppConfig
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
