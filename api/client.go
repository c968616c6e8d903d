package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/freshplate/supportchat/chat"
)

const defaultTimeoutSeconds = 10

// Config holds HTTP client initialization parameters.
type Config struct {
	BaseURL        string `json:"base_url"`
	Token          string `json:"token,omitempty"`           // bearer token; empty for guest sessions
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"` // per-request timeout
}

// DefaultConfig returns a Config with sensible defaults. BaseURL has no
// default and must be provided.
func DefaultConfig() Config {
	return Config{TimeoutSeconds: defaultTimeoutSeconds}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.BaseURL != "" {
		c.BaseURL = source.BaseURL
	}
	if source.Token != "" {
		c.Token = source.Token
	}
	if source.TimeoutSeconds > 0 {
		c.TimeoutSeconds = source.TimeoutSeconds
	}
}

// HTTPClient implements Client against the storefront chat backend's JSON
// endpoints.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates an HTTPClient from configuration.
func NewHTTPClient(cfg *Config) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("api: base URL is required")
	}

	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = defaultTimeoutSeconds
	}

	return &HTTPClient{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		client:  &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}, nil
}

func (c *HTTPClient) FetchPage(ctx context.Context, conversationID string, pageIndex, pageSize int) (chat.Page, error) {
	endpoint := fmt.Sprintf("%s/api/chat/conversations/%s/messages?page=%d&size=%d",
		c.baseURL, url.PathEscape(conversationID), pageIndex, pageSize)

	var page chat.Page
	if err := c.do(ctx, "fetch page", http.MethodGet, endpoint, nil, &page); err != nil {
		return chat.Page{}, err
	}
	return page, nil
}

func (c *HTTPClient) SendMessage(ctx context.Context, msg OutboundMessage) (SendReceipt, error) {
	endpoint := c.baseURL + "/api/chat/messages"

	var receipt SendReceipt
	if err := c.do(ctx, "send message", http.MethodPost, endpoint, msg, &receipt); err != nil {
		return SendReceipt{}, err
	}
	return receipt, nil
}

func (c *HTTPClient) FetchStatus(ctx context.Context, conversationID string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/chat/conversations/%s/status",
		c.baseURL, url.PathEscape(conversationID))

	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, "fetch status", http.MethodGet, endpoint, nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

func (c *HTTPClient) InitConversation(ctx context.Context) (string, error) {
	endpoint := c.baseURL + "/api/chat/conversations"

	var resp struct {
		ConversationID string `json:"conversation_id"`
	}
	if err := c.do(ctx, "init conversation", http.MethodPost, endpoint, nil, &resp); err != nil {
		return "", err
	}
	return resp.ConversationID, nil
}

func (c *HTTPClient) LatestConversation(ctx context.Context, customerID string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/chat/customers/%s/conversations/latest",
		c.baseURL, url.PathEscape(customerID))

	var resp struct {
		ConversationID string `json:"conversation_id"`
	}
	if err := c.do(ctx, "latest conversation", http.MethodGet, endpoint, nil, &resp); err != nil {
		return "", err
	}
	return resp.ConversationID, nil
}

// do executes one JSON request. Non-2xx statuses map to the error taxonomy:
// 400 and 422 become ValidationError, everything else NetworkError.
func (c *HTTPClient) do(ctx context.Context, op, method, endpoint string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		var rejection struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&rejection)
		return &ValidationError{Op: op, StatusCode: resp.StatusCode, Reason: rejection.Message}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &NetworkError{Op: op, StatusCode: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
