// Package mem0 is a client for the hosted Mem0 memory API. It treats stored
// memories as opaque text plus metadata tags.
package mem0

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tastesync/pkg/clients"
	"tastesync/pkg/config"
)

const (
	defaultBaseURL = "https://api.mem0.ai"
	defaultTimeout = 15 * time.Second
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Memory is one search hit.
type Memory struct {
	ID        string         `json:"id"`
	Memory    string         `json:"memory"`
	UserID    string         `json:"user_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Score     float64        `json:"score,omitempty"`
	CreatedAt string         `json:"created_at,omitempty"`
}

// MetaString returns a string metadata value, or "" when absent.
func (m Memory) MetaString(key string) string {
	if m.Metadata == nil {
		return ""
	}
	if s, ok := m.Metadata[key].(string); ok {
		return s
	}
	return ""
}

type AddOptions struct {
	UserID   string
	AgentID  string
	RunID    string
	Metadata map[string]any
}

type SearchOptions struct {
	UserID string
	Limit  int
}

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

func LoadConfig() Config {
	return Config{
		APIKey:  config.GetEnv("MEM0_API_KEY", ""),
		BaseURL: config.GetEnv("MEM0_API_URL", defaultBaseURL),
		Timeout: config.GetEnvDuration("MEM0_TIMEOUT", defaultTimeout),
	}
}

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	breaker *clients.CircuitBreaker
}

// NewClient returns a Mem0 client. breaker may be nil.
func NewClient(cfg Config, breaker *clients.CircuitBreaker) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("mem0 api key is required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: base,
		http:    clients.NewHTTPClient(timeout),
		breaker: breaker,
	}, nil
}

type addRequest struct {
	Messages []Message     `json:"messages"`
	UserID   string         `json:"user_id,omitempty"`
	AgentID  string         `json:"agent_id,omitempty"`
	RunID    string         `json:"run_id,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type searchRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// Add stores messages as memories for opts.UserID.
func (c *Client) Add(ctx context.Context, messages []Message, opts AddOptions) error {
	body := addRequest{
		Messages: messages,
		UserID:   opts.UserID,
		AgentID:  opts.AgentID,
		RunID:    opts.RunID,
		Metadata: opts.Metadata,
	}
	return c.breaker.Call(ctx, func(ctx context.Context) error {
		_, err := c.post(ctx, "/v1/memories/", body)
		return err
	})
}

// Search runs a semantic search over a user's memories.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]Memory, error) {
	body := searchRequest{Query: query, UserID: opts.UserID, Limit: opts.Limit}
	return clients.Run(ctx, c.breaker, func(ctx context.Context) ([]Memory, error) {
		raw, err := c.post(ctx, "/v1/memories/search/", body)
		if err != nil {
			return nil, err
		}
		return decodeMemories(raw)
	})
}

func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal mem0 request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create mem0 request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mem0 request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read mem0 response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("mem0 %s failed with status %d", path, resp.StatusCode)
	}
	return raw, nil
}

// Search answers with either a bare list or {"results": [...]} depending on
// API version.
func decodeMemories(raw []byte) ([]Memory, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var list []Memory
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode mem0 response: %w", err)
		}
		return list, nil
	}
	var wrapped struct {
		Results []Memory `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("decode mem0 response: %w", err)
	}
	return wrapped.Results, nil
}
