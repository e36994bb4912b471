package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/killallgit/strand/pkg/chat"
	"github.com/killallgit/strand/pkg/logger"
)

// TokenRefresher exchanges an expired auth token for a fresh one. The
// session/token-refresh machinery itself lives outside this client; it
// is injected as an opaque dependency.
type TokenRefresher func(ctx context.Context) (string, error)

// Client talks to the chat backend. Every request carries the auth
// token; a 401 response triggers one token refresh and one retry when a
// refresher is configured.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	refresh    TokenRefresher
	log        *logger.Logger
}

// Conversation is the backend's conversation handle
type Conversation struct {
	ID string `json:"id"`
}

// Profile describes the authenticated user
type Profile struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the HTTP client timeout for non-streaming requests
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithTokenRefresher installs the retry-on-401 token refresher
func WithTokenRefresher(refresh TokenRefresher) Option {
	return func(c *Client) {
		c.refresh = refresh
	}
}

// NewClient creates a backend client
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		log: logger.WithComponent("api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends a request, refreshing the token and retrying once on 401.
// The caller owns the response body.
func (c *Client) do(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	resp, err := c.send(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.refresh != nil {
		resp.Body.Close()
		c.log.Info("Token rejected, refreshing", "path", path)

		token, err := c.refresh(ctx)
		if err != nil {
			return nil, fmt.Errorf("token refresh failed: %w", err)
		}
		c.token = token

		return c.send(ctx, method, path, payload)
	}

	return resp, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		reqBody, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(reqBody)
	}

	url := c.baseURL + path
	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// decode reads a JSON response body into out, converting non-2xx
// statuses into errors
func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorBody, _ := io.ReadAll(resp.Body)

		var errorResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(errorBody, &errorResp) == nil && errorResp.Error != "" {
			return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, errorResp.Error)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetOrCreateConversation returns the conversation for an agent,
// creating it if necessary
func (c *Client) GetOrCreateConversation(ctx context.Context, agentID string) (Conversation, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/conversations", map[string]string{
		"agent_id": agentID,
	})
	if err != nil {
		return Conversation{}, err
	}

	var conv Conversation
	if err := decode(resp, &conv); err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

// GetMessages fetches the canonical message list for a conversation
func (c *Client) GetMessages(ctx context.Context, conversationID string, limit int) ([]chat.Message, error) {
	path := fmt.Sprintf("/api/conversations/%s/messages?limit=%d", conversationID, limit)
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Messages []chat.Message `json:"messages"`
	}
	if err := decode(resp, &result); err != nil {
		return nil, err
	}
	return result.Messages, nil
}

// SendMessage posts a message without streaming and returns the AI
// reply. Fallback path for callers that do not consume the event
// stream.
func (c *Client) SendMessage(ctx context.Context, conversationID, content string) (chat.Message, error) {
	path := fmt.Sprintf("/api/conversations/%s/messages", conversationID)
	resp, err := c.do(ctx, http.MethodPost, path, map[string]string{
		"content": content,
	})
	if err != nil {
		return chat.Message{}, err
	}

	var msg chat.Message
	if err := decode(resp, &msg); err != nil {
		return chat.Message{}, err
	}
	return msg, nil
}

// PatchToolPositions persists client-observed insert positions onto the
// server's tool usage records. Idempotent on the server side by
// contract.
func (c *Client) PatchToolPositions(ctx context.Context, conversationID, messageID string, positions map[string]int) error {
	path := fmt.Sprintf("/api/conversations/%s/messages/%s/tools/positions", conversationID, messageID)
	resp, err := c.do(ctx, http.MethodPatch, path, map[string]any{
		"positions": positions,
	})
	if err != nil {
		return err
	}
	return decode(resp, nil)
}

// GetProfile fetches the authenticated user's profile
func (c *Client) GetProfile(ctx context.Context) (Profile, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/profile", nil)
	if err != nil {
		return Profile{}, err
	}

	var profile Profile
	if err := decode(resp, &profile); err != nil {
		return Profile{}, err
	}
	return profile, nil
}
