package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// OpenStream starts a streaming exchange for one user turn and returns
// the raw event body. The caller owns the body and decodes it with
// events.Parser. No timeout is applied; the stream lives until a
// terminal event or context cancellation.
func (c *Client) OpenStream(ctx context.Context, conversationID, message string) (io.ReadCloser, error) {
	path := fmt.Sprintf("/api/conversations/%s/stream", conversationID)

	// Streaming bypasses the shared HTTP client so its timeout cannot
	// sever a long-lived stream
	streamClient := &http.Client{Transport: c.httpClient.Transport}

	resp, err := c.openStream(ctx, streamClient, path, message)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.refresh != nil {
		resp.Body.Close()
		c.log.Info("Token rejected on stream open, refreshing")

		token, err := c.refresh(ctx)
		if err != nil {
			return nil, fmt.Errorf("token refresh failed: %w", err)
		}
		c.token = token

		resp, err = c.openStream(ctx, streamClient, path, message)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		var errorResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(errorBody, &errorResp) == nil && errorResp.Error != "" {
			return nil, fmt.Errorf("stream request failed with status %d: %s", resp.StatusCode, errorResp.Error)
		}
		return nil, fmt.Errorf("stream request failed with status %d: %s", resp.StatusCode, string(errorBody))
	}

	return resp.Body, nil
}

func (c *Client) openStream(ctx context.Context, client *http.Client, path, message string) (*http.Response, error) {
	reqBody, err := json.Marshal(map[string]string{
		"message": message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("stream request failed: %w", err)
	}
	return resp, nil
}
