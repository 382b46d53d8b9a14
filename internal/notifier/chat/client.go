// Package chat provides the client for the chat gateway that owns the
// platform connection. Channel and permission mechanics live on the gateway
// side; this client only shapes requests for it.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ChannelRequest describes a restricted channel to be created: hidden from
// everyone except the listed users and roles.
type ChannelRequest struct {
	Name       string   `json:"name"`
	AllowUsers []string `json:"allow_users"`
	AllowRoles []string `json:"allow_roles,omitempty"`
}

// Channel is a created chat channel.
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client defines the chat gateway operations the notifier needs.
type Client interface {
	// CreateChannel creates a restricted channel and returns it.
	CreateChannel(ctx context.Context, req ChannelRequest) (*Channel, error)

	// PostMessage posts a message into an existing channel.
	PostMessage(ctx context.Context, channelID, content string) error
}

// HTTPClient implements Client against the gateway's REST API.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates a chat gateway client for the given base URL and token.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateChannel creates a restricted channel via POST /channels.
func (c *HTTPClient) CreateChannel(ctx context.Context, req ChannelRequest) (*Channel, error) {
	var channel Channel
	if err := c.post(ctx, "/channels", req, &channel); err != nil {
		return nil, fmt.Errorf("failed to create channel %s: %w", req.Name, err)
	}
	return &channel, nil
}

// PostMessage posts a message via POST /channels/{id}/messages.
func (c *HTTPClient) PostMessage(ctx context.Context, channelID, content string) error {
	body := map[string]string{"content": content}
	if err := c.post(ctx, "/channels/"+channelID+"/messages", body, nil); err != nil {
		return fmt.Errorf("failed to post message to channel %s: %w", channelID, err)
	}
	return nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, snippet)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}
