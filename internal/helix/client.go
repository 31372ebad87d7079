// internal/helix/client.go
// Minimal Twitch Helix client. Only the user lookup needed at login
// time is implemented; a failed lookup means invalid credentials.
package helix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultEndpoint is the Helix API base URL.
const DefaultEndpoint = "https://api.twitch.tv/helix"

// ErrInvalidCredentials covers both rejected tokens and empty results.
var ErrInvalidCredentials = errors.New("twitch rejected the credentials")

// User is the canonical identity behind an access token.
type User struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

type usersResponse struct {
	Data []User `json:"data"`
}

// Client handles communication with the Helix API.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a Helix client with a short request timeout.
func NewClient() *Client {
	return &Client{
		endpoint: DefaultEndpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewClientWithEndpoint creates a client with a custom endpoint.
func NewClientWithEndpoint(endpoint string) *Client {
	c := NewClient()
	c.endpoint = endpoint
	return c
}

// FetchUser resolves the login name behind a bearer token. The token
// may carry the IRC-style "oauth:" prefix; it is stripped here.
func (c *Client) FetchUser(ctx context.Context, token, clientID string) (*User, error) {
	token = strings.TrimPrefix(token, "oauth:")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/users", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Client-Id", clientID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrInvalidCredentials, resp.StatusCode)
	}

	var parsed usersResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, ErrInvalidCredentials
	}

	return &parsed.Data[0], nil
}
