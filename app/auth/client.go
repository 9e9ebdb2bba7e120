package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrTokenInvalid = errors.New("token invalid")

// Identity is what the auth provider asserts about a bearer token.
type Identity struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

// Client verifies bearer tokens against the auth provider's
// introspection endpoint.
type Client struct {
	introspectionURL string
	httpClient       *http.Client
}

func NewClient(introspectionURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		introspectionURL: strings.TrimSpace(introspectionURL),
		httpClient:       &http.Client{Timeout: timeout},
	}
}

// Verify resolves the identity behind a bearer token. Any non-200 answer
// or inactive token maps to ErrTokenInvalid; transport failures surface
// as-is so callers can tell an outage from a rejection.
func (c *Client) Verify(ctx context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" || c.introspectionURL == "" {
		return nil, ErrTokenInvalid
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.introspectionURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth introspection request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, ErrTokenInvalid
	}

	var identity Identity
	if err := json.Unmarshal(body, &identity); err != nil {
		return nil, err
	}
	if !identity.Active || identity.UserID == "" {
		return nil, ErrTokenInvalid
	}

	return &identity, nil
}
