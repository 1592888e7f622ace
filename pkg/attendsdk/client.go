package attendsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the attendance service. It performs the unauthenticated
// operations; Signup and Login return a Session for everything else.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// Signup registers a new account and returns an authenticated session.
func (c *Client) Signup(ctx context.Context, name, email, password, role string) (*Session, error) {
	body := map[string]string{"name": name, "email": email, "password": password}
	if role != "" {
		body["role"] = role
	}

	var data authData
	if err := c.postJSON(ctx, "/auth/signup", body, &data); err != nil {
		return nil, err
	}
	return newSession(c, data), nil
}

// Login authenticates with credentials and returns a session.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var data authData
	err := c.postJSON(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &data)
	if err != nil {
		return nil, err
	}
	return newSession(c, data), nil
}

// NewSessionFromTokens rebuilds a session from a stored token pair, e.g.
// after a process restart.
func (c *Client) NewSessionFromTokens(accessToken, refreshToken string) *Session {
	return &Session{
		client:       c,
		accessToken:  accessToken,
		refreshToken: refreshToken,
	}
}

// postJSON sends an unauthenticated POST and decodes the envelope's data
// field into out.
func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("attendsdk: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("attendsdk: request failed: %w", err)
	}
	defer resp.Body.Close()

	return decodeEnvelope(resp, out)
}

// decodeEnvelope reads the response envelope, returning an APIError for
// failures and unmarshalling data into out on success.
func decodeEnvelope(resp *http.Response, out any) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("attendsdk: failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if resp.StatusCode >= 400 || !env.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("attendsdk: failed to decode response data: %w", err)
		}
	}
	return nil
}
