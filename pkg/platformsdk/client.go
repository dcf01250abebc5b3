package platformsdk

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

// Client talks to a multiman server. It performs the unauthenticated calls
// and hands out Sessions for everything else.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, "", http.MethodGet, "/health", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ready calls GET /readyz. A degraded service returns an *APIError with
// status 503 and the decoded body is discarded.
func (c *Client) Ready(ctx context.Context) (*ReadinessResponse, error) {
	var out ReadinessResponse
	if err := c.do(ctx, "", http.MethodGet, "/readyz", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns a session for it.
func (c *Client) Register(ctx context.Context, req CreateUserRequest) (*Session, error) {
	var tok TokenResponse
	if err := c.do(ctx, "", http.MethodPost, "/auth/register", req, http.StatusCreated, &tok); err != nil {
		return nil, err
	}
	return c.NewSession(tok.AccessToken), nil
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var tok TokenResponse
	req := LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, "", http.MethodPost, "/auth/login", req, http.StatusOK, &tok); err != nil {
		return nil, err
	}
	return c.NewSession(tok.AccessToken), nil
}

// NewSession wraps an access token obtained elsewhere.
func (c *Client) NewSession(accessToken string) *Session {
	return &Session{client: c, accessToken: accessToken}
}

// do sends body as JSON (when non-nil), adds the bearer token (when
// non-empty), and decodes the response into out (when non-nil).
func (c *Client) do(
	ctx context.Context,
	token, method, path string,
	body any,
	expectedStatus int,
	out any,
) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return decodeJSON(resp, out, expectedStatus)
}

// decodeJSON reads the response once, returning a typed *APIError for any
// status other than expectedStatus.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		if perr := parseErrorResponse(resp, bodyBytes); perr != nil {
			return perr
		}
		return fmt.Errorf("unexpected status %d (want %d)", resp.StatusCode, expectedStatus)
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
