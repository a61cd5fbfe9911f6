// Package client is the typed HTTP client for the railsight wire contract.
// It converts transport failures and status codes into sentinel errors and
// never exposes response bodies beyond the decoded types.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	railsight "github.com/railsight/railsight"
)

var (
	// ErrInvalidCredentials maps a 401 from POST /api/login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated maps a 401 or 403 from a protected route.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Client calls the gateway API at a fixed base URL. Safe for concurrent use.
type Client struct {
	base string
	http *http.Client
}

// Option configures optional Client dependencies.
type Option func(*Client)

// WithHTTPClient overrides the underlying transport (tests inject a
// counting RoundTripper here).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges credentials for a token and user object.
func (c *Client) Login(ctx context.Context, username, password string) (railsight.LoginResult, error) {
	var result railsight.LoginResult
	err := c.do(ctx, http.MethodPost, "/api/login", "", map[string]string{
		"username": username,
		"password": password,
	}, &result)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return railsight.LoginResult{}, ErrInvalidCredentials
		}
		return railsight.LoginResult{}, err
	}
	return result, nil
}

// User fetches the authenticated user record.
func (c *Client) User(ctx context.Context, token string) (railsight.User, error) {
	var body struct {
		User railsight.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/user", token, nil, &body); err != nil {
		return railsight.User{}, err
	}
	return body.User, nil
}

// Metrics fetches the dashboard metrics summary.
func (c *Client) Metrics(ctx context.Context, token string) (railsight.DashboardMetrics, error) {
	var metrics railsight.DashboardMetrics
	if err := c.do(ctx, http.MethodGet, "/api/metrics", token, nil, &metrics); err != nil {
		return railsight.DashboardMetrics{}, err
	}
	return metrics, nil
}

// UpdateMetrics applies a partial dashboard-metrics update and returns the
// merged object.
func (c *Client) UpdateMetrics(ctx context.Context, token string, patch railsight.MetricsPatch) (railsight.DashboardMetrics, error) {
	var metrics railsight.DashboardMetrics
	if err := c.do(ctx, http.MethodPut, "/api/metrics", token, patch, &metrics); err != nil {
		return railsight.DashboardMetrics{}, err
	}
	return metrics, nil
}

// Notifications fetches the inbox list.
func (c *Client) Notifications(ctx context.Context, token string) ([]railsight.Notification, error) {
	var notifications []railsight.Notification
	if err := c.do(ctx, http.MethodGet, "/api/notifications", token, nil, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// Logout notifies the server. The call is stateless on the server side; the
// caller is responsible for discarding its token copy.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/logout", token, struct{}{}, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return ErrUnauthenticated
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
