// Package firebase implements service.Database over the Firebase Realtime
// Database REST and streaming API.
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	firebasedatabase "google.golang.org/api/firebasedatabase/v1beta"
	"google.golang.org/api/option"

	"livetask/internal/config"
)

const (
	// APITimeout is the timeout for write calls.
	APITimeout = 5 * time.Second

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 4096
)

// Scopes are the OAuth scopes needed to read and write the database and to
// look up its URL.
var Scopes = []string{
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/firebase.database",
	"https://www.googleapis.com/auth/firebase.readonly",
}

var (
	// ErrNotLoggedIn is returned when no credentials file or stored token exists.
	ErrNotLoggedIn = errors.New("not logged in (run: livetask login)")

	// ErrUnauthorized is returned when the server rejects the credentials.
	ErrUnauthorized = errors.New("token expired or revoked (run: livetask login)")

	// ErrPermissionDenied is returned when the security rules reject a request.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned for a missing database or path.
	ErrNotFound = errors.New("not found")

	// ErrTimeout is returned when a call exceeds APITimeout.
	ErrTimeout = errors.New("request timed out")
)

// HTTPError is a non-2xx response from the database.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("database returned %d", e.Status)
	}
	return fmt.Sprintf("database returned %d: %s", e.Status, e.Message)
}

// Client implements service.Database against one database URL.
type Client struct {
	http    *http.Client
	baseURL string
	log     *zap.Logger

	minBackoff time.Duration
	maxBackoff time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Defaults to zap.L().
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithBackoff sets the reconnect delay bounds of live subscriptions.
func WithBackoff(initial, limit time.Duration) Option {
	return func(c *Client) {
		c.minBackoff = initial
		c.maxBackoff = limit
	}
}

// New creates a client from config.
// Uses credentials_file (or GOOGLE_APPLICATION_CREDENTIALS) when set,
// otherwise requires oauth_client.json and token.json from livetask login.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	ts, err := tokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Create HTTP client with token source
	httpClient := oauth2.NewClient(ctx, ts)

	url := cfg.DatabaseURL
	if url == "" {
		if cfg.Project == "" {
			return nil, fmt.Errorf("database_url or project must be configured in %s", cfg.SettingsPath())
		}
		url, err = ResolveDatabaseURL(ctx, cfg.Project, cfg.Location, cfg.Instance, option.WithHTTPClient(httpClient))
		if err != nil {
			return nil, err
		}
	}

	return NewWithHTTPClient(url, httpClient, opts...), nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(baseURL string, httpClient *http.Client, opts ...Option) *Client {
	c := &Client{
		http:       httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = zap.L()
	}
	c.log = c.log.Named("firebase")
	return c
}

func tokenSource(ctx context.Context, cfg *config.Config) (oauth2.TokenSource, error) {
	if cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, Scopes...)
		if err != nil {
			return nil, fmt.Errorf("invalid credentials file: %w", err)
		}
		return creds.TokenSource, nil
	}

	if !cfg.HasOAuthClient() || !cfg.HasToken() {
		return nil, ErrNotLoggedIn
	}

	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}

	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}

	// Auto-refreshing
	return oauthConfig.TokenSource(ctx, &token), nil
}

// ResolveDatabaseURL looks up the URL of a database instance through the
// Realtime Database management API.
func ResolveDatabaseURL(ctx context.Context, project, location, instance string, opts ...option.ClientOption) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	svc, err := firebasedatabase.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create management service: %w", err)
	}

	name := fmt.Sprintf("projects/%s/locations/%s/instances/%s", project, location, instance)
	inst, err := svc.Projects.Locations.Instances.Get(name).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("resolve database %s: %w", instance, wrapError(err))
	}
	if inst.DatabaseUrl == "" {
		return "", fmt.Errorf("resolve database %s: instance has no URL", instance)
	}
	return strings.TrimRight(inst.DatabaseUrl, "/"), nil
}

// Push implements service.Database.
func (c *Client) Push(ctx context.Context, path string, value map[string]any) (string, error) {
	var resp struct {
		Name string `json:"name"`
	}
	if err := c.do(ctx, http.MethodPost, path, value, &resp); err != nil {
		return "", err
	}
	if resp.Name == "" {
		return "", errors.New("push returned no key")
	}
	return resp.Name, nil
}

// Update implements service.Database.
func (c *Client) Update(ctx context.Context, path string, fields map[string]any) error {
	return c.do(ctx, http.MethodPatch, path, fields, nil)
}

// Set implements service.Database.
func (c *Client) Set(ctx context.Context, path string, value any) error {
	return c.do(ctx, http.MethodPut, path, value, nil)
}

// Remove implements service.Database.
func (c *Client) Remove(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) url(path string) string {
	return c.baseURL + "/" + strings.Trim(path, "/") + ".json"
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", method, err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug("request", zap.String("method", method), zap.String("path", path))
	resp, err := c.http.Do(req)
	if err != nil {
		return wrapError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return wrapError(readHTTPError(resp))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}

func readHTTPError(resp *http.Response) *HTTPError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	e := &HTTPError{Status: resp.StatusCode}

	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		e.Message = body.Error
	} else {
		e.Message = strings.TrimSpace(string(data))
	}
	return e
}

// wrapError wraps API errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.Status {
		case http.StatusUnauthorized:
			return ErrUnauthorized
		case http.StatusForbidden:
			return ErrPermissionDenied
		case http.StatusNotFound:
			return ErrNotFound
		}
		return err
	}

	// Errors from the management API client
	errStr := err.Error()
	if strings.Contains(errStr, "context deadline exceeded") {
		return ErrTimeout
	}
	if strings.Contains(errStr, "401") {
		return ErrUnauthorized
	}
	if strings.Contains(errStr, "403") {
		return ErrPermissionDenied
	}
	if strings.Contains(errStr, "404") {
		return ErrNotFound
	}

	return err
}
