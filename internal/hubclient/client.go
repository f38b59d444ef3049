// Package hubclient is the single authenticated HTTP client for the hub. It
// is configured once with the hub URL and API key and carries the signed-in
// user's session on every request.
package hubclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/config"
)

const apiKeyHeader = "apikey"

// refreshLeeway renews access tokens shortly before they expire.
const refreshLeeway = 30 * time.Second

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	mu        sync.Mutex
	session   *Session
	listeners map[int]AuthListener
	nextID    int

	refresh singleflight.Group
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithClock replaces time.Now for session expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(cfg config.ClientConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.HubURL, "/"),
		apiKey:     cfg.HubAPIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default(),
		now:        time.Now,
		listeners:  make(map[int]AuthListener),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type requestOptions struct {
	anonymous bool
	headers   map[string]string
}

type RequestOption func(*requestOptions)

// Anonymous sends the request without the user's access token.
func Anonymous() RequestOption {
	return func(o *requestOptions) { o.anonymous = true }
}

func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

// Do sends a JSON request to the hub and decodes a 2xx body into out, which
// may be nil. Non-2xx responses are returned as *APIError.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}, opts ...RequestOption) error {
	var options requestOptions
	for _, opt := range opts {
		opt(&options)
	}

	token := ""
	if !options.anonymous {
		session, err := c.GetCurrentSession(ctx)
		if err != nil {
			return err
		}
		if session != nil {
			token = session.AccessToken
		}
	}
	return c.send(ctx, method, path, token, body, out, options.headers)
}

func (c *Client) send(ctx context.Context, method, path, token string, body, out interface{}, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hub %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := decodeBody(resp.Body, out); err != nil {
		return fmt.Errorf("hub %s %s: decode response: %w", method, path, err)
	}
	return nil
}

func decodeBody(r io.Reader, out interface{}) error {
	return json.NewDecoder(r).Decode(out)
}
