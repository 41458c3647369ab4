// Package apiclient is the HTTP client for the comercio REST API. Every call
// is a single request with no retries; timeouts come from the http.Client.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/comercio-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/comercio-backend/pkg/errors"
	"github.com/angelmondragon/comercio-backend/pkg/types"
)

const (
	defaultTimeout         = 15 * time.Second
	apiPrefix              = "/api/v1"
	errorBodyReadLimit     = 4096
	idempotencyKeyHeader   = "Idempotency-Key"
	authorizationHeaderKey = "Authorization"
)

var errBaseURLRequired = errors.New("api base url is required")

// Client calls the payments and notifications endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// CallOption decorates a single outgoing request.
type CallOption func(*http.Request)

// WithIdempotencyKey attaches an Idempotency-Key header to the call.
func WithIdempotencyKey(key string) CallOption {
	return func(req *http.Request) {
		if key = strings.TrimSpace(key); key != "" {
			req.Header.Set(idempotencyKeyHeader, key)
		}
	}
}

// NewClient builds a client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// NewFromConfig builds a client from the COMERCIO_CLIENT_* settings.
func NewFromConfig(cfg config.ClientConfig) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return NewClient(cfg.BaseURL,
		WithToken(cfg.Token),
		WithHTTPClient(&http.Client{Timeout: timeout}),
	)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any, opts ...CallOption) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "api client not configured")
	}

	endpoint := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(authorizationHeaderKey, "Bearer "+c.token)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(req)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s %s", method, path))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	envelope := struct {
		Data any `json:"data"`
	}{Data: out}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response")
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	apiErr := &Error{Status: resp.StatusCode}

	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = strings.TrimSpace(envelope.Error.Message)
		apiErr.Details = envelope.Error.Details
	}
	return apiErr
}

func pathID(prefix string, id fmt.Stringer, suffix ...string) string {
	parts := append([]string{prefix, url.PathEscape(id.String())}, suffix...)
	return strings.Join(parts, "/")
}
