package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	tenantHeader = "X-Database-Name"
	bypassHeader = "Bypass-Tunnel-Reminder"
)

type tenantContextKey struct{}

// WithTenant binds a tenant database name to the context for one request chain.
func WithTenant(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, name)
}

// TenantFromContext extracts the tenant database name, if any.
func TenantFromContext(ctx context.Context) string {
	name, _ := ctx.Value(tenantContextKey{}).(string)
	return name
}

// StatusError conveys a non-2xx upstream response.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP error! status: %d", e.Status)
}

// Client wraps interactions with the remote produce API. Every persistent
// fact (lookups, samples, programs, sales, écarts) lives behind it.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	defaultTenant string
	bypassTunnel  bool
}

// ClientOption customises the Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithDefaultTenant sets the tenant used when none is bound to the context.
func WithDefaultTenant(name string) ClientOption {
	return func(c *Client) { c.defaultTenant = name }
}

// WithBypassTunnel toggles the tunnel-proxy warning bypass header.
func WithBypassTunnel(enabled bool) ClientOption {
	return func(c *Client) { c.bypassTunnel = enabled }
}

// NewClient constructs a new produce API client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		bypassTunnel: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get issues a GET and decodes the JSON body into dest. A 204 or empty body
// leaves dest untouched. Non-2xx responses are decoded as {"message": ...}
// when possible and returned as a StatusError either way.
func (c *Client) get(ctx context.Context, path string, query url.Values, dest interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if tenant := c.resolveTenant(ctx); tenant != "" {
		req.Header.Set(tenantHeader, tenant)
	}
	if c.bypassTunnel {
		req.Header.Set(bypassHeader, "true")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("upstream: read body: %w", err)
	}
	if len(payload) == 0 || dest == nil {
		return nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("upstream: decode %s: %w", path, err)
	}
	return nil
}

// post issues a JSON POST and decodes the response like get does.
func (c *Client) post(ctx context.Context, path string, body interface{}, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("upstream: encode %s: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if tenant := c.resolveTenant(ctx); tenant != "" {
		req.Header.Set(tenantHeader, tenant)
	}
	if c.bypassTunnel {
		req.Header.Set(bypassHeader, "true")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("upstream: read body: %w", err)
	}
	if len(payload) == 0 || dest == nil {
		return nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("upstream: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) resolveTenant(ctx context.Context) string {
	if tenant := TenantFromContext(ctx); tenant != "" {
		return tenant
	}
	return c.defaultTenant
}

func decodeError(resp *http.Response) error {
	statusErr := &StatusError{Status: resp.StatusCode}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if err != nil || len(payload) == 0 {
		return statusErr
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err == nil && body.Message != "" {
		statusErr.Message = body.Message
	}
	return statusErr
}
