package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goGuard/identity"
)

const (
	LoginPath  = "/auth/login"
	LogoutPath = "/auth/logout"
	MePath     = "/users/me"

	// RequestIDHeader carries a per-request correlation ID.
	RequestIDHeader = "X-Request-ID"

	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

var (
	// ErrUnauthorized is returned when an authenticated call gets 401 or 403.
	ErrUnauthorized = errors.New("identity service rejected session")
	// ErrInvalidCredentials is returned when login is rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTransport covers network failures and 5xx responses.
	ErrTransport = errors.New("identity service unavailable")
	// ErrMalformedResponse is returned for bodies that cannot be decoded.
	ErrMalformedResponse = errors.New("malformed identity service response")
	// ErrUnexpectedStatus is returned for other non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected identity service status")
)

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A client without a jar gets one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOnUnauthorized registers fn to run whenever an authenticated call is rejected.
func WithOnUnauthorized(fn func(ctx context.Context)) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// Client is safe for concurrent use.
type Client struct {
	base           *url.URL
	http           *http.Client
	timeout        time.Duration
	logger         *slog.Logger
	onUnauthorized func(ctx context.Context)
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse identity base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("identity base url %q must be http or https", baseURL)
	}

	c := &Client{
		base:    base,
		timeout: defaultTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		hc := *c.http
		hc.Jar = jar
		c.http = &hc
	}

	return c, nil
}

// BaseURL returns the service origin. Cookies in Jar are scoped to it.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// Jar returns the cookie jar holding the session cookies.
func (c *Client) Jar() http.CookieJar {
	return c.http.Jar
}

// Login posts credentials. On success the service sets the session cookies.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	body, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPost, LoginPath, body)
	if err != nil {
		return err
	}
	defer drain(resp)

	switch {
	case isSuccess(resp.StatusCode):
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, errorMessage(resp))
	default:
		return statusError(resp)
	}
}

// Logout asks the service to end the session. A rejected session is already logged
// out and is not an error.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, LogoutPath, nil)
	if err != nil {
		return err
	}
	defer drain(resp)

	switch {
	case isSuccess(resp.StatusCode),
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return nil
	default:
		return statusError(resp)
	}
}

// Me fetches the current identity.
func (c *Client) Me(ctx context.Context) (*identity.Identity, error) {
	resp, err := c.do(ctx, http.MethodGet, MePath, nil)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.logger.InfoContext(ctx, "identity service rejected session",
			slog.Int("status", resp.StatusCode),
			slog.String("request_id", resp.Request.Header.Get(RequestIDHeader)),
		)
		if c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var id identity.Identity
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&id); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if id.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrMalformedResponse)
	}
	if id.Roles == nil {
		id.Roles = []string{}
	}
	return &id, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), reader)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		c.logger.WarnContext(ctx, "identity service request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("request_id", requestID),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	c.logger.DebugContext(ctx, "identity service request",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("request_id", requestID),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	_ = resp.Body.Close()
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

func statusError(resp *http.Response) error {
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
	}
	return fmt.Errorf("%w: status %d: %s", ErrUnexpectedStatus, resp.StatusCode, errorMessage(resp))
}

// errorMessage extracts {"error": "..."} or {"message": "..."} from an error body.
func errorMessage(resp *http.Response) string {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&envelope); err != nil {
		return http.StatusText(resp.StatusCode)
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	if envelope.Error != "" {
		return envelope.Error
	}
	return http.StatusText(resp.StatusCode)
}
