package adviceslip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Fetcher defines the two advice lookups. It is implemented by *Client and
// can be faked in tests.
type Fetcher interface {
	FetchRandom(ctx context.Context) (Advice, error)
	FetchByID(ctx context.Context, id int) (Advice, error)
}

// Ensure Client implements Fetcher at compile time.
var _ Fetcher = (*Client)(nil)

// Client talks to the advice slip HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	limiter   *Limiter
	timeout   time.Duration
	userAgent string
}

const (
	DefaultBaseURL   = "https://api.adviceslip.com"
	DefaultTimeout   = 5 * time.Second
	defaultUserAgent = "slip/0.1"
	maxBodyBytes     = 64 * 1024
)

// Option customizes a Client.
type Option func(*Client)

// WithTimeout bounds each request, including the body read.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLimiter replaces the default request limiter.
func WithLimiter(l *Limiter) Option {
	return func(c *Client) {
		if l != nil {
			c.limiter = l
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds a Client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{},
		limiter:   NewLimiter(DefaultMinInterval),
		timeout:   DefaultTimeout,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchRandom retrieves a random advice.
func (c *Client) FetchRandom(ctx context.Context) (Advice, error) {
	if c == nil {
		return Advice{}, fmt.Errorf("client is nil")
	}
	return c.fetch(ctx, "/advice")
}

// FetchByID retrieves the advice with the given id.
func (c *Client) FetchByID(ctx context.Context, id int) (Advice, error) {
	if c == nil {
		return Advice{}, fmt.Errorf("client is nil")
	}
	if id < 0 {
		return Advice{}, &Error{Kind: KindNotFound, Op: "/advice/" + strconv.Itoa(id), Err: errors.New("negative id")}
	}
	return c.fetch(ctx, "/advice/"+strconv.Itoa(id))
}

func (c *Client) fetch(ctx context.Context, path string) (Advice, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		if ctx.Err() != nil {
			return Advice{}, ctx.Err()
		}
		return Advice{}, &Error{Kind: KindTimeout, Op: path, Err: err}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqURL := *c.baseURL
	reqURL.Path = c.baseURL.Path + path
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return Advice{}, &Error{Kind: KindUnexpected, Op: path, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return Advice{}, c.classify(ctx, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Advice{}, &Error{Kind: KindNotFound, Op: path, Status: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return Advice{}, &Error{Kind: KindRateLimited, Op: path, Status: resp.StatusCode}
	case resp.StatusCode >= 400:
		return Advice{}, &Error{Kind: KindUnexpected, Op: path, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Advice{}, c.classify(ctx, path, err)
	}
	return decodeAdvice(path, body)
}

// classify maps transport level failures onto the error taxonomy. Caller
// cancellation is passed through untouched.
func (c *Client) classify(ctx context.Context, path string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Op: path, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Op: path, Err: err}
	}
	return &Error{Kind: KindTransport, Op: path, Err: err}
}

func decodeAdvice(path string, body []byte) (Advice, error) {
	var payload SlipResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return Advice{}, &Error{Kind: KindUnexpected, Op: path, Err: fmt.Errorf("decode response: %w", err)}
	}
	if payload.Slip == nil {
		if payload.Message != nil && strings.HasPrefix(path, "/advice/") {
			return Advice{}, &Error{Kind: KindNotFound, Op: path, Err: errors.New(payload.Message.Text)}
		}
		return Advice{}, &Error{Kind: KindUnexpected, Op: path, Err: errors.New("response has no slip")}
	}
	advice := payload.Slip.ToAdvice()
	if !advice.Valid() {
		return Advice{}, &Error{Kind: KindUnexpected, Op: path, Err: fmt.Errorf("invalid advice %+v", advice)}
	}
	return advice, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api url %q: missing host", raw)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
