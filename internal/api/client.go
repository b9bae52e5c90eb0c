package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/conorfennell/knolboard/internal/metrics"
)

// TokenStore keeps the bearer token between runs.
type TokenStore interface {
	// Token returns the current token, or "" when there is no usable session.
	Token(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, username, token string) error
	ClearToken(ctx context.Context) error
}

// Config holds the client settings.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second; 0 disables throttling
	Burst     int
	Location  *time.Location
	Logger    *slog.Logger
	Metrics   *metrics.Metrics

	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client talks to the productivity backend. It is the only data-access
// capability the rest of the program uses.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	tokens   TokenStore
	limiter  *rate.Limiter
	loc      *time.Location
	logger   *slog.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate
}

// New creates a Client. tokens may be nil, in which case the token is kept in memory.
func New(cfg Config, tokens TokenStore) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	if tokens == nil {
		tokens = &MemoryTokenStore{}
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:  base,
		http:     httpClient,
		tokens:   tokens,
		limiter:  rate.NewLimiter(limit, burst),
		loc:      loc,
		logger:   logger,
		metrics:  cfg.Metrics,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// Location is the zone naive backend timestamps are interpreted in.
func (c *Client) Location() *time.Location {
	return c.loc
}

// request describes one API call. route is a path template such as
// "/flashcards/cards/{id}/review"; params fill its placeholders in order.
type request struct {
	method string
	route  string
	params []string
	query  url.Values
	body   any
	form   url.Values
}

func expandRoute(route string, params []string) (string, error) {
	var b strings.Builder
	rest := route
	for _, p := range params {
		open := strings.IndexByte(rest, '{')
		end := strings.IndexByte(rest, '}')
		if open < 0 || end < open {
			return "", fmt.Errorf("route %s has fewer placeholders than params", route)
		}
		if p == "" {
			return "", fmt.Errorf("route %s: empty path parameter", route)
		}
		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(p))
		rest = rest[end+1:]
	}
	if strings.IndexByte(rest, '{') >= 0 {
		return "", fmt.Errorf("route %s has unfilled placeholders", route)
	}
	b.WriteString(rest)
	return b.String(), nil
}

// do performs the request and decodes a JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, op string, r request, out any) error {
	if r.body != nil {
		if err := c.validateBody(r.body); err != nil {
			return &Error{Op: op, Kind: ErrValidation, Message: err.Error()}
		}
	}

	path, err := expandRoute(r.route, r.params)
	if err != nil {
		return &Error{Op: op, Kind: ErrValidation, Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Op: op, Kind: ErrNetworkFailure, Err: err}
	}

	req, err := c.newRequest(ctx, r, path)
	if err != nil {
		return &Error{Op: op, Kind: ErrValidation, Err: err}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(r.method, r.route, 0, start)
		c.metrics.ObserveError(r.method, r.route, kindLabel(ErrNetworkFailure))
		c.logger.Debug("request failed", "op", op, "route", r.route, "error", err)
		return &Error{Op: op, Kind: ErrNetworkFailure, Err: err}
	}
	defer resp.Body.Close()
	c.metrics.ObserveRequest(r.method, r.route, resp.StatusCode, start)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveError(r.method, r.route, kindLabel(ErrNetworkFailure))
		return &Error{Op: op, Kind: ErrNetworkFailure, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 400 {
		return c.failure(ctx, op, r, resp.StatusCode, body)
	}

	c.logger.Debug("request complete", "op", op, "route", r.route, "status", resp.StatusCode,
		"request_id", req.Header.Get("X-Request-ID"), "duration", time.Since(start))

	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.metrics.ObserveError(r.method, r.route, kindLabel(ErrServer))
		return &Error{Op: op, Kind: ErrServer, Status: resp.StatusCode, Message: "malformed response", Err: err}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, r request, path string) (*http.Request, error) {
	u := c.baseURL.JoinPath(path)
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case r.form != nil:
		body = strings.NewReader(r.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case r.body != nil:
		payload, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) failure(ctx context.Context, op string, r request, status int, body []byte) error {
	kind := kindForStatus(status)
	c.metrics.ObserveError(r.method, r.route, kindLabel(kind))

	if kind == ErrUnauthenticated {
		// Session expired or revoked: forget the credentials before reporting.
		if err := c.tokens.ClearToken(ctx); err != nil {
			c.logger.Warn("failed to clear session after 401", "error", err)
		}
		c.logger.Info("session rejected by server, credentials cleared", "op", op)
	} else if kind == ErrServer {
		c.logger.Warn("server error", "op", op, "route", r.route, "status", status)
	}

	return &Error{Op: op, Kind: kind, Status: status, Message: errorMessage(body)}
}

func (c *Client) validateBody(body any) error {
	err := c.validate.Struct(body)
	if err == nil {
		return nil
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		// Not a struct (maps, slices): nothing to check.
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
		return errors.New(strings.Join(msgs, "; "))
	}
	return err
}

// MemoryTokenStore keeps the token for the life of the process.
type MemoryTokenStore struct {
	mu       sync.Mutex
	username string
	token    string
}

func (m *MemoryTokenStore) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryTokenStore) SaveToken(ctx context.Context, username, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.username, m.token = username, token
	return nil
}

func (m *MemoryTokenStore) ClearToken(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.username, m.token = "", ""
	return nil
}
