// Package storefront provides the HTTP client for the storefront API. It
// layers session-aware behavior over a plain transport: a logged-out gate,
// single-flight token refresh with a one-shot replay after 401, a shared
// cancellation handle for navigation, and a uniform failure taxonomy.
package storefront

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

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	errs "github.com/ArnaudHalvick/storefront-go/pkg/errors"
	"github.com/ArnaudHalvick/storefront-go/pkg/httpclient"
	"github.com/ArnaudHalvick/storefront-go/pkg/logger"
	"github.com/ArnaudHalvick/storefront-go/pkg/tracing"
	"github.com/ArnaudHalvick/storefront-go/session"
)

// emailNotVerifiedCode is the backend error code signalling that the account
// exists but its email address has not been confirmed.
const emailNotVerifiedCode = "EMAIL_NOT_VERIFIED"

// Doer executes a single HTTP request. *httpclient.Client satisfies it; tests
// substitute their own.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client is the storefront API client. All methods are safe for concurrent
// use. Create one per session; independent clients share nothing.
type Client struct {
	cfg      Config
	baseURL  *url.URL
	http     Doer
	sessions session.Store
	refresh  *refreshCoordinator
	broker   *cancelBroker
	notifier Notifier
	logger   *slog.Logger
	limiter  *rate.Limiter
	tracer   trace.Tracer
}

// Option customizes a Client at construction time.
type Option func(*Client)

// WithDoer replaces the underlying HTTP transport.
func WithDoer(d Doer) Option {
	return func(c *Client) { c.http = d }
}

// WithSessionStore replaces the default in-memory session store.
func WithSessionStore(s session.Store) Option {
	return func(c *Client) { c.sessions = s }
}

// WithNotifier installs a receiver for session signals.
func WithNotifier(n Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a storefront client from cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	c := &Client{
		cfg:      cfg,
		baseURL:  base,
		sessions: session.NewMemoryStore(),
		broker:   newCancelBroker(),
		notifier: NopNotifier{},
		logger:   logger.New("storefront", cfg.LogLevel),
		tracer:   tracing.Tracer("storefront-client"),
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		httpCfg := cfg.HTTP
		if httpCfg.Timeout == 0 {
			httpCfg = httpclient.DefaultConfig()
		}
		if httpCfg.CookieJar == nil {
			jar, jarErr := cookiejar.New(nil)
			if jarErr != nil {
				return nil, fmt.Errorf("create cookie jar: %w", jarErr)
			}
			httpCfg.CookieJar = jar
		}
		hc := httpclient.New(httpCfg)
		if cfg.CircuitBreaker {
			c.http = httpclient.NewCircuitBreakerClient(hc,
				httpclient.DefaultCircuitBreakerConfig("storefront"), c.logger)
		} else {
			c.http = hc
		}
	}

	c.refresh = newRefreshCoordinator(c.performRefresh, c.sessions, c.notifier, c.logger)
	return c, nil
}

// Request describes one API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values

	// Body, when non-nil, is JSON-encoded into the request body.
	Body any
}

// Get issues a GET request and decodes the response body into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Execute(ctx, Request{Method: http.MethodGet, Path: path}, out)
}

// Post issues a POST request with body and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Execute(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put issues a PUT request with body and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Execute(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Delete issues a DELETE request and decodes the response into out.
func (c *Client) Delete(ctx context.Context, path string, query url.Values, out any) error {
	return c.Execute(ctx, Request{Method: http.MethodDelete, Path: path, Query: query}, out)
}

// CancelPendingRequests aborts every in-flight request except those on the
// cancel-exempt auth endpoints. Requests started afterwards are unaffected.
func (c *Client) CancelPendingRequests(reason string) {
	c.broker.CancelAll(reason)
	c.logger.Debug("cancelled pending requests", slog.String("reason", reason))
}

// SessionStore exposes the client's session store.
func (c *Client) SessionStore() session.Store {
	return c.sessions
}

// Execute runs one API call end to end: rate limiting, the logged-out gate,
// proactive refresh, the request itself, and on a 401 a single coordinated
// refresh-and-replay. Errors always belong to the failure taxonomy.
func (c *Client) Execute(ctx context.Context, req Request, out any) error {
	ctx = logger.WithRequestID(ctx, uuid.NewString())

	ctx, span := c.tracer.Start(ctx, "storefront.request",
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.path", req.Path),
		),
	)
	defer span.End()

	if !isCancelExempt(req.Path) {
		linked, unlink := c.broker.link(ctx)
		defer unlink()
		ctx = linked
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	err := c.do(ctx, req, out)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	requestsTotal.WithLabelValues(req.Method, outcomeLabel(err)).Inc()
	return err
}

func (c *Client) do(ctx context.Context, req Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if cause := context.Cause(ctx); cause != nil {
				return errs.Classify(cause)
			}
			// The limiter determined the wait would outlive the
			// request deadline.
			return errs.Timeout()
		}
	}

	public := isPublicPath(req.Path)
	isRefresh := strings.Contains(req.Path, RefreshTokenPath)

	if !public && !isRefresh {
		loggedOut, err := c.sessions.LoggedOut(ctx)
		if err != nil {
			return fmt.Errorf("read session state: %w", err)
		}
		if loggedOut {
			return errs.LoggedOut()
		}
	}

	token, err := c.sessions.Token(ctx)
	if err != nil {
		return fmt.Errorf("read session token: %w", err)
	}

	// Proactive refresh: renew a token that is about to expire before
	// spending a round trip on a guaranteed 401.
	if !public && !isRefresh && token != "" && c.cfg.RefreshSkew > 0 &&
		session.ExpiresWithin(token, c.cfg.RefreshSkew) {
		token, err = c.refresh.Await(ctx)
		if err != nil {
			return err
		}
	}

	err = c.send(ctx, req, token, out)
	if err == nil {
		return nil
	}
	err = errs.Classify(err)

	// A 401 on an authenticated endpoint triggers exactly one coordinated
	// refresh and replay. The refresh endpoint itself, public endpoints
	// and already-replayed requests fall through to the caller.
	if !errs.IsAuthFailure(err) || isRefresh || public ||
		errors.Is(err, errs.ErrSessionExpired) || errors.Is(err, errs.ErrLoggedOut) {
		return err
	}

	log := logger.WithContext(ctx, c.logger)
	log.DebugContext(ctx, "auth failure, joining token refresh",
		slog.String("path", req.Path),
	)

	token, refreshErr := c.refresh.Await(ctx)
	if refreshErr != nil {
		return refreshErr
	}

	replayErr := c.send(ctx, req, token, out)
	if replayErr == nil {
		return nil
	}
	return errs.Classify(replayErr)
}

// send performs one HTTP round trip and decodes the response.
func (c *Client) send(ctx context.Context, req Request, token string, out any) error {
	httpReq, err := c.newHTTPRequest(ctx, req, token)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(ctx, httpReq)
	if err != nil {
		// Prefer the broker's typed cancellation cause over the bare
		// context error the transport reports.
		if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
			return errs.Classify(cause)
		}
		if errors.Is(err, httpclient.ErrCircuitOpen) {
			return errs.Network(err)
		}
		return errs.Classify(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := errs.FromResponse(resp)
		if apiErr.Code == emailNotVerifiedCode {
			c.notifier.EmailVerificationRequired(apiErr.Message)
		}
		return apiErr
	}

	defer func() { _ = resp.Body.Close() }()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// newHTTPRequest builds the outgoing request. Bodies are buffered so the
// transport can replay them across retries.
func (c *Client) newHTTPRequest(ctx context.Context, req Request, token string) (*http.Request, error) {
	u := c.resolve(req.Path)
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var body io.Reader = http.NoBody
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", req.Method, err)
	}
	if bodyBytes != nil {
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(bodyBytes)), nil
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if id := logger.RequestIDFromContext(ctx); id != "" {
		httpReq.Header.Set("X-Request-ID", id)
	}
	if token != "" {
		httpReq.Header.Set(c.cfg.TokenHeader, token)
	}
	return httpReq, nil
}

// resolve joins a request path onto the configured base URL, preserving any
// path prefix the base carries (e.g. "/api").
func (c *Client) resolve(path string) *url.URL {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	return &u
}

// refreshResponse is the wire shape of a refresh-token exchange.
type refreshResponse struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"accessToken"`
}

// performRefresh exchanges the refresh credential for a new access token.
// The refresh credential travels as a cookie held by the transport's jar,
// not as a bearer header, so no token is attached here.
func (c *Client) performRefresh(ctx context.Context) (string, error) {
	u := c.resolve(RefreshTokenPath)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create refresh request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	resp, err := c.http.Do(ctx, httpReq)
	if err != nil {
		return "", errs.Classify(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errs.FromResponse(resp)
	}
	defer func() { _ = resp.Body.Close() }()

	var out refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode refresh response: %w", err)
	}
	if !out.Success || out.AccessToken == "" {
		return "", fmt.Errorf("refresh response carried no access token")
	}
	return out.AccessToken, nil
}

// outcomeLabel maps an error to the metrics outcome label.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, errs.ErrCancelled):
		return "cancelled"
	case errors.Is(err, errs.ErrTimeout):
		return "timeout"
	case errors.Is(err, errs.ErrNetwork):
		return "network"
	case errors.Is(err, errs.ErrSessionExpired), errors.Is(err, errs.ErrLoggedOut):
		return "auth"
	case errors.Is(err, errs.ErrValidation):
		return "validation"
	case errors.Is(err, errs.ErrServer):
		return "server"
	default:
		return "error"
	}
}
