package supplier

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
	"sync"
	"time"

	"github.com/catalogsync/backend/internal/domain/integration"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	maxResponseSize = 10 * 1024 * 1024
	tracerName      = "github.com/catalogsync/backend/internal/infrastructure/supplier"
)

// delistedPhrases are message fragments the supplier uses for products that no longer exist
var delistedPhrases = []string{"removed", "delisted", "off shelf", "off the shelf", "not exist", "no longer available"}

// Client is the supplier API gateway. It paces requests per the account tier,
// keeps a session token alive and maps wire failures onto integration errors.
type Client struct {
	cfg          Config
	httpClient   *http.Client
	tokens       integration.TokenRepository
	limiter      *rate.Limiter
	loginLimiter *rate.Limiter
	group        singleflight.Group
	tracer       trace.Tracer
	logger       *zap.Logger
	now          func() time.Time
	sleep        func(time.Duration)

	mu    sync.Mutex
	token *integration.AccessToken
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit overrides the tier request rate
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(limit, burst) }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithClock sets the clock used for token expiry
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// withSleep replaces the backoff sleeper in tests
func withSleep(sleep func(time.Duration)) Option {
	return func(c *Client) { c.sleep = sleep }
}

// NewClient builds a supplier client. tokens may be nil, in which case the
// session token lives only in memory.
func NewClient(cfg Config, tokens integration.TokenRepository, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	limits := cfg.Tier.Limits()
	c := &Client{
		cfg:          cfg,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		tokens:       tokens,
		limiter:      rate.NewLimiter(rate.Limit(limits.RequestsPerSecond), 1),
		loginLimiter: rate.NewLimiter(rate.Every(5*time.Minute/time.Duration(limits.LoginsPer5Min)), limits.LoginsPer5Min),
		tracer:       otel.Tracer(tracerName),
		logger:       zap.NewNop(),
		now:          time.Now,
		sleep:        time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("supplier", cfg.SupplierID))
	return c, nil
}

// SupplierID returns the configured supplier identifier
func (c *Client) SupplierID() string { return c.cfg.SupplierID }

// Tier returns the configured account tier
func (c *Client) Tier() integration.Tier { return c.cfg.Tier }

// call performs an authenticated request and decodes data into out.
// A rejected token is dropped and the request retried once with a fresh one.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	err = c.doRequest(ctx, method, path, query, body, token, out)
	if !errors.Is(err, integration.ErrSupplierAuthFailed) {
		return err
	}
	c.invalidateToken(token)
	if token, err = c.accessToken(ctx); err != nil {
		return err
	}
	return c.doRequest(ctx, method, path, query, body, token, out)
}

// doRequest sends one paced request and decodes the response envelope
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body any, token string, out any) error {
	ctx, span := c.tracer.Start(ctx, "supplier "+path, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("supplier.id", c.cfg.SupplierID),
		attribute.String("http.method", method),
	)

	err := c.send(ctx, method, path, query, body, token, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any, token string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", integration.ErrSupplierRateLimited, err)
	}

	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("CJ-Access-Token", token)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrSupplierUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", integration.ErrSupplierUnavailable, err)
	}

	c.logger.Debug("supplier request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", integration.ErrSupplierRateLimited, resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: HTTP %d", integration.ErrSupplierAuthFailed, resp.StatusCode)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: HTTP %d", integration.ErrSupplierUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: HTTP %d", integration.ErrSupplierRequestFailed, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %v", integration.ErrSupplierInvalidResponse, err)
	}
	if err := envelopeError(env); err != nil {
		return err
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %v", integration.ErrSupplierInvalidResponse, err)
	}
	return nil
}

// envelopeError maps a non-success envelope to an integration error
func envelopeError(env envelope) error {
	if env.Code == codeSuccess && env.Result {
		return nil
	}
	switch env.Code {
	case codeInvalidToken, codeTokenExpired:
		return fmt.Errorf("%w: %s", integration.ErrSupplierAuthFailed, env.Message)
	case codeTooMany:
		return fmt.Errorf("%w: %s", integration.ErrSupplierRateLimited, env.Message)
	}
	if isDelisted(env.Message) {
		return fmt.Errorf("%w: %s", integration.ErrProductDelisted, env.Message)
	}
	return fmt.Errorf("%w: code %d: %s", integration.ErrSupplierRequestFailed, env.Code, env.Message)
}

func isDelisted(message string) bool {
	msg := strings.ToLower(message)
	for _, phrase := range delistedPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

var _ integration.SupplierGateway = (*Client)(nil)
