// Package vk is a thin client for the VK method API.
package vk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"vkgeo/pkg/config"
	errs "vkgeo/pkg/errors"
	"vkgeo/pkg/logger"
	"vkgeo/pkg/metrics"
	"vkgeo/pkg/ratelimit"
	"vkgeo/pkg/retry"
)

// Client calls VK API methods and decodes the response envelope.
// It is safe for concurrent use; all calls share one rate limiter.
type Client struct {
	httpClient *http.Client
	baseURL    string
	version    string
	token      string
	userAgent  string
	limiter    ratelimit.Limiter
	retry      *retry.Config
	metrics    *metrics.Metrics
	logger     logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLimiter sets the limiter gating every request
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetry sets the retry policy for transient failures
func WithRetry(rc *retry.Config) Option {
	return func(c *Client) { c.retry = rc }
}

// WithMetrics attaches metrics collection
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the given VK settings. Without options it makes
// a single attempt per call and is not rate limited.
func NewClient(cfg config.VKConfig, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		version:    cfg.APIVersion,
		token:      cfg.AccessToken,
		userAgent:  cfg.UserAgent,
		limiter:    ratelimit.Unlimited{},
		retry:      &retry.Config{MaxAttempts: 1},
	}
	if c.baseURL == "" {
		c.baseURL = BaseURL
	}
	if c.version == "" {
		c.version = APIVersion
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.OrDefault(c.logger)
	if c.retry != nil && c.retry.Logger == nil {
		c.retry.Logger = c.logger
	}
	return c
}

// NewClientFromConfig wires rate limiting and retries from the application config
func NewClientFromConfig(cfg *config.Config, m *metrics.Metrics, log logger.Logger) *Client {
	return NewClient(cfg.VK,
		WithLimiter(ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)),
		WithRetry(retry.FromSettings(cfg.Retry, log)),
		WithMetrics(m),
		WithLogger(log),
	)
}

// Call invokes method with params and decodes the "response" member into target.
// API errors come back as *errors.Error with the VK error code; transient ones
// are retried according to the client's retry policy.
func (c *Client) Call(ctx context.Context, method string, params url.Values, target interface{}) error {
	return retry.Do(ctx, func(ctx context.Context) error {
		start := time.Now()
		err := c.call(ctx, method, params, target)
		c.metrics.ObserveAPIRequest(method, err, time.Since(start))
		return err
	}, c.retry)
}

func (c *Client) call(ctx context.Context, method string, params url.Values, target interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	query := url.Values{}
	for key, values := range params {
		query[key] = append([]string(nil), values...)
	}
	if c.token != "" {
		query.Set("access_token", c.token)
	}
	query.Set("v", c.version)

	endpoint := MethodURL(c.baseURL, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
			Method:  method,
		}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.DebugWithFields("calling VK method", map[string]interface{}{
		"method": method,
		"offset": params.Get("offset"),
		"count":  params.Get("count"),
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
			Method:  method,
		}
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(method, resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
			Method:  method,
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return c.parseError(method, body, err)
	}
	if env.Error != nil {
		c.logger.WarnWithFields("VK API error", map[string]interface{}{
			"method": method,
			"code":   env.Error.Code,
			"error":  env.Error.Message,
		})
		return &errs.Error{
			Type:    errs.FromAPICode(env.Error.Code),
			Message: env.Error.Message,
			Code:    env.Error.Code,
			Method:  method,
		}
	}
	if env.Response == nil {
		return &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: "response envelope carries neither response nor error",
			Method:  method,
		}
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(env.Response, target); err != nil {
		return c.parseError(method, env.Response, err)
	}
	return nil
}

func (c *Client) parseError(method string, body []byte, err error) error {
	preview := string(body)
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	c.logger.ErrorWithFields("failed to parse VK response", map[string]interface{}{
		"method":       method,
		"error":        err.Error(),
		"body_preview": preview,
	})
	return &errs.Error{
		Type:    errs.ErrorTypeParsing,
		Message: fmt.Sprintf("failed to parse JSON: %v", err),
		Method:  method,
	}
}

// checkResponseStatus maps non-200 statuses onto typed errors
func (c *Client) checkResponseStatus(method string, resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	errType := errs.ErrorTypeUnknown
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		errType = errs.ErrorTypeRateLimit
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		errType = errs.ErrorTypeAuth
	case resp.StatusCode == http.StatusNotFound:
		errType = errs.ErrorTypeNotFound
	case resp.StatusCode < 400:
		return nil
	case errs.IsRetryableStatusCode(resp.StatusCode):
		errType = errs.ErrorTypeServerError
	}

	c.logger.WarnWithFields("unexpected HTTP status", map[string]interface{}{
		"method": method,
		"status": resp.StatusCode,
	})
	return &errs.Error{
		Type:    errType,
		Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
		Code:    resp.StatusCode,
		Method:  method,
	}
}
