// Package rest is the HTTP transport shared by the vendor API clients.
// It authenticates, rate limits and encodes requests, and hands non-2xx
// responses back to the caller instead of failing on them.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/deskops/internal/credentials"
)

// ErrDryRun is returned for mutating requests while dry-run is enabled.
var ErrDryRun = errors.New("API commands are disabled in dry-run mode")

// DefaultTimeout applies when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Config configures a Client.
type Config struct {
	BaseURL      string
	Credential   credentials.Credential
	Timeout      time.Duration
	RateLimitRPS float64
	DryRun       bool
	Debug        bool
}

// Client performs authenticated JSON requests against one API root.
// Requests are never retried.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	cfg     Config
}

// NewClient creates a new Client
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 5.0
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	switch cfg.Credential.Scheme {
	case credentials.SchemeBearer:
		httpClient.SetAuthToken(cfg.Credential.Token)
	default:
		httpClient.SetBasicAuth(cfg.Credential.Token, cfg.Credential.Account)
	}

	burst := int(cfg.RateLimitRPS)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst),
		cfg:     cfg,
	}
}

// DryRun reports whether mutating requests are suppressed.
func (c *Client) DryRun() bool {
	return c.cfg.DryRun
}

// Request performs method on resource (relative to the base URL, or absolute).
// POST and PUT require a payload that encodes to JSON.
func (c *Client) Request(ctx context.Context, method, resource string, payload any) (*Response, error) {
	return c.RequestWithQuery(ctx, method, resource, nil, payload)
}

// RequestWithQuery is Request with query parameters.
func (c *Client) RequestWithQuery(ctx context.Context, method, resource string, query map[string]string, payload any) (*Response, error) {
	method = strings.ToUpper(method)

	var body []byte
	if method == http.MethodPost || method == http.MethodPut {
		if payload == nil {
			return nil, fmt.Errorf("payload must be provided for %s %s", method, resource)
		}
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("payload for %s %s is not valid JSON: %w", method, resource, err)
		}
	}

	if c.cfg.DryRun && isMutating(method) {
		return nil, fmt.Errorf("%w: %s %s", ErrDryRun, method, resource)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := c.http.R().SetContext(ctx)
	if query != nil {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, resource)
	if err != nil {
		c.debugRequest(method, resource, body, nil)
		return nil, fmt.Errorf("%s %s: %w", method, resource, err)
	}

	out := &Response{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Body:       resp.Body(),
	}
	if !out.OK() {
		c.debugRequest(method, resource, body, out)
	}

	log.Debug().
		Str("method", method).
		Str("resource", resource).
		Int("status", out.StatusCode).
		Msg("API request")

	return out, nil
}

// debugRequest dumps request and response details in debug mode.
func (c *Client) debugRequest(method, resource string, body []byte, resp *Response) {
	if !c.cfg.Debug {
		return
	}
	event := log.Debug().
		Str("method", method).
		Str("endpoint", c.cfg.BaseURL).
		Str("resource", resource).
		Str("auth", c.cfg.Credential.Masked())
	if body != nil {
		event = event.RawJSON("payload", body)
	}
	if resp != nil {
		event = event.Int("status", resp.StatusCode).Str("response", string(resp.Body))
	}
	event.Msg("Request failed, details follow")
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
