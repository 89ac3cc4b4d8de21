package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/otcheredev/clinic-console/internal/metrics"
)

// Config configures the clinical API client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the clinical REST API. A Client bound to a token via
// WithToken attaches it as a bearer credential on every request.
type Client struct {
	rest  *resty.Client
	token string
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rest := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "clinic-console")
	return &Client{rest: rest}
}

// WithToken returns a client sharing the transport that authenticates as token.
func (c *Client) WithToken(token string) *Client {
	return &Client{rest: c.rest, token: token}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.rest.R().SetContext(ctx)
	if c.token != "" {
		req.SetAuthToken(c.token)
	}
	return req
}

// send executes req and maps transport failures and non-2xx statuses to errors.
func (c *Client) send(req *resty.Request, method, path string) (*resty.Response, error) {
	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		metrics.ObserveUpstream(method, 0, time.Since(start))
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	metrics.ObserveUpstream(method, resp.StatusCode(), time.Since(start))

	if resp.IsError() {
		return resp, newAPIError(resp.StatusCode(), resp.Body())
	}
	return resp, nil
}

func (c *Client) call(req *resty.Request, method, path string, out any) error {
	resp, err := c.send(req, method, path)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// Ping checks that the API answers at all.
func (c *Client) Ping(ctx context.Context) error {
	return c.call(c.request(ctx), http.MethodGet, "/ping-check", nil)
}

func pathf(format string, ids ...string) string {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = url.PathEscape(id)
	}
	return fmt.Sprintf(format, args...)
}
