// Package http provides the HTTP transport used by the API probe.
package http

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/PentesterFlow/APIProbe/internal/errors"
	"github.com/PentesterFlow/APIProbe/internal/logger"
)

// maxBodySize caps how much of a response body is kept. Longer bodies are
// cut and flagged with Response.Truncated.
const maxBodySize = 5 * 1024 * 1024

// Transport is the narrow surface the probe needs from HTTP.
type Transport interface {
	// Post submits a form-encoded body to path.
	Post(ctx context.Context, path string, form url.Values) (*Response, error)

	// Get issues a GET to path with extra headers and query parameters.
	Get(ctx context.Context, path string, headers map[string]string, params url.Values) (*Response, error)
}

// Response is the captured reply to one request, uninterpreted.
type Response struct {
	URL         string            `json:"url"`
	StatusCode  int               `json:"status_code"`
	Header      map[string]string `json:"headers"`
	ContentType string            `json:"content_type"`
	Body        []byte            `json:"-"`
	Truncated   bool              `json:"truncated,omitempty"`
	Duration    time.Duration     `json:"duration"`
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// HeaderKeys returns the header names in sorted order.
func (r *Response) HeaderKeys() []string {
	keys := make([]string, 0, len(r.Header))
	for k := range r.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ClientConfig holds configuration for the HTTP client.
type ClientConfig struct {
	BaseURL       string
	Timeout       time.Duration
	UserAgent     string
	Headers       map[string]string
	SkipTLSVerify bool
}

// DefaultClientConfig returns defaults suited to a single interactive run.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:   30 * time.Second,
		UserAgent: "APIProbe/1.0",
	}
}

// Client is the net/http backed Transport.
type Client struct {
	client    *http.Client
	baseURL   string
	userAgent string
	headers   map[string]string
	logger    *logger.Logger
}

// NewClient creates a new HTTP client rooted at config.BaseURL.
func NewClient(config ClientConfig, log *logger.Logger) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.SkipTLSVerify,
		},
	}

	// Login endpoints may also set a session cookie; keep it for later steps.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
			Jar:       jar,
		},
		baseURL:   strings.TrimRight(config.BaseURL, "/"),
		userAgent: config.UserAgent,
		headers:   config.Headers,
		logger:    log.WithComponent("http"),
	}
}

// Post submits form as application/x-www-form-urlencoded.
func (c *Client) Post(ctx context.Context, path string, form url.Values) (*Response, error) {
	target := c.resolve(path, nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.NewProbeError(errors.Config, target, "request_creation", "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	return c.do(req)
}

// Get issues a GET with the given headers and query parameters.
func (c *Client) Get(ctx context.Context, path string, headers map[string]string, params url.Values) (*Response, error) {
	target := c.resolve(path, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.NewProbeError(errors.Config, target, "request_creation", "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return c.do(req)
}

// do sends req and captures status, headers and body without interpreting them.
func (c *Client) do(req *http.Request) (*Response, error) {
	target := req.URL.String()
	start := time.Now()

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range c.headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		probeErr := errors.Categorize(err, target)
		c.logger.ErrorEvent(probeErr, target, req.Method)
		return nil, probeErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, errors.NewNetworkError(target, "body_read", err)
	}
	truncated := len(body) > maxBodySize
	if truncated {
		body = body[:maxBodySize]
		c.logger.WithField("url", target).
			WithField("limit", maxBodySize).
			Warn("Response body truncated")
	}

	result := &Response{
		URL:         target,
		StatusCode:  resp.StatusCode,
		Header:      flattenHeader(resp.Header),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Truncated:   truncated,
		Duration:    time.Since(start),
	}

	c.logger.RequestEvent(req.Method, target, result.StatusCode, result.Duration)
	return result, nil
}

// resolve joins path onto the base URL and appends params.
func (c *Client) resolve(path string, params url.Values) string {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(path, "/")
	}
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + params.Encode()
	}
	return target
}

// flattenHeader joins multi-valued headers with ", ".
func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}

// Close releases idle connections.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}
