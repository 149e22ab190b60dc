// Package transport implements the HTTP collaborator boundary for the
// Substack client: a single GET primitive that returns the response body,
// headers, and the post-redirect final URL.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultUserAgent is the browser User-Agent sent with every request.
// Substack serves different payloads to unknown agents, so this mimics a
// desktop Chrome build.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.77 Safari/537.36"

// DefaultTimeout is the per-request timeout.
const DefaultTimeout = 30 * time.Second

// maxRedirects bounds redirect following on probe requests.
const maxRedirects = 10

// Param is a single query parameter. Parameters are encoded in the order
// given, which the archive endpoints require (sort, search/type, offset,
// limit). url.Values cannot be used here because it sorts keys on encode.
type Param struct {
	Key   string
	Value string
}

// EncodeParams builds a query string preserving parameter order.
func EncodeParams(params []Param) string {
	if len(params) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// Response is the outcome of a successful transport-level GET. A non-2xx
// status is still a Response; only network failures return errors.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Header holds the response headers.
	Header http.Header

	// Body is the raw response body.
	Body []byte

	// FinalURL is the URL after all redirects were followed. Identity
	// resolution depends on this being distinct from the requested URL.
	FinalURL string
}

// JSON decodes the response body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// RetryAfter returns the server-directed delay from the Retry-After header,
// if present and numeric (seconds).
func (r *Response) RetryAfter() (time.Duration, bool) {
	value := r.Header.Get("Retry-After")
	if value == "" {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}

// Client performs HTTP GETs on behalf of the resilient request layer.
type Client struct {
	http *resty.Client
	auth *Auth
}

// Options configures a transport client.
type Options struct {
	// UserAgent overrides DefaultUserAgent when non-empty.
	UserAgent string

	// Timeout overrides DefaultTimeout when positive.
	Timeout time.Duration

	// Auth attaches session cookies to every request. Nil means
	// anonymous access.
	Auth *Auth
}

// New creates a transport client.
func New(opts Options) *Client {
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := resty.New()
	httpClient.SetTimeout(timeout)
	httpClient.SetHeader("User-Agent", userAgent)
	httpClient.SetHeader("Accept", "application/json")
	httpClient.SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects))

	if opts.Auth != nil && opts.Auth.jar != nil {
		httpClient.SetCookieJar(opts.Auth.jar)
	}

	return &Client{
		http: httpClient,
		auth: opts.Auth,
	}
}

// Authenticated reports whether session credentials are attached.
func (c *Client) Authenticated() bool {
	return c.auth != nil && c.auth.Authenticated()
}

// Get performs a single GET against rawURL with the given ordered query
// parameters, following redirects. Network and transport failures return an
// error; every HTTP status is returned as a Response.
func (c *Client) Get(ctx context.Context, rawURL string, params []Param) (*Response, error) {
	target := rawURL
	if qs := EncodeParams(params); qs != "" {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		target = rawURL + sep + qs
	}

	resp, err := c.http.R().SetContext(ctx).Get(target)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}

	finalURL := target
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		finalURL = raw.Request.URL.String()
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
		FinalURL:   finalURL,
	}, nil
}
