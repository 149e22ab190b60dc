// Package cache provides an optional redis-backed HTTP response cache for
// the Substack client. Fresh entries are served without a network call.
package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/substackapi/substack-go/pkg/transport"
)

// DefaultTTL is the fallback freshness window when the response carries no
// usable Expires or Cache-Control header. Substack rarely sends either.
const DefaultTTL = 5 * time.Minute

// Entry represents a cached response.
type Entry struct {
	// Data is the response body.
	Data []byte `json:"data"`

	// StatusCode is the HTTP status code of the cached response.
	StatusCode int `json:"status_code"`

	// Headers are the response headers.
	Headers http.Header `json:"headers"`

	// FinalURL is the post-redirect URL of the cached response.
	FinalURL string `json:"final_url"`

	// Expires is when the entry becomes stale.
	Expires time.Time `json:"expires"`

	// CachedAt is when the response was cached.
	CachedAt time.Time `json:"cached_at"`
}

// NewEntry builds a cache entry from a transport response, deriving the
// freshness window from Cache-Control max-age, then Expires, then DefaultTTL.
func NewEntry(resp *transport.Response) *Entry {
	now := time.Now()
	return &Entry{
		Data:       resp.Body,
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		FinalURL:   resp.FinalURL,
		Expires:    now.Add(freshnessTTL(resp.Header)),
		CachedAt:   now,
	}
}

// ToResponse converts the entry back into a transport response.
func (e *Entry) ToResponse() *transport.Response {
	return &transport.Response{
		StatusCode: e.StatusCode,
		Header:     e.Headers,
		Body:       e.Data,
		FinalURL:   e.FinalURL,
	}
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration, or 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// freshnessTTL derives the cache lifetime from response headers.
func freshnessTTL(headers http.Header) time.Duration {
	if cc := headers.Get("Cache-Control"); cc != "" {
		for _, directive := range strings.Split(cc, ",") {
			directive = strings.TrimSpace(directive)
			if strings.HasPrefix(directive, "max-age=") {
				if seconds, err := strconv.Atoi(directive[len("max-age="):]); err == nil && seconds > 0 {
					return time.Duration(seconds) * time.Second
				}
			}
			if directive == "no-store" || directive == "no-cache" {
				return 0
			}
		}
	}

	if expiresStr := headers.Get("Expires"); expiresStr != "" {
		if expires, err := http.ParseTime(expiresStr); err == nil {
			ttl := time.Until(expires)
			if ttl > 0 {
				return ttl
			}
			return 0
		}
	}

	return DefaultTTL
}
