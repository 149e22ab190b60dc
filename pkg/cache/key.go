package cache

import (
	"net/url"
	"strings"
)

// Key identifies a cached response by its request URL and encoded query.
// The query string is stored as-encoded (insertion order) so the key is
// deterministic for a given logical request.
type Key struct {
	// URL is the request URL without query parameters.
	URL string

	// Query is the encoded query string, possibly empty.
	Query string
}

// String generates a redis key of the form substack:host/path:query.
func (k Key) String() string {
	parts := []string{"substack"}

	target := k.URL
	if u, err := url.Parse(k.URL); err == nil && u.Host != "" {
		target = u.Host + strings.TrimSuffix(u.Path, "/")
	}
	parts = append(parts, target)

	if k.Query != "" {
		parts = append(parts, k.Query)
	}

	return strings.Join(parts, ":")
}
