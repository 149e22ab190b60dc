package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"

	"github.com/rs/zerolog/log"
)

// sessionCookie is the on-disk representation of one exported browser cookie.
type sessionCookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
	Secure bool   `json:"secure"`
}

// Auth holds session credentials as an opaque cookie jar. Its only job is to
// attach cookies to requests; the resilient request layer never inspects it.
type Auth struct {
	jar           http.CookieJar
	authenticated bool
}

// NewAuth creates an authentication context from a JSON cookie file
// (an array of {name, value, domain, path, secure} objects, the format
// browser cookie exporters produce). A missing or unreadable file yields an
// anonymous context rather than an error.
func NewAuth(cookiesPath string) (*Auth, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	a := &Auth{jar: jar}
	if cookiesPath == "" {
		return a, nil
	}

	a.authenticated = a.loadCookies(cookiesPath)
	return a, nil
}

// Authenticated reports whether cookies were loaded successfully.
func (a *Auth) Authenticated() bool {
	return a != nil && a.authenticated
}

// loadCookies reads the cookie file into the jar. Returns false on any
// failure, leaving the jar empty.
func (a *Auth) loadCookies(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to read cookie file")
		return false
	}

	var cookies []sessionCookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to parse cookie file")
		return false
	}

	byDomain := make(map[string][]*http.Cookie)
	for _, c := range cookies {
		domain := c.Domain
		if domain == "" {
			continue
		}
		cookiePath := c.Path
		if cookiePath == "" {
			cookiePath = "/"
		}
		byDomain[domain] = append(byDomain[domain], &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: domain,
			Path:   cookiePath,
			Secure: c.Secure,
		})
	}

	for domain, domainCookies := range byDomain {
		host := domain
		if host[0] == '.' {
			host = host[1:]
		}
		u := &url.URL{Scheme: "https", Host: host, Path: "/"}
		a.jar.SetCookies(u, domainCookies)
	}

	return len(byDomain) > 0
}
