// Package testutil provides testing utilities for the Substack client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for one mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockSubstack is a configurable mock platform server for testing.
type MockSubstack struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount int
	PathCounts   map[string]int
	LastQuery    string
}

// NewMockSubstack creates a new mock platform server.
func NewMockSubstack() *MockSubstack {
	mock := &MockSubstack{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		PathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.PathCounts[r.URL.Path]++
		mock.LastQuery = r.URL.RawQuery
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockSubstack) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockSubstack) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockSubstack) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.PathCounts = make(map[string]int)
	m.LastQuery = ""
}

// SetHandler sets a custom handler for a specific path.
func (m *MockSubstack) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockSubstack) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetJSONResponse configures a 200 response with a JSON body for a path.
func (m *MockSubstack) SetJSONResponse(path string, body string) {
	m.SetResponse(path, MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	})
}

// SetArchiveItems serves an offset/limit sliced archive of items under the
// given base path's /api/v1/archive endpoint.
func (m *MockSubstack) SetArchiveItems(items []string) {
	m.SetHandler("/api/v1/archive", func(w http.ResponseWriter, r *http.Request) {
		offset := queryInt(r, "offset", 0)
		limit := queryInt(r, "limit", len(items))

		end := offset + limit
		if offset > len(items) {
			offset = len(items)
		}
		if end > len(items) {
			end = len(items)
		}

		page := items[offset:end]
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "["+joinItems(page)+"]")
	})
}

// SetRedirectProbe makes /@oldHandle redirect to /@newHandle, which serves
// an empty profile page. This mimics the platform's renamed-handle behavior.
func (m *MockSubstack) SetRedirectProbe(oldHandle, newHandle string) {
	m.SetHandler("/@"+oldHandle, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/@"+newHandle, http.StatusFound)
	})
	if newHandle != oldHandle {
		m.SetResponse("/@"+newHandle, MockResponse{
			StatusCode: http.StatusOK,
			Body:       "<html></html>",
			Headers:    map[string]string{"Content-Type": "text/html"},
		})
	}
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockSubstack) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPathCount returns the number of requests made to one path.
func (m *MockSubstack) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PathCounts[path]
}

// GetLastQuery returns the raw query string of the most recent request.
func (m *MockSubstack) GetLastQuery() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastQuery
}

// defaultHandler provides a default JSON response.
func (m *MockSubstack) defaultHandler(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

// NewJSONResponse creates a standard 200 OK JSON response.
func NewJSONResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewNotFoundResponse creates a 404 response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"error": "not found"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewRateLimitResponse creates a 429 response with an optional Retry-After.
func NewRateLimitResponse(retryAfterSeconds string) MockResponse {
	headers := map[string]string{"Content-Type": "application/json; charset=utf-8"}
	if retryAfterSeconds != "" {
		headers["Retry-After"] = retryAfterSeconds
	}
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "rate limit exceeded"}`,
		Headers:    headers,
	}
}

// NewServerErrorResponse creates a 500 response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// queryInt parses an integer query parameter with a default.
func queryInt(r *http.Request, key string, def int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return def
	}
	var n int
	if err := json.Unmarshal([]byte(value), &n); err != nil {
		return def
	}
	return n
}

// joinItems joins raw JSON items with commas.
func joinItems(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ","
		}
		out += item
	}
	return out
}
