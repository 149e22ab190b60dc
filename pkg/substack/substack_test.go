package substack

import (
	"net/url"
	"testing"
	"time"

	"github.com/substackapi/substack-go/internal/testutil"
	"github.com/substackapi/substack-go/pkg/client"
	"github.com/substackapi/substack-go/pkg/ratelimit"
	"github.com/substackapi/substack-go/pkg/transport"
)

// newTestClient builds a client with millisecond backoffs so retry paths
// stay fast under test.
func newTestClient(t *testing.T) *client.Client {
	t.Helper()

	c, err := client.New(client.Config{
		Transport: transport.New(transport.Options{Timeout: 5 * time.Second}),
		Retry: client.RetryConfig{
			MaxRetries:     1,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
			JitterFactor:   0.1,
		},
	})
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	return c
}

// usePlatformMock points the platform-global endpoints at the mock server
// for the duration of the test.
func usePlatformMock(t *testing.T, mock *testutil.MockSubstack) {
	t.Helper()

	prev := baseURL
	baseURL = mock.URL()
	t.Cleanup(func() { baseURL = prev })
}

// fastPacer removes the courtesy delay from paginated tests.
func fastPacer() *ratelimit.Pacer {
	return ratelimit.NewPacer(time.Millisecond)
}

// hostOf extracts the hostname, port excluded, from a server URL.
func hostOf(t *testing.T, rawURL string) string {
	t.Helper()

	parsed, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse %q: %v", rawURL, err)
	}
	return parsed.Hostname()
}
