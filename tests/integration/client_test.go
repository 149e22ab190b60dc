package integration

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/substackapi/substack-go/internal/testutil"
	"github.com/substackapi/substack-go/pkg/cache"
	"github.com/substackapi/substack-go/pkg/client"
	"github.com/substackapi/substack-go/pkg/ratelimit"
	"github.com/substackapi/substack-go/pkg/substack"
	"github.com/substackapi/substack-go/pkg/transport"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	t.Cleanup(func() {
		redisClient.Close()
		container.Terminate(context.Background())
	})

	return redisClient
}

func newClient(t *testing.T, cacheManager *cache.Manager) *client.Client {
	t.Helper()

	c, err := client.New(client.Config{
		Transport: transport.New(transport.Options{Timeout: 10 * time.Second}),
		Cache:     cacheManager,
		Retry: client.RetryConfig{
			MaxRetries:     3,
			InitialBackoff: 20 * time.Millisecond,
			MaxBackoff:     100 * time.Millisecond,
			JitterFactor:   0.1,
		},
	})
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	return c
}

func TestFullArchiveFlow(t *testing.T) {
	redisClient := setupRedis(t)

	mock := testutil.NewMockSubstack()
	defer mock.Close()

	items := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		items = append(items, fmt.Sprintf(
			`{"id": %d, "canonical_url": "%s/p/post-%d"}`, i, mock.URL(), i))
	}
	mock.SetArchiveItems(items)

	c := newClient(t, cache.NewManager(redisClient))
	newsletter := substack.NewNewsletter(c, mock.URL(),
		substack.WithPacer(ratelimit.NewPacer(10*time.Millisecond)))

	posts, err := newsletter.Posts(context.Background(), substack.SortNew, 0)
	if err != nil {
		t.Fatalf("Posts() error = %v", err)
	}
	if len(posts) != 20 {
		t.Fatalf("posts = %d, want 20", len(posts))
	}
	if posts[0].Slug() != "post-0" || posts[19].Slug() != "post-19" {
		t.Errorf("server order lost: first %q last %q", posts[0].Slug(), posts[19].Slug())
	}
}

func TestArchivePagesServedFromCache(t *testing.T) {
	redisClient := setupRedis(t)

	mock := testutil.NewMockSubstack()
	defer mock.Close()

	mock.SetHandler("/api/v1/archive", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "max-age=300")
		fmt.Fprintf(w, `[{"id": 1, "canonical_url": "%s/p/only-post"}]`, mock.URL())
	})

	c := newClient(t, cache.NewManager(redisClient))
	newsletter := substack.NewNewsletter(c, mock.URL(),
		substack.WithPacer(ratelimit.NewPacer(time.Millisecond)))
	ctx := context.Background()

	if _, err := newsletter.Posts(ctx, substack.SortNew, 5); err != nil {
		t.Fatalf("first Posts() error = %v", err)
	}
	first := mock.GetPathCount("/api/v1/archive")

	if _, err := newsletter.Posts(ctx, substack.SortNew, 5); err != nil {
		t.Fatalf("second Posts() error = %v", err)
	}
	if got := mock.GetPathCount("/api/v1/archive"); got != first {
		t.Errorf("archive requests = %d, want %d (second pass cached)", got, first)
	}
}

func TestRetryRecovery(t *testing.T) {
	mock := testutil.NewMockSubstack()
	defer mock.Close()

	var calls atomic.Int32
	mock.SetHandler("/api/v1/posts/flaky", func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id": 1, "title": "Recovered", "audience": "everyone", "body_html": "<p>ok</p>"}`))
		}
	})

	c := newClient(t, nil)
	post, err := substack.NewPost(c, mock.URL()+"/p/flaky")
	if err != nil {
		t.Fatalf("NewPost() error = %v", err)
	}

	meta, err := post.Metadata(context.Background(), false)
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if meta.Title != "Recovered" {
		t.Errorf("Title = %q, want Recovered", meta.Title)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("handler calls = %d, want 3", got)
	}
}

func TestFatalErrorsSurfaceImmediately(t *testing.T) {
	mock := testutil.NewMockSubstack()
	defer mock.Close()

	mock.SetResponse("/api/v1/posts/private", testutil.MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"error": "forbidden"}`,
	})

	c := newClient(t, nil)
	post, err := substack.NewPost(c, mock.URL()+"/p/private")
	if err != nil {
		t.Fatalf("NewPost() error = %v", err)
	}

	_, err = post.Metadata(context.Background(), false)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *client.APIError", err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", apiErr.StatusCode)
	}
	if got := mock.GetRequestCount(); got != 1 {
		t.Errorf("request count = %d, want 1 (no retries on 403)", got)
	}
}

func TestPacerSpacesArchiveRequests(t *testing.T) {
	mock := testutil.NewMockSubstack()
	defer mock.Close()

	items := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		items = append(items, fmt.Sprintf(
			`{"id": %d, "canonical_url": "%s/p/post-%d"}`, i, mock.URL(), i))
	}
	mock.SetArchiveItems(items)

	interval := 80 * time.Millisecond
	c := newClient(t, nil)
	newsletter := substack.NewNewsletter(c, mock.URL(),
		substack.WithPacer(ratelimit.NewPacer(interval)))

	// 30 items at the default page size of 15 means three requests (the
	// last proves the archive is exhausted), so two paced gaps.
	start := time.Now()
	posts, err := newsletter.Posts(context.Background(), substack.SortNew, 0)
	if err != nil {
		t.Fatalf("Posts() error = %v", err)
	}
	if len(posts) != 30 {
		t.Fatalf("posts = %d, want 30", len(posts))
	}
	if elapsed := time.Since(start); elapsed < 2*interval-10*time.Millisecond {
		t.Errorf("collection took %v, want at least %v of pacing", elapsed, 2*interval)
	}
}

func TestExpiredCacheEntriesRefetched(t *testing.T) {
	redisClient := setupRedis(t)

	mock := testutil.NewMockSubstack()
	defer mock.Close()

	mock.SetResponse("/api/v1/categories", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `[{"name": "Technology", "id": 4}]`,
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Cache-Control": "max-age=1",
		},
	})

	c := newClient(t, cache.NewManager(redisClient))
	ctx := context.Background()
	url := mock.URL() + "/api/v1/categories"

	if _, err := c.Get(ctx, url, nil); err != nil {
		t.Fatalf("first Get() error = %v", err)
	}
	if _, err := c.Get(ctx, url, nil); err != nil {
		t.Fatalf("cached Get() error = %v", err)
	}
	if got := mock.GetRequestCount(); got != 1 {
		t.Fatalf("request count = %d, want 1 while fresh", got)
	}

	time.Sleep(1500 * time.Millisecond)

	if _, err := c.Get(ctx, url, nil); err != nil {
		t.Fatalf("Get() after expiry error = %v", err)
	}
	if got := mock.GetRequestCount(); got != 2 {
		t.Errorf("request count = %d, want 2 after expiry", got)
	}
}
