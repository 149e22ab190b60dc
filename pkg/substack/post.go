package substack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/substackapi/substack-go/pkg/client"
	"github.com/substackapi/substack-go/pkg/logging"
)

// audienceOnlyPaid marks posts restricted to paying subscribers.
const audienceOnlyPaid = "only_paid"

// PostMetadata is the subset of post metadata the library exposes as typed
// fields. RawData returns everything else.
type PostMetadata struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Subtitle      string `json:"subtitle"`
	Slug          string `json:"slug"`
	Audience      string `json:"audience"`
	BodyHTML      string `json:"body_html"`
	PublicationID int64  `json:"publication_id"`
	CanonicalURL  string `json:"canonical_url"`
	PostDate      string `json:"post_date"`
	CommentsCount int    `json:"comments_count"`
}

// Post is a single publication post addressed by its canonical URL. The
// slug is the last path segment, and the metadata endpoint derives from it.
type Post struct {
	client *client.Client

	url      string
	baseURL  string
	slug     string
	endpoint string

	data   cell
	logger zerolog.Logger
}

// NewPost creates a post reference from its canonical URL.
func NewPost(c *client.Client, rawURL string) (*Post, error) {
	normalized := normalizeURL(rawURL)
	parsed, err := url.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("parse post url %q: %w", rawURL, err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("parse post url %q: missing host", rawURL)
	}

	base := parsed.Scheme + "://" + parsed.Host

	var slug string
	if segments := strings.Split(strings.Trim(parsed.Path, "/"), "/"); len(segments) > 0 {
		slug = segments[len(segments)-1]
	}
	if slug == "" {
		return nil, fmt.Errorf("parse post url %q: no slug in path", rawURL)
	}

	return &Post{
		client:   c,
		url:      normalized,
		baseURL:  base,
		slug:     slug,
		endpoint: base + "/api/v1/posts/" + slug,
		logger:   logging.NewLogger("post"),
	}, nil
}

// URL returns the post's canonical URL.
func (p *Post) URL() string {
	return p.url
}

// Slug returns the slug derived from the URL.
func (p *Post) Slug() string {
	return p.slug
}

// String implements fmt.Stringer.
func (p *Post) String() string {
	return "Post: " + p.url
}

func (p *Post) fetchPostData(ctx context.Context, force bool) (json.RawMessage, error) {
	return p.data.fetch(ctx, force, func(ctx context.Context) (json.RawMessage, error) {
		resp, err := p.client.Get(ctx, p.endpoint, nil)
		if err != nil {
			return nil, err
		}
		return resp.Body, nil
	})
}

// RawData returns the complete post payload.
func (p *Post) RawData(ctx context.Context, forceRefresh bool) (json.RawMessage, error) {
	return p.fetchPostData(ctx, forceRefresh)
}

// Metadata returns the post's metadata.
func (p *Post) Metadata(ctx context.Context, forceRefresh bool) (*PostMetadata, error) {
	raw, err := p.fetchPostData(ctx, forceRefresh)
	if err != nil {
		return nil, err
	}
	var meta PostMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("decode post metadata: %w", err)
	}
	return &meta, nil
}

// Content returns the HTML content of the post. Paywalled posts fetched
// without credentials come back empty; that is logged, not an error.
func (p *Post) Content(ctx context.Context, forceRefresh bool) (string, error) {
	meta, err := p.Metadata(ctx, forceRefresh)
	if err != nil {
		return "", err
	}

	if meta.BodyHTML == "" && meta.Audience == audienceOnlyPaid && !p.client.Transport().Authenticated() {
		p.logger.Warn().
			Str("slug", p.slug).
			Msg("Post is paywalled, provide authentication to access full content")
	}

	return meta.BodyHTML, nil
}

// IsPaywalled reports whether the post is restricted to paying subscribers.
func (p *Post) IsPaywalled(ctx context.Context) (bool, error) {
	meta, err := p.Metadata(ctx, false)
	if err != nil {
		return false, err
	}
	return meta.Audience == audienceOnlyPaid, nil
}
