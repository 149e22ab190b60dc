package substack

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/substackapi/substack-go/pkg/client"
	"github.com/substackapi/substack-go/pkg/logging"
	"github.com/substackapi/substack-go/pkg/paginate"
	"github.com/substackapi/substack-go/pkg/ratelimit"
	"github.com/substackapi/substack-go/pkg/transport"
)

// platformDomain is the hosted platform's apex domain; publications without
// a custom domain live on subdomains of it.
const platformDomain = "substack.com"

// baseURL is the platform-global API host. Variable so tests can point the
// platform endpoints at a local server.
var baseURL = "https://" + platformDomain

// Post sort orders accepted by the archive endpoint.
const (
	SortNew       = "new"
	SortTop       = "top"
	SortPinned    = "pinned"
	SortCommunity = "community"
)

// Newsletter is a publication addressed by URL. Recommendation listings hand
// back bare domains, so the URL is normalized to carry a scheme.
type Newsletter struct {
	client *client.Client
	url    string
	pacer  *ratelimit.Pacer

	// pubID caches the resolved cross-reference for the entity's lifetime.
	pubID int64

	logger zerolog.Logger
}

// NewsletterOption customizes a Newsletter.
type NewsletterOption func(*Newsletter)

// WithPacer replaces the newsletter's courtesy pacer. Sharing one pacer
// across newsletters holds the interval globally.
func WithPacer(p *ratelimit.Pacer) NewsletterOption {
	return func(n *Newsletter) {
		n.pacer = p
	}
}

// NewNewsletter creates a newsletter reference for the given URL or bare
// domain.
func NewNewsletter(c *client.Client, rawURL string, opts ...NewsletterOption) *Newsletter {
	n := &Newsletter{
		client: c,
		url:    normalizeURL(rawURL),
		pacer:  ratelimit.NewPacer(ratelimit.DefaultInterval),
		logger: logging.NewLogger("newsletter"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// URL returns the newsletter's normalized URL.
func (n *Newsletter) URL() string {
	return n.url
}

// String implements fmt.Stringer.
func (n *Newsletter) String() string {
	return "Newsletter: " + n.url
}

// archiveFetcher returns a page fetcher for the archive endpoint with the
// given fixed parameters. Offset and limit are appended last so the query
// string stays bit-compatible with the platform's own clients.
func (n *Newsletter) archiveFetcher(params []transport.Param) paginate.Fetcher {
	endpoint := n.url + "/api/v1/archive"
	return func(ctx context.Context, offset, limit int) (*paginate.Page, error) {
		page := make([]transport.Param, 0, len(params)+2)
		page = append(page, params...)
		page = append(page,
			transport.Param{Key: "offset", Value: strconv.Itoa(offset)},
			transport.Param{Key: "limit", Value: strconv.Itoa(limit)},
		)

		var items []json.RawMessage
		if err := n.client.GetJSON(ctx, endpoint, page, &items); err != nil {
			return nil, err
		}
		return &paginate.Page{Items: items}, nil
	}
}

// collectPosts drives offset/limit pagination over the archive and wraps
// each item's canonical URL in a Post.
func (n *Newsletter) collectPosts(ctx context.Context, params []transport.Param, limit int) ([]*Post, error) {
	collector := paginate.New(paginate.Config{
		Mode:     paginate.ModeOffset,
		PageSize: paginate.DefaultPageSize,
		Limit:    limit,
		Pacer:    n.pacer,
	}, n.archiveFetcher(params))

	items, err := collector.Collect(ctx)
	if err != nil {
		return nil, err
	}

	posts := make([]*Post, 0, len(items))
	for _, item := range items {
		var record struct {
			CanonicalURL string `json:"canonical_url"`
		}
		if err := json.Unmarshal(item, &record); err != nil || record.CanonicalURL == "" {
			n.logger.Warn().Msg("Archive item missing canonical_url, skipping")
			continue
		}
		post, err := NewPost(n.client, record.CanonicalURL)
		if err != nil {
			n.logger.Warn().Err(err).Str("url", record.CanonicalURL).Msg("Invalid post URL, skipping")
			continue
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// Posts returns the newsletter's posts in the given sort order. A limit of
// 0 collects the full archive.
func (n *Newsletter) Posts(ctx context.Context, sorting string, limit int) ([]*Post, error) {
	if sorting == "" {
		sorting = SortNew
	}
	return n.collectPosts(ctx, []transport.Param{{Key: "sort", Value: sorting}}, limit)
}

// SearchPosts returns posts matching the query.
func (n *Newsletter) SearchPosts(ctx context.Context, query string, limit int) ([]*Post, error) {
	return n.collectPosts(ctx, []transport.Param{
		{Key: "sort", Value: SortNew},
		{Key: "search", Value: query},
	}, limit)
}

// Podcasts returns the newsletter's podcast posts.
func (n *Newsletter) Podcasts(ctx context.Context, limit int) ([]*Post, error) {
	return n.collectPosts(ctx, []transport.Param{
		{Key: "sort", Value: SortNew},
		{Key: "type", Value: "podcast"},
	}, limit)
}

// Authors returns the newsletter's public authors. A newsletter with no
// listed authors yields an empty slice.
func (n *Newsletter) Authors(ctx context.Context) ([]*User, error) {
	var authors []struct {
		Handle string `json:"handle"`
	}
	endpoint := n.url + "/api/v1/publication/users/ranked"
	params := []transport.Param{{Key: "public", Value: "true"}}
	if err := n.client.GetJSON(ctx, endpoint, params, &authors); err != nil {
		return nil, err
	}

	users := make([]*User, 0, len(authors))
	for _, author := range authors {
		if author.Handle == "" {
			continue
		}
		users = append(users, NewUser(n.client, author.Handle))
	}
	return users, nil
}

// Recommendations returns the publications this newsletter recommends.
// A missing cross-reference or a failing recommendations endpoint yields an
// empty slice, never an error: having no recommendations is a normal state.
func (n *Newsletter) Recommendations(ctx context.Context) ([]*Newsletter, error) {
	pubID, err := n.PublicationID(ctx)
	if err != nil {
		return nil, err
	}
	if pubID == 0 {
		n.logger.Debug().Str("url", n.url).Msg("No publication id, returning empty recommendations")
		return []*Newsletter{}, nil
	}

	endpoint := fmt.Sprintf("%s/api/v1/recommendations/from/%d", n.url, pubID)
	var recs []struct {
		RecommendedPublication struct {
			Subdomain    string `json:"subdomain"`
			CustomDomain string `json:"custom_domain"`
		} `json:"recommendedPublication"`
	}
	if err := n.client.GetJSON(ctx, endpoint, nil, &recs); err != nil {
		n.logger.Warn().Err(err).Str("url", n.url).Msg("Recommendations fetch failed, returning empty")
		return []*Newsletter{}, nil
	}

	result := make([]*Newsletter, 0, len(recs))
	for _, rec := range recs {
		pub := rec.RecommendedPublication
		domain := pub.CustomDomain
		if domain == "" {
			if pub.Subdomain == "" {
				continue
			}
			domain = pub.Subdomain + "." + platformDomain
		}
		result = append(result, NewNewsletter(n.client, domain, WithPacer(n.pacer)))
	}
	return result, nil
}

// normalizeURL ensures an addressing key carries a scheme; recommendation
// and category listings hand back bare domains.
func normalizeURL(raw string) string {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "/")
	if strings.Contains(raw, "://") {
		return raw
	}
	return "https://" + raw
}
