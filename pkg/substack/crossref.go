package substack

import (
	"context"
	"net/url"
	"strings"

	"github.com/substackapi/substack-go/pkg/transport"
)

// searchEndpoint is the platform-global publication discovery endpoint.
func searchEndpoint() string {
	return baseURL + "/api/v1/publication/search"
}

// publicationCandidate is one discovery search result.
type publicationCandidate struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Subdomain    string `json:"subdomain"`
	CustomDomain string `json:"custom_domain"`
}

// PublicationID resolves the newsletter's numeric publication id, which
// dependent queries (recommendations) require.
//
// The discovery search is tried first; when it yields no match or fails,
// one archive item is fetched and the id is read from its metadata. When
// neither works the result is (0, nil): a missing cross-reference is an
// absence, not an error. The resolved id is cached on the newsletter.
func (n *Newsletter) PublicationID(ctx context.Context) (int64, error) {
	if n.pubID != 0 {
		return n.pubID, nil
	}

	if id, ok := n.searchPublicationID(ctx); ok {
		n.pubID = id
		return id, nil
	}

	id, err := n.archivePublicationID(ctx)
	if err != nil {
		n.logger.Warn().Err(err).Str("url", n.url).Msg("Publication id fallback lookup failed")
		return 0, nil
	}

	n.pubID = id
	return id, nil
}

// hostToken returns the newsletter's host name with any port stripped, the
// token the discovery search expects.
func (n *Newsletter) hostToken() string {
	parsed, err := url.Parse(n.url)
	if err != nil || parsed.Hostname() == "" {
		return n.url
	}
	return parsed.Hostname()
}

// searchPublicationID queries the discovery endpoint and picks the best
// candidate: exact custom-domain match first, then exact platform-subdomain
// match, then a case-insensitive subdomain match for hosts already on the
// platform's domain.
func (n *Newsletter) searchPublicationID(ctx context.Context) (int64, bool) {
	host := n.hostToken()

	params := []transport.Param{
		{Key: "query", Value: host},
		{Key: "page", Value: "0"},
		{Key: "limit", Value: "25"},
		{Key: "sort", Value: "relevance"},
		{Key: "explain", Value: "false"},
	}

	var result struct {
		Results []publicationCandidate `json:"results"`
	}
	if err := n.client.GetJSON(ctx, searchEndpoint(), params, &result); err != nil {
		n.logger.Debug().Err(err).Str("host", host).Msg("Discovery search failed")
		return 0, false
	}

	for _, c := range result.Results {
		if c.CustomDomain != "" && c.CustomDomain == host {
			return c.ID, true
		}
	}

	for _, c := range result.Results {
		if c.Subdomain != "" && c.Subdomain+"."+platformDomain == host {
			return c.ID, true
		}
	}

	if strings.HasSuffix(strings.ToLower(host), "."+platformDomain) {
		for _, c := range result.Results {
			if c.Subdomain != "" && strings.EqualFold(c.Subdomain+"."+platformDomain, host) {
				return c.ID, true
			}
		}
	}

	return 0, false
}

// archivePublicationID reads the publication id off the newsletter's most
// recent post.
func (n *Newsletter) archivePublicationID(ctx context.Context) (int64, error) {
	posts, err := n.Posts(ctx, SortNew, 1)
	if err != nil {
		return 0, err
	}
	if len(posts) == 0 {
		return 0, nil
	}

	meta, err := posts[0].Metadata(ctx, false)
	if err != nil {
		return 0, err
	}
	return meta.PublicationID, nil
}
