package substack

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/substackapi/substack-go/pkg/client"
	"github.com/substackapi/substack-go/pkg/logging"
	"github.com/substackapi/substack-go/pkg/paginate"
	"github.com/substackapi/substack-go/pkg/transport"
)

// categoriesEndpoint lists every top-level newsletter category.
func categoriesEndpoint() string {
	return baseURL + "/api/v1/categories"
}

// maxListingPages bounds category listing; the endpoint stops returning
// results past page 20.
const maxListingPages = 21

// CategoryInfo is one entry of the category listing.
type CategoryInfo struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

// ListCategories returns the name/id pairs of all newsletter categories.
func ListCategories(ctx context.Context, c *client.Client) ([]CategoryInfo, error) {
	var categories []CategoryInfo
	if err := c.GetJSON(ctx, categoriesEndpoint(), nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// Category is a top-level newsletter category.
type Category struct {
	client *client.Client
	name   string
	id     int

	newsletters cell
	logger      zerolog.Logger
}

// NewCategoryByName creates a category reference, looking up its id from
// the category listing.
func NewCategoryByName(ctx context.Context, c *client.Client, name string) (*Category, error) {
	categories, err := ListCategories(ctx, c)
	if err != nil {
		return nil, err
	}
	for _, info := range categories {
		if info.Name == name {
			return newCategory(c, info), nil
		}
	}
	return nil, fmt.Errorf("category name %q not found", name)
}

// NewCategoryByID creates a category reference, looking up its name from
// the category listing.
func NewCategoryByID(ctx context.Context, c *client.Client, id int) (*Category, error) {
	categories, err := ListCategories(ctx, c)
	if err != nil {
		return nil, err
	}
	for _, info := range categories {
		if info.ID == id {
			return newCategory(c, info), nil
		}
	}
	return nil, fmt.Errorf("category id %d not found", id)
}

func newCategory(c *client.Client, info CategoryInfo) *Category {
	return &Category{
		client: c,
		name:   info.Name,
		id:     info.ID,
		logger: logging.NewLogger("category"),
	}
}

// Name returns the category name.
func (cat *Category) Name() string {
	return cat.name
}

// ID returns the category id.
func (cat *Category) ID() int {
	return cat.id
}

// String implements fmt.Stringer.
func (cat *Category) String() string {
	return fmt.Sprintf("%s (%d)", cat.name, cat.id)
}

// fetchNewslettersData populates the category's newsletter listing, paging
// with the server's "more" flag over the bounded page range.
func (cat *Category) fetchNewslettersData(ctx context.Context, force bool) ([]json.RawMessage, error) {
	raw, err := cat.newsletters.fetch(ctx, force, func(ctx context.Context) (json.RawMessage, error) {
		endpoint := fmt.Sprintf("%s/api/v1/category/public/%d/all", baseURL, cat.id)

		collector := paginate.New(paginate.Config{
			Mode:      paginate.ModeFlagged,
			StartPage: 0,
			EndPage:   maxListingPages,
		}, func(ctx context.Context, page, _ int) (*paginate.Page, error) {
			var resp struct {
				Publications []json.RawMessage `json:"publications"`
				More         bool              `json:"more"`
			}
			params := []transport.Param{{Key: "page", Value: strconv.Itoa(page)}}
			if err := cat.client.GetJSON(ctx, endpoint, params, &resp); err != nil {
				return nil, err
			}
			return &paginate.Page{Items: resp.Publications, More: resp.More}, nil
		})

		items, err := collector.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(items)
	})
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode category listing: %w", err)
	}
	return items, nil
}

// NewsletterMetadata returns the full metadata records of all newsletters
// in this category.
func (cat *Category) NewsletterMetadata(ctx context.Context) ([]json.RawMessage, error) {
	return cat.fetchNewslettersData(ctx, false)
}

// NewsletterURLs returns only the URLs of newsletters in this category.
func (cat *Category) NewsletterURLs(ctx context.Context) ([]string, error) {
	items, err := cat.fetchNewslettersData(ctx, false)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(items))
	for _, item := range items {
		var record struct {
			BaseURL string `json:"base_url"`
		}
		if err := json.Unmarshal(item, &record); err != nil || record.BaseURL == "" {
			cat.logger.Warn().Msg("Category listing item missing base_url, skipping")
			continue
		}
		urls = append(urls, record.BaseURL)
	}
	return urls, nil
}

// Newsletters returns Newsletter references for all newsletters in this
// category.
func (cat *Category) Newsletters(ctx context.Context) ([]*Newsletter, error) {
	urls, err := cat.NewsletterURLs(ctx)
	if err != nil {
		return nil, err
	}

	newsletters := make([]*Newsletter, 0, len(urls))
	for _, u := range urls {
		newsletters = append(newsletters, NewNewsletter(cat.client, u))
	}
	return newsletters, nil
}

// Refresh forces a reload of the category's newsletter listing.
func (cat *Category) Refresh(ctx context.Context) error {
	_, err := cat.fetchNewslettersData(ctx, true)
	return err
}
