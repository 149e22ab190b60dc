package paginate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/substackapi/substack-go/pkg/ratelimit"
)

// Prometheus metrics for collection operations.
var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "substack_pages_fetched_total",
		Help: "Total pages fetched by pagination mode",
	}, []string{"mode"})

	collectionsTruncatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "substack_collections_truncated_total",
		Help: "Total collections ended early by an absorbed fetch failure",
	})
)

// Mode selects the page-advance and termination policy.
type Mode int

const (
	// ModeOffset requests offset = n * PageSize and stops on an empty
	// page, a short page, an absorbed fetch failure, or the item limit.
	ModeOffset Mode = iota

	// ModeWatermark requests an incrementing offset and additionally
	// stops when a page's newest item repeats the previous watermark,
	// guarding against a stalled upstream cursor.
	ModeWatermark

	// ModeFlagged advances a page counter over [StartPage, EndPage) and
	// stops when the server's "more" flag goes false or a page is empty.
	ModeFlagged
)

// String returns the mode name for logs and metrics.
func (m Mode) String() string {
	switch m {
	case ModeOffset:
		return "offset"
	case ModeWatermark:
		return "watermark"
	case ModeFlagged:
		return "flagged"
	default:
		return "unknown"
	}
}

// DefaultPageSize matches the archive endpoint's default batch size.
const DefaultPageSize = 15

// defaultMaxFlaggedPages bounds flagged collection when the caller gives no
// page range, so termination never depends on the server's flag alone.
const defaultMaxFlaggedPages = 100

// Page is one fetched page of items in server order.
type Page struct {
	// Items are the page's records in server-return order.
	Items []json.RawMessage

	// More is the server's continuation flag (ModeFlagged only).
	More bool
}

// Fetcher fetches a single page. The first argument is the item offset in
// ModeOffset and ModeWatermark, and the page number in ModeFlagged; limit is
// the requested page size (0 in ModeFlagged).
type Fetcher func(ctx context.Context, offset, limit int) (*Page, error)

// Config holds collector configuration.
type Config struct {
	// Mode selects the page-advance policy.
	Mode Mode

	// PageSize is the number of items requested per page.
	PageSize int

	// Limit caps the total number of items returned; 0 means unbounded.
	Limit int

	// StartPage and EndPage restrict ModeFlagged collection to
	// [StartPage, EndPage).
	StartPage int
	EndPage   int

	// Watermark extracts a stable identifier from an item
	// (ModeWatermark). Nil uses the top-level "id" field.
	Watermark func(item json.RawMessage) (string, bool)

	// Pacer applies the courtesy delay before every request after the
	// first. Nil disables pacing.
	Pacer *ratelimit.Pacer
}

// Collector drives a Fetcher across successive pages, assembling items in
// server order. Cursor state is local to each Collect call, so a Collector
// is restartable and safe to reuse.
type Collector struct {
	cfg    Config
	fetch  Fetcher
	logger zerolog.Logger
}

// New creates a collector. Zero config fields get defaults.
func New(cfg Config, fetch Fetcher) *Collector {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Watermark == nil {
		cfg.Watermark = itemID
	}
	if cfg.Mode == ModeFlagged && cfg.EndPage <= cfg.StartPage {
		cfg.EndPage = cfg.StartPage + defaultMaxFlaggedPages
	}

	return &Collector{
		cfg:    cfg,
		fetch:  fetch,
		logger: log.With().Str("component", "collector").Str("mode", cfg.Mode.String()).Logger(),
	}
}

// Collect fetches pages until a termination condition holds and returns the
// concatenated items in server order.
//
// Failure policy: in ModeOffset a fetch failure ends the stream silently
// (the items so far are returned); in ModeWatermark and ModeFlagged it
// propagates, matching the archive and category endpoints respectively.
func (c *Collector) Collect(ctx context.Context) ([]json.RawMessage, error) {
	switch c.cfg.Mode {
	case ModeOffset:
		return c.collectOffset(ctx)
	case ModeWatermark:
		return c.collectWatermark(ctx)
	case ModeFlagged:
		return c.collectFlagged(ctx)
	default:
		return nil, fmt.Errorf("unknown pagination mode %d", c.cfg.Mode)
	}
}

func (c *Collector) collectOffset(ctx context.Context) ([]json.RawMessage, error) {
	items := make([]json.RawMessage, 0, c.cfg.PageSize)

	for pageNum := 0; ; pageNum++ {
		if err := c.pace(ctx, pageNum); err != nil {
			return items, err
		}

		page, err := c.fetch(ctx, pageNum*c.cfg.PageSize, c.cfg.PageSize)
		if err != nil {
			if ctx.Err() != nil {
				return items, err
			}
			collectionsTruncatedTotal.Inc()
			c.logger.Warn().Err(err).
				Int("page", pageNum).
				Int("items_so_far", len(items)).
				Msg("Page fetch failed, treating as end of stream")
			return items, nil
		}
		pagesFetchedTotal.WithLabelValues(c.cfg.Mode.String()).Inc()

		if len(page.Items) == 0 {
			return items, nil
		}

		items = append(items, page.Items...)

		if c.cfg.Limit > 0 && len(items) >= c.cfg.Limit {
			return items[:c.cfg.Limit], nil
		}

		if len(page.Items) < c.cfg.PageSize {
			return items, nil
		}
	}
}

func (c *Collector) collectWatermark(ctx context.Context) ([]json.RawMessage, error) {
	var items []json.RawMessage
	var watermark string
	haveWatermark := false

	for pageNum := 0; ; pageNum++ {
		if err := c.pace(ctx, pageNum); err != nil {
			return items, err
		}

		page, err := c.fetch(ctx, pageNum*c.cfg.PageSize, c.cfg.PageSize)
		if err != nil {
			return items, err
		}
		pagesFetchedTotal.WithLabelValues(c.cfg.Mode.String()).Inc()

		if len(page.Items) == 0 {
			return items, nil
		}

		if id, ok := c.cfg.Watermark(page.Items[0]); ok {
			if haveWatermark && id == watermark {
				// The server echoed the previous page instead of
				// advancing; the repeated items are discarded.
				c.logger.Warn().
					Str("watermark", id).
					Int("page", pageNum).
					Msg("Stalled pagination cursor detected, stopping")
				return items, nil
			}
			watermark = id
			haveWatermark = true
		}

		items = append(items, page.Items...)

		if c.cfg.Limit > 0 && len(items) >= c.cfg.Limit {
			return items[:c.cfg.Limit], nil
		}
	}
}

func (c *Collector) collectFlagged(ctx context.Context) ([]json.RawMessage, error) {
	var items []json.RawMessage

	for pageNum := c.cfg.StartPage; pageNum < c.cfg.EndPage; pageNum++ {
		if err := c.pace(ctx, pageNum-c.cfg.StartPage); err != nil {
			return items, err
		}

		page, err := c.fetch(ctx, pageNum, 0)
		if err != nil {
			return items, err
		}
		pagesFetchedTotal.WithLabelValues(c.cfg.Mode.String()).Inc()

		if len(page.Items) == 0 {
			return items, nil
		}

		items = append(items, page.Items...)

		if c.cfg.Limit > 0 && len(items) >= c.cfg.Limit {
			return items[:c.cfg.Limit], nil
		}

		if !page.More {
			return items, nil
		}
	}

	return items, nil
}

// pace applies the courtesy delay before every request after the first.
func (c *Collector) pace(ctx context.Context, round int) error {
	if c.cfg.Pacer == nil || round == 0 {
		return nil
	}
	return c.cfg.Pacer.Wait(ctx)
}

// itemID extracts the top-level "id" field as the default watermark. The
// raw token is used verbatim so numeric and string identifiers both work.
func itemID(item json.RawMessage) (string, bool) {
	var probe struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(item, &probe); err != nil || len(probe.ID) == 0 {
		return "", false
	}
	return string(probe.ID), true
}
