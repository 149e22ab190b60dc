// Package paginate assembles unbounded or limit-bounded item sequences from
// paginated Substack endpoints.
//
// The platform's endpoints paginate three different ways, so one Collector
// supports three policies behind a single configuration:
//
//   - offset/limit (archive endpoints): offset = n * pageSize, stopping on a
//     short or empty page
//   - watermark (feed-style endpoints): incrementing offset with a repeated
//     newest-item guard against stalled server cursors
//   - flagged (category listings): server "more" boolean over an explicit
//     page range
//
// Example usage:
//
//	collector := paginate.New(paginate.Config{
//		Mode:     paginate.ModeOffset,
//		PageSize: 15,
//		Limit:    50,
//		Pacer:    ratelimit.NewPacer(500 * time.Millisecond),
//	}, fetchArchivePage)
//	items, err := collector.Collect(ctx)
//
// Every policy terminates without server cooperation: a short or empty page,
// a repeated watermark, or the page-range bound always stops collection.
// Items are returned in server order across concatenated pages; the
// collector never reorders.
package paginate
