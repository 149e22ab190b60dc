package substack

import (
	"context"
	"encoding/json"
)

// cell is a lazily populated cache slot for one entity's raw JSON payload.
// The explicit populated flag distinguishes "not yet fetched" from
// "fetched an empty value", so an empty but valid response is still a hit.
type cell struct {
	data      json.RawMessage
	populated bool
}

// fetch returns the cached payload, calling fill to populate it on the
// first use or when force is set. A failed fill leaves the cell empty and
// surfaces the error unchanged.
func (c *cell) fetch(ctx context.Context, force bool, fill func(ctx context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	if c.populated && !force {
		return c.data, nil
	}

	// A forced refresh that fails must not leave a stale value behind.
	c.clear()

	data, err := fill(ctx)
	if err != nil {
		return nil, err
	}

	c.data = data
	c.populated = true
	return c.data, nil
}

// clear empties the cell.
func (c *cell) clear() {
	c.data = nil
	c.populated = false
}
