// Package substack exposes the platform's entities: newsletters, posts,
// users, and categories.
//
// Each entity wraps an addressing key (a URL or handle) and a derived API
// endpoint. Metadata reads are lazily cached per entity and force-refreshable,
// so repeated logical reads cost one network call. Users additionally resolve
// renamed handles: a 404 triggers at most one probe of the public profile
// page, rewriting the handle when the final redirect target differs.
//
// Example usage:
//
//	c, _ := client.New(client.Config{Transport: transport.New(transport.Options{})})
//	n := substack.NewNewsletter(c, "https://example.substack.com")
//	posts, err := n.Posts(ctx, substack.SortNew, 10)
//
// All blocking operations take a context. Entities are not safe for
// concurrent use; independent entities need no coordination.
package substack
