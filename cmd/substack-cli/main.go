// Command substack-cli is a small command line front end for the library:
// it fetches newsletter archives, post metadata, user profiles, and category
// listings and prints them as JSON lines.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/substackapi/substack-go/pkg/cache"
	"github.com/substackapi/substack-go/pkg/client"
	"github.com/substackapi/substack-go/pkg/logging"
	"github.com/substackapi/substack-go/pkg/substack"
	"github.com/substackapi/substack-go/pkg/transport"
)

type options struct {
	cookiesPath string
	redisAddr   string
	logLevel    string
	pretty      bool

	sort  string
	limit int
	query string
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "substack-cli",
		Short:         "Query Substack newsletters, posts, users, and categories",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(logging.Config{
				Level:  logging.LogLevel(opts.logLevel),
				Pretty: opts.pretty,
			})
		},
	}

	root.PersistentFlags().StringVar(&opts.cookiesPath, "cookies", "", "path to a JSON cookie export for authenticated access")
	root.PersistentFlags().StringVar(&opts.redisAddr, "redis", "", "redis address for the response cache (disabled when empty)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "human-readable log output")

	root.AddCommand(
		newPostsCmd(out, opts),
		newPostCmd(out, opts),
		newUserCmd(out, opts),
		newAuthorsCmd(out, opts),
		newRecommendationsCmd(out, opts),
		newCategoriesCmd(out, opts),
		newCategoryCmd(out, opts),
	)
	return root
}

// buildClient assembles the request stack from the global flags.
func buildClient(opts *options) (*client.Client, error) {
	auth, err := transport.NewAuth(opts.cookiesPath)
	if err != nil {
		return nil, err
	}

	cfg := client.Config{
		Transport: transport.New(transport.Options{Auth: auth}),
	}

	if opts.redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: opts.redisAddr})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis at %s: %w", opts.redisAddr, err)
		}
		cfg.Cache = cache.NewManager(redisClient)
	}

	return client.New(cfg)
}

func newPostsCmd(out io.Writer, opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts <newsletter-url>",
		Short: "List a newsletter's posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildClient(opts)
			if err != nil {
				return err
			}

			n := substack.NewNewsletter(c, args[0])
			var posts []*substack.Post
			if opts.query != "" {
				posts, err = n.SearchPosts(cmd.Context(), opts.query, opts.limit)
			} else {
				posts, err = n.Posts(cmd.Context(), opts.sort, opts.limit)
			}
			if err != nil {
				return err
			}

			for _, post := range posts {
				if err := printJSON(out, map[string]string{"slug": post.Slug(), "url": post.URL()}); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.sort, "sort", substack.SortNew, "sort order (new, top, pinned, community)")
	cmd.Flags().IntVar(&opts.limit, "limit", 15, "maximum posts to fetch (0 for the full archive)")
	cmd.Flags().StringVar(&opts.query, "search", "", "full-text search query")
	return cmd
}

func newPostCmd(out io.Writer, opts *options) *cobra.Command {
	var withContent bool

	cmd := &cobra.Command{
		Use:   "post <post-url>",
		Short: "Show a post's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildClient(opts)
			if err != nil {
				return err
			}

			post, err := substack.NewPost(c, args[0])
			if err != nil {
				return err
			}

			if withContent {
				content, err := post.Content(cmd.Context(), false)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, content)
				return err
			}

			meta, err := post.Metadata(cmd.Context(), false)
			if err != nil {
				return err
			}
			meta.BodyHTML = ""
			return printJSON(out, meta)
		},
	}

	cmd.Flags().BoolVar(&withContent, "content", false, "print the post's HTML body instead of metadata")
	return cmd
}

func newUserCmd(out io.Writer, opts *options) *cobra.Command {
	var withSubscriptions bool

	cmd := &cobra.Command{
		Use:   "user <handle>",
		Short: "Show a user's public profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildClient(opts)
			if err != nil {
				return err
			}

			u := substack.NewUser(c, args[0])

			if withSubscriptions {
				subs, err := u.Subscriptions(cmd.Context())
				if err != nil {
					return err
				}
				for _, sub := range subs {
					if err := printJSON(out, sub); err != nil {
						return err
					}
				}
				return nil
			}

			data, err := u.RawData(cmd.Context(), false)
			if err != nil {
				return err
			}
			if u.WasRedirected() {
				fmt.Fprintf(os.Stderr, "note: handle renamed to %s\n", u.Username())
			}
			return printJSON(out, data)
		},
	}

	cmd.Flags().BoolVar(&withSubscriptions, "subscriptions", false, "list the user's subscriptions instead of the profile")
	return cmd
}

func newAuthorsCmd(out io.Writer, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "authors <newsletter-url>",
		Short: "List a newsletter's authors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildClient(opts)
			if err != nil {
				return err
			}

			authors, err := substack.NewNewsletter(c, args[0]).Authors(cmd.Context())
			if err != nil {
				return err
			}
			for _, author := range authors {
				if _, err := fmt.Fprintln(out, author.Username()); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newRecommendationsCmd(out io.Writer, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "recommendations <newsletter-url>",
		Short: "List the newsletters a publication recommends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildClient(opts)
			if err != nil {
				return err
			}

			recs, err := substack.NewNewsletter(c, args[0]).Recommendations(cmd.Context())
			if err != nil {
				return err
			}
			for _, rec := range recs {
				if _, err := fmt.Fprintln(out, rec.URL()); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newCategoriesCmd(out io.Writer, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List all newsletter categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildClient(opts)
			if err != nil {
				return err
			}

			categories, err := substack.ListCategories(cmd.Context(), c)
			if err != nil {
				return err
			}
			for _, cat := range categories {
				if err := printJSON(out, cat); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newCategoryCmd(out io.Writer, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "category <name-or-id>",
		Short: "List the newsletters in a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildClient(opts)
			if err != nil {
				return err
			}

			cat, err := resolveCategory(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}

			urls, err := cat.NewsletterURLs(cmd.Context())
			if err != nil {
				return err
			}
			for _, u := range urls {
				if _, err := fmt.Fprintln(out, u); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// resolveCategory accepts either a numeric id or a category name.
func resolveCategory(ctx context.Context, c *client.Client, arg string) (*substack.Category, error) {
	if id, err := strconv.Atoi(arg); err == nil {
		return substack.NewCategoryByID(ctx, c, id)
	}
	return substack.NewCategoryByName(ctx, c, arg)
}

func printJSON(out io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
