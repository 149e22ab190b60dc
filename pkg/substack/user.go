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

// resolveState tracks identity resolution for a possibly renamed handle.
type resolveState int

const (
	// stateFresh: no fetch has failed yet; resolution is still available.
	stateFresh resolveState = iota

	// stateResolving: a 404 was seen and the profile probe is in flight.
	stateResolving

	// stateResolved: the handle was rewritten once; no further resolution
	// will ever happen for this reference.
	stateResolved

	// stateGone: resolution was attempted and yielded nothing; the handle
	// is final and not-found errors propagate as-is.
	stateGone
)

// User is a platform user addressed by handle.
//
// When a fetch returns 404 the user may have renamed their handle; User
// probes the public profile page once, follows its redirect, and adopts the
// handle encoded in the final URL. The rewrite happens at most once per User
// regardless of how many fetches follow, bounding a first failing fetch to
// three requests: original, probe, retry.
type User struct {
	client *client.Client

	username string
	original string
	endpoint string

	followRedirects bool
	state           resolveState

	data   cell
	logger zerolog.Logger
}

// UserOption customizes a User.
type UserOption func(*User)

// WithoutRedirectResolution disables renamed-handle resolution; a 404 is
// surfaced immediately.
func WithoutRedirectResolution() UserOption {
	return func(u *User) {
		u.followRedirects = false
	}
}

// NewUser creates a user reference for the given handle.
func NewUser(c *client.Client, username string, opts ...UserOption) *User {
	u := &User{
		client:          c,
		username:        username,
		original:        username,
		endpoint:        userEndpoint(username),
		followRedirects: true,
		state:           stateFresh,
		logger:          logging.NewLogger("user"),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func userEndpoint(handle string) string {
	return fmt.Sprintf("%s/api/v1/user/%s/public_profile", baseURL, handle)
}

// Username returns the user's current handle, which differs from the
// originally supplied one after a successful resolution.
func (u *User) Username() string {
	return u.username
}

// WasRedirected reports whether the handle was rewritten by resolution.
func (u *User) WasRedirected() bool {
	return u.username != u.original
}

// String implements fmt.Stringer.
func (u *User) String() string {
	return "User: " + u.username
}

// fetchUserData populates the profile cache cell, resolving a renamed
// handle exactly once on the way.
func (u *User) fetchUserData(ctx context.Context, force bool) (json.RawMessage, error) {
	return u.data.fetch(ctx, force, func(ctx context.Context) (json.RawMessage, error) {
		resp, err := u.client.Get(ctx, u.endpoint, nil)
		if err == nil {
			return resp.Body, nil
		}

		if !client.IsNotFound(err) || !u.followRedirects || u.state != stateFresh {
			return nil, err
		}

		u.state = stateResolving
		newHandle, ok := u.probeRenamedHandle(ctx)
		if !ok || newHandle == u.username {
			// No rename discovered; the original not-found stands.
			u.state = stateGone
			return nil, err
		}

		u.logger.Info().
			Str("handle", u.original).
			Str("new_handle", newHandle).
			Msg("Handle was renamed, following redirect")

		u.username = newHandle
		u.endpoint = userEndpoint(newHandle)
		u.state = stateResolved

		retryResp, retryErr := u.client.Get(ctx, u.endpoint, nil)
		if retryErr != nil {
			return nil, retryErr
		}
		return retryResp.Body, nil
	})
}

// probeRenamedHandle requests the public profile page with redirects
// followed and extracts the handle from the final URL. The profile path has
// the shape /@handle; anything else means no rename.
func (u *User) probeRenamedHandle(ctx context.Context) (string, bool) {
	resp, err := u.client.Get(ctx, fmt.Sprintf("%s/@%s", baseURL, u.username), nil)
	if err != nil {
		return "", false
	}

	parsed, err := url.Parse(resp.FinalURL)
	if err != nil {
		return "", false
	}

	segment, _, _ := strings.Cut(strings.TrimPrefix(parsed.Path, "/"), "/")
	if !strings.HasPrefix(segment, "@") {
		return "", false
	}

	handle := strings.TrimPrefix(segment, "@")
	if handle == "" {
		return "", false
	}
	return handle, true
}

// RawData returns the complete profile payload.
func (u *User) RawData(ctx context.Context, forceRefresh bool) (map[string]any, error) {
	raw, err := u.fetchUserData(ctx, forceRefresh)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode user profile: %w", err)
	}
	return data, nil
}

// profile is the subset of the public profile payload the library reads.
type profile struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	ProfileSetUpAt string `json:"profile_set_up_at"`
	Subscriptions  []struct {
		MembershipState string `json:"membership_state"`
		Publication     struct {
			ID           int64  `json:"id"`
			Name         string `json:"name"`
			Subdomain    string `json:"subdomain"`
			CustomDomain string `json:"custom_domain"`
		} `json:"publication"`
	} `json:"subscriptions"`
}

func (u *User) decodeProfile(ctx context.Context) (*profile, error) {
	raw, err := u.fetchUserData(ctx, false)
	if err != nil {
		return nil, err
	}
	var p profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode user profile: %w", err)
	}
	return &p, nil
}

// ID returns the user's unique id.
func (u *User) ID(ctx context.Context) (int64, error) {
	p, err := u.decodeProfile(ctx)
	if err != nil {
		return 0, err
	}
	return p.ID, nil
}

// Name returns the user's display name.
func (u *User) Name(ctx context.Context) (string, error) {
	p, err := u.decodeProfile(ctx)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

// ProfileSetUpAt returns the profile setup timestamp as reported by the
// platform.
func (u *User) ProfileSetUpAt(ctx context.Context) (string, error) {
	p, err := u.decodeProfile(ctx)
	if err != nil {
		return "", err
	}
	return p.ProfileSetUpAt, nil
}

// Subscription describes one publication the user subscribes to.
type Subscription struct {
	PublicationID   int64
	PublicationName string
	Domain          string
	MembershipState string
}

// Subscriptions returns the newsletters the user has subscribed to. A user
// with no subscriptions yields an empty slice, not an error.
func (u *User) Subscriptions(ctx context.Context) ([]Subscription, error) {
	p, err := u.decodeProfile(ctx)
	if err != nil {
		return nil, err
	}

	subs := make([]Subscription, 0, len(p.Subscriptions))
	for _, sub := range p.Subscriptions {
		pub := sub.Publication
		domain := pub.CustomDomain
		if domain == "" {
			domain = pub.Subdomain + "." + platformDomain
		}
		subs = append(subs, Subscription{
			PublicationID:   pub.ID,
			PublicationName: pub.Name,
			Domain:          domain,
			MembershipState: sub.MembershipState,
		})
	}
	return subs, nil
}
