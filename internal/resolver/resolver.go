// Package resolver resolves a free-text character name to its canonical
// Mojang profile.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	commonerrors "whitelist-bot/internal/common/errors"
	"whitelist-bot/internal/common/metrics"
)

const defaultBaseURL = "https://api.mojang.com"

// Profile is the canonical identity returned by the lookup service.
type Profile struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Resolver turns a display name into a canonical profile.
type Resolver interface {
	Resolve(ctx context.Context, name string) (Profile, error)
}

// MojangResolver queries the Mojang profile API. Any non-200 response is
// treated uniformly as not found.
type MojangResolver struct {
	baseURL string
	client  *http.Client
}

// Option configures a MojangResolver.
type Option func(*MojangResolver)

// WithBaseURL overrides the API endpoint, used in tests.
func WithBaseURL(base string) Option {
	return func(r *MojangResolver) {
		r.baseURL = base
	}
}

func NewMojangResolver(opts ...Option) *MojangResolver {
	r := &MojangResolver{
		baseURL: defaultBaseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *MojangResolver) Resolve(ctx context.Context, name string) (Profile, error) {
	endpoint := fmt.Sprintf("%s/users/profiles/minecraft/%s", r.baseURL, url.PathEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Profile{}, commonerrors.NewProfileLookupError(err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		metrics.ResolverLookups.WithLabelValues("error").Inc()
		return Profile{}, commonerrors.NewProfileLookupError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ResolverLookups.WithLabelValues("miss").Inc()
		return Profile{}, commonerrors.NewProfileNotFoundError(name)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		metrics.ResolverLookups.WithLabelValues("error").Inc()
		return Profile{}, commonerrors.NewProfileLookupError(err)
	}

	metrics.ResolverLookups.WithLabelValues("hit").Inc()
	return profile, nil
}
