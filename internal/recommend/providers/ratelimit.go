package providers

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/tanjir-dev/travel-recommender/internal/recommend"
)

// RateLimitedProvider wraps a recommend.Provider with a token-bucket limiter
// so batch refreshes stay inside the provider's courtesy limits.
type RateLimitedProvider struct {
	provider recommend.Provider
	limiter  *rate.Limiter
}

// NewRateLimitedProvider creates a rate-limited provider. rps may be
// fractional for less than one request per second; burst is the maximum
// burst size allowed.
func NewRateLimitedProvider(provider recommend.Provider, rps float64, burst int) *RateLimitedProvider {
	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

// Fetch waits for limiter permission, then forwards to the underlying provider.
func (r *RateLimitedProvider) Fetch(ctx context.Context, lat, lon float64) (recommend.Reading, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return recommend.Reading{}, recommend.E(recommend.KindTimedOut, "provider.ratelimit",
			fmt.Errorf("rate limit wait canceled: %w", err))
	}
	return r.provider.Fetch(ctx, lat, lon)
}
