package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited wraps a Backend so that concurrent callers - most notably the
// three parallel verification votes and a DAG batch's sibling tasks - cannot
// burst past a provider's request budget. rps is requests per second; burst
// is the bucket size.
type RateLimited struct {
	inner   Backend
	limiter *rate.Limiter
}

// NewRateLimited wraps inner with a token-bucket limiter.
func NewRateLimited(inner Backend, rps float64, burst int) *RateLimited {
	return &RateLimited{inner: inner, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *RateLimited) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", &BackendError{Err: err}
	}
	return r.inner.Chat(ctx, systemPrompt, userPrompt)
}
