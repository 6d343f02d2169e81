package search

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Throttled waits on limiter before every call to next. Concurrent fan-out
// branches therefore share one request budget.
type Throttled struct {
	next    Provider
	limiter *rate.Limiter
}

// NewThrottled allows perSecond requests with the given burst.
func NewThrottled(next Provider, perSecond float64, burst int) *Throttled {
	if burst < 1 {
		burst = 1
	}
	return &Throttled{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (t *Throttled) Search(ctx context.Context, query string, count int) ([]Result, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("search throttle: %w", err)
	}
	return t.next.Search(ctx, query, count)
}
