package advisory

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

const thirtySeconds = 30 * time.Second

// newNVDLimiter builds the token-bucket limiter for unauthenticated NVD API
// access: 5 requests per 30 seconds, per spec §4.2. A burst of 5 lets the
// first batch go through immediately; rate.Every spreads refills evenly
// rather than reopening the whole bucket every 30s.
func newNVDLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(thirtySeconds/5), 5)
}

func newNVDLimiterWithKey() *rate.Limiter {
	// NVD allows 50 requests per 30s with an API key.
	return rate.NewLimiter(rate.Every(thirtySeconds/50), 10)
}

// waitToken blocks until the limiter admits one more call or ctx is done.
func waitToken(ctx context.Context, l *rate.Limiter) error {
	return l.Wait(ctx)
}
