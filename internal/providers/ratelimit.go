package providers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces requests to one gateway across every worker. It wraps a
// token bucket that holds a minute's worth of requests and starts full.
type RateLimiter struct {
	limiter           *rate.Limiter
	requestsPerMinute int

	mu            sync.Mutex
	totalConsumed int64
	totalWaited   time.Duration
	last429Time   time.Time
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	TokensAvailable int           `json:"tokens_available" yaml:"tokens_available"`
	TokensLimit     int           `json:"tokens_limit" yaml:"tokens_limit"`
	TotalConsumed   int64         `json:"total_consumed" yaml:"total_consumed"`
	TotalWaited     time.Duration `json:"total_waited" yaml:"total_waited"`
	Last429Time     time.Time     `json:"last_429_time,omitempty" yaml:"last_429_time,omitempty"`
}

// NewRateLimiter creates a limiter allowing requestsPerMinute calls per
// minute. Values below 1 mean 60.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	every := rate.Every(time.Minute / time.Duration(requestsPerMinute))
	return &RateLimiter{
		limiter:           rate.NewLimiter(every, requestsPerMinute),
		requestsPerMinute: requestsPerMinute,
	}
}

// Wait blocks until a request may proceed or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := r.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	waited := time.Since(start)

	r.mu.Lock()
	r.totalConsumed++
	r.totalWaited += waited
	r.mu.Unlock()
	return nil
}

// Record429 drains the bucket after the provider reported rate limiting, so
// other workers back off too.
func (r *RateLimiter) Record429() {
	now := time.Now()
	if n := int(r.limiter.TokensAt(now)); n > 0 {
		r.limiter.AllowN(now, n)
	}

	r.mu.Lock()
	r.last429Time = now
	r.mu.Unlock()
}

// Status returns current limiter status.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	return RateLimiterStatus{
		TokensAvailable: max(0, int(r.limiter.Tokens())),
		TokensLimit:     r.requestsPerMinute,
		TotalConsumed:   r.totalConsumed,
		TotalWaited:     r.totalWaited,
		Last429Time:     r.last429Time,
	}
}

// rateLimitedExtractor gates every call of an Extractor on a RateLimiter.
type rateLimitedExtractor struct {
	Extractor
	limiter *RateLimiter
}

// WithRateLimit wraps e so each Extract first takes a token from limiter.
// A nil limiter returns e unchanged.
func WithRateLimit(e Extractor, limiter *RateLimiter) Extractor {
	if limiter == nil {
		return e
	}
	return &rateLimitedExtractor{Extractor: e, limiter: limiter}
}

func (r *rateLimitedExtractor) Extract(ctx context.Context, pdf []byte, prompt string) (*Result, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	result, err := r.Extractor.Extract(ctx, pdf, prompt)
	var gwErr *GatewayError
	if errors.As(err, &gwErr) && gwErr.StatusCode == http.StatusTooManyRequests {
		r.limiter.Record429()
	}
	return result, err
}
