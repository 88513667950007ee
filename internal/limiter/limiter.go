package limiter

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/23skdu/slotpool/internal/metrics"
)

// ErrThrottled is returned when the next token would arrive after the
// context deadline.
var ErrThrottled = errors.New("rate limit exceeded")

// Config holds rate limiter configuration
type Config struct {
	Rate  float64 // operations per second, 0 means disabled
	Burst int     // 0 means 1
}

// RateLimiter wraps the token bucket limiter
type RateLimiter struct {
	limiter *rate.Limiter
	enabled bool

	allowed   prometheus.Counter
	throttled prometheus.Counter
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg Config) *RateLimiter {
	if cfg.Rate <= 0 {
		return &RateLimiter{enabled: false}
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiter:   rate.NewLimiter(rate.Limit(cfg.Rate), burst),
		enabled:   true,
		allowed:   metrics.SoakRateLimitTotal.WithLabelValues("allowed"),
		throttled: metrics.SoakRateLimitTotal.WithLabelValues("throttled"),
	}
}

// Wait blocks until one operation may proceed. It returns ctx's error when
// ctx ends first and ErrThrottled when ctx's deadline is closer than the
// next token.
func (l *RateLimiter) Wait(ctx context.Context) error {
	if !l.enabled {
		return ctx.Err()
	}

	if err := l.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		l.throttled.Inc()
		return ErrThrottled
	}

	l.allowed.Inc()
	return nil
}
