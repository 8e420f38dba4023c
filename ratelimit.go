package pagetl

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the rate limiter.
type RateLimitConfig struct {
	RequestsPerMinute int // Maximum requests per minute (default: 60)
	BurstSize         int // Maximum burst size (default: same as RPM)
}

// NewRateLimiter creates a token bucket limiter from cfg.
func NewRateLimiter(cfg RateLimitConfig) *rate.Limiter {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}

	burst := cfg.BurstSize
	if burst <= 0 {
		burst = rpm
	}

	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), burst)
}

// RateLimitedTranslator wraps a TranslatorCapability so that every
// invocation of the instances it creates waits for a token.
type RateLimitedTranslator struct {
	capability TranslatorCapability
	limiter    *rate.Limiter
}

// NewRateLimitedTranslator creates a rate-limited translation capability.
func NewRateLimitedTranslator(capability TranslatorCapability, cfg RateLimitConfig) *RateLimitedTranslator {
	return &RateLimitedTranslator{
		capability: capability,
		limiter:    NewRateLimiter(cfg),
	}
}

// Availability is not rate limited.
func (t *RateLimitedTranslator) Availability(ctx context.Context, pair LanguagePair) (Availability, error) {
	return t.capability.Availability(ctx, pair)
}

// Create wraps the created instance.
func (t *RateLimitedTranslator) Create(ctx context.Context, pair LanguagePair, monitor ProgressFunc) (TranslatorInstance, error) {
	inst, err := t.capability.Create(ctx, pair, monitor)
	if err != nil {
		return nil, err
	}
	return &rateLimitedInstance{inner: inst, limiter: t.limiter}, nil
}

// Limiter returns the underlying rate limiter for inspection.
func (t *RateLimitedTranslator) Limiter() *rate.Limiter {
	return t.limiter
}

type rateLimitedInstance struct {
	inner   TranslatorInstance
	limiter *rate.Limiter
}

func (i *rateLimitedInstance) wait(ctx context.Context) error {
	if err := i.limiter.Wait(ctx); err != nil {
		return &ProviderError{
			Message:   "rate limit wait cancelled",
			Cause:     err,
			Retryable: false,
		}
	}
	return nil
}

func (i *rateLimitedInstance) Translate(ctx context.Context, text string) (string, error) {
	if err := i.wait(ctx); err != nil {
		return "", err
	}
	return i.inner.Translate(ctx, text)
}

func (i *rateLimitedInstance) TranslateStreaming(ctx context.Context, text string) (TextStream, error) {
	if err := i.wait(ctx); err != nil {
		return nil, err
	}
	return i.inner.TranslateStreaming(ctx, text)
}

func (i *rateLimitedInstance) Destroy() {
	i.inner.Destroy()
}

// Verify RateLimitedTranslator implements TranslatorCapability
var _ TranslatorCapability = (*RateLimitedTranslator)(nil)
