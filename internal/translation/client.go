package translation

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"horse.fit/pagetrans/internal/language"
)

const (
	DefaultRequestsPerSecond = 20
	DefaultBurst             = 20
	DefaultProviderTimeout   = 30 * time.Second
)

// ClientOptions bound how hard a Client leans on its provider.
type ClientOptions struct {
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// Client fronts a Provider with the translation cache, per-key request
// coalescing, and a shared rate limit.
type Client struct {
	provider Provider
	cache    *Cache
	limiter  *rate.Limiter
	timeout  time.Duration
	group    singleflight.Group
	logger   zerolog.Logger

	providerCalls atomic.Int64
}

func NewClient(provider Provider, cache *Cache, opts ClientOptions, logger zerolog.Logger) *Client {
	if cache == nil {
		cache = NewCache()
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = DefaultBurst
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &Client{
		provider: provider,
		cache:    cache,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		timeout:  timeout,
		logger:   logger,
	}
}

func (c *Client) ProviderName() string {
	if c == nil || c.provider == nil {
		return ""
	}
	return c.provider.Name()
}

func (c *Client) Cache() *Cache {
	return c.cache
}

// ProviderCalls counts requests that actually reached the provider.
func (c *Client) ProviderCalls() int64 {
	return c.providerCalls.Load()
}

// Lookup answers from the cache only.
func (c *Client) Lookup(text, targetLang string) (string, bool) {
	key, err := cacheKey(text, targetLang)
	if err != nil {
		return "", false
	}
	return c.cache.Get(key)
}

// Translate returns the cached translation of text or asks the provider for
// it. Concurrent calls for the same key share one provider request.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if c == nil || c.provider == nil {
		return "", fmt.Errorf("translation client has no provider")
	}
	key, err := cacheKey(text, targetLang)
	if err != nil {
		return "", err
	}
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}

	source := language.Auto
	if !language.IsAuto(sourceLang) {
		source, err = language.Resolve(sourceLang)
		if err != nil {
			return "", fmt.Errorf("resolve source language: %w", err)
		}
	}

	value, err, shared := c.group.Do(key.String(), func() (any, error) {
		if cached, ok := c.cache.Get(key); ok {
			return cached, nil
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("wait for provider slot: %w", err)
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		c.providerCalls.Add(1)
		resp, err := c.provider.Translate(callCtx, TranslateRequest{
			Text:       key.Text,
			SourceLang: source,
			TargetLang: key.TargetLang,
		})
		if err != nil {
			return "", err
		}
		if resp == nil {
			return "", &ProviderShapeError{Provider: c.provider.Name(), Reason: "empty response"}
		}
		c.cache.Put(key, resp.Text)
		c.logger.Debug().
			Str("provider", c.provider.Name()).
			Str("target_lang", key.TargetLang).
			Int64("latency_ms", resp.LatencyMs).
			Msg("translation fetched")
		return resp.Text, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		c.logger.Debug().Str("target_lang", key.TargetLang).Msg("translation request coalesced")
	}
	return value.(string), nil
}

func cacheKey(text, targetLang string) (CacheKey, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return CacheKey{}, fmt.Errorf("text is required")
	}
	target, err := language.Resolve(targetLang)
	if err != nil {
		return CacheKey{}, fmt.Errorf("resolve target language: %w", err)
	}
	if target == language.Auto {
		return CacheKey{}, fmt.Errorf("target language cannot be %q", language.Auto)
	}
	return CacheKey{Text: trimmed, TargetLang: target}, nil
}
