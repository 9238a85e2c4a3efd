package videos

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/mo"

	"github.com/vidfriends/linkresolver/internal/logging"
	"github.com/vidfriends/linkresolver/internal/resolver"
)

// MediaResolver resolves a video page URL through a provider.
type MediaResolver interface {
	ResolveResult(ctx context.Context, videoURL string, cfg resolver.ProviderConfig) (resolver.Result, error)
}

// RemoteCache is the optional second cache tier shared between instances.
type RemoteCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type cacheEntry struct {
	data    []byte
	expires time.Time
}

type cachedResult struct {
	Media     resolver.ResolvedMedia `json:"media"`
	Strategy  string                 `json:"strategy"`
	URL       string                 `json:"url"`
	Extension string                 `json:"extension,omitempty"`
	Quality   string                 `json:"quality,omitempty"`
	Kind      resolver.MediaKind     `json:"kind"`
}

// CachingResolver wraps a MediaResolver with a TTL cache: an in-memory tier
// and an optional remote tier. Failed resolutions are never cached.
type CachingResolver struct {
	base   MediaResolver
	ttl    time.Duration
	remote RemoteCache

	mu        sync.RWMutex
	items     map[string]cacheEntry
	lastSweep time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachingResolver returns a resolver that caches results for ttl. remote
// may be nil.
func NewCachingResolver(base MediaResolver, ttl time.Duration, remote RemoteCache) *CachingResolver {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingResolver{
		base:      base,
		ttl:       ttl,
		remote:    remote,
		items:     make(map[string]cacheEntry),
		lastSweep: time.Now(),
	}
}

// CacheKey derives the cache key for a lookup. The API key is excluded so a
// rotated credential keeps serving warm entries.
func CacheKey(videoURL string, cfg resolver.ProviderConfig) string {
	method, err := resolver.ParseMethod(string(cfg.Method))
	if err != nil {
		method = resolver.MethodGet
	}
	joined := strings.Join([]string{
		string(method),
		cfg.APIHost,
		cfg.BaseURL,
		strconv.FormatBool(cfg.UseProxy),
		cfg.ProxyEndpoint,
		strings.TrimSpace(videoURL),
	}, "|")
	hash := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("lr:%x", hash[:12])
}

// ResolveResult returns a cached result when one is fresh, otherwise it
// delegates to the wrapped resolver and stores a successful result. Input
// and configuration are checked before either tier is consulted.
func (c *CachingResolver) ResolveResult(ctx context.Context, videoURL string, cfg resolver.ProviderConfig) (resolver.Result, error) {
	if c == nil || c.base == nil {
		return resolver.Result{}, ErrResolverUnavailable
	}
	if strings.TrimSpace(videoURL) == "" {
		return resolver.Result{}, resolver.ErrEmptyVideoURL
	}
	if err := cfg.Validate(); err != nil {
		return resolver.Result{}, err
	}

	logger := logging.FromContext(ctx)
	key := CacheKey(videoURL, cfg)
	now := time.Now()

	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if ok {
		if now.Before(entry.expires) {
			if res, err := decodeResult(entry.data); err == nil {
				c.hits.Add(1)
				logger.Debug("cache: memory hit", slog.String("key", key))
				return res, nil
			}
		}
		c.evict(key, entry.expires)
	}

	if c.remote != nil {
		if data, err := c.remote.Get(ctx, key); err == nil {
			if res, err := decodeResult(data); err == nil {
				c.hits.Add(1)
				logger.Debug("cache: remote hit", slog.String("key", key))
				c.store(key, data, now)
				return res, nil
			}
		}
	}

	c.misses.Add(1)
	res, err := c.base.ResolveResult(ctx, videoURL, cfg)
	if err != nil {
		return resolver.Result{}, err
	}

	data, err := encodeResult(res)
	if err != nil {
		logger.Warn("cache: encode result", slog.Any("error", err))
		return res, nil
	}
	c.store(key, data, now)
	if c.remote != nil {
		if err := c.remote.Set(ctx, key, data, c.ttl); err != nil {
			logger.Debug("cache: remote set failed", slog.Any("error", err))
		}
	}
	return res, nil
}

// Stats reports cache hit and miss counters.
func (c *CachingResolver) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len reports how many entries the in-memory tier holds.
func (c *CachingResolver) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Purge drops expired in-memory entries and returns how many were removed.
func (c *CachingResolver) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeLocked(time.Now())
}

func (c *CachingResolver) purgeLocked(now time.Time) int {
	removed := 0
	for key, entry := range c.items {
		if !now.Before(entry.expires) {
			delete(c.items, key)
			removed++
		}
	}
	c.lastSweep = now
	return removed
}

// evict removes key unless another caller refreshed it after expires.
func (c *CachingResolver) evict(key string, expires time.Time) {
	c.mu.Lock()
	if current, ok := c.items[key]; ok && current.expires.Equal(expires) {
		delete(c.items, key)
	}
	c.mu.Unlock()
}

// store saves an entry and sweeps expired ones at most once per ttl.
func (c *CachingResolver) store(key string, data []byte, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if now.Sub(c.lastSweep) >= c.ttl {
		c.purgeLocked(now)
	}
	c.items[key] = cacheEntry{data: data, expires: now.Add(c.ttl)}
}

func encodeResult(res resolver.Result) ([]byte, error) {
	return json.Marshal(cachedResult{
		Media:     res.Media,
		Strategy:  res.Strategy,
		URL:       res.Candidate.URL,
		Extension: res.Candidate.Extension.OrEmpty(),
		Quality:   res.Candidate.Quality.OrEmpty(),
		Kind:      res.Candidate.Kind,
	})
}

func decodeResult(data []byte) (resolver.Result, error) {
	var cached cachedResult
	if err := json.Unmarshal(data, &cached); err != nil {
		return resolver.Result{}, err
	}
	return resolver.Result{
		Media:    cached.Media,
		Strategy: cached.Strategy,
		Candidate: resolver.MediaCandidate{
			URL:       cached.URL,
			Extension: mo.EmptyableToOption(cached.Extension),
			Quality:   mo.EmptyableToOption(cached.Quality),
			Kind:      cached.Kind,
		},
	}, nil
}
