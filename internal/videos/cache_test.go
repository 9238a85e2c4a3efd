package videos

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidfriends/linkresolver/internal/resolver"
)

type stubResolver struct {
	result resolver.Result
	err    error
	calls  int
}

func (s *stubResolver) ResolveResult(context.Context, string, resolver.ProviderConfig) (resolver.Result, error) {
	s.calls++
	if s.err != nil {
		return resolver.Result{}, s.err
	}
	return s.result, nil
}

type remoteCacheStub struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func (r *remoteCacheStub) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (r *remoteCacheStub) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil {
		r.data = make(map[string][]byte)
	}
	r.data[key] = value
	r.sets++
	return nil
}

func testProvider() resolver.ProviderConfig {
	return resolver.ProviderConfig{
		APIKey:  "key",
		APIHost: "host.example.com",
		BaseURL: "https://host.example.com/get",
		Method:  resolver.MethodGet,
	}
}

func testResult() resolver.Result {
	return resolver.Result{
		Media:    resolver.ResolvedMedia{Title: "Test", ThumbnailURL: resolver.DefaultThumbnailURL, DownloadURL: "https://cdn.example.com/v.mp4"},
		Strategy: resolver.StrategyMediaList,
		Candidate: resolver.MediaCandidate{
			URL:       "https://cdn.example.com/v.mp4",
			Extension: mo.Some("mp4"),
			Quality:   mo.Some("hd"),
			Kind:      resolver.KindVideo,
		},
	}
}

func TestCachingResolverResolve(t *testing.T) {
	base := &stubResolver{result: testResult()}
	cache := NewCachingResolver(base, time.Minute, nil)
	ctx := context.Background()

	res, err := cache.ResolveResult(ctx, "https://example.com/v", testProvider())
	require.NoError(t, err)
	assert.Equal(t, "Test", res.Media.Title)

	res, err = cache.ResolveResult(ctx, " https://example.com/v ", testProvider())
	require.NoError(t, err)
	assert.Equal(t, 1, base.calls, "second lookup should be served from cache")
	assert.Equal(t, "hd", res.Candidate.Quality.OrEmpty())
	assert.Equal(t, resolver.KindVideo, res.Candidate.Kind)

	hits, misses := cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCachingResolverErrorsAreNotCached(t *testing.T) {
	cache := NewCachingResolver(nil, time.Minute, nil)
	_, err := cache.ResolveResult(context.Background(), "https://example.com", testProvider())
	assert.ErrorIs(t, err, ErrResolverUnavailable)

	base := &stubResolver{err: resolver.ErrNoCandidateFound}
	cache = NewCachingResolver(base, time.Minute, nil)
	for i := 0; i < 2; i++ {
		_, err := cache.ResolveResult(context.Background(), "https://example.com", testProvider())
		assert.ErrorIs(t, err, resolver.ErrNoCandidateFound)
	}
	assert.Equal(t, 2, base.calls, "failures should reach the provider each time")
}

func TestCachingResolverChecksInputBeforeLookup(t *testing.T) {
	base := &stubResolver{result: testResult()}
	cache := NewCachingResolver(base, time.Minute, nil)
	ctx := context.Background()

	_, err := cache.ResolveResult(ctx, "https://example.com", testProvider())
	require.NoError(t, err)

	cleared := testProvider()
	cleared.APIKey = ""
	_, err = cache.ResolveResult(ctx, "https://example.com", cleared)
	assert.ErrorIs(t, err, resolver.ErrProviderNotConfigured)

	_, err = cache.ResolveResult(ctx, "   ", testProvider())
	assert.ErrorIs(t, err, resolver.ErrEmptyVideoURL)

	assert.Equal(t, 1, base.calls)
	hits, _ := cache.Stats()
	assert.Zero(t, hits)
}

func TestCachingResolverExpiry(t *testing.T) {
	base := &stubResolver{result: testResult()}
	cache := NewCachingResolver(base, time.Millisecond, nil)

	_, err := cache.ResolveResult(context.Background(), "https://example.com", testProvider())
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)

	assert.Equal(t, 1, cache.Purge())
	_, err = cache.ResolveResult(context.Background(), "https://example.com", testProvider())
	require.NoError(t, err)
	assert.Equal(t, 2, base.calls, "expired entry should miss")
}

func TestCachingResolverEvictsExpiredEntriesUnderTraffic(t *testing.T) {
	base := &stubResolver{result: testResult()}
	cache := NewCachingResolver(base, time.Millisecond, nil)
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		_, err := cache.ResolveResult(ctx, fmt.Sprintf("https://example.com/%d", i), testProvider())
		require.NoError(t, err)
	}

	time.Sleep(5 * time.Millisecond)

	_, err := cache.ResolveResult(ctx, "https://example.com/fresh", testProvider())
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	time.Sleep(5 * time.Millisecond)

	_, err = cache.ResolveResult(ctx, "https://example.com/fresh", testProvider())
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len(), "stale entry should be replaced, not duplicated")
}

func TestCachingResolverRemoteTier(t *testing.T) {
	remote := &remoteCacheStub{}
	base := &stubResolver{result: testResult()}

	first := NewCachingResolver(base, time.Minute, remote)
	_, err := first.ResolveResult(context.Background(), "https://example.com", testProvider())
	require.NoError(t, err)
	assert.Equal(t, 1, remote.sets)

	second := NewCachingResolver(base, time.Minute, remote)
	res, err := second.ResolveResult(context.Background(), "https://example.com", testProvider())
	require.NoError(t, err)
	assert.Equal(t, 1, base.calls, "second instance should hit the remote tier")
	assert.Equal(t, "https://cdn.example.com/v.mp4", res.Media.DownloadURL)
	assert.Equal(t, 1, second.Len())
}

func TestCacheKey(t *testing.T) {
	a := testProvider()
	b := testProvider()
	b.APIKey = "rotated"
	assert.Equal(t, CacheKey("https://example.com", a), CacheKey("https://example.com", b), "api key is excluded")

	b.Method = resolver.Method("get")
	assert.Equal(t, CacheKey("https://example.com", a), CacheKey("https://example.com", b), "method case is normalized")

	b.Method = resolver.MethodPost
	assert.NotEqual(t, CacheKey("https://example.com", a), CacheKey("https://example.com", b))
}

func TestCachingResolverDefaultTTL(t *testing.T) {
	cache := NewCachingResolver(&stubResolver{}, 0, nil)
	assert.Positive(t, cache.ttl)
}
