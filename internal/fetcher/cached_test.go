package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	body  []byte
	err   error
	calls int
}

func (s *stubFetcher) Fetch(_ context.Context, _ string) ([]byte, error) {
	s.calls++
	return s.body, s.err
}

type memCache struct {
	pages   map[string][]byte
	getErr  error
	lastTTL time.Duration
}

func (m *memCache) GetCachedPage(_ context.Context, url string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.pages[url], nil
}

func (m *memCache) SetCachedPage(_ context.Context, url string, body []byte, ttl time.Duration) error {
	m.pages[url] = body
	m.lastTTL = ttl
	return nil
}

func TestCachedFetcher_MissThenHit(t *testing.T) {
	next := &stubFetcher{body: []byte("page")}
	cache := &memCache{pages: map[string][]byte{}}
	f := NewCachedFetcher(next, cache, time.Hour)

	for range 2 {
		body, err := f.Fetch(context.Background(), "https://example.com/a")
		require.NoError(t, err)
		assert.Equal(t, "page", string(body))
	}
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, time.Hour, cache.lastTTL)
}

func TestCachedFetcher_ErrorNotCached(t *testing.T) {
	next := &stubFetcher{err: errors.New("boom")}
	cache := &memCache{pages: map[string][]byte{}}
	f := NewCachedFetcher(next, cache, time.Hour)

	_, err := f.Fetch(context.Background(), "https://example.com/a")
	require.Error(t, err)
	assert.Empty(t, cache.pages)
}

func TestCachedFetcher_CacheReadFailureFallsThrough(t *testing.T) {
	next := &stubFetcher{body: []byte("page")}
	cache := &memCache{pages: map[string][]byte{}, getErr: errors.New("db locked")}
	f := NewCachedFetcher(next, cache, time.Hour)

	body, err := f.Fetch(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "page", string(body))
}

func TestNewCachedFetcher_Disabled(t *testing.T) {
	next := &stubFetcher{}
	assert.Same(t, next, NewCachedFetcher(next, &memCache{}, 0).(*stubFetcher))
	assert.Same(t, next, NewCachedFetcher(next, nil, time.Hour).(*stubFetcher))
}
