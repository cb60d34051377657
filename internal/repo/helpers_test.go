package repo

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/miradorstack/mirador-quality/internal/cache"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(rt roundTripFunc) *http.Client {
	return &http.Client{Transport: rt}
}

// recordingCache keeps history payloads in memory and remembers the ttl each
// key was written with.
type recordingCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	hits int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{
		data: make(map[string][]byte),
		ttls: make(map[string]time.Duration),
	}
}

func (c *recordingCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	c.hits++
	return append([]byte(nil), raw...), nil
}

func (c *recordingCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = append([]byte(nil), value...)
	c.ttls[key] = ttl
	return nil
}

func (c *recordingCache) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	_, exists := c.data[key]
	c.mu.Unlock()
	if exists {
		return false, nil
	}
	return true, c.Set(ctx, key, value, ttl)
}

func (c *recordingCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	delete(c.ttls, key)
	return nil
}

func (c *recordingCache) Close() error { return nil }

func (c *recordingCache) ttl(key string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ttl, ok := c.ttls[key]
	return ttl, ok
}
