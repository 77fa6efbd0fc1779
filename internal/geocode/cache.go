package geocode

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMissTTL is how long an empty answer is remembered.
const DefaultMissTTL = 10 * time.Minute

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache. Answers are
// kept until evicted; empty answers expire after the miss TTL so that unknown
// places are asked again eventually.
type CachedGeocoder struct {
	inner  Geocoder
	cache  *lru.Cache[string, Result]
	misses *expirable.LRU[string, struct{}]
}

func NewCachedGeocoder(inner Geocoder, maxEntries int, missTTL time.Duration) (*CachedGeocoder, error) {
	cache, err := lru.New[string, Result](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create geocoder cache: %w", err)
	}
	if missTTL <= 0 {
		return nil, fmt.Errorf("invalid geocoder miss TTL %s", missTTL)
	}
	return &CachedGeocoder{
		inner:  inner,
		cache:  cache,
		misses: expirable.NewLRU[string, struct{}](maxEntries, nil, missTTL),
	}, nil
}

func (c *CachedGeocoder) Geocode(ctx context.Context, text string) (Result, error) {
	key := strings.ToLower(strings.Join(strings.Fields(text), " "))
	if result, ok := c.cache.Get(key); ok {
		return result, nil
	}
	if _, ok := c.misses.Get(key); ok {
		return Result{}, nil
	}
	result, err := c.inner.Geocode(ctx, text)
	if err != nil {
		return result, err
	}
	if result.Country == "" {
		c.misses.Add(key, struct{}{})
		return result, nil
	}
	c.cache.Add(key, result)
	return result, nil
}

// Len is the number of cached answers, not counting remembered misses.
func (c *CachedGeocoder) Len() int {
	return c.cache.Len()
}
