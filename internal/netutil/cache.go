package netutil

import (
	"context"
	"encoding/binary"
	"sort"
	"strings"
	"time"

	"github.com/maypok86/otter"
	"github.com/zeebo/xxh3"
)

type cacheKey [16]byte

// CachingDownloader keeps successful bodies for a fixed TTL.
type CachingDownloader struct {
	next  Downloader
	cache otter.Cache[cacheKey, []byte]
}

// NewCachingDownloader wraps next with a cache of at most maxEntries bodies.
// It returns next unchanged when ttl <= 0.
func NewCachingDownloader(next Downloader, ttl time.Duration, maxEntries int) Downloader {
	if ttl <= 0 {
		return next
	}
	if maxEntries <= 0 {
		maxEntries = 1
	}
	cache, err := otter.MustBuilder[cacheKey, []byte](maxEntries).
		Cost(func(_ cacheKey, _ []byte) uint32 { return 1 }).
		WithTTL(ttl).
		Build()
	if err != nil {
		panic("netutil: failed to create download cache: " + err.Error())
	}
	return &CachingDownloader{next: next, cache: cache}
}

// Download serves from the cache unless req.NoCache is set.
func (c *CachingDownloader) Download(ctx context.Context, req Request) ([]byte, error) {
	key := requestKey(req)
	if !req.NoCache {
		if body, ok := c.cache.Get(key); ok {
			return body, nil
		}
	}

	body, err := c.next.Download(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, body)
	return body, nil
}

// Len returns the number of cached bodies.
func (c *CachingDownloader) Len() int {
	return c.cache.Size()
}

// Close stops the cache's background goroutines.
func (c *CachingDownloader) Close() {
	c.cache.Close()
}

// requestKey hashes the parts of a request that select the upstream
// response. Timeout and NoCache are excluded.
func requestKey(req Request) cacheKey {
	names := make([]string, 0, len(req.Headers))
	for name := range req.Headers {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(req.NormalizedMethod())
	b.WriteByte(0)
	b.WriteString(req.URL)
	b.WriteByte(0)
	for _, name := range names {
		b.WriteString(strings.ToLower(name))
		b.WriteByte(':')
		b.WriteString(req.Headers[name])
		b.WriteByte(0)
	}
	b.WriteString(req.UserAgent)
	b.WriteByte(0)
	b.WriteString(req.Body)

	h128 := xxh3.HashString128(b.String())
	var k cacheKey
	binary.LittleEndian.PutUint64(k[:8], h128.Lo)
	binary.LittleEndian.PutUint64(k[8:], h128.Hi)
	return k
}
