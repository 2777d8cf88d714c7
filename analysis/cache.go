package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parseguard_analysis_cache_hits_total",
		Help: "Analysis results served from cache.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parseguard_analysis_cache_misses_total",
		Help: "Analysis requests that reached the analyzer.",
	})
)

// Cache stores analysis results by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]Candidate, bool, error)
	Set(ctx context.Context, key string, candidates []Candidate) error
}

// CachedAnalyzer serves repeated analyses of identical text from a Cache.
// Cache failures are logged and never fail the analysis.
type CachedAnalyzer struct {
	next  Analyzer
	cache Cache
	log   *zap.Logger
}

// NewCachedAnalyzer decorates next with cache.
func NewCachedAnalyzer(next Analyzer, cache Cache, log *zap.Logger) *CachedAnalyzer {
	return &CachedAnalyzer{next: next, cache: cache, log: log.Named("analysis_cache")}
}

func (c *CachedAnalyzer) Identifier() string {
	return c.next.Identifier()
}

func (c *CachedAnalyzer) Analyze(ctx context.Context, text string) ([]Candidate, error) {
	key := CacheKey(c.next.Identifier(), text)

	cached, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.log.Warn("analysis cache read failed", zap.Error(err))
	}
	if ok {
		cacheHitsTotal.Inc()
		return cached, nil
	}
	cacheMissesTotal.Inc()

	candidates, err := c.next.Analyze(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, candidates); err != nil {
		c.log.Warn("analysis cache write failed", zap.Error(err))
	}
	return candidates, nil
}

// CacheKey hashes the analyzer identifier and text.
func CacheKey(identifier, text string) string {
	h := sha256.New()
	h.Write([]byte(identifier))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// MemoryCache is a per-process LRU with a TTL.
type MemoryCache struct {
	lru *expirable.LRU[string, []Candidate]
}

// NewMemoryCache creates a cache holding at most size entries for ttl.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{lru: expirable.NewLRU[string, []Candidate](size, nil, ttl)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]Candidate, bool, error) {
	v, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]Candidate(nil), v...), true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, candidates []Candidate) error {
	m.lru.Add(key, append([]Candidate(nil), candidates...))
	return nil
}
