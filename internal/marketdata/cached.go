package marketdata

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/gauger/internal/metrics"
	"github.com/yourusername/gauger/internal/models"
)

const universeKey = "universe"

// CacheKey identifies one ticker history over a day range
type CacheKey struct {
	Source string
	Ticker string
	Start  time.Time
	End    time.Time
}

// String returns string representation of cache key
func (k CacheKey) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", k.Source, k.Ticker, k.Start.Format(DateLayout), k.End.Format(DateLayout))
}

// CachedProvider serves repeated fetches from an in-memory TTL cache
type CachedProvider struct {
	next   Provider
	cache  *cache.Cache
	ttl    time.Duration
	logger *logrus.Logger

	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewCachedProvider wraps next with a cache whose entries live for ttl
func NewCachedProvider(next Provider, ttl time.Duration, logger *logrus.Logger) *CachedProvider {
	if logger == nil {
		logger = logrus.New()
	}
	return &CachedProvider{
		next:   next,
		cache:  cache.New(ttl, ttl*2),
		ttl:    ttl,
		logger: logger,
	}
}

// Name returns the wrapped provider's name
func (c *CachedProvider) Name() string {
	return c.next.Name()
}

// ListAllTickers caches the wrapped universe
func (c *CachedProvider) ListAllTickers(ctx context.Context) ([]string, error) {
	if v, found := c.cache.Get(universeKey); found {
		if tickers, ok := v.([]string); ok {
			return append([]string(nil), tickers...), nil
		}
	}
	tickers, err := c.next.ListAllTickers(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(universeKey, append([]string(nil), tickers...), c.ttl)
	return tickers, nil
}

// FetchAll fetches the universe through the cache
func (c *CachedProvider) FetchAll(ctx context.Context, start, end time.Time) (models.Table, []string, error) {
	return fetchAll(ctx, c, start, end)
}

// Fetch returns cached histories and fetches only the missing tickers
func (c *CachedProvider) Fetch(ctx context.Context, tickers []string, start, end time.Time) (models.Table, error) {
	table := make(models.Table, len(tickers))
	var missing []string

	for _, ticker := range tickers {
		key := c.key(ticker, start, end)
		if v, found := c.cache.Get(key.String()); found {
			if bars, ok := v.(models.Bars); ok {
				c.recordLookup(true)
				table[ticker] = copyBars(bars)
				continue
			}
		}
		c.recordLookup(false)
		missing = append(missing, ticker)
	}

	if len(missing) == 0 {
		metrics.RecordFetch(c.Name(), "cached", 0)
		c.logger.WithField("tickers", strings.Join(tickers, ",")).Debug("Cache hit for price histories")
		return table, nil
	}

	began := time.Now()
	fetched, err := c.next.Fetch(ctx, missing, start, end)
	if err != nil {
		metrics.RecordFetch(c.Name(), "failure", time.Since(began).Seconds())
		return nil, err
	}
	metrics.RecordFetch(c.Name(), "success", time.Since(began).Seconds())

	// absent tickers are not cached and are refetched on the next call
	for _, ticker := range missing {
		bars, ok := fetched[ticker]
		if !ok || len(bars) == 0 {
			continue
		}
		c.cache.Set(c.key(ticker, start, end).String(), copyBars(bars), c.ttl)
		table[ticker] = bars
	}
	return table, nil
}

func (c *CachedProvider) key(ticker string, start, end time.Time) CacheKey {
	return CacheKey{
		Source: c.next.Name(),
		Ticker: ticker,
		Start:  start.UTC().Truncate(24 * time.Hour),
		End:    end.UTC().Truncate(24 * time.Hour),
	}
}

func (c *CachedProvider) recordLookup(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if hit {
		c.hitCount++
	} else {
		c.missCount++
	}
	metrics.UpdateCacheHitRatio(float64(c.hitCount) / float64(c.hitCount+c.missCount))
}

func copyBars(bars models.Bars) models.Bars {
	if bars == nil {
		return models.Bars{}
	}
	out := make(models.Bars, len(bars))
	copy(out, bars)
	return out
}
