package oddsfeed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/boatrace-edge/internal/config"
	"github.com/yourusername/boatrace-edge/internal/metrics"
	"github.com/yourusername/boatrace-edge/internal/models"
)

// Fetcher retrieves odds from an upstream source
type Fetcher interface {
	GetOdds(ctx context.Context, raceID string) (*models.MarketOdds, error)
}

// Provider serves odds from the cache when fresh and falls back to the HTTP client
type Provider struct {
	cache   *OddsCache
	fetcher Fetcher
	maxAge  time.Duration
	logger  *logrus.Entry
	now     func() time.Time
}

// NewProvider wires a provider from configuration
func NewProvider(cfg config.OddsFeedConfig, logger *logrus.Logger) (*Provider, *StreamClient) {
	cache := NewOddsCache(time.Duration(cfg.CacheTTLSeconds) * time.Second)
	p := NewProviderWith(cache, NewClient(cfg, logger), time.Duration(cfg.MaxOddsAgeSeconds)*time.Second, logger)

	var stream *StreamClient
	if cfg.StreamURL != "" {
		stream = NewStreamClient(cfg.StreamURL, cfg.APIKey, cache, logger)
	}
	return p, stream
}

// NewProviderWith creates a provider from explicit parts
func NewProviderWith(cache *OddsCache, fetcher Fetcher, maxAge time.Duration, logger *logrus.Logger) *Provider {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Provider{
		cache:   cache,
		fetcher: fetcher,
		maxAge:  maxAge,
		logger:  logger.WithField("component", "odds_provider"),
		now:     time.Now,
	}
}

// GetOdds returns a snapshot no older than the configured maximum age
func (p *Provider) GetOdds(ctx context.Context, raceID string) (*models.MarketOdds, error) {
	start := p.now()

	if odds, ok := p.cache.Get(raceID); ok && odds.Age(start) <= p.maxAge {
		metrics.RecordOddsFetch("cache", "hit", p.now().Sub(start).Seconds())
		return odds, nil
	}

	odds, err := p.fetcher.GetOdds(ctx, raceID)
	elapsed := p.now().Sub(start).Seconds()
	if err != nil {
		metrics.RecordOddsFetch("http", "error", elapsed)
		return nil, err
	}
	if age := odds.Age(p.now()); age > p.maxAge {
		metrics.RecordOddsFetch("http", "stale", elapsed)
		p.logger.WithFields(logrus.Fields{
			"race_id": raceID,
			"age":     age.String(),
		}).Warn("Upstream odds exceed maximum age")
		return nil, fmt.Errorf("%w: race %s odds are %s old", ErrStaleOdds, raceID, age)
	}

	p.cache.Set(odds)
	metrics.RecordOddsFetch("http", "ok", elapsed)
	return odds, nil
}

// Cache exposes the underlying cache, which the stream client also writes to
func (p *Provider) Cache() *OddsCache {
	return p.cache
}
