package oddsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/boatrace-edge/internal/config"
	"github.com/yourusername/boatrace-edge/internal/models"
)

// oddsPayload is the wire form of a trifecta odds snapshot. Payouts may be
// quoted as JSON numbers or strings.
type oddsPayload struct {
	RaceID    string                     `json:"race_id"`
	FetchedAt *time.Time                 `json:"fetched_at,omitempty"`
	Trifecta  map[string]decimal.Decimal `json:"trifecta"`
}

// toMarketOdds converts a payload, dropping combinations with unusable payouts
func (p oddsPayload) toMarketOdds(raceID string, now time.Time) (*models.MarketOdds, int, error) {
	if p.RaceID != "" && p.RaceID != raceID {
		return nil, 0, fmt.Errorf("payload for race %s, requested %s", p.RaceID, raceID)
	}
	fetched := now
	if p.FetchedAt != nil && !p.FetchedAt.IsZero() {
		fetched = *p.FetchedAt
	}

	odds := &models.MarketOdds{
		RaceID:    raceID,
		FetchedAt: fetched,
		Trifecta:  make(map[models.Trifecta]float64, len(p.Trifecta)),
	}
	dropped := 0
	for key, payout := range p.Trifecta {
		combo, err := models.ParseTrifecta(key)
		if err != nil || payout.LessThanOrEqual(decimal.NewFromInt(1)) {
			dropped++
			continue
		}
		odds.Trifecta[combo] = payout.InexactFloat64()
	}
	return odds, dropped, nil
}

// Client retrieves trifecta odds from the odds provider's REST API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *RateLimitedHTTPClient
	logger     *logrus.Entry
	now        func() time.Time
}

// NewClient creates an odds client from configuration
func NewClient(cfg config.OddsFeedConfig, logger *logrus.Logger) *Client {
	httpCfg := DefaultHTTPClientConfig()
	httpCfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	httpCfg.MaxRetries = cfg.MaxRetries
	httpCfg.RateLimit = cfg.RateLimit
	return NewClientWithHTTP(cfg.URL, cfg.APIKey, NewRateLimitedHTTPClient(httpCfg, logger), logger)
}

// NewClientWithHTTP creates an odds client around an existing HTTP client
func NewClientWithHTTP(baseURL, apiKey string, httpClient *RateLimitedHTTPClient, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger.WithField("component", "odds_client"),
		now:        time.Now,
	}
}

// GetOdds fetches the current trifecta odds for a race
func (c *Client) GetOdds(ctx context.Context, raceID string) (*models.MarketOdds, error) {
	endpoint := fmt.Sprintf("%s/races/%s/odds/trifecta", c.baseURL, url.PathEscape(raceID))
	headers := map[string]string{"Accept": "application/json"}
	if c.apiKey != "" {
		headers["X-API-Key"] = c.apiKey
	}

	resp, err := c.httpClient.Get(ctx, endpoint, headers)
	if err != nil {
		return nil, fmt.Errorf("fetch odds for race %s: %w", raceID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read odds response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &FeedError{
			Code:       codeForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			RaceID:     raceID,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	var payload oddsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &FeedError{Code: CodeBadPayload, StatusCode: resp.StatusCode, RaceID: raceID, Message: err.Error()}
	}
	odds, dropped, err := payload.toMarketOdds(raceID, c.now())
	if err != nil {
		return nil, &FeedError{Code: CodeBadPayload, StatusCode: resp.StatusCode, RaceID: raceID, Message: err.Error()}
	}
	if dropped > 0 {
		c.logger.WithFields(logrus.Fields{
			"race_id": raceID,
			"dropped": dropped,
		}).Warn("Dropped unusable trifecta quotes")
	}

	c.logger.WithFields(logrus.Fields{
		"race_id":      raceID,
		"combinations": len(odds.Trifecta),
	}).Debug("Fetched trifecta odds")
	return odds, nil
}

// Close releases idle connections
func (c *Client) Close() error {
	return c.httpClient.Close()
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return CodeUnauthorized
	default:
		return CodeUpstream
	}
}
