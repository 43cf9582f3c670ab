package oddsfeed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/boatrace-edge/internal/models"
)

func testHTTPConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:           2 * time.Second,
		MaxRetries:        0,
		RetryWaitMin:      time.Millisecond,
		RetryWaitMax:      5 * time.Millisecond,
		RateLimit:         1000,
		CircuitBreakerMax: 2,
		CircuitCooldown:   time.Hour,
	}
}

func TestClientGetOdds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/races/20240203-01-01/odds/trifecta", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"race_id": "20240203-01-01",
			"fetched_at": "2024-02-03T10:00:00Z",
			"trifecta": {"1-2-3": "12.5", "1-3-2": 18.2, "4-4-1": 9.0, "2-1-3": "1.0"}
		}`))
	}))
	defer server.Close()

	client := NewClientWithHTTP(server.URL+"/", "secret", NewRateLimitedHTTPClient(testHTTPConfig(), nil), nil)
	odds, err := client.GetOdds(context.Background(), "20240203-01-01")
	require.NoError(t, err)

	assert.Equal(t, "20240203-01-01", odds.RaceID)
	assert.Equal(t, time.Date(2024, 2, 3, 10, 0, 0, 0, time.UTC), odds.FetchedAt.UTC())
	assert.Len(t, odds.Trifecta, 2)

	v, ok := odds.Get(models.Trifecta{First: 1, Second: 2, Third: 3})
	require.True(t, ok)
	assert.InDelta(t, 12.5, v, 1e-9)
	v, ok = odds.Get(models.Trifecta{First: 1, Second: 3, Third: 2})
	require.True(t, ok)
	assert.InDelta(t, 18.2, v, 1e-9)
}

func TestClientGetOddsErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
	}{
		{name: "unknown race", status: http.StatusNotFound, body: "no such race", wantCode: CodeNotFound},
		{name: "bad key", status: http.StatusUnauthorized, body: "denied", wantCode: CodeUnauthorized},
		{name: "malformed body", status: http.StatusOK, body: "{not json", wantCode: CodeBadPayload},
		{name: "wrong race", status: http.StatusOK, body: `{"race_id":"other","trifecta":{}}`, wantCode: CodeBadPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClientWithHTTP(server.URL, "", NewRateLimitedHTTPClient(testHTTPConfig(), nil), nil)
			_, err := client.GetOdds(context.Background(), "r1")
			require.Error(t, err)

			var fe *FeedError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.wantCode, fe.Code)
			assert.Equal(t, "r1", fe.RaceID)
			assert.Equal(t, tt.wantCode == CodeNotFound, IsNotFound(err))
		})
	}
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	httpClient := NewRateLimitedHTTPClient(testHTTPConfig(), nil)
	client := NewClientWithHTTP(server.URL, "", httpClient, nil)

	for i := 0; i < 2; i++ {
		_, err := client.GetOdds(context.Background(), "r1")
		require.Error(t, err)
	}
	assert.True(t, httpClient.IsOpen())

	_, err := client.GetOdds(context.Background(), "r1")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCircuitBreakerHalfOpenAfterCooldown(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"trifecta":{"1-2-3":10}}`))
	}))
	defer server.Close()

	cfg := testHTTPConfig()
	cfg.CircuitCooldown = 20 * time.Millisecond
	httpClient := NewRateLimitedHTTPClient(cfg, nil)
	client := NewClientWithHTTP(server.URL, "", httpClient, nil)

	for i := 0; i < 2; i++ {
		_, _ = client.GetOdds(context.Background(), "r1")
	}
	require.True(t, httpClient.IsOpen())

	fail.Store(false)
	time.Sleep(30 * time.Millisecond)
	odds, err := client.GetOdds(context.Background(), "r1")
	require.NoError(t, err)
	assert.Len(t, odds.Trifecta, 1)
	assert.False(t, httpClient.IsOpen())
}

func TestOddsCache(t *testing.T) {
	c := NewOddsCache(time.Minute)
	t0 := time.Date(2024, 2, 3, 10, 0, 0, 0, time.UTC)

	_, ok := c.Get("r1")
	assert.False(t, ok)

	c.Set(&models.MarketOdds{RaceID: "r1", FetchedAt: t0.Add(time.Minute)})
	c.Set(&models.MarketOdds{RaceID: "r1", FetchedAt: t0})

	got, ok := c.Get("r1")
	require.True(t, ok)
	assert.Equal(t, t0.Add(time.Minute), got.FetchedAt, "older snapshot must not replace newer")

	hits, misses, items := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, 1, items)
	assert.InDelta(t, 0.5, c.HitRate(), 1e-12)

	c.Invalidate("r1")
	_, ok = c.Get("r1")
	assert.False(t, ok)
}

type stubFetcher struct {
	odds  *models.MarketOdds
	err   error
	calls int
}

func (s *stubFetcher) GetOdds(ctx context.Context, raceID string) (*models.MarketOdds, error) {
	s.calls++
	return s.odds, s.err
}

func TestProviderPrefersFreshCache(t *testing.T) {
	now := time.Date(2024, 2, 3, 10, 0, 0, 0, time.UTC)
	cache := NewOddsCache(time.Minute)
	cache.Set(&models.MarketOdds{RaceID: "r1", FetchedAt: now.Add(-10 * time.Second)})

	fetcher := &stubFetcher{odds: &models.MarketOdds{RaceID: "r1", FetchedAt: now}}
	p := NewProviderWith(cache, fetcher, 30*time.Second, nil)
	p.now = func() time.Time { return now }

	odds, err := p.GetOdds(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, now.Add(-10*time.Second), odds.FetchedAt)
	assert.Equal(t, 0, fetcher.calls)
}

func TestProviderFallsBackWhenCacheStale(t *testing.T) {
	now := time.Date(2024, 2, 3, 10, 0, 0, 0, time.UTC)
	cache := NewOddsCache(time.Minute)
	cache.Set(&models.MarketOdds{RaceID: "r1", FetchedAt: now.Add(-45 * time.Second)})

	fetcher := &stubFetcher{odds: &models.MarketOdds{RaceID: "r1", FetchedAt: now}}
	p := NewProviderWith(cache, fetcher, 30*time.Second, nil)
	p.now = func() time.Time { return now }

	odds, err := p.GetOdds(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, now, odds.FetchedAt)
	assert.Equal(t, 1, fetcher.calls)

	cached, ok := cache.Get("r1")
	require.True(t, ok)
	assert.Equal(t, now, cached.FetchedAt)
}

func TestProviderRejectsStaleUpstream(t *testing.T) {
	now := time.Date(2024, 2, 3, 10, 0, 0, 0, time.UTC)
	fetcher := &stubFetcher{odds: &models.MarketOdds{RaceID: "r1", FetchedAt: now.Add(-time.Hour)}}
	p := NewProviderWith(NewOddsCache(time.Minute), fetcher, 30*time.Second, nil)
	p.now = func() time.Time { return now }

	_, err := p.GetOdds(context.Background(), "r1")
	assert.ErrorIs(t, err, ErrStaleOdds)
}

func TestProviderPropagatesFetchError(t *testing.T) {
	fetcher := &stubFetcher{err: &FeedError{Code: CodeNotFound, RaceID: "r1"}}
	p := NewProviderWith(NewOddsCache(time.Minute), fetcher, 30*time.Second, nil)

	_, err := p.GetOdds(context.Background(), "r1")
	assert.True(t, IsNotFound(err))
}

func TestStreamClientFillsCache(t *testing.T) {
	upgrader := websocket.Upgrader{}
	subscribed := make(chan SubscriptionMessage, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub SubscriptionMessage
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		subscribed <- sub

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"op":"heartbeat"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"op":"odds","race_id":"r1","trifecta":{"1-2-3":"15.5","3-2-1":40}}`))

		// hold the connection until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	cache := NewOddsCache(time.Minute)
	stream := NewStreamClient("ws"+strings.TrimPrefix(server.URL, "http"), "key", cache, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, stream.Connect(ctx))
	require.True(t, stream.IsConnected())
	require.NoError(t, stream.Subscribe([]string{"r1"}))

	done := make(chan error, 1)
	go func() { done <- stream.Run(ctx) }()

	sub := <-subscribed
	assert.Equal(t, OpSubscribe, sub.Op)
	assert.Equal(t, []string{"r1"}, sub.RaceIDs)

	require.Eventually(t, func() bool {
		_, ok := cache.Get("r1")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	odds, _ := cache.Get("r1")
	v, ok := odds.Get(models.Trifecta{First: 3, Second: 2, Third: 1})
	require.True(t, ok)
	assert.InDelta(t, 40.0, v, 1e-9)
	assert.False(t, stream.LastMessageTime().IsZero())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after cancel")
	}
	assert.False(t, stream.IsConnected())
}

func TestStreamHandleMessage(t *testing.T) {
	stream := NewStreamClient("ws://unused", "", NewOddsCache(time.Minute), nil)

	assert.NoError(t, stream.handleMessage([]byte(`{"op":"status","status":"ok"}`)))
	assert.Error(t, stream.handleMessage([]byte(`{"op":"status","status":"throttled"}`)))
	assert.Error(t, stream.handleMessage([]byte(`{"op":"odds","trifecta":{}}`)))
	assert.Error(t, stream.handleMessage([]byte(`{"op":"mystery"}`)))
	assert.Error(t, stream.handleMessage([]byte(`not json`)))

	payload, err := json.Marshal(map[string]any{"op": "odds", "race_id": "r2", "trifecta": map[string]float64{"6-5-4": 250}})
	require.NoError(t, err)
	require.NoError(t, stream.handleMessage(payload))
	_, ok := stream.cache.Get("r2")
	assert.True(t, ok)
}
