package oddsfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Stream operations
const (
	OpSubscribe = "subscribe"
	OpOdds      = "odds"
	OpHeartbeat = "heartbeat"
	OpStatus    = "status"
)

// StreamMessage is a frame received from the odds stream
type StreamMessage struct {
	Op     string `json:"op"`
	Status string `json:"status,omitempty"`
	oddsPayload
}

// SubscriptionMessage subscribes to live odds for a set of races
type SubscriptionMessage struct {
	Op      string   `json:"op"`
	APIKey  string   `json:"api_key,omitempty"`
	RaceIDs []string `json:"race_ids"`
}

// ReconnectConfig controls reconnection behavior
type ReconnectConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultReconnectConfig returns default reconnection configuration
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:        10,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 1.5,
	}
}

// StreamClient receives pushed odds snapshots over WebSocket and writes them to an OddsCache
type StreamClient struct {
	url             string
	apiKey          string
	cache           *OddsCache
	reconnectConfig ReconnectConfig
	logger          *logrus.Entry
	now             func() time.Time

	mu              sync.RWMutex
	conn            *websocket.Conn
	subscribed      []string
	lastMessageTime time.Time
}

// NewStreamClient creates a stream client that fills cache
func NewStreamClient(streamURL, apiKey string, cache *OddsCache, logger *logrus.Logger) *StreamClient {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &StreamClient{
		url:             streamURL,
		apiKey:          apiKey,
		cache:           cache,
		reconnectConfig: DefaultReconnectConfig(),
		logger:          logger.WithField("component", "odds_stream"),
		now:             time.Now,
	}
}

// SetReconnectConfig overrides the reconnection policy
func (s *StreamClient) SetReconnectConfig(cfg ReconnectConfig) {
	s.reconnectConfig = cfg
}

// Connect dials the stream
func (s *StreamClient) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return fmt.Errorf("already connected")
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := http.Header{}
	if s.apiKey != "" {
		header.Set("X-API-Key", s.apiKey)
	}
	conn, _, err := dialer.DialContext(ctx, s.url, header)
	if err != nil {
		return fmt.Errorf("dial odds stream: %w", err)
	}
	s.conn = conn
	s.lastMessageTime = s.now()
	s.logger.WithField("url", s.url).Info("Connected to odds stream")
	return nil
}

// Subscribe requests live odds for the given races. The set is replayed after reconnects.
func (s *StreamClient) Subscribe(raceIDs []string) error {
	s.mu.Lock()
	s.subscribed = append([]string(nil), raceIDs...)
	s.mu.Unlock()
	return s.sendMessage(SubscriptionMessage{Op: OpSubscribe, APIKey: s.apiKey, RaceIDs: raceIDs})
}

// Run reads until ctx is cancelled, reconnecting with exponential backoff on failure
func (s *StreamClient) Run(ctx context.Context) error {
	backoff := s.reconnectConfig.InitialBackoff
	attempts := 0

	for {
		if !s.IsConnected() {
			if err := s.Connect(ctx); err != nil {
				attempts++
				if attempts > s.reconnectConfig.MaxRetries {
					return fmt.Errorf("odds stream: giving up after %d attempts: %w", attempts-1, err)
				}
				s.logger.WithError(err).WithField("attempt", attempts).Warn("Odds stream connect failed")
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(backoff):
				}
				backoff = time.Duration(float64(backoff) * s.reconnectConfig.BackoffMultiplier)
				if backoff > s.reconnectConfig.MaxBackoff {
					backoff = s.reconnectConfig.MaxBackoff
				}
				continue
			}
			if err := s.resubscribe(); err != nil {
				s.logger.WithError(err).Warn("Odds stream resubscribe failed")
			}
		}
		attempts = 0
		backoff = s.reconnectConfig.InitialBackoff

		err := s.readMessages(ctx)
		if ctx.Err() != nil {
			s.dropConn()
			return ctx.Err()
		}
		s.logger.WithError(err).Warn("Odds stream disconnected")
		s.dropConn()
	}
}

// readMessages blocks until the connection fails or ctx is cancelled
func (s *StreamClient) readMessages(ctx context.Context) error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.lastMessageTime = s.now()
		s.mu.Unlock()

		if err := s.handleMessage(data); err != nil {
			s.logger.WithError(err).Debug("Ignoring odds stream frame")
		}
	}
}

func (s *StreamClient) handleMessage(data []byte) error {
	var msg StreamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}

	switch msg.Op {
	case OpOdds:
		if msg.RaceID == "" {
			return errors.New("odds frame without race_id")
		}
		odds, dropped, err := msg.toMarketOdds(msg.RaceID, s.now())
		if err != nil {
			return err
		}
		s.cache.Set(odds)
		s.logger.WithFields(logrus.Fields{
			"race_id":      msg.RaceID,
			"combinations": len(odds.Trifecta),
			"dropped":      dropped,
		}).Debug("Odds pushed")
	case OpHeartbeat:
	case OpStatus:
		if msg.Status != "" && msg.Status != "ok" {
			return fmt.Errorf("stream status %s", msg.Status)
		}
	default:
		return fmt.Errorf("unknown op %q", msg.Op)
	}
	return nil
}

func (s *StreamClient) resubscribe() error {
	s.mu.RLock()
	ids := append([]string(nil), s.subscribed...)
	s.mu.RUnlock()
	if len(ids) == 0 {
		return nil
	}
	return s.sendMessage(SubscriptionMessage{Op: OpSubscribe, APIKey: s.apiKey, RaceIDs: ids})
}

func (s *StreamClient) sendMessage(msg interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write stream message: %w", err)
	}
	return nil
}

func (s *StreamClient) dropConn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

// IsConnected returns whether the client is connected
func (s *StreamClient) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn != nil
}

// LastMessageTime returns the time the last frame was received
func (s *StreamClient) LastMessageTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastMessageTime
}

// Close closes the stream connection
func (s *StreamClient) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = s.conn.Close()
	s.conn = nil
	return err
}
