// Package publisher emits race decisions to Kafka for downstream reporting.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/boatrace-edge/internal/config"
	"github.com/yourusername/boatrace-edge/internal/metrics"
	"github.com/yourusername/boatrace-edge/internal/models"
)

// DecisionEvent is the message published for each evaluated race
type DecisionEvent struct {
	EventID       uuid.UUID                 `json:"event_id"`
	RunID         uuid.UUID                 `json:"run_id"`
	RaceID        string                    `json:"race_id"`
	EvaluatedAt   time.Time                 `json:"evaluated_at"`
	Weight        float64                   `json:"integration_weight"`
	Instability   int                       `json:"lane_instability"`
	TotalStake    float64                   `json:"total_stake"`
	ExposureScale float64                   `json:"exposure_scale"`
	Decisions     []*models.BettingDecision `json:"decisions"`
}

// Publisher sends decision events
type Publisher interface {
	Publish(ctx context.Context, events ...*DecisionEvent) error
	Close() error
}

// KafkaPublisher wraps a Sarama sync producer
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *logrus.Entry
}

// NewProducerConfig returns the Sarama configuration used for decision publishing
func NewProducerConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_8_0_0
	if clientID != "" {
		cfg.ClientID = clientID
	}
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 3
	return cfg
}

// NewKafkaPublisher connects a producer to the configured brokers
func NewKafkaPublisher(cfg config.KafkaConfig, logger *logrus.Logger) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewProducerConfig(cfg.ClientID))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, cfg.Topic, logger), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *logrus.Logger) *KafkaPublisher {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger.WithField("component", "publisher"),
	}
}

// Publish sends events keyed by race ID so a race's events stay ordered
func (p *KafkaPublisher) Publish(ctx context.Context, events ...*DecisionEvent) error {
	if len(events) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msgs := make([]*sarama.ProducerMessage, 0, len(events))
	for _, ev := range events {
		if ev.EventID == uuid.Nil {
			ev.EventID = uuid.New()
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to encode decision event for race %s: %w", ev.RaceID, err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(ev.RaceID),
			Value: sarama.ByteEncoder(payload),
			Headers: []sarama.RecordHeader{
				{Key: []byte("event_type"), Value: []byte("race_decisions")},
			},
		})
	}

	if err := p.producer.SendMessages(msgs); err != nil {
		metrics.RecordDecisionPublished("error")
		p.logger.WithError(err).WithField("events", len(msgs)).Error("Failed to publish decision events")
		return fmt.Errorf("failed to publish decision events: %w", err)
	}

	for range msgs {
		metrics.RecordDecisionPublished("ok")
	}
	p.logger.WithField("events", len(msgs)).Debug("Published decision events")
	return nil
}

// Close flushes and closes the producer
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher discards events when Kafka is disabled
type NoopPublisher struct{}

// Publish does nothing
func (NoopPublisher) Publish(ctx context.Context, events ...*DecisionEvent) error { return nil }

// Close does nothing
func (NoopPublisher) Close() error { return nil }

// New returns a Kafka publisher when enabled, otherwise a no-op
func New(cfg config.KafkaConfig, logger *logrus.Logger) (Publisher, error) {
	if !cfg.Enabled {
		return NoopPublisher{}, nil
	}
	return NewKafkaPublisher(cfg, logger)
}
