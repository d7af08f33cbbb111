// Package events publishes saved daily stats to optional downstream sinks.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chrissnell/rhythmanchor/internal/types"
	"github.com/chrissnell/rhythmanchor/pkg/config"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher receives every saved day
type Publisher interface {
	PublishDay(ctx context.Context, username string, entry types.HistoryEntry) error
	Close() error
}

// DaySaved is the message written for each saved day
type DaySaved struct {
	Username       string    `json:"username"`
	Day            string    `json:"day"`
	StabilityIndex int       `json:"stability_index"`
	SavedAt        time.Time `json:"saved_at"`
}

// NoopPublisher drops everything
type NoopPublisher struct{}

func (NoopPublisher) PublishDay(context.Context, string, types.HistoryEntry) error { return nil }
func (NoopPublisher) Close() error                                                 { return nil }

// messageWriter is the part of *kafka.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes DaySaved messages keyed by username
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *zap.SugaredLogger
}

// NewKafkaPublisher creates a synchronous writer for the configured topic
func NewKafkaPublisher(cfg config.KafkaData, logger *zap.SugaredLogger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			RequiredAcks: kafka.RequireOne,
			Async:        false,
			Balancer:     &kafka.Hash{},
		},
		topic:  cfg.Topic,
		logger: logger,
	}
}

func (k *KafkaPublisher) PublishDay(ctx context.Context, username string, entry types.HistoryEntry) error {
	value, err := json.Marshal(DaySaved{
		Username:       username,
		Day:            entry.Day,
		StabilityIndex: entry.StabilityIndex,
		SavedAt:        entry.SavedAt,
	})
	if err != nil {
		return fmt.Errorf("error encoding day event: %w", err)
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(username),
		Value: value,
		Time:  entry.SavedAt,
	})
	if err != nil {
		return fmt.Errorf("error publishing to %s: %w", k.topic, err)
	}
	k.logger.Debugf("published %s for %s to %s", entry.Day, username, k.topic)
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

// New returns a Kafka publisher when one is configured and a no-op otherwise
func New(cfg config.EventsData, logger *zap.SugaredLogger) Publisher {
	if cfg.Kafka == nil {
		return NoopPublisher{}
	}
	logger.Infof("publishing saved days to kafka topic %s (%d brokers)", cfg.Kafka.Topic, len(cfg.Kafka.Brokers))
	return NewKafkaPublisher(*cfg.Kafka, logger)
}
