package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/chrissnell/rhythmanchor/internal/types"
	"github.com/chrissnell/rhythmanchor/pkg/config"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisherPublishDay(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "days", logger: zap.NewNop().Sugar()}

	saved := time.Date(2024, 5, 1, 21, 0, 0, 0, time.UTC)
	err := p.PublishDay(context.Background(), "admin", types.HistoryEntry{Day: "Day 3", StabilityIndex: 64, SavedAt: saved})
	if err != nil {
		t.Fatalf("PublishDay() error = %v", err)
	}

	if len(w.msgs) != 1 {
		t.Fatalf("wrote %d messages", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "admin" {
		t.Errorf("key = %q", msg.Key)
	}

	var ev DaySaved
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if ev.Username != "admin" || ev.Day != "Day 3" || ev.StabilityIndex != 64 || !ev.SavedAt.Equal(saved) {
		t.Errorf("event = %+v", ev)
	}

	if err := p.Close(); err != nil || !w.closed {
		t.Errorf("Close() = %v, closed = %v", err, w.closed)
	}
}

func TestKafkaPublisherError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := &KafkaPublisher{writer: w, topic: "days", logger: zap.NewNop().Sugar()}

	if err := p.PublishDay(context.Background(), "admin", types.HistoryEntry{Day: "Day 1"}); err == nil {
		t.Error("expected an error")
	}
}

func TestNewSelectsPublisher(t *testing.T) {
	logger := zap.NewNop().Sugar()

	if _, ok := New(config.EventsData{}, logger).(NoopPublisher); !ok {
		t.Error("expected a no-op publisher without kafka config")
	}

	p := New(config.EventsData{Kafka: &config.KafkaData{Brokers: []string{"localhost:9092"}, Topic: "days"}}, logger)
	if _, ok := p.(*KafkaPublisher); !ok {
		t.Errorf("got %T, want *KafkaPublisher", p)
	}
	p.Close()
}
