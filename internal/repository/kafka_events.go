package repository

import (
	"context"

	"LiqPulse/internal/domain/models"
	"LiqPulse/internal/domain/repository"
	pkgkafka "LiqPulse/pkg/kafka"
)

// envelope is the wire shape shared by the Kafka publisher and the WebSocket
// hub: a type discriminator plus the event payload.
type envelope struct {
	Type string       `json:"type"`
	Data models.Event `json:"data"`
}

// KafkaEventSink publishes engine events to a Kafka topic. Messages are keyed
// by instrument for market events and by signal id for trade events so that
// per-entity ordering survives partitioning.
type KafkaEventSink struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaEventSink creates a Kafka-backed event sink.
func NewKafkaEventSink(producer *pkgkafka.Producer, topic string) repository.EventSink {
	return &KafkaEventSink{producer: producer, topic: topic}
}

func (s *KafkaEventSink) Deliver(ctx context.Context, ev models.Event) error {
	return s.producer.Publish(ctx, s.topic, eventKey(ev), envelope{Type: ev.EventType(), Data: ev})
}

func (s *KafkaEventSink) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}

func eventKey(ev models.Event) []byte {
	switch v := ev.(type) {
	case models.BarAccepted:
		return []byte(v.Bar.Instrument)
	case models.ReadingAccepted:
		return []byte(v.Reading.Instrument)
	case models.SignalFired:
		return []byte(v.SignalID)
	case models.TradeExited:
		return []byte(v.SignalID)
	default:
		return nil
	}
}
