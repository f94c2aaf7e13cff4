package repository

import (
	"context"
	"time"

	"TurtleStock/internal/domain/errs"
	"TurtleStock/internal/domain/models"
	"TurtleStock/pkg/kafka"
	"TurtleStock/pkg/util"
)

// triggeredEvent is the wire payload for one breakout signal.
type triggeredEvent struct {
	RunID   uint    `json:"run_id"`
	Symbol  string  `json:"symbol"`
	Date    string  `json:"date"`
	Scope   string  `json:"scope"`
	Close   float64 `json:"close"`
	High20d float64 `json:"high_20d"`
	ATR     float64 `json:"atr,omitempty"`
	EmitAt  string  `json:"emit_at"`
}

// KafkaPublisher emits triggered-signal events after a completed run.
// Partitioning hashes on symbol so per-symbol ordering holds downstream.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *kafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// PublishTriggered sends one message per triggered signal in a single batch.
// Non-triggered and non-evaluable signals are skipped.
func (p *KafkaPublisher) PublishTriggered(ctx context.Context, runID uint, signals []*models.Signal) error {
	now := time.Now().UTC().Format(time.RFC3339)
	msgs := make([]kafka.Message, 0, len(signals))
	for _, sig := range signals {
		if !sig.Triggered {
			continue
		}
		ev := triggeredEvent{
			RunID:   runID,
			Symbol:  sig.Symbol,
			Date:    util.FormatDay(sig.Date),
			Scope:   sig.Scope.Key(),
			Close:   sig.Indicators.Close,
			EmitAt:  now,
		}
		if sig.Indicators.High20d != nil {
			ev.High20d = *sig.Indicators.High20d
		}
		if sig.Indicators.ATR != nil {
			ev.ATR = *sig.Indicators.ATR
		}
		msgs = append(msgs, kafka.Message{Key: []byte(sig.Symbol), Value: ev})
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := p.producer.PublishBatch(ctx, p.topic, msgs); err != nil {
		return errs.System("publish triggered signals").WithError(err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher satisfies the publisher contract when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishTriggered(context.Context, uint, []*models.Signal) error { return nil }
func (NoopPublisher) Close() error                                                   { return nil }
