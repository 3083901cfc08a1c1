package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Reconciled is emitted once per terminal transition, for downstream
// accounting. Duplicate callbacks do not re-emit it.
type Reconciled struct {
	RequestID       string    `json:"request_id"`
	Status          string    `json:"status"` // "success" | "wrong"
	ConfirmedAmount int64     `json:"confirmed_amount"`
	Ts              time.Time `json:"ts"`
}

type KafkaPublisher struct {
	Writer *kafka.Writer
}

func NewKafkaPublisher(brokers, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		Writer: &kafka.Writer{
			Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) PublishReconciled(ctx context.Context, e Reconciled) error {
	if e.Ts.IsZero() {
		e.Ts = time.Now()
	}
	b, _ := json.Marshal(e)
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.RequestID),
		Value: b,
	})
}

func (p *KafkaPublisher) Close() error { return p.Writer.Close() }
