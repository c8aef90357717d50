package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	interfaces "github.com/sheikh-saqib/atm-ledger/internal/interfaces"
)

// Keyed events choose their own partition key, so one account's events stay ordered.
type Keyed interface {
	PartitionKey() string
}

type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, topic string, event any) error {
	msg, err := buildMessage(topic, event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func buildMessage(topic string, event any) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}

	msg := kafka.Message{
		Topic: topic,
		Value: data,
	}
	if k, ok := event.(Keyed); ok {
		msg.Key = []byte(k.PartitionKey())
	}
	return msg, nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
