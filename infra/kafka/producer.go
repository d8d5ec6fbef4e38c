// Package kafka streams recorded trades straight to a Kafka topic with
// kafka-go, for deployments that skip the durable outbox.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"tierbook/domain/orderbook"
	"tierbook/infra/codec"
)

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer  MessageWriter
	timeout time.Duration
}

var _ orderbook.TradeSink = (*Producer)(nil)

func NewProducer(brokers []string, topic string) *Producer {
	return NewProducerWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
	})
}

func NewProducerWithWriter(w MessageWriter) *Producer {
	return &Producer{writer: w, timeout: 5 * time.Second}
}

func (p *Producer) Send(
	ctx context.Context,
	key []byte,
	value []byte,
) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
}

// Add publishes t keyed by instrument, blocking until the brokers ack or
// the send times out. It runs under the book's match guard, so a slow
// cluster slows matching for that book.
func (p *Producer) Add(t *orderbook.Trade) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.Send(ctx, codec.TradeKey(t), codec.EncodeTrade(nil, t)); err != nil {
		return fmt.Errorf("kafka: publish trade %d: %w", t.ID, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
