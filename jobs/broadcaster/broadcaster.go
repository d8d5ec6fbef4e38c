// Package broadcaster relays trades from the durable outbox to Kafka.
package broadcaster

import (
	"context"
	"errors"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"tierbook/infra/codec"
	"tierbook/infra/logging"
	"tierbook/infra/outbox"
)

type Broadcaster struct {
	outbox     *outbox.Outbox
	producer   sarama.SyncProducer
	topic      string
	interval   time.Duration
	maxRetries uint32
	log        *zap.Logger
}

// ------------------------------------------------
// CONSTRUCTOR
// ------------------------------------------------

// NewProducer dials brokers with acks from every in-sync replica.
func NewProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Partitioner = sarama.NewHashPartitioner

	return sarama.NewSyncProducer(brokers, cfg)
}

// New relays ob through producer. A record that fails maxRetries
// deliveries is parked as Failed.
func New(
	ob *outbox.Outbox,
	producer sarama.SyncProducer,
	topic string,
	interval time.Duration,
	maxRetries uint32,
	log *zap.Logger,
) (*Broadcaster, error) {
	if ob == nil || producer == nil {
		return nil, errors.New("broadcaster: nil outbox or producer")
	}
	if topic == "" {
		return nil, errors.New("broadcaster: empty topic")
	}
	if interval <= 0 {
		return nil, errors.New("broadcaster: interval must be positive")
	}
	if maxRetries == 0 {
		maxRetries = 1
	}
	return &Broadcaster{
		outbox:     ob,
		producer:   producer,
		topic:      topic,
		interval:   interval,
		maxRetries: maxRetries,
		log:        logging.OrNop(log),
	}, nil
}

// ------------------------------------------------
// LOOP
// ------------------------------------------------

// Run relays every interval until ctx is done, then drops acked records.
func (b *Broadcaster) Run(ctx context.Context) {
	b.log.Info("broadcaster started", zap.String("topic", b.topic))
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.compact()
			b.log.Info("broadcaster stopped")
			return
		case <-ticker.C:
			if _, err := b.RelayOnce(); err != nil {
				b.log.Warn("relay pass failed", zap.Error(err))
			}
			b.compact()
		}
	}
}

func (b *Broadcaster) compact() {
	if _, err := b.outbox.TruncateAcked(); err != nil {
		b.log.Warn("outbox compaction failed", zap.Error(err))
	}
}

// ------------------------------------------------
// RELAY
// ------------------------------------------------

// RelayOnce publishes every pending record once and returns how many were
// acknowledged. Sent records are retried: they are what a crash between
// publish and ack leaves behind, so consumers must tolerate duplicates.
func (b *Broadcaster) RelayOnce() (int, error) {
	acked := 0
	err := b.outbox.ScanByState(func(rec *outbox.Record) error {
		attempt := rec.Retries + 1

		// 1. Mark SENT before publishing
		if err := b.outbox.MarkSent(rec.Seq, attempt); err != nil {
			return err
		}

		// 2. Publish
		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Value: sarama.ByteEncoder(rec.Payload),
		}
		if t, err := rec.Trade(); err == nil {
			msg.Key = sarama.ByteEncoder(codec.TradeKey(t))
		}

		if _, _, err := b.producer.SendMessage(msg); err != nil {
			if attempt >= b.maxRetries {
				b.log.Warn("trade delivery abandoned",
					zap.Uint64("seq", rec.Seq), zap.Uint32("attempts", attempt), zap.Error(err))
				return b.outbox.MarkFailed(rec.Seq, attempt)
			}
			b.log.Warn("trade delivery failed, will retry",
				zap.Uint64("seq", rec.Seq), zap.Uint32("attempts", attempt), zap.Error(err))
			return nil
		}

		// 3. Mark ACKED
		if err := b.outbox.MarkAcked(rec.Seq, attempt); err != nil {
			return err
		}
		acked++
		return nil
	}, outbox.StateNew, outbox.StateSent)
	return acked, err
}

// ------------------------------------------------
// SHUTDOWN
// ------------------------------------------------

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
