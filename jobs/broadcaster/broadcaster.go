// Package broadcaster drains the fill store's outbox to kafka. Fills
// enter the store in state NEW; each cycle publishes NEW and retryable
// FAILED records and advances them to ACKED or FAILED.
package broadcaster

import (
	"context"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"tradematch/infra/fillstore"
)

const (
	drainInterval = 250 * time.Millisecond
	maxRetries    = 5
)

type Broadcaster struct {
	store    *fillstore.Store
	producer sarama.SyncProducer
	topic    string
	log      *zap.Logger
}

func New(store *fillstore.Store, brokers []string, topic string, log *zap.Logger) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return &Broadcaster{
		store:    store,
		producer: producer,
		topic:    topic,
		log:      log.Named("broadcaster"),
	}, nil
}

// Run drains the outbox on a fixed interval until the context ends.
func (b *Broadcaster) Run(ctx context.Context) {
	b.log.Info("started", zap.String("topic", b.topic))

	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.log.Info("stopped")
			return
		case <-ticker.C:
			b.drainOnce()
		}
	}
}

func (b *Broadcaster) drainOnce() {
	_ = b.store.ScanByState(fillstore.StateNew, func(rec fillstore.Record) error {
		b.publish(rec)
		return nil
	})
	_ = b.store.ScanByState(fillstore.StateFailed, func(rec fillstore.Record) error {
		if rec.Retries >= maxRetries {
			return nil
		}
		b.publish(rec)
		return nil
	})
}

// publish walks one record through SENT and on to ACKED or FAILED.
// Marking SENT before the send keeps a crash mid-publish visible.
func (b *Broadcaster) publish(rec fillstore.Record) {
	if err := b.store.MarkSent(rec.Seq); err != nil {
		b.log.Warn("mark sent failed", zap.Uint64("seq", rec.Seq), zap.Error(err))
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(rec.Seq, 10)),
		Value: sarama.ByteEncoder(rec.Payload),
	}

	if _, _, err := b.producer.SendMessage(msg); err != nil {
		b.log.Warn("publish failed", zap.Uint64("seq", rec.Seq), zap.Uint32("retries", rec.Retries), zap.Error(err))
		_ = b.store.MarkFailed(rec.Seq)
		return
	}

	if err := b.store.MarkAcked(rec.Seq); err != nil {
		b.log.Warn("mark acked failed", zap.Uint64("seq", rec.Seq), zap.Error(err))
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
