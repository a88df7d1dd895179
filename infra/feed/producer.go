// Package feed publishes market data (depth snapshots and trades) to
// kafka for downstream consumers.
package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"tradematch/service"
)

// Producer writes market-data events to one kafka topic, keyed by
// instrument so per-instrument ordering is preserved.
type Producer struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewProducer(brokers []string, topic string, log *zap.Logger) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
		log: log.Named("feed"),
	}
}

type bookEvent struct {
	Type string `json:"type"`
	service.BookView
}

type tradesEvent struct {
	Type       string              `json:"type"`
	Instrument string              `json:"ticker"`
	Trades     []service.TradeView `json:"trades"`
}

// PublishBook sends a depth snapshot.
func (p *Producer) PublishBook(ctx context.Context, view service.BookView) error {
	return p.send(ctx, view.Instrument, bookEvent{Type: "book", BookView: view})
}

// PublishTrades sends one executed trade batch.
func (p *Producer) PublishTrades(ctx context.Context, instrument string, trades []service.TradeView) error {
	if len(trades) == 0 {
		return nil
	}
	return p.send(ctx, instrument, tradesEvent{Type: "trades", Instrument: instrument, Trades: trades})
}

func (p *Producer) send(ctx context.Context, key string, event any) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	}); err != nil {
		p.log.Warn("market data publish failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
