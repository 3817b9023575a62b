package repository

import (
	"context"
	"time"

	"arbwatch/internal/domain/models"
)

type jsonPublisher interface {
	PublishJSON(ctx context.Context, key []byte, value interface{}) error
	Close() error
}

// KafkaSignalSink publishes every arbitrage signal, keyed by venue pair.
type KafkaSignalSink struct {
	producer jsonPublisher
}

func NewKafkaSignalSink(producer jsonPublisher) *KafkaSignalSink {
	return &KafkaSignalSink{producer: producer}
}

type signalMessage struct {
	VenueA      string    `json:"venue_a"`
	VenueB      string    `json:"venue_b"`
	PriceA      float64   `json:"price_a"`
	PriceB      float64   `json:"price_b"`
	Spread      float64   `json:"spread"`
	Profit      string    `json:"profit"`
	TotalProfit string    `json:"total_profit"`
	TradeCount  int       `json:"trade_count"`
	GeneratedAt time.Time `json:"generated_at"`
}

func (s *KafkaSignalSink) Name() string { return "kafka" }

func (s *KafkaSignalSink) Handle(ctx context.Context, ev models.MonitorEvent) error {
	if ev.Kind != models.EventSignal || ev.Signal == nil {
		return nil
	}
	obs := ev.Signal.Observation
	msg := signalMessage{
		VenueA:      string(obs.VenueA),
		VenueB:      string(obs.VenueB),
		PriceA:      obs.PriceA,
		PriceB:      obs.PriceB,
		Spread:      ev.Signal.Spread,
		Profit:      ev.Signal.Profit.String(),
		TotalProfit: ev.Stats.TotalProfit.String(),
		TradeCount:  ev.Stats.TradeCount,
		GeneratedAt: ev.Signal.GeneratedAt,
	}
	return s.producer.PublishJSON(ctx, []byte(msg.VenueA+"/"+msg.VenueB), msg)
}

func (s *KafkaSignalSink) Close() error { return s.producer.Close() }
