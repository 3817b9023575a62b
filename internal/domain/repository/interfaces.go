package repository

import (
	"context"
	"time"

	"arbwatch/internal/domain/models"
)

// Conn is a bidirectional message stream to one venue.
type Conn interface {
	Send(ctx context.Context, msg []byte) error
	// Receive blocks until the next data message arrives or the stream fails.
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Dialer opens a Conn for a venue. Transport security and endpoint addressing live here.
type Dialer interface {
	Dial(ctx context.Context, venue models.Venue) (Conn, error)
}

// Decoder extracts a price from one raw message. It must be pure and total:
// unrelated or malformed input yields ok == false.
type Decoder interface {
	Decode(msg []byte) (price float64, ok bool)
}

// DecoderFunc adapts a plain function to Decoder.
type DecoderFunc func(msg []byte) (float64, bool)

func (f DecoderFunc) Decode(msg []byte) (float64, bool) { return f(msg) }

// PriceWriter is the write side of the shared price state.
type PriceWriter interface {
	Set(venue models.Venue, price float64)
}

// PriceReader is the read side of the shared price state.
type PriceReader interface {
	Get(venue models.Venue) (float64, bool)
	Sample(venue models.Venue) (models.PriceSample, bool)
	Venues() []models.Venue
}

// Emitter receives monitor events without blocking the caller.
type Emitter interface {
	Publish(ev models.MonitorEvent) bool
}

// Sink consumes monitor events off the decision path.
type Sink interface {
	Name() string
	Handle(ctx context.Context, ev models.MonitorEvent) error
	Close() error
}

type Metrics interface {
	RecordMessage(venue models.Venue, result string)
	RecordError(kind string)
	RecordLastPrice(venue models.Venue, price float64)
	RecordSpread(spread float64)
	RecordDecisionLatency(d time.Duration)
	RecordSignal(profit float64)
	RecordPipelineDepth(n int)
}
