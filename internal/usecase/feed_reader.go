package usecase

import (
	"context"
	"errors"
	"fmt"

	"arbwatch/internal/domain/models"
	drepo "arbwatch/internal/domain/repository"
	applogger "arbwatch/pkg/logger"
)

// ErrFeedClosed is returned when a feed connection ends without the caller cancelling it.
var ErrFeedClosed = errors.New("feed connection closed")

// FeedReader keeps the shared price state current for one venue.
type FeedReader struct {
	venue     models.Venue
	dialer    drepo.Dialer
	decoder   drepo.Decoder
	prices    drepo.PriceWriter
	subscribe []byte
	metrics   drepo.Metrics
	logger    *applogger.Logger
}

// NewFeedReader binds a reader to exactly one venue. subscribe may be empty.
func NewFeedReader(
	venue models.Venue,
	dialer drepo.Dialer,
	decoder drepo.Decoder,
	prices drepo.PriceWriter,
	subscribe []byte,
	metrics drepo.Metrics,
	logger *applogger.Logger,
) *FeedReader {
	return &FeedReader{
		venue:     venue,
		dialer:    dialer,
		decoder:   decoder,
		prices:    prices,
		subscribe: subscribe,
		metrics:   metrics,
		logger:    logger.With(applogger.String("venue", string(venue))),
	}
}

// Venue returns the venue this reader is bound to.
func (r *FeedReader) Venue() models.Venue { return r.venue }

// Run holds one connection for its whole lifetime. It returns nil once ctx is
// cancelled and an error for any transport failure; it never reconnects.
func (r *FeedReader) Run(ctx context.Context) error {
	_, err := r.run(ctx)
	return err
}

// run also reports whether the session delivered at least one decoded price.
func (r *FeedReader) run(ctx context.Context) (delivered bool, err error) {
	conn, err := r.dialer.Dial(ctx, r.venue)
	if err != nil {
		return false, fmt.Errorf("%s dial: %w", r.venue, err)
	}
	defer conn.Close()

	if len(r.subscribe) > 0 {
		if err := conn.Send(ctx, r.subscribe); err != nil {
			return false, fmt.Errorf("%s subscribe: %w", r.venue, err)
		}
	}
	r.logger.Info("feed connected")

	for {
		msg, err := conn.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return delivered, nil
			}
			return delivered, fmt.Errorf("%s receive: %w", r.venue, errors.Join(ErrFeedClosed, err))
		}
		price, ok := r.decoder.Decode(msg)
		if !ok {
			r.metrics.RecordMessage(r.venue, "skipped")
			continue
		}
		r.prices.Set(r.venue, price)
		r.metrics.RecordMessage(r.venue, "decoded")
		r.metrics.RecordLastPrice(r.venue, price)
		delivered = true
	}
}
