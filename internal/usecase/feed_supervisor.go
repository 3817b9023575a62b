package usecase

import (
	"context"
	"time"

	"arbwatch/internal/domain/models"
	drepo "arbwatch/internal/domain/repository"
	applogger "arbwatch/pkg/logger"
)

// ReconnectPolicy controls FeedSupervisor. The zero value disables reconnection.
type ReconnectPolicy struct {
	Enabled     bool
	MinDelay    time.Duration
	MaxDelay    time.Duration
	MaxAttempts int // 0 = unlimited
}

// FeedSupervisor runs a FeedReader and, only when its policy allows it, redials
// after a transport failure with exponential backoff. With reconnection off a
// failed feed stays down and its last price stays frozen in the shared state.
// MaxAttempts bounds consecutive failures: a session that delivered a price
// resets both the attempt count and the backoff.
type FeedSupervisor struct {
	reader  *FeedReader
	policy  ReconnectPolicy
	metrics drepo.Metrics
	logger  *applogger.Logger
	sleep   func(ctx context.Context, d time.Duration) bool
}

func NewFeedSupervisor(reader *FeedReader, policy ReconnectPolicy, metrics drepo.Metrics, logger *applogger.Logger) *FeedSupervisor {
	return &FeedSupervisor{
		reader:  reader,
		policy:  policy,
		metrics: metrics,
		logger:  logger.With(applogger.String("venue", string(reader.Venue()))),
		sleep:   sleepCtx,
	}
}

// Venue returns the supervised venue.
func (s *FeedSupervisor) Venue() models.Venue { return s.reader.Venue() }

// Run returns nil on cancellation, otherwise the last feed error.
func (s *FeedSupervisor) Run(ctx context.Context) error {
	delay := s.policy.MinDelay
	attempts := 0
	for {
		delivered, err := s.reader.run(ctx)
		if err == nil || ctx.Err() != nil {
			return nil
		}
		s.metrics.RecordError("feed_" + string(s.reader.Venue()))
		s.logger.Warn("feed connection lost", applogger.Error(err))

		if !s.policy.Enabled {
			return err
		}
		if delivered {
			attempts = 0
			delay = s.policy.MinDelay
		}
		attempts++
		if s.policy.MaxAttempts > 0 && attempts > s.policy.MaxAttempts {
			s.logger.Error("feed reconnect attempts exhausted", applogger.Int("attempts", attempts-1))
			return err
		}
		s.logger.Warn("feed reconnecting", applogger.Duration("delay", delay), applogger.Int("attempt", attempts))
		if !s.sleep(ctx, delay) {
			return nil
		}
		delay *= 2
		if s.policy.MaxDelay > 0 && delay > s.policy.MaxDelay {
			delay = s.policy.MaxDelay
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
