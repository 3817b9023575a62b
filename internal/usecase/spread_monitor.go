package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"arbwatch/internal/domain/models"
	drepo "arbwatch/internal/domain/repository"
	applogger "arbwatch/pkg/logger"
)

var ErrInvalidMonitorConfig = errors.New("invalid monitor config")

// MonitorConfig holds the decision loop parameters.
type MonitorConfig struct {
	VenueA       models.Venue
	VenueB       models.Venue
	Threshold    float64
	TickPeriod   time.Duration
	Cooldown     time.Duration
	MaxStaleness time.Duration // 0 = a price never goes stale
}

func (c MonitorConfig) validate() error {
	switch {
	case c.VenueA == "" || c.VenueB == "":
		return fmt.Errorf("%w: both venues are required", ErrInvalidMonitorConfig)
	case c.VenueA == c.VenueB:
		return fmt.Errorf("%w: venues must differ", ErrInvalidMonitorConfig)
	case c.TickPeriod <= 0:
		return fmt.Errorf("%w: tick period must be positive", ErrInvalidMonitorConfig)
	case c.Threshold < 0 || math.IsNaN(c.Threshold):
		return fmt.Errorf("%w: threshold must be >= 0", ErrInvalidMonitorConfig)
	case c.Cooldown < 0 || c.MaxStaleness < 0:
		return fmt.Errorf("%w: durations must be >= 0", ErrInvalidMonitorConfig)
	}
	return nil
}

// SpreadMonitor samples the shared price state on a fixed tick, emits a status
// observation every tick and simulates a trade when |spread| exceeds the threshold.
//
// Session stats and cooldown state belong to the goroutine calling Tick/Run.
type SpreadMonitor struct {
	cfg     MonitorConfig
	prices  drepo.PriceReader
	emitter drepo.Emitter
	metrics drepo.Metrics
	logger  *applogger.Logger

	stats         models.SessionStats
	cooldownUntil time.Time
}

func NewSpreadMonitor(
	cfg MonitorConfig,
	prices drepo.PriceReader,
	emitter drepo.Emitter,
	metrics drepo.Metrics,
	logger *applogger.Logger,
) (*SpreadMonitor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &SpreadMonitor{
		cfg:     cfg,
		prices:  prices,
		emitter: emitter,
		metrics: metrics,
		logger:  logger,
		stats:   models.SessionStats{TotalProfit: decimal.Zero},
	}, nil
}

// Run ticks until ctx is cancelled.
func (m *SpreadMonitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.TickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			m.Tick(now)
		}
	}
}

// Tick runs one decision step at now. ok is false when the tick was skipped
// because a price is unset (or stale); sig is nil unless a trade fired.
func (m *SpreadMonitor) Tick(now time.Time) (obs models.SpreadObservation, sig *models.ArbitrageSignal, ok bool) {
	start := time.Now()
	a, okA := m.sample(m.cfg.VenueA, now)
	b, okB := m.sample(m.cfg.VenueB, now)
	if !okA || !okB {
		return models.SpreadObservation{}, nil, false
	}

	spread := a - b
	profitable := spread > 0
	latency := time.Since(start)

	obs = models.SpreadObservation{
		VenueA:     m.cfg.VenueA,
		VenueB:     m.cfg.VenueB,
		PriceA:     a,
		PriceB:     b,
		Spread:     spread,
		Profitable: profitable,
		Latency:    latency,
		ComputedAt: now,
	}
	m.metrics.RecordSpread(spread)
	m.metrics.RecordDecisionLatency(latency)
	m.emit(models.MonitorEvent{Kind: models.EventObservation, State: m.State(now), Observation: obs, Stats: m.stats})

	if math.Abs(spread) <= m.cfg.Threshold || m.State(now) == models.StateCooldown {
		return obs, nil, true
	}

	profit := decimal.NewFromFloat(math.Abs(spread))
	m.stats.TradeCount++
	m.stats.TotalProfit = m.stats.TotalProfit.Add(profit)
	m.cooldownUntil = now.Add(m.cfg.Cooldown)

	sig = &models.ArbitrageSignal{
		Spread:      spread,
		Profit:      profit,
		Observation: obs,
		GeneratedAt: now,
	}
	m.metrics.RecordSignal(math.Abs(spread))
	m.logger.Info("arbitrage signal",
		applogger.Float64("spread", spread),
		applogger.String("profit", profit.StringFixed(2)),
		applogger.String("total_profit", m.stats.TotalProfit.StringFixed(2)),
		applogger.Int("trades", m.stats.TradeCount),
	)
	m.emit(models.MonitorEvent{Kind: models.EventSignal, State: models.StateCooldown, Observation: obs, Signal: sig, Stats: m.stats})
	return obs, sig, true
}

// State reports whether new signals are currently suppressed.
func (m *SpreadMonitor) State(now time.Time) models.MonitorState {
	if now.Before(m.cooldownUntil) {
		return models.StateCooldown
	}
	return models.StateIdle
}

// Stats returns the session totals. Only safe from the monitor goroutine.
func (m *SpreadMonitor) Stats() models.SessionStats { return m.stats }

func (m *SpreadMonitor) sample(venue models.Venue, now time.Time) (float64, bool) {
	s, ok := m.prices.Sample(venue)
	if !ok {
		return 0, false
	}
	if m.cfg.MaxStaleness > 0 && now.Sub(s.ObservedAt) > m.cfg.MaxStaleness {
		return 0, false
	}
	return s.Price, true
}

// emit hands ev to the emitter, which accounts for anything it drops.
func (m *SpreadMonitor) emit(ev models.MonitorEvent) {
	if m.emitter == nil {
		return
	}
	m.emitter.Publish(ev)
}
