package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"arbwatch/internal/domain/models"
	"arbwatch/internal/service/pricestate"
	applogger "arbwatch/pkg/logger"
	"arbwatch/pkg/metrics"
)

var t0 = time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)

func referenceConfig() MonitorConfig {
	return MonitorConfig{
		VenueA:     "binance",
		VenueB:     "coinbase",
		Threshold:  20,
		TickPeriod: 100 * time.Millisecond,
		Cooldown:   time.Second,
	}
}

func newMonitor(t *testing.T, cfg MonitorConfig) (*SpreadMonitor, *pricestate.Store, *recordingEmitter) {
	t.Helper()
	state := pricestate.New(cfg.VenueA, cfg.VenueB)
	em := &recordingEmitter{}
	m, err := NewSpreadMonitor(cfg, state, em, newMetrics(), applogger.Nop())
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}
	return m, state, em
}

func TestMonitorEndToEndScenario(t *testing.T) {
	m, state, em := newMonitor(t, referenceConfig())
	pricesA := []float64{100, 100, 140}
	pricesB := []float64{100, 100, 100}

	var signals []*models.ArbitrageSignal
	for i := range pricesA {
		state.Set("binance", pricesA[i])
		state.Set("coinbase", pricesB[i])
		_, sig, ok := m.Tick(t0.Add(time.Duration(i) * 100 * time.Millisecond))
		if !ok {
			t.Fatalf("tick %d skipped", i)
		}
		if sig != nil {
			signals = append(signals, sig)
		}
		if i < 2 && sig != nil {
			t.Fatalf("tick %d: unexpected signal", i)
		}
	}
	if len(signals) != 1 || signals[0].Spread != 40 {
		t.Fatalf("expected one signal with spread 40, got %+v", signals)
	}
	st := m.Stats()
	if st.TradeCount != 1 || !st.TotalProfit.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("unexpected stats %+v", st)
	}
	if em.count(models.EventObservation) != 3 || em.count(models.EventSignal) != 1 {
		t.Fatalf("unexpected events %d obs / %d signals", em.count(models.EventObservation), em.count(models.EventSignal))
	}
	last := em.events[len(em.events)-1]
	if last.Signal == nil || last.Stats.TradeCount != 1 || last.State != models.StateCooldown {
		t.Fatalf("unexpected signal event %+v", last)
	}
}

func TestMonitorObservationsCarryStats(t *testing.T) {
	m, state, em := newMonitor(t, referenceConfig())
	state.Set("binance", 140)
	state.Set("coinbase", 100)
	m.Tick(t0)
	m.Tick(t0.Add(100 * time.Millisecond))

	last := em.events[len(em.events)-1]
	if last.Kind != models.EventObservation || last.Signal != nil {
		t.Fatalf("expected a plain observation during cooldown, got %+v", last)
	}
	if last.Stats.TradeCount != 1 || !last.Stats.TotalProfit.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("observation lost session stats: %+v", last.Stats)
	}
}

func TestMonitorSkipsWhenVenueUnset(t *testing.T) {
	m, state, em := newMonitor(t, referenceConfig())
	state.Set("binance", 50)
	for i := 0; i < 20; i++ {
		if _, sig, ok := m.Tick(t0.Add(time.Duration(i) * time.Second)); ok || sig != nil {
			t.Fatalf("tick %d should be skipped", i)
		}
	}
	if m.Stats().TradeCount != 0 || len(em.events) != 0 {
		t.Fatalf("skipped ticks must produce nothing")
	}

	m2, state2, _ := newMonitor(t, referenceConfig())
	state2.Set("coinbase", 100)
	if _, _, ok := m2.Tick(t0); ok {
		t.Fatalf("venue A unset: tick should be skipped")
	}
}

func TestMonitorThresholdBoundary(t *testing.T) {
	cases := []struct {
		name   string
		a, b   float64
		signal bool
	}{
		{"exactly threshold", 120, 100, false},
		{"exactly negative threshold", 100, 120, false},
		{"threshold plus epsilon", 120.01, 100, true},
		{"negative beyond threshold", 100, 120.01, true},
		{"below threshold", 110, 100, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, state, _ := newMonitor(t, referenceConfig())
			state.Set("binance", tc.a)
			state.Set("coinbase", tc.b)
			obs, sig, ok := m.Tick(t0)
			if !ok {
				t.Fatalf("tick skipped")
			}
			if (sig != nil) != tc.signal {
				t.Fatalf("signal=%v want %v (spread %v)", sig != nil, tc.signal, obs.Spread)
			}
			if obs.Profitable != (tc.a > tc.b) {
				t.Fatalf("profitable flag wrong for spread %v", obs.Spread)
			}
		})
	}
}

func TestMonitorNegativeSpreadProfitIsAbsolute(t *testing.T) {
	m, state, _ := newMonitor(t, referenceConfig())
	state.Set("binance", 100)
	state.Set("coinbase", 130)
	_, sig, _ := m.Tick(t0)
	if sig == nil || sig.Spread != -30 || !sig.Profit.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("unexpected signal %+v", sig)
	}
}

func TestMonitorCooldown(t *testing.T) {
	m, state, em := newMonitor(t, referenceConfig())
	state.Set("binance", 150)
	state.Set("coinbase", 100)

	if _, sig, _ := m.Tick(t0); sig == nil {
		t.Fatalf("first tick should fire")
	}
	if m.State(t0.Add(500*time.Millisecond)) != models.StateCooldown {
		t.Fatalf("expected cooldown state")
	}
	for _, d := range []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 999 * time.Millisecond} {
		if _, sig, ok := m.Tick(t0.Add(d)); sig != nil || !ok {
			t.Fatalf("tick at +%v: expected observation without signal", d)
		}
	}
	if m.Stats().TradeCount != 1 {
		t.Fatalf("expected 1 trade during cooldown, got %d", m.Stats().TradeCount)
	}
	if em.count(models.EventObservation) != 4 {
		t.Fatalf("status must continue during cooldown, got %d observations", em.count(models.EventObservation))
	}

	if m.State(t0.Add(time.Second)) != models.StateIdle {
		t.Fatalf("expected idle after cooldown")
	}
	if _, sig, _ := m.Tick(t0.Add(time.Second)); sig == nil {
		t.Fatalf("signal should fire again after cooldown")
	}
	st := m.Stats()
	if st.TradeCount != 2 || !st.TotalProfit.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestMonitorStaleness(t *testing.T) {
	cfg := referenceConfig()
	cfg.MaxStaleness = 2 * time.Second
	m, state, _ := newMonitor(t, cfg)
	state.Publish(models.PriceSample{Venue: "binance", Price: 150, ObservedAt: t0})
	state.Publish(models.PriceSample{Venue: "coinbase", Price: 100, ObservedAt: t0})

	if _, _, ok := m.Tick(t0.Add(time.Second)); !ok {
		t.Fatalf("fresh prices should be used")
	}
	if _, _, ok := m.Tick(t0.Add(3 * time.Second)); ok {
		t.Fatalf("stale prices should skip the tick")
	}
}

func TestMonitorDroppedEventsDoNotBlock(t *testing.T) {
	cfg := referenceConfig()
	state := pricestate.New()
	reg := prometheus.NewRegistry()
	m, err := NewSpreadMonitor(cfg, state, &recordingEmitter{full: true}, metrics.New(reg), applogger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	state.Set("binance", 200)
	state.Set("coinbase", 100)
	if _, sig, _ := m.Tick(t0); sig == nil {
		t.Fatalf("dropped events must not affect decisions")
	}
	// drops are the emitter's to count
	if n, err := testutil.GatherAndCount(reg, "arbwatch_errors_total"); err != nil || n != 0 {
		t.Fatalf("monitor recorded %d error series (err %v)", n, err)
	}
}

func TestMonitorRejectsInvalidConfig(t *testing.T) {
	bad := []MonitorConfig{
		{VenueA: "a", VenueB: "a", TickPeriod: time.Second},
		{VenueA: "a", VenueB: "b"},
		{VenueA: "a", VenueB: "b", TickPeriod: time.Second, Threshold: -1},
		{VenueB: "b", TickPeriod: time.Second},
	}
	for i, cfg := range bad {
		if _, err := NewSpreadMonitor(cfg, pricestate.New(), nil, newMetrics(), applogger.Nop()); !errors.Is(err, ErrInvalidMonitorConfig) {
			t.Fatalf("case %d: expected ErrInvalidMonitorConfig, got %v", i, err)
		}
	}
}

func TestMonitorRunStopsOnCancel(t *testing.T) {
	cfg := referenceConfig()
	cfg.TickPeriod = time.Millisecond
	m, state, em := newMonitor(t, cfg)
	state.Set("binance", 100)
	state.Set("coinbase", 100)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := m.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if em.count(models.EventObservation) == 0 {
		t.Fatalf("expected observations while running")
	}
}
