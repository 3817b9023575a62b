package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"arbwatch/internal/service/pricestate"
	"arbwatch/internal/service/venue"
	applogger "arbwatch/pkg/logger"
)

func TestSupervisorWithoutReconnectFailsOnce(t *testing.T) {
	d := &fakeDialer{conns: []*scriptConn{{}, {}}}
	state := pricestate.New()
	r := NewFeedReader("binance", d, venue.BinanceTradeDecoder(), state, nil, newMetrics(), applogger.Nop())
	s := NewFeedSupervisor(r, ReconnectPolicy{}, newMetrics(), applogger.Nop())

	if err := s.Run(context.Background()); !errors.Is(err, ErrFeedClosed) {
		t.Fatalf("expected feed error, got %v", err)
	}
	if d.dials != 1 {
		t.Fatalf("expected exactly one dial, got %d", d.dials)
	}
}

func recordDelays(s *FeedSupervisor) *[]time.Duration {
	var delays []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) bool {
		delays = append(delays, d)
		return true
	}
	return &delays
}

func sameDelays(got, want []time.Duration) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestSupervisorBacksOffOnConsecutiveFailures(t *testing.T) {
	d := &fakeDialer{err: errors.New("down")}
	r := NewFeedReader("binance", d, venue.BinanceTradeDecoder(), pricestate.New(), nil, newMetrics(), applogger.Nop())
	s := NewFeedSupervisor(r, ReconnectPolicy{Enabled: true, MinDelay: time.Second, MaxDelay: 3 * time.Second, MaxAttempts: 3},
		newMetrics(), applogger.Nop())
	delays := recordDelays(s)

	if err := s.Run(context.Background()); err == nil {
		t.Fatalf("expected error once attempts are exhausted")
	}
	if d.dials != 4 {
		t.Fatalf("expected 4 dials, got %d", d.dials)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}
	if !sameDelays(*delays, want) {
		t.Fatalf("delays: got %v want %v", *delays, want)
	}
}

func TestSupervisorResetsAfterHealthySession(t *testing.T) {
	d := &fakeDialer{conns: []*scriptConn{
		{msgs: [][]byte{[]byte(`{"e":"trade","p":"10"}`)}},
		{msgs: [][]byte{[]byte(`{"e":"trade","p":"11"}`)}},
		{msgs: [][]byte{[]byte(`{"e":"trade","p":"12"}`)}},
		{msgs: [][]byte{[]byte(`{"e":"trade","p":"13"}`)}},
	}}
	state := pricestate.New()
	r := NewFeedReader("binance", d, venue.BinanceTradeDecoder(), state, nil, newMetrics(), applogger.Nop())
	s := NewFeedSupervisor(r, ReconnectPolicy{Enabled: true, MinDelay: time.Second, MaxDelay: time.Minute, MaxAttempts: 1},
		newMetrics(), applogger.Nop())
	delays := recordDelays(s)

	if err := s.Run(context.Background()); err == nil {
		t.Fatalf("expected error once the dialer runs dry")
	}
	// every healthy session is redialled at the minimum delay; the fifth dial
	// fails and exhausts the single attempt left after the last drop
	if d.dials != 5 {
		t.Fatalf("expected 5 dials, got %d", d.dials)
	}
	want := []time.Duration{time.Second, time.Second, time.Second, time.Second}
	if !sameDelays(*delays, want) {
		t.Fatalf("delays: got %v want %v", *delays, want)
	}
	if p, _ := state.Get("binance"); p != 13 {
		t.Fatalf("expected 13, got %v", p)
	}
}

func TestSupervisorStopsOnCancelDuringBackoff(t *testing.T) {
	d := &fakeDialer{err: errors.New("down")}
	r := NewFeedReader("binance", d, venue.BinanceTradeDecoder(), pricestate.New(), nil, newMetrics(), applogger.Nop())
	s := NewFeedSupervisor(r, ReconnectPolicy{Enabled: true, MinDelay: time.Hour}, newMetrics(), applogger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	s.sleep = func(context.Context, time.Duration) bool {
		cancel()
		return false
	}
	if err := s.Run(ctx); err != nil {
		t.Fatalf("expected nil after cancel, got %v", err)
	}
}
