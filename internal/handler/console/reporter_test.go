package console

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"arbwatch/internal/domain/models"
	applogger "arbwatch/pkg/logger"
)

func TestFormatSpread(t *testing.T) {
	cases := map[float64]string{40: "+40.00", -3.456: "-3.46", 0: "0.00"}
	for in, want := range cases {
		if got := FormatSpread(in); got != want {
			t.Fatalf("FormatSpread(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestReporterRendersObservationAndSignal(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(applogger.NewWithWriter(&buf, zerolog.InfoLevel))
	obs := models.SpreadObservation{
		VenueA: "binance", VenueB: "coinbase", PriceA: 140, PriceB: 100, Spread: 40,
		Profitable: true, Latency: 2 * time.Microsecond, ComputedAt: time.Now(),
	}
	_ = r.Handle(context.Background(), models.MonitorEvent{Kind: models.EventObservation, State: models.StateIdle, Observation: obs})
	_ = r.Handle(context.Background(), models.MonitorEvent{
		Kind:   models.EventSignal,
		Signal: &models.ArbitrageSignal{Spread: 40, Profit: decimal.NewFromInt(40), Observation: obs},
		Stats:  models.SessionStats{TotalProfit: decimal.NewFromInt(40), TradeCount: 1},
	})

	out := buf.String()
	for _, want := range []string{`"binance":"140.00"`, `"spread":"+40.00"`, `"fast":true`, "ARBITRAGE SIGNAL DETECTED", `"session_profit":"$40.00"`, `"trades":1`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %s:\n%s", want, out)
		}
	}
}
