package console

import (
	"context"
	"fmt"
	"time"

	"arbwatch/internal/domain/models"
	applogger "arbwatch/pkg/logger"
)

// fastDecision marks decision latencies worth highlighting.
const fastDecision = 10 * time.Microsecond

// Reporter renders monitor events as operator status lines.
type Reporter struct {
	logger *applogger.Logger
}

func NewReporter(logger *applogger.Logger) *Reporter {
	return &Reporter{logger: logger}
}

func (r *Reporter) Name() string { return "console" }

func (r *Reporter) Handle(_ context.Context, ev models.MonitorEvent) error {
	obs := ev.Observation
	switch ev.Kind {
	case models.EventObservation:
		r.logger.Info("spread",
			applogger.String("at", obs.ComputedAt.Local().Format("15:04:05")),
			applogger.String(string(obs.VenueA), fmt.Sprintf("%.2f", obs.PriceA)),
			applogger.String(string(obs.VenueB), fmt.Sprintf("%.2f", obs.PriceB)),
			applogger.String("spread", FormatSpread(obs.Spread)),
			applogger.Bool("profitable", obs.Profitable),
			applogger.Int64("latency_us", obs.Latency.Microseconds()),
			applogger.Bool("fast", obs.Latency < fastDecision),
			applogger.String("state", string(ev.State)),
		)
	case models.EventSignal:
		if ev.Signal == nil {
			return nil
		}
		r.logger.Info(">>> ARBITRAGE SIGNAL DETECTED <<<", applogger.String("spread", FormatSpread(ev.Signal.Spread)))
		r.logger.Info("[MOCK TRADE] executing buy/sell order")
		r.logger.Info("trade closed",
			applogger.String("profit", "+$"+ev.Signal.Profit.StringFixed(2)),
			applogger.String("session_profit", "$"+ev.Stats.TotalProfit.StringFixed(2)),
			applogger.Int("trades", ev.Stats.TradeCount),
		)
	}
	return nil
}

func (r *Reporter) Close() error { return nil }

// FormatSpread prints a spread with two decimals and an explicit sign when positive.
func FormatSpread(spread float64) string {
	if spread > 0 {
		return fmt.Sprintf("+%.2f", spread)
	}
	return fmt.Sprintf("%.2f", spread)
}
