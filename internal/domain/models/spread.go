package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SpreadObservation is recomputed every monitor tick.
type SpreadObservation struct {
	VenueA     Venue         `json:"venue_a"`
	VenueB     Venue         `json:"venue_b"`
	PriceA     float64       `json:"price_a"`
	PriceB     float64       `json:"price_b"`
	Spread     float64       `json:"spread"` // PriceA - PriceB
	Profitable bool          `json:"profitable"`
	Latency    time.Duration `json:"latency_ns"` // cost of the decision step itself
	ComputedAt time.Time     `json:"computed_at"`
}

// ArbitrageSignal is raised when |spread| exceeds the threshold.
type ArbitrageSignal struct {
	Spread      float64           `json:"spread"`
	Profit      decimal.Decimal   `json:"profit"`
	Observation SpreadObservation `json:"observation"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// SessionStats accumulates the simulated trading outcome.
type SessionStats struct {
	TotalProfit decimal.Decimal `json:"total_profit"`
	TradeCount  int             `json:"trade_count"`
}

// MonitorState is the trigger state of the spread monitor.
type MonitorState string

const (
	StateIdle     MonitorState = "idle"
	StateCooldown MonitorState = "cooldown"
)

// EventKind distinguishes monitor events.
type EventKind string

const (
	EventObservation EventKind = "observation"
	EventSignal      EventKind = "signal"
)

// MonitorEvent is what the monitor hands to status output and sinks.
// Stats carries the session totals on every event; Signal is set only for EventSignal.
type MonitorEvent struct {
	Kind        EventKind         `json:"kind"`
	State       MonitorState      `json:"state"`
	Observation SpreadObservation `json:"observation"`
	Signal      *ArbitrageSignal  `json:"signal,omitempty"`
	Stats       SessionStats      `json:"stats"`
}
