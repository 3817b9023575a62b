package repository

import (
	"context"
	"database/sql"
	"fmt"

	"arbwatch/internal/domain/models"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ClickHouseSignalSink appends each simulated trade to a MergeTree table.
type ClickHouseSignalSink struct {
	db    execer
	table string
}

// NewClickHouseSignalSink creates the sink; table is "database.table".
func NewClickHouseSignalSink(db execer, table string) *ClickHouseSignalSink {
	return &ClickHouseSignalSink{db: db, table: table}
}

// SignalSchema returns the DDL for the signals table.
func SignalSchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
	ts DateTime64(3),
	venue_a LowCardinality(String),
	venue_b LowCardinality(String),
	price_a Float64,
	price_b Float64,
	spread Float64,
	profit Decimal(38, 8),
	trade_count UInt64
) ENGINE = MergeTree ORDER BY (venue_a, venue_b, ts)`, database, table),
	}
}

func (s *ClickHouseSignalSink) Name() string { return "clickhouse" }

func (s *ClickHouseSignalSink) Handle(ctx context.Context, ev models.MonitorEvent) error {
	if ev.Kind != models.EventSignal || ev.Signal == nil {
		return nil
	}
	obs := ev.Signal.Observation
	q := fmt.Sprintf("INSERT INTO %s (ts, venue_a, venue_b, price_a, price_b, spread, profit, trade_count) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		ev.Signal.GeneratedAt,
		string(obs.VenueA),
		string(obs.VenueB),
		obs.PriceA,
		obs.PriceB,
		ev.Signal.Spread,
		ev.Signal.Profit,
		uint64(ev.Stats.TradeCount),
	)
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// Close is a no-op; the connection pool is owned by pkg/clickhouse.Client.
func (s *ClickHouseSignalSink) Close() error { return nil }
