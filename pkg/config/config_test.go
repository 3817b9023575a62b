package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if c.Monitor.Threshold != 20 || c.Monitor.TickPeriod != 100*time.Millisecond || c.Monitor.Cooldown != time.Second {
		t.Fatalf("unexpected monitor defaults %+v", c.Monitor)
	}
	if c.Kafka.Enabled || c.Redis.Enabled || c.ClickHouse.Enabled {
		t.Fatalf("external sinks must be off by default")
	}
	b, ok := c.Venue("binance")
	if !ok || b.UserAgent != "crypto-client-v1" || b.HandshakeTimeout != 30*time.Second || b.Reconnect.Enabled {
		t.Fatalf("unexpected venue defaults %+v", b)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: test
monitor:
  threshold: 5.5
  tick_period: 50ms
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Monitor.Threshold != 5.5 || c.Monitor.TickPeriod != 50*time.Millisecond {
		t.Fatalf("overrides not applied: %+v", c.Monitor)
	}
	if c.Monitor.Cooldown != time.Second || c.Monitor.VenueA != "binance" {
		t.Fatalf("defaults lost: %+v", c.Monitor)
	}
	if len(c.Venues) != 2 {
		t.Fatalf("expected built-in venues, got %d", len(c.Venues))
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"same venues": `
monitor:
  venue_a: binance
  venue_b: binance`,
		"unknown venue": `
monitor:
  venue_b: kraken`,
		"zero period": `
monitor:
  tick_period: 0s`,
		"negative threshold": `
monitor:
  threshold: -1`,
		"http url": `
venues:
  - name: a
    url: https://example.com
    decoder: {price_field: p}
  - name: b
    url: wss://example.com
    decoder: {price_field: p}
monitor: {venue_a: a, venue_b: b}`,
		"missing price field": `
venues:
  - name: a
    url: wss://a.example.com
  - name: b
    url: wss://b.example.com
    decoder: {price_field: p}
monitor: {venue_a: a, venue_b: b}`,
		"duplicate venue": `
venues:
  - name: a
    url: wss://a.example.com
    decoder: {price_field: p}
  - name: a
    url: wss://b.example.com
    decoder: {price_field: p}
monitor: {venue_a: a, venue_b: b}`,
		"kafka without brokers": `
kafka:
  enabled: true
  brokers: []`,
		"rate limit without burst": `
server:
  rate_burst: 0
  rate_per_second: 5`,
	}
	for name, y := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(y)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	env := map[string]string{
		"ARB_THRESHOLD":   "12.5",
		"ARB_TICK_PERIOD": "250ms",
		"KAFKA_BROKERS":   "k1:9092,k2:9092",
		"REDIS_ADDR":      "cache:6380",
	}
	if err := c.applyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if c.Monitor.Threshold != 12.5 || c.Monitor.TickPeriod != 250*time.Millisecond {
		t.Fatalf("monitor env not applied: %+v", c.Monitor)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 {
		t.Fatalf("kafka env not applied: %+v", c.Kafka)
	}
	if !c.Redis.Enabled || c.Redis.Host != "cache" || c.Redis.Port != 6380 {
		t.Fatalf("redis env not applied: %+v", c.Redis)
	}
	if err := c.applyEnv(func(k string) string {
		if k == "ARB_THRESHOLD" {
			return "lots"
		}
		return ""
	}); err == nil {
		t.Fatalf("expected error for bad threshold")
	}
}

func TestLoadRepositoryConfig(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	v, ok := c.Venue("coinbase")
	if !ok || v.Subscribe == "" || v.Decoder.PriceField != "price" {
		t.Fatalf("unexpected coinbase venue %+v", v)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error")
	}
	p := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(p, []byte("monitor: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected parse error")
	}
}
