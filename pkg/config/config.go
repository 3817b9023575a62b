package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string        `yaml:"environment" default:"local" validate:"required"`
	Log         LogConfig     `yaml:"log"`
	Server      ServerConfig  `yaml:"server"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Monitor     MonitorConfig `yaml:"monitor"`
	Venues      []VenueConfig `yaml:"venues" validate:"required,min=2,unique=Name,dive"`
	Pipeline    struct {
		BufferSize  int           `yaml:"buffer_size" default:"1024" validate:"gt=0"`
		SinkTimeout time.Duration `yaml:"sink_timeout" default:"2s" validate:"gt=0"`
	} `yaml:"pipeline"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stdout"`
}

type ServerConfig struct {
	Enabled         bool          `yaml:"enabled" default:"true"`
	Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"5s"`
	// Per-IP token bucket for /api; a zero rate disables it.
	RateBurst     float64 `yaml:"rate_burst" default:"20" validate:"gte=0"`
	RatePerSecond float64 `yaml:"rate_per_second" default:"10" validate:"gte=0"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

// MonitorConfig drives the spread decision loop.
type MonitorConfig struct {
	VenueA       string        `yaml:"venue_a" default:"binance" validate:"required"`
	VenueB       string        `yaml:"venue_b" default:"coinbase" validate:"required,nefield=VenueA"`
	Threshold    float64       `yaml:"threshold" default:"20" validate:"gte=0"`
	TickPeriod   time.Duration `yaml:"tick_period" default:"100ms" validate:"gt=0"`
	Cooldown     time.Duration `yaml:"cooldown" default:"1s" validate:"gte=0"`
	MaxStaleness time.Duration `yaml:"max_staleness" validate:"gte=0"` // 0 disables staleness checks
}

type VenueConfig struct {
	Name             string          `yaml:"name" validate:"required"`
	URL              string          `yaml:"url" validate:"required,url,startswith=ws"`
	Subscribe        string          `yaml:"subscribe"`
	UserAgent        string          `yaml:"user_agent" default:"crypto-client-v1"`
	HandshakeTimeout time.Duration   `yaml:"handshake_timeout" default:"30s" validate:"gt=0"`
	PingInterval     time.Duration   `yaml:"ping_interval" default:"15s" validate:"gte=0"`
	Decoder          DecoderConfig   `yaml:"decoder"`
	Reconnect        ReconnectConfig `yaml:"reconnect"`
}

type DecoderConfig struct {
	PriceField string `yaml:"price_field" validate:"required"`
	TypeField  string `yaml:"type_field"`
	TypeValue  string `yaml:"type_value" validate:"required_with=TypeField"`
}

// ReconnectConfig is off by default: a failed feed stays down and its price freezes.
type ReconnectConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MinDelay    time.Duration `yaml:"min_delay" default:"1s" validate:"gt=0"`
	MaxDelay    time.Duration `yaml:"max_delay" default:"30s" validate:"gtefield=MinDelay"`
	MaxAttempts int           `yaml:"max_attempts" validate:"gte=0"` // 0 = unlimited
}

type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"` // must be non-empty when enabled, see Validate
	Topic        string        `yaml:"topic" default:"arbwatch.signals"`
	RequiredAcks int           `yaml:"required_acks" default:"1"`
	Compression  string        `yaml:"compression" default:"snappy" validate:"oneof=gzip snappy lz4 zstd"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
	Async        bool          `yaml:"async" default:"true"`
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Host     string        `yaml:"host" default:"localhost"`
	Port     int           `yaml:"port" default:"6379"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix" default:"arbwatch"`
	PoolSize int           `yaml:"pool_size" default:"4" validate:"gt=0"`
	MinIdle  int           `yaml:"min_idle" default:"1" validate:"gte=0"`
	TTL      time.Duration `yaml:"ttl" default:"1m"`
}

type ClickHouseConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Host        string        `yaml:"host" default:"localhost"`
	Port        int           `yaml:"port" default:"9000"`
	Database    string        `yaml:"database" default:"arbwatch"`
	User        string        `yaml:"user" default:"default"`
	Password    string        `yaml:"password"`
	Table       string        `yaml:"table" default:"signals"`
	DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
	AsyncInsert bool          `yaml:"async_insert" default:"true"`
}

var validate = validator.New()

// Default returns the built-in configuration: two BTC feeds, reference monitor settings,
// every external sink disabled.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	c.Venues = DefaultVenues()
	if err := c.applyVenueDefaults(); err != nil {
		return nil, err
	}
	return &c, nil
}

// DefaultVenues describes the reference trade and ticker feeds.
func DefaultVenues() []VenueConfig {
	return []VenueConfig{
		{
			Name:    "binance",
			URL:     "wss://stream.binance.com:9443/ws/btcusdt@trade",
			Decoder: DecoderConfig{PriceField: "p", TypeField: "e", TypeValue: "trade"},
		},
		{
			Name:      "coinbase",
			URL:       "wss://ws-feed.exchange.coinbase.com",
			Subscribe: `{"type":"subscribe","channels":[{"name":"ticker","product_ids":["BTC-USD"]}]}`,
			Decoder:   DecoderConfig{PriceField: "price", TypeField: "type", TypeValue: "ticker"},
		},
	}
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	c.Venues = nil
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(c.Venues) == 0 {
		c.Venues = DefaultVenues()
	}
	if err := c.applyVenueDefaults(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("ARB_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("ARB_THRESHOLD: %w", err)
		}
		c.Monitor.Threshold = f
	}
	if v := getenv("ARB_TICK_PERIOD"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ARB_TICK_PERIOD: %w", err)
		}
		c.Monitor.TickPeriod = d
	}
	if v := getenv("ARB_COOLDOWN"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ARB_COOLDOWN: %w", err)
		}
		c.Monitor.Cooldown = d
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := getenv("HTTP_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = p
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Redis.Host = host
		if ok {
			p, err := strconv.Atoi(port)
			if err != nil {
				return fmt.Errorf("REDIS_ADDR: %w", err)
			}
			c.Redis.Port = p
		}
		c.Redis.Enabled = true
	}
	return nil
}

func (c *Config) applyVenueDefaults() error {
	for i := range c.Venues {
		if err := defaults.Set(&c.Venues[i]); err != nil {
			return fmt.Errorf("venue %d defaults: %w", i, err)
		}
	}
	return nil
}

// Venue returns the venue named name.
func (c *Config) Venue(name string) (VenueConfig, bool) {
	for _, v := range c.Venues {
		if v.Name == name {
			return v, true
		}
	}
	return VenueConfig{}, false
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, ok := c.Venue(c.Monitor.VenueA); !ok {
		return fmt.Errorf("monitor.venue_a %q is not a configured venue", c.Monitor.VenueA)
	}
	if _, ok := c.Venue(c.Monitor.VenueB); !ok {
		return fmt.Errorf("monitor.venue_b %q is not a configured venue", c.Monitor.VenueB)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers must not be empty when kafka is enabled")
	}
	if c.Server.RatePerSecond > 0 && c.Server.RateBurst < 1 {
		return fmt.Errorf("server.rate_burst must be >= 1 when server.rate_per_second is set")
	}
	return nil
}
