package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"arbwatch/internal/domain/models"
	domrepo "arbwatch/internal/domain/repository"
	"arbwatch/internal/handler/api"
	"arbwatch/internal/handler/console"
	mid "arbwatch/internal/middleware"
	internalrepo "arbwatch/internal/repository"
	"arbwatch/internal/service/pricestate"
	"arbwatch/internal/service/ratelimit"
	"arbwatch/internal/service/venue"
	"arbwatch/internal/service/wsconn"
	"arbwatch/internal/usecase"
	pkgcache "arbwatch/pkg/cache"
	pkgch "arbwatch/pkg/clickhouse"
	"arbwatch/pkg/config"
	xhttp "arbwatch/pkg/http"
	pkgkafka "arbwatch/pkg/kafka"
	applogger "arbwatch/pkg/logger"
	"arbwatch/pkg/metrics"
	"arbwatch/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvidePriceState creates the shared price state with every configured venue unset.
func ProvidePriceState(cfg *config.Config) *pricestate.Store {
	venues := make([]models.Venue, 0, len(cfg.Venues))
	for _, v := range cfg.Venues {
		venues = append(venues, models.Venue(v.Name))
	}
	return pricestate.New(venues...)
}

// ProvideDialer creates the websocket connection factory.
func ProvideDialer(cfg *config.Config) domrepo.Dialer {
	endpoints := make(map[models.Venue]wsconn.Endpoint, len(cfg.Venues))
	for _, v := range cfg.Venues {
		endpoints[models.Venue(v.Name)] = wsconn.Endpoint{
			URL:              v.URL,
			UserAgent:        v.UserAgent,
			HandshakeTimeout: v.HandshakeTimeout,
			PingInterval:     v.PingInterval,
		}
	}
	return wsconn.New(endpoints)
}

// ProvideFeedSupervisors creates one supervised reader per configured venue.
func ProvideFeedSupervisors(
	cfg *config.Config,
	dialer domrepo.Dialer,
	prices domrepo.PriceWriter,
	m domrepo.Metrics,
	logger *applogger.Logger,
) []*usecase.FeedSupervisor {
	feeds := make([]*usecase.FeedSupervisor, 0, len(cfg.Venues))
	for _, v := range cfg.Venues {
		dec := venue.FieldDecoder{
			PriceField: v.Decoder.PriceField,
			TypeField:  v.Decoder.TypeField,
			TypeValue:  v.Decoder.TypeValue,
		}
		var subscribe []byte
		if v.Subscribe != "" {
			subscribe = []byte(v.Subscribe)
		}
		reader := usecase.NewFeedReader(models.Venue(v.Name), dialer, dec, prices, subscribe, m, logger)
		policy := usecase.ReconnectPolicy{
			Enabled:     v.Reconnect.Enabled,
			MinDelay:    v.Reconnect.MinDelay,
			MaxDelay:    v.Reconnect.MaxDelay,
			MaxAttempts: v.Reconnect.MaxAttempts,
		}
		feeds = append(feeds, usecase.NewFeedSupervisor(reader, policy, m, logger))
	}
	return feeds
}

// ProvideStatusBoard creates the in-memory status sink read by the API.
func ProvideStatusBoard() *internalrepo.StatusBoard {
	return internalrepo.NewStatusBoard()
}

// ProvideClickHouseClient creates a ClickHouse client and its schema, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithDialTimeout(cfg.ClickHouse.DialTimeout),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.SignalSchema(cfg.ClickHouse.Database, cfg.ClickHouse.Table)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideSinks assembles the console reporter, the status board and every enabled external sink.
func ProvideSinks(
	cfg *config.Config,
	logger *applogger.Logger,
	board *internalrepo.StatusBoard,
	ch *pkgch.Client,
) ([]domrepo.Sink, error) {
	sinks := []domrepo.Sink{console.NewReporter(logger), board}

	if cfg.Kafka.Enabled {
		producer, err := pkgkafka.NewProducer(cfg.Kafka.Topic,
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
			pkgkafka.WithAsync(cfg.Kafka.Async),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		sinks = append(sinks, internalrepo.NewKafkaSignalSink(producer))
	}

	if cfg.Redis.Enabled {
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisAddr(net.JoinHostPort(cfg.Redis.Host, strconv.Itoa(cfg.Redis.Port))),
			pkgcache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
			pkgcache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdle),
			pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			closeSinks(sinks)
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		sinks = append(sinks, internalrepo.NewRedisStateSink(rc, cfg.Redis.TTL))
	}

	if ch != nil {
		table := cfg.ClickHouse.Database + "." + cfg.ClickHouse.Table
		sinks = append(sinks, internalrepo.NewClickHouseSignalSink(ch.DB(), table))
	}
	return sinks, nil
}

func closeSinks(sinks []domrepo.Sink) {
	for _, s := range sinks {
		_ = s.Close()
	}
}

// ProvidePipeline creates the event fan-out between the monitor and its sinks.
func ProvidePipeline(cfg *config.Config, sinks []domrepo.Sink, m domrepo.Metrics, logger *applogger.Logger) *mid.EventPipeline {
	return mid.NewEventPipeline(sinks, m, logger,
		mid.WithBufferSize(cfg.Pipeline.BufferSize),
		mid.WithSinkTimeout(cfg.Pipeline.SinkTimeout),
	)
}

// ProvideMonitor creates the spread monitor publishing into the pipeline.
func ProvideMonitor(
	cfg *config.Config,
	prices domrepo.PriceReader,
	pipe *mid.EventPipeline,
	m domrepo.Metrics,
	logger *applogger.Logger,
) (*usecase.SpreadMonitor, error) {
	return usecase.NewSpreadMonitor(usecase.MonitorConfig{
		VenueA:       models.Venue(cfg.Monitor.VenueA),
		VenueB:       models.Venue(cfg.Monitor.VenueB),
		Threshold:    cfg.Monitor.Threshold,
		TickPeriod:   cfg.Monitor.TickPeriod,
		Cooldown:     cfg.Monitor.Cooldown,
		MaxStaleness: cfg.Monitor.MaxStaleness,
	}, prices, pipe, m, logger)
}

// ProvideHTTPServer creates the API server, or nil when disabled.
func ProvideHTTPServer(
	cfg *config.Config,
	logger *applogger.Logger,
	board *internalrepo.StatusBoard,
	prices domrepo.PriceReader,
) *xhttp.Server {
	if !cfg.Server.Enabled {
		return nil
	}
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	handler := api.NewStatusEchoHandler(logger, board, prices)
	if cfg.Server.RatePerSecond > 0 {
		handler.WithRateLimit(ratelimit.New(cfg.Server.RateBurst, cfg.Server.RatePerSecond))
	}
	return xhttp.NewServer(handler, logger,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	logger *applogger.Logger,
	feeds []*usecase.FeedSupervisor,
	monitor *usecase.SpreadMonitor,
	pipe *mid.EventPipeline,
	httpServer *xhttp.Server,
	ch *pkgch.Client,
) *server.App {
	return server.New(logger, feeds, monitor, pipe, httpServer, ch)
}
