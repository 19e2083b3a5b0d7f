package di

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"LiqPulse/internal/domain/repository"
	"LiqPulse/internal/handler/api"
	internalrepo "LiqPulse/internal/repository"
	"LiqPulse/internal/service/coinbase"
	"LiqPulse/internal/service/gateio"
	"LiqPulse/internal/service/ratelimit"
	"LiqPulse/internal/usecase"
	"LiqPulse/pkg/cache"
	pkgch "LiqPulse/pkg/clickhouse"
	"LiqPulse/pkg/config"
	xhttp "LiqPulse/pkg/http"
	pkgkafka "LiqPulse/pkg/kafka"
	applogger "LiqPulse/pkg/logger"
	"LiqPulse/pkg/metrics"
	"LiqPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if lc.Level == "" {
		lc.Level = "info"
	}
	if lc.Format == "" {
		lc.Format = "json"
	}
	if lc.Output == "" {
		lc.Output = "stdout"
	}
	return applogger.New(lc)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideEngine creates the core engine with the default rule set.
func ProvideEngine(cfg *config.Config, log *applogger.Logger, m repository.Metrics) *usecase.Engine {
	momentum := cfg.Engine.MomentumInstrument
	if momentum == "" {
		momentum = cfg.Engine.PrimaryInstrument
	}
	return usecase.NewEngine(usecase.EngineConfig{
		PrimaryInstrument:  cfg.Engine.PrimaryInstrument,
		MomentumInstrument: momentum,
		BarInterval:        cfg.Engine.BarInterval,
		WindowBars:         cfg.Engine.WindowBars,
		WindowReadings:     cfg.Engine.WindowReadings,
		Retention:          cfg.Engine.Retention,
	}, usecase.DefaultRules(), log, m)
}

// ProvideBarStream creates the Coinbase candle stream.
func ProvideBarStream(cfg *config.Config, log *applogger.Logger) (repository.BarStream, error) {
	creds, err := coinbase.NewCredentials(cfg.Coinbase.KeyName, cfg.Coinbase.PrivateKey)
	if err != nil {
		return nil, err
	}
	return coinbase.New(
		creds,
		cfg.Coinbase.WebSocketURL,
		cfg.Coinbase.RestURL,
		cfg.Engine.Instruments,
		cfg.Coinbase.ReconnectDelay,
		cfg.Coinbase.PingInterval,
		log,
	), nil
}

// ProvideLiquidationSource creates the Gate.io liquidation source.
func ProvideLiquidationSource(cfg *config.Config, log *applogger.Logger) repository.LiquidationSource {
	return gateio.New(cfg.Gateio.BaseURL, cfg.Gateio.Contracts, ratelimit.New(), log)
}

// ProvideBarCollector creates the bar ingestion loop.
func ProvideBarCollector(stream repository.BarStream, engine *usecase.Engine, m repository.Metrics, log *applogger.Logger, cfg *config.Config) *usecase.BarCollector {
	lookback := cfg.Engine.Retention
	if lookback <= 0 {
		lookback = 30 * 24 * time.Hour
	}
	return usecase.NewBarCollector(stream, engine, m, log, cfg.Engine.Instruments, lookback)
}

// ProvideLiquidationPoller creates the hourly liquidation polling loop.
func ProvideLiquidationPoller(source repository.LiquidationSource, engine *usecase.Engine, m repository.Metrics, log *applogger.Logger, cfg *config.Config) *usecase.LiquidationPoller {
	interval := cfg.Gateio.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}
	bootstrap := cfg.Gateio.Bootstrap
	if bootstrap <= 0 {
		bootstrap = cfg.Engine.WindowReadings
	}
	return usecase.NewLiquidationPoller(source, engine, m, log, cfg.Engine.Instruments, interval, bootstrap)
}

// ProvideClickHouseClient creates a ClickHouse client with the journal
// schema, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.SchemaStatements()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideCache creates the candles response cache: Redis when configured,
// in-process otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	host, port := splitHostPort(cfg.Redis.Addr)
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, err
	}
	return cache.NewLayeredCache(rc), nil
}

// ProvideHub creates the WebSocket broadcast hub.
func ProvideHub(log *applogger.Logger) *api.Hub {
	return api.NewHub(log)
}

// ProvideDispatcher assembles the outbound fan-out over every enabled sink.
func ProvideDispatcher(log *applogger.Logger, m repository.Metrics, hub *api.Hub, producer *pkgkafka.Producer, chClient *pkgch.Client, cfg *config.Config) *usecase.Dispatcher {
	sinks := []repository.EventSink{hub}
	if producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaEventSink(producer, cfg.Kafka.Topic))
	}
	if chClient != nil {
		journal := internalrepo.NewCHJournal(chClient)
		journal.SetLogger(log)
		sinks = append(sinks, journal)
	}
	return usecase.NewDispatcher(log, m, sinks...)
}

// ProvideHandler creates the HTTP surface.
func ProvideHandler(log *applogger.Logger, engine *usecase.Engine, cacheSvc cache.Service, hub *api.Hub, collector *usecase.BarCollector, cfg *config.Config) xhttp.Handler {
	return api.NewHandler(log, engine, cacheSvc, hub, cfg.Engine.Instruments, collector.IsConnected)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	engine *usecase.Engine,
	collector *usecase.BarCollector,
	poller *usecase.LiquidationPoller,
	dispatcher *usecase.Dispatcher,
	handler xhttp.Handler,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, log, engine, collector, poller, dispatcher, handler, chClient)
}

func splitHostPort(addr string) (string, int) {
	host, portStr, found := strings.Cut(addr, ":")
	if !found {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}
