package di

import (
	"context"
	"fmt"
	"time"

	"CoinSage/internal/domain/repository"
	"CoinSage/internal/handler/api"
	internalrepo "CoinSage/internal/repository"
	"CoinSage/internal/service/binance"
	"CoinSage/internal/service/cryptopanic"
	"CoinSage/internal/service/features"
	"CoinSage/internal/service/prediction"
	"CoinSage/internal/service/ratelimit"
	"CoinSage/internal/usecase"
	"CoinSage/pkg/cache"
	pkgch "CoinSage/pkg/clickhouse"
	"CoinSage/pkg/config"
	xhttp "CoinSage/pkg/http"
	pkgkafka "CoinSage/pkg/kafka"
	applogger "CoinSage/pkg/logger"
	"CoinSage/pkg/metrics"
	"CoinSage/pkg/queue"
	"CoinSage/pkg/server"
)

const initTimeout = 10 * time.Second

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	format := "json"
	if cfg.Environment == "development" {
		level = "debug"
		format = "console"
	}
	return applogger.New(&applogger.Config{
		Level:  level,
		Format: format,
		Output: "stdout",
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates the ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideMarketStore creates the observation store and ensures its schema.
func ProvideMarketStore(chClient *pkgch.Client, l *applogger.Logger) (repository.MarketStore, error) {
	store := internalrepo.NewCHMarketStore(chClient, l)

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("market store schema: %w", err)
	}
	return store, nil
}

// ProvideKnowledgeStore creates the knowledge item store and its schema.
func ProvideKnowledgeStore(chClient *pkgch.Client, l *applogger.Logger) (repository.KnowledgeStore, error) {
	store := internalrepo.NewCHKnowledgeStore(chClient, l)

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("knowledge store schema: %w", err)
	}
	return store, nil
}

// ProvideModelRegistry creates the Postgres model registry.
func ProvideModelRegistry(cfg *config.Config, l *applogger.Logger) (repository.ModelRegistry, error) {
	registry, err := internalrepo.NewPGModelRegistry(internalrepo.PGConfig{
		DSN:          cfg.Postgres.DSN,
		MaxOpenConns: cfg.Postgres.MaxOpenConns,
		MaxIdleConns: cfg.Postgres.MaxIdleConns,
		ConnLifetime: cfg.Postgres.ConnLifetime,
	}, l)
	if err != nil {
		return nil, fmt.Errorf("model registry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := registry.Init(ctx); err != nil {
		return nil, fmt.Errorf("model registry schema: %w", err)
	}
	return registry, nil
}

// ProvideBinaryStore creates the on-disk model binary store.
func ProvideBinaryStore(cfg *config.Config) (repository.BinaryStore, error) {
	return internalrepo.NewFileBinaryStore(cfg.Models.Dir)
}

// ProvideKafkaProducer creates the Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
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

// ProvidePublisher creates the observation publisher.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config, m repository.Metrics) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.PricesTopic, cfg.Kafka.NewsTopic, m)
}

// ProvideKafkaConsumer creates the ingest consumer.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideCache creates the cache backend: Redis when enabled, in-process
// otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	c, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return c, nil
}

// ProvideJobQueue creates the Redis-backed retrain queue. Returns nil when
// queued retraining is disabled; the pipeline then retrains inline.
func ProvideJobQueue(cfg *config.Config, l *applogger.Logger, cacheSvc cache.Service) (*queue.RedisQueue, error) {
	if !cfg.Models.QueueRetrain {
		return nil, nil
	}
	rc, ok := cacheSvc.(*cache.RedisCache)
	if !ok {
		return nil, fmt.Errorf("queued retraining requires redis.enabled")
	}
	q := queue.NewRedisQueue(l, &queue.Config{
		Workers:    2,
		RetryLimit: 3,
		RetryDelay: 30 * time.Second,
	}, rc.Client(), queue.ModeProducerConsumer)
	return q, nil
}

// ProvideEngine creates the model refresh engine.
func ProvideEngine(
	registry repository.ModelRegistry,
	binaries repository.BinaryStore,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *prediction.Engine {
	pc := prediction.DefaultConfig()
	pc.MinRows = cfg.Models.MinRows
	pc.MinFeatures = cfg.Models.MinFeatures
	pc.TargetShift = cfg.Models.TargetShift
	pc.TestFraction = cfg.Models.TestFraction
	pc.Seed = cfg.Models.Seed
	pc.Train = prediction.TrainParams{
		Epochs:       cfg.Models.Epochs,
		LearningRate: cfg.Models.LearningRate,
	}
	return prediction.NewEngine(registry, binaries, m, l, pc)
}

// ProvideKnowledgeUpdater creates the pipeline orchestrator.
func ProvideKnowledgeUpdater(
	market repository.MarketStore,
	knowStore repository.KnowledgeStore,
	engine *prediction.Engine,
	cacheSvc cache.Service,
	jobQueue *queue.RedisQueue,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.KnowledgeUpdater {
	var jobs queue.Service
	if jobQueue != nil {
		jobs = jobQueue
	}
	return usecase.NewKnowledgeUpdater(market, knowStore, engine, cacheSvc, jobs, m, l, usecase.PipelineConfig{
		Symbols:       cfg.Binance.Symbols,
		PriceLimit:    cfg.Pipeline.PriceLimit,
		NewsLimit:     cfg.Pipeline.NewsLimit,
		NewsBucket:    cfg.Pipeline.NewsBucket,
		Normalization: features.NormMethod(cfg.Pipeline.Normalization),
		Lags:          cfg.Pipeline.Lags,
		Features:      features.DefaultConfig(),
		QueueRetrain:  cfg.Models.QueueRetrain,
	})
}

// ProvideScheduler creates the pipeline scheduler.
func ProvideScheduler(updater *usecase.KnowledgeUpdater, cfg *config.Config, l *applogger.Logger) *usecase.Scheduler {
	return usecase.NewScheduler(updater, cfg.Pipeline.Interval, l)
}

// ProvidePriceCollector creates the exchange collector.
func ProvidePriceCollector(
	cfg *config.Config,
	pub repository.Publisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.PriceCollector {
	rest := binance.NewClient(cfg.Binance.RESTURL, cfg.Binance.Symbols, l,
		binance.WithRateLimit(cfg.Binance.RateLimit, cfg.Binance.RateBurst))

	var stream repository.PriceStream
	if cfg.Binance.StreamPrices {
		stream = binance.NewStream(cfg.Binance.WebSocketURL, cfg.Binance.Symbols, 5*time.Second, l)
	}
	return usecase.NewPriceCollector(rest, stream, pub, m, cfg.Binance.PollInterval, l)
}

// ProvideNewsCollector creates the news collector.
func ProvideNewsCollector(
	cfg *config.Config,
	pub repository.Publisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.NewsCollector {
	client := cryptopanic.NewClient(cfg.CryptoPanic.BaseURL, cfg.CryptoPanic.APIKey, cfg.CryptoPanic.Currencies, l,
		cryptopanic.WithPageLimit(cfg.CryptoPanic.PageLimit))
	return usecase.NewNewsCollector(client, pub, m, cfg.CryptoPanic.PollInterval, l)
}

// ProvideDashboardHandler creates the dashboard HTTP handler.
func ProvideDashboardHandler(
	l *applogger.Logger,
	market repository.MarketStore,
	knowStore repository.KnowledgeStore,
	registry repository.ModelRegistry,
	cacheSvc cache.Service,
) xhttp.Handler {
	limiter := ratelimit.New(20, 10)
	return api.NewDashboardHandler(l, market, knowStore, registry, cacheSvc, limiter)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	priceCollector *usecase.PriceCollector,
	newsCollector *usecase.NewsCollector,
	scheduler *usecase.Scheduler,
	updater *usecase.KnowledgeUpdater,
	consumer *pkgkafka.Consumer,
	jobQueue *queue.RedisQueue,
	producer *pkgkafka.Producer,
	pub repository.Publisher,
	market repository.MarketStore,
	httpHandler xhttp.Handler,
	chClient *pkgch.Client,
	cacheSvc cache.Service,
) *server.App {
	if jobQueue != nil {
		jobQueue.RegisterJob(usecase.NewRetrainJob(updater, cfg.Models.JobTimeout, l))
	}

	// ship deduplicated error logs to the logs topic
	l.AttachAggregator(&applogger.AggregatorConfig{
		FlushInterval:  time.Minute,
		CountThreshold: 100,
		Topic:          cfg.Kafka.LogsTopic,
		Publisher:      producerPublisher{producer},
	})

	return server.New(cfg, l, server.Deps{
		PriceCollector: priceCollector,
		NewsCollector:  newsCollector,
		Scheduler:      scheduler,
		Consumer:       consumer,
		PriceHandler:   usecase.NewPriceIngestHandler(cfg.Kafka.PricesTopic, market, l),
		NewsHandler:    usecase.NewNewsIngestHandler(cfg.Kafka.NewsTopic, market, l),
		JobQueue:       jobQueue,
		HTTPHandler:    httpHandler,
		Publisher:      pub,
		CHClient:       chClient,
		Cache:          cacheSvc,
	})
}

// producerPublisher adapts the Kafka producer to the log aggregator's
// publisher interface.
type producerPublisher struct {
	p *pkgkafka.Producer
}

func (pp producerPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return pp.p.Publish(ctx, topic, nil, payload)
}
