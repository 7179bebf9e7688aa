package app

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"metadata-negotiator/internal/domain/config"
	"metadata-negotiator/internal/metrics"
	"metadata-negotiator/internal/negotiator"
	"metadata-negotiator/internal/negotiator/cache"
	"metadata-negotiator/internal/processor"
	"metadata-negotiator/internal/processor/queue"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
	"go.uber.org/zap"
)

const serviceName = "metadata-negotiator"

// InitApp builds the long-running queue worker.
func InitApp() *NegotiatorApp {
	initEnv()

	logger := initLogger()
	settings := initSettings(logger)

	tp := initTracing(logger, settings)

	registry := initRegistry()
	m := metrics.New(registry)

	storage, closeCache := initCache(logger, settings)
	n := negotiator.NewFromSettings(logger, settings, storage, m)

	requestsQueue := initRequestsQueue(logger, settings)
	resultsQueue := initResultsQueue(logger, settings)

	proc := processor.NewQueueProcessor(logger, n, requestsQueue, resultsQueue, settings.RateLimit)

	return NewNegotiatorApp(logger, proc, requestsQueue, resultsQueue, initMetricsServer(settings, registry), tp, closeCache, settings.Workers)
}

// InitNegotiator builds a single negotiation session for one-shot use. The returned func releases it.
func InitNegotiator() (*zap.SugaredLogger, negotiator.Negotiator, func(ctx context.Context) error) {
	initEnv()

	logger := initLogger()
	settings := initSettings(logger)

	tp := initTracing(logger, settings)
	storage, closeCache := initCache(logger, settings)

	n := negotiator.NewFromSettings(logger, settings, storage, metrics.New(nil))

	release := func(ctx context.Context) error {
		var err error
		if closeCache != nil {
			err = errors.Join(err, closeCache(ctx))
		}
		if tp != nil {
			err = errors.Join(err, tp.Shutdown(ctx))
		}
		_ = logger.Sync()
		return err
	}

	return logger, n, release
}

func initSettings(logger *zap.SugaredLogger) *config.Settings {
	settings, err := config.LoadSettings()
	if err != nil {
		logger.Fatalw("Error loading settings", "err", err)
	}

	return settings
}

// initCache returns the Redis store when REDIS_URI is set, the in-process store otherwise.
func initCache(logger *zap.SugaredLogger, settings *config.Settings) (cache.CachedStorage, func(ctx context.Context) error) {
	if settings.RedisURI == "" {
		logger.Infow("Using in-memory response cache")
		return cache.NewMemoryCache(), nil
	}

	rdb := initRedisClient(logger, settings.RedisURI, settings.RedisPassword, settings.RedisDB)
	redisCache := cache.NewRedisCache(rdb, logger, cache.DefaultKeyPrefix)

	return redisCache, redisCache.Stop
}

func initRedisClient(logger *zap.SugaredLogger, uri, password string, db int) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     uri,
		Password: password,
		DB:       db,
	})

	if err := redisotel.InstrumentTracing(rdb); err != nil {
		log.Fatalf("redisotel tracing err: %v", err)
	}

	if err := redisotel.InstrumentMetrics(rdb); err != nil {
		log.Fatalf("redisotel metrics err: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cache.SingleRequestTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis for response cache:", err)
	}

	logger.Infow("Connected to Redis for response cache", "addr", uri, "db", db)
	return rdb
}

func initRequestsQueue(logger *zap.SugaredLogger, settings *config.Settings) queue.Queue {
	if settings.KafkaAddr == "" || settings.KafkaRequestsTopic == "" {
		logger.Fatal("Error initializing requests queue: KAFKA_ADDR or KAFKA_TOPIC_REQUESTS missing")
	}

	requestsQueue, err := queue.NewKafkaQueue(logger, queue.KafkaConfig{
		Seeds:         []string{settings.KafkaAddr},
		ConsumerGroup: settings.KafkaRequestsGroup,
		Topic:         settings.KafkaRequestsTopic,
		User:          settings.KafkaUser,
		Password:      settings.KafkaPassword,
	})
	if err != nil {
		logger.Fatal("Error initializing requests queue:", err)
	}

	return requestsQueue
}

func initResultsQueue(logger *zap.SugaredLogger, settings *config.Settings) queue.Queue {
	if settings.KafkaAddr == "" || settings.KafkaResultsTopic == "" {
		logger.Fatal("Error initializing results queue: KAFKA_ADDR or KAFKA_TOPIC_RESULTS missing")
	}

	resultsQueue, err := queue.NewKafkaQueue(logger, queue.KafkaConfig{
		Seeds:    []string{settings.KafkaAddr},
		Topic:    settings.KafkaResultsTopic,
		User:     settings.KafkaUser,
		Password: settings.KafkaPassword,
	})
	if err != nil {
		logger.Fatal("Error initializing results queue:", err)
	}

	return resultsQueue
}

func initRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return registry
}

func initMetricsServer(settings *config.Settings, registry *prometheus.Registry) *http.Server {
	if settings.MetricsAddr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	return &http.Server{
		Addr:              settings.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func initTracing(logger *zap.SugaredLogger, settings *config.Settings) *trace.TracerProvider {
	if settings.OTLPEndpoint == "" {
		logger.Infow("OTLP_ENDPOINT not set, tracing disabled")
		return nil
	}

	exp, err := otlptracehttp.New(context.Background(), otlptracehttp.WithEndpoint(settings.OTLPEndpoint), otlptracehttp.WithInsecure())
	if err != nil {
		log.Fatalf("Error initializing otlp exporter: %v", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		log.Fatal("Error initializing otel resource:", err)
	}

	tracerProvider := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
	)

	otel.SetTracerProvider(tracerProvider)

	return tracerProvider
}

func initLogger() *zap.SugaredLogger {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Error initializing zap logger: %v", err)
		return nil
	}

	logger := zapLogger.Sugar()
	return logger
}

func initEnv() {
	if os.Getenv("APP_ENV") == "prod" {
		return
	}

	err := godotenv.Load("main.env")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading main.env file: %v", err)
	}
}
