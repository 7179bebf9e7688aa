package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultUserAgent        = "F-UJI"
	DefaultBrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; F-UJI)"
	DefaultRequestTimeout   = 10 * time.Second
	DefaultMaxContentSize   = 5_000_000
	DefaultWorkers          = 8
	DefaultMetricsAddr      = ":9464"
)

// Settings is everything the negotiator reads from the environment.
type Settings struct {
	UserAgent        string
	BrowserUserAgent string
	RequestTimeout   time.Duration
	MaxContentSize   int64
	StrictTLS        bool

	Workers   int
	RateLimit float64

	RedisURI      string
	RedisPassword string
	RedisDB       int

	KafkaAddr          string
	KafkaUser          string
	KafkaPassword      string
	KafkaRequestsGroup string
	KafkaRequestsTopic string
	KafkaResultsTopic  string

	OTLPEndpoint string
	MetricsAddr  string
}

func DefaultSettings() *Settings {
	return &Settings{
		UserAgent:        DefaultUserAgent,
		BrowserUserAgent: DefaultBrowserUserAgent,
		RequestTimeout:   DefaultRequestTimeout,
		MaxContentSize:   DefaultMaxContentSize,
		Workers:          DefaultWorkers,
		MetricsAddr:      DefaultMetricsAddr,
	}
}

// LoadSettings overlays the environment on DefaultSettings.
func LoadSettings() (*Settings, error) {
	s := DefaultSettings()

	s.UserAgent = envString("NEGOTIATOR_USER_AGENT", s.UserAgent)
	s.BrowserUserAgent = envString("NEGOTIATOR_BROWSER_USER_AGENT", s.BrowserUserAgent)
	s.RedisURI = envString("REDIS_URI", "")
	s.RedisPassword = envString("REDIS_PASSWORD", "")
	s.KafkaAddr = envString("KAFKA_ADDR", "")
	s.KafkaUser = envString("KAFKA_USERNAME", "")
	s.KafkaPassword = envString("KAFKA_PASSWORD", "")
	s.KafkaRequestsGroup = envString("KAFKA_REQUESTS_CONSUMER_GROUP", "negotiator")
	s.KafkaRequestsTopic = envString("KAFKA_TOPIC_REQUESTS", "")
	s.KafkaResultsTopic = envString("KAFKA_TOPIC_RESULTS", "")
	s.OTLPEndpoint = envString("OTLP_ENDPOINT", "")
	s.MetricsAddr = envString("METRICS_ADDR", s.MetricsAddr)

	var err error
	if s.RequestTimeout, err = envDuration("NEGOTIATOR_TIMEOUT", s.RequestTimeout); err != nil {
		return nil, err
	}
	if s.MaxContentSize, err = envInt64("NEGOTIATOR_MAX_CONTENT_SIZE", s.MaxContentSize); err != nil {
		return nil, err
	}
	if s.StrictTLS, err = envBool("NEGOTIATOR_TLS_STRICT", false); err != nil {
		return nil, err
	}
	workers, err := envInt64("NEGOTIATOR_WORKERS", int64(s.Workers))
	if err != nil {
		return nil, err
	}
	s.Workers = int(workers)
	if s.RateLimit, err = envFloat("NEGOTIATOR_RATE_LIMIT", 0); err != nil {
		return nil, err
	}
	redisDB, err := envInt64("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	s.RedisDB = int(redisDB)

	if s.MaxContentSize <= 0 {
		return nil, fmt.Errorf("NEGOTIATOR_MAX_CONTENT_SIZE must be positive, got %d", s.MaxContentSize)
	}
	if s.Workers <= 0 {
		return nil, fmt.Errorf("NEGOTIATOR_WORKERS must be positive, got %d", s.Workers)
	}

	return s, nil
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := envString(key, "")
	if v == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func envInt64(key string, fallback int64) (int64, error) {
	v := envString(key, "")
	if v == "" {
		return fallback, nil
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := envString(key, "")
	if v == "" {
		return fallback, nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return f, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := envString(key, "")
	if v == "" {
		return fallback, nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}
