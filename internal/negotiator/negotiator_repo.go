package negotiator

import (
	"context"
	"metadata-negotiator/internal/accepttypes"
	"metadata-negotiator/internal/classifier"
	"metadata-negotiator/internal/domain/config"
	"metadata-negotiator/internal/domain/data"
	"metadata-negotiator/internal/metrics"
	"metadata-negotiator/internal/negotiator/cache"
	"metadata-negotiator/internal/networker"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "metadata-negotiator/internal/negotiator"

type NegotiatorRepo struct {
	Logger     *zap.SugaredLogger
	Networker  networker.Networker
	Classifier classifier.Classifier
	Cache      cache.CachedStorage
	Tracer     trace.Tracer

	metrics *metrics.Metrics
}

func NewNegotiatorRepo(logger *zap.SugaredLogger, nw networker.Networker, cl classifier.Classifier, storage cache.CachedStorage, m *metrics.Metrics) *NegotiatorRepo {
	return &NegotiatorRepo{
		Logger:     logger,
		Networker:  nw,
		Classifier: cl,
		Cache:      storage,
		Tracer:     otel.Tracer(tracerName),
		metrics:    m,
	}
}

// NewFromSettings wires a fetcher and a classifier configured from settings around storage.
func NewFromSettings(logger *zap.SugaredLogger, settings *config.Settings, storage cache.CachedStorage, m *metrics.Metrics) *NegotiatorRepo {
	tlsPolicy := networker.CompatibilityTLSPolicy()
	if settings.StrictTLS {
		tlsPolicy = networker.StrictTLSPolicy()
	}

	nw := networker.NewNetworker(logger, networker.NetworkerConfig{
		UserAgent:        settings.UserAgent,
		BrowserUserAgent: settings.BrowserUserAgent,
		Timeout:          settings.RequestTimeout,
		TLS:              tlsPolicy,
	})

	cfg := classifier.DefaultClassifierConfig()
	cfg.MaxContentSize = settings.MaxContentSize
	cl := classifier.NewClassifierRepo(logger, storage, m, cfg)

	return NewNegotiatorRepo(logger, nw, cl, storage, m)
}

func (repo *NegotiatorRepo) Negotiate(ctx context.Context, req *config.Request) *data.NegotiationResult {
	acceptType := req.AcceptType
	if _, ok := accepttypes.Lookup(string(acceptType)); !ok {
		repo.Logger.Warnw("unknown accept type, using default", "metric", req.MetricLabel, "accept_type", acceptType)
		acceptType = accepttypes.Default
	}

	ctx, span := repo.Tracer.Start(ctx, "negotiate", trace.WithAttributes(
		attribute.String("negotiation.url", req.URL),
		attribute.String("negotiation.accept_type", string(acceptType)),
		attribute.String("negotiation.metric", req.MetricLabel),
	))
	defer span.End()

	fetched := repo.Networker.Fetch(ctx, &networker.FetchRequest{
		URL:         req.URL,
		Accept:      req.AcceptValue(),
		MetricLabel: req.MetricLabel,
		Auth:        req.Auth,
	})
	repo.metrics.ObserveRetry(string(fetched.Retry))

	classification := repo.Classifier.Classify(ctx, fetched, classifier.Options{
		MetricLabel: req.MetricLabel,
		IgnoreHTML:  req.IgnoreHTML,
	})

	result := &data.NegotiationResult{
		RequestURL:    fetched.RequestURL,
		FinalURL:      fetched.FinalURL,
		RedirectChain: fetched.RedirectChain,
		Status:        fetched.Status,
		ContentType:   classification.ContentType,
		Format:        classification.Format,
		Body:          classification.Parsed,
		RawBody:       classification.Raw,
		Truncated:     classification.Truncated,
		Size:          classification.Size,
		FromCache:     classification.FromCache,
	}

	span.SetAttributes(
		attribute.Int("http.response.status_code", result.Status),
		attribute.String("negotiation.format", result.Format.String()),
		attribute.String("negotiation.final_url", result.FinalURL),
		attribute.Bool("negotiation.from_cache", result.FromCache),
		attribute.Bool("negotiation.truncated", result.Truncated),
	)
	if networker.IsSynthetic(result.Status) {
		span.SetStatus(codes.Error, "fetch failed with status "+strconv.Itoa(result.Status))
	}

	repo.metrics.ObserveNegotiation(result.Format.String(), result.Status)
	return result
}

// Reset forgets every cached response.
func (repo *NegotiatorRepo) Reset(ctx context.Context) error {
	if err := repo.Cache.Reset(ctx); err != nil {
		repo.Logger.Errorw("resetting response cache failed", "err", err)
		return err
	}

	repo.Logger.Infow("response cache reset")
	return nil
}
