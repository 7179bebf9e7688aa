package classifier

import (
	"context"
	"errors"
	"io"
	"metadata-negotiator/internal/domain/data"
	"metadata-negotiator/internal/metrics"
	"metadata-negotiator/internal/negotiator/cache"
	"metadata-negotiator/internal/networker"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type ClassifierConfig struct {
	MaxContentSize int64
	Sniffer        MIMESniffer
	Strategies     []Strategy
}

func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		MaxContentSize: DefaultMaxContentSize,
		Sniffer:        MimetypeSniffer{},
		Strategies:     DefaultStrategies(),
	}
}

type ClassifierRepo struct {
	Logger *zap.SugaredLogger

	cache          cache.CachedStorage
	metrics        *metrics.Metrics
	maxContentSize int64
	sniffer        MIMESniffer
	strategies     []Strategy
}

func NewClassifierRepo(logger *zap.SugaredLogger, storage cache.CachedStorage, m *metrics.Metrics, cfg ClassifierConfig) *ClassifierRepo {
	if cfg.MaxContentSize <= 0 {
		cfg.MaxContentSize = DefaultMaxContentSize
	}
	if cfg.Sniffer == nil {
		cfg.Sniffer = MimetypeSniffer{}
	}
	if len(cfg.Strategies) == 0 {
		cfg.Strategies = DefaultStrategies()
	}

	return &ClassifierRepo{
		Logger:         logger,
		cache:          storage,
		metrics:        m,
		maxContentSize: cfg.MaxContentSize,
		sniffer:        cfg.Sniffer,
		strategies:     cfg.Strategies,
	}
}

func (repo *ClassifierRepo) Classify(ctx context.Context, fetched *networker.FetchResult, opts Options) *Classification {
	logger := repo.Logger.With("metric", opts.MetricLabel)

	if !fetched.OK() {
		var target string
		if fetched != nil {
			target = fetched.RequestURL
		}
		logger.Warnw("no response received", "url", target)
		return &Classification{}
	}
	defer fetched.Close()

	resp := fetched.Response
	declared := resp.Header.Get("Content-Type")
	logger = logger.With("url", fetched.FinalURL)

	if mediaTypeOf(declared) == contentTypeZip {
		logger.Warnw("received zipped content with several files, skipping", "content_type", declared)
		return &Classification{ContentType: declared}
	}

	if resp.StatusCode != http.StatusOK {
		logger.Warnw("no successful response received", "status", resp.StatusCode)
		return &Classification{ContentType: declared}
	}

	key := cache.Key(fetched.FinalURL, declared)
	if cached := repo.lookup(ctx, logger, key); cached != nil {
		return cached
	}

	var body io.Reader = resp.Body
	declaredLength := resp.ContentLength
	if strings.EqualFold(strings.TrimSpace(resp.Header.Get("Content-Encoding")), "gzip") {
		reader, closeReader := decompressed(logger, resp.Body)
		defer closeReader()
		body = reader
		// Content-Length counts compressed bytes
		declaredLength = -1
	}

	read := readBudget(logger, body, declaredLength, repo.maxContentSize)
	if read.truncated {
		repo.metrics.ObserveTruncation()
	}
	raw := toUTF8(logger, read.raw, charsetOf(declared))

	contentType := repo.effectiveContentType(logger, declared, fetched, raw)

	result := repo.scan(logger, fetched, contentType, raw, read.truncated, opts.IgnoreHTML)
	result.Size = read.size
	result.Truncated = read.truncated

	if read.incomplete {
		logger.Warnw("response body incomplete, not caching it", "read", read.size)
		return result
	}

	if err := repo.cache.Set(ctx, key, result.entry()); err != nil {
		logger.Warnw("storing response content failed", "err", err)
	}

	return result
}

func (repo *ClassifierRepo) lookup(ctx context.Context, logger *zap.SugaredLogger, key string) *Classification {
	entry, err := repo.cache.Get(ctx, key)
	if err == nil {
		repo.metrics.ObserveCache(true)
		logger.Infow("using cached response content")
		return fromEntry(entry)
	}

	if !errors.Is(err, cache.ErrCacheMiss) {
		logger.Warnw("cache lookup failed, reading response", "err", err)
	}
	repo.metrics.ObserveCache(false)
	logger.Infow("creating cached response content")
	return nil
}

// effectiveContentType resolves the media type a body is matched with, parameters stripped.
func (repo *ClassifierRepo) effectiveContentType(logger *zap.SugaredLogger, declared string, fetched *networker.FetchResult, raw []byte) string {
	contentType := mediaTypeOf(declared)
	htmlEvidence := hasHTMLEvidence(raw)

	if contentType == "" {
		contentType = typeByExtension(fetched.RequestURL)
		if contentType == "" {
			contentType = typeByExtension(fetched.FinalURL)
		}
	}

	if contentType == "" && htmlEvidence {
		contentType = contentTypeHTML
	}

	if contentType == "" {
		sniffed, err := repo.sniffer.Sniff(raw)
		if err != nil {
			logger.Warnw("MIME detection failed", "err", err)
		}
		contentType = mediaTypeOf(sniffed)
	}

	if contentType == "" {
		contentType = contentTypeOctetStream
	}

	if contentType != mediaTypeOf(declared) {
		logger.Infow("guessed content type", "declared", declared, "content_type", contentType)
	}

	if strings.HasSuffix(contentType, "+xml") && !htmlEvidence {
		contentType = contentTypeXML
	}

	return contentType
}

func (repo *ClassifierRepo) scan(logger *zap.SugaredLogger, fetched *networker.FetchResult, contentType string, raw []byte, truncated, ignoreHTML bool) *Classification {
	provisional := data.FormatNone

	if contentType == contentTypePlain {
		logger.Infow("plain text responded, trying to verify")
		provisional = data.FormatText

		guess, ok := guessSerialization(fetched.RequestURL)
		if !ok {
			guess, ok = guessSerialization(fetched.FinalURL)
		}
		if ok {
			logger.Infow("expected plain text but identified different content type by file extension", "guess", guess.Name)
			provisional = guess.Format
			contentType = guess.ContentType
		}
	}

	candidate := &Candidate{
		ContentType: contentType,
		Body:        raw,
		Truncated:   truncated,
		IgnoreHTML:  ignoreHTML,
		Logger:      logger,
	}

	for _, strategy := range repo.strategies {
		match := strategy.Match(candidate)
		if !match.Matched {
			continue
		}

		body := raw
		if match.Body != nil {
			body = match.Body
		}

		logger.Infow("content format identified", "strategy", strategy.Name(), "format", match.Format.String(), "content_type", contentType)
		return &Classification{Format: match.Format, Parsed: match.Parsed, Raw: body, ContentType: contentType}
	}

	if provisional.IsNone() {
		provisional = data.FormatText
	}

	logger.Infow("no known format matched, keeping text", "format", provisional.String(), "content_type", contentType)
	return &Classification{Format: provisional, Parsed: raw, Raw: raw, ContentType: contentType}
}
