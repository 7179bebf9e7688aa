package networker

import (
	"context"
	"io"
	"metadata-negotiator/internal/domain/config"
	"metadata-negotiator/internal/utils"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	DefaultMaxRedirects = 10

	drainLimit = 64 << 10
	doiHost    = "doi.org"
)

// NetworkerConfig configures a NetworkWorker. Timeout bounds dialing, the TLS handshake, waiting for headers and each single body read.
type NetworkerConfig struct {
	UserAgent        string
	BrowserUserAgent string
	Timeout          time.Duration
	MaxRedirects     int
	TLS              TLSPolicy
	// Transport overrides the TLS-policy transport and its phase timeouts, mostly for tests.
	Transport http.RoundTripper
}

func DefaultNetworkerConfig() NetworkerConfig {
	return NetworkerConfig{
		UserAgent:        config.DefaultUserAgent,
		BrowserUserAgent: config.DefaultBrowserUserAgent,
		Timeout:          config.DefaultRequestTimeout,
		MaxRedirects:     DefaultMaxRedirects,
		TLS:              CompatibilityTLSPolicy(),
	}
}

type NetworkWorker struct {
	Logger *zap.SugaredLogger

	transport        http.RoundTripper
	userAgent        string
	browserUserAgent string
	timeout          time.Duration
	maxRedirects     int
}

func NewNetworker(logger *zap.SugaredLogger, cfg NetworkerConfig) *NetworkWorker {
	defaults := DefaultNetworkerConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if cfg.BrowserUserAgent == "" {
		cfg.BrowserUserAgent = defaults.BrowserUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = defaults.MaxRedirects
	}

	transport := cfg.Transport
	if transport == nil {
		base := http.DefaultTransport.(*http.Transport).Clone()
		base.TLSClientConfig = cfg.TLS.Config()
		base.DialContext = (&net.Dialer{Timeout: cfg.Timeout, KeepAlive: 30 * time.Second}).DialContext
		base.TLSHandshakeTimeout = cfg.Timeout
		base.ResponseHeaderTimeout = cfg.Timeout
		transport = otelhttp.NewTransport(base)
	}

	return &NetworkWorker{
		Logger:           logger,
		transport:        transport,
		userAgent:        cfg.UserAgent,
		browserUserAgent: cfg.BrowserUserAgent,
		timeout:          cfg.Timeout,
		maxRedirects:     cfg.MaxRedirects,
	}
}

func (repo *NetworkWorker) Fetch(ctx context.Context, req *FetchRequest) *FetchResult {
	logger := repo.Logger.With("metric", req.MetricLabel)

	requestURL := utils.StripFragment(req.URL)
	result := &FetchResult{
		RequestURL: requestURL,
		FinalURL:   requestURL,
	}

	recorder := new(RedirectRecorder)
	client := repo.newClient(recorder)

	logger.Infow("retrieving page", "url", requestURL, "accept", req.Accept)

	resp, err := repo.attempt(ctx, client, requestURL, req, repo.userAgent)
	if err != nil {
		result.Status = StatusFromError(err)
		result.RedirectChain = recorder.Hops()
		logger.Warnw("request failed", "url", requestURL, "accept", req.Accept, "status", result.Status, "err", err)
		return result
	}

	if isSuccess(resp.StatusCode) {
		return repo.succeed(logger, result, resp, recorder)
	}

	status := resp.StatusCode
	discard(resp)
	result.Status = status

	switch {
	case status == http.StatusPermanentRedirect:
		logger.Errorw("308 redirect could not be followed", "url", requestURL, "location", resp.Header.Get("Location"))
	case status == http.StatusForbidden || status == http.StatusMethodNotAllowed:
		logger.Warnw("host refused the request, most likely user agent based scraping detection, retrying",
			"url", requestURL, "status", status)

		retryResp, retryErr := repo.attempt(ctx, client, requestURL, req, repo.browserUserAgent)
		if retryErr == nil && isSuccess(retryResp.StatusCode) {
			result.Retry = RetryBrowserUserAgent
			return repo.succeed(logger, result, retryResp, recorder)
		}
		repo.logRetryFailure(logger, "browser user agent", retryResp, retryErr)
	case status >= http.StatusInternalServerError:
		if strings.Contains(utils.HostOf(requestURL), doiHost) {
			logger.Errorw("DataCite/DOI content negotiation failed", "url", requestURL, "accept", req.Accept, "status", status)
		} else {
			logger.Errorw("request failed", "url", requestURL, "accept", req.Accept, "status", status)
		}
	case status == http.StatusBadRequest:
		hops := recorder.Hops()
		if len(hops) == 0 {
			logger.Warnw("request failed", "url", requestURL, "accept", req.Accept, "status", status)
			break
		}

		httpsURL, ok := utils.HTTPSVariant(hops[len(hops)-1].URL)
		if !ok {
			logger.Warnw("request failed", "url", requestURL, "accept", req.Accept, "status", status)
			break
		}

		logger.Warnw("HTTP 400 after redirect to http page, trying https", "url", hops[len(hops)-1].URL)

		retryResp, retryErr := repo.attempt(ctx, client, httpsURL, req, repo.userAgent)
		if retryErr == nil && isSuccess(retryResp.StatusCode) {
			result.Retry = RetryHTTPSUpgrade
			return repo.succeed(logger, result, retryResp, recorder)
		}
		repo.logRetryFailure(logger, "https upgrade", retryResp, retryErr)
	default:
		logger.Warnw("request failed", "url", requestURL, "accept", req.Accept, "status", status)
	}

	result.RedirectChain = recorder.Hops()
	return result
}

func (repo *NetworkWorker) newClient(observer RedirectObserver) *http.Client {
	// cookiejar.New only fails on a broken public suffix list, and we pass none.
	jar, _ := cookiejar.New(nil)

	// timeouts live on the transport and on each body read
	return &http.Client{
		Transport:     repo.transport,
		Jar:           jar,
		CheckRedirect: RedirectPolicy(repo.maxRedirects, observer),
	}
}

func (repo *NetworkWorker) attempt(ctx context.Context, client *http.Client, target string, req *FetchRequest, userAgent string) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Accept", req.Accept)
	httpReq.Header.Set("User-Agent", userAgent)
	if auth := req.Auth.Header(); auth != "" {
		httpReq.Header.Set("Authorization", auth)
	}

	return client.Do(httpReq)
}

func (repo *NetworkWorker) succeed(logger *zap.SugaredLogger, result *FetchResult, resp *http.Response, recorder *RedirectRecorder) *FetchResult {
	resp.Body = newIdleTimeoutBody(resp.Body, repo.timeout)
	result.Response = resp
	result.Status = resp.StatusCode
	result.RedirectChain = recorder.Hops()
	if resp.Request != nil && resp.Request.URL != nil {
		result.FinalURL = resp.Request.URL.String()
	}

	logger.Infow("content negotiation done", "url", result.RequestURL, "finalURL", result.FinalURL,
		"status", result.Status, "redirects", len(result.RedirectChain))

	return result
}

func (repo *NetworkWorker) logRetryFailure(logger *zap.SugaredLogger, kind string, resp *http.Response, err error) {
	if err != nil {
		logger.Warnw("retry failed", "retry", kind, "status", StatusFromError(err), "err", err)
		return
	}

	logger.Warnw("retry failed", "retry", kind, "status", resp.StatusCode)
	discard(resp)
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

func discard(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
	_ = resp.Body.Close()
}
