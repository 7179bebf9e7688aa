package networker

import (
	"context"
	"io"
	"metadata-negotiator/internal/domain/config"
	"metadata-negotiator/internal/domain/data"
	"net/http"
)

// RetryReason tells which compatibility retry, if any, produced the final outcome.
type RetryReason string

const (
	RetryNone             RetryReason = ""
	RetryBrowserUserAgent RetryReason = "browser_user_agent"
	RetryHTTPSUpgrade     RetryReason = "https_upgrade"
)

type FetchRequest struct {
	URL         string
	Accept      string
	MetricLabel string
	Auth        *config.Auth
}

// FetchResult is either an open response (Response != nil) or a terminal failure status.
type FetchResult struct {
	Response      *http.Response
	RequestURL    string
	FinalURL      string
	Status        int
	RedirectChain []data.RedirectHop
	Retry         RetryReason
}

func (r *FetchResult) OK() bool {
	return r != nil && r.Response != nil
}

// Close releases the response body if the result still holds one.
func (r *FetchResult) Close() {
	if r == nil || r.Response == nil || r.Response.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(r.Response.Body, drainLimit))
	_ = r.Response.Body.Close()
}

type Networker interface {
	Fetch(ctx context.Context, req *FetchRequest) *FetchResult
}
