package classifier

import (
	"context"
	"metadata-negotiator/internal/domain/data"
	"metadata-negotiator/internal/networker"
)

const (
	DefaultMaxContentSize = 5_000_000

	contentTypeOctetStream = "application/octet-stream"
	contentTypeZip         = "application/zip"
	contentTypeHTML        = "text/html"
	contentTypeXML         = "text/xml"
	contentTypePlain       = "text/plain"
)

type Options struct {
	MetricLabel string
	IgnoreHTML  bool
}

// Classification is the outcome of one pass over a response.
// Format is FormatNone when the response was unusable.
type Classification struct {
	Format      data.Format
	Parsed      any
	Raw         []byte
	ContentType string
	Size        int64
	Truncated   bool
	FromCache   bool
}

type Classifier interface {
	Classify(ctx context.Context, fetched *networker.FetchResult, opts Options) *Classification
}

// MIMESniffer guesses a media type from content alone. It is the last resort of type resolution.
type MIMESniffer interface {
	Sniff(body []byte) (string, error)
}

func fromEntry(entry *data.CacheEntry) *Classification {
	return &Classification{
		Format:      entry.Format,
		Parsed:      entry.Parsed,
		Raw:         entry.Raw,
		ContentType: entry.ContentType,
		Size:        entry.Size,
		Truncated:   entry.Truncated,
		FromCache:   true,
	}
}

func (c *Classification) entry() *data.CacheEntry {
	return &data.CacheEntry{
		Format:      c.Format,
		Parsed:      c.Parsed,
		Raw:         c.Raw,
		ContentType: c.ContentType,
		Size:        c.Size,
		Truncated:   c.Truncated,
	}
}
