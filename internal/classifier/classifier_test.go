package classifier

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"metadata-negotiator/internal/domain/data"
	"metadata-negotiator/internal/negotiator/cache"
	"metadata-negotiator/internal/networker"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClassifier(t *testing.T, cfg ClassifierConfig) (*ClassifierRepo, *cache.MemoryCache) {
	t.Helper()

	storage := cache.NewMemoryCache()
	return NewClassifierRepo(zaptest.NewLogger(t).Sugar(), storage, nil, cfg), storage
}

func fetched(target string, status int, contentType string, body []byte) *networker.FetchResult {
	header := make(http.Header)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}

	return &networker.FetchResult{
		Response: &http.Response{
			StatusCode:    status,
			Header:        header,
			Body:          io.NopCloser(bytes.NewReader(body)),
			ContentLength: int64(len(body)),
		},
		RequestURL: target,
		FinalURL:   target,
		Status:     status,
	}
}

func classify(t *testing.T, c *ClassifierRepo, result *networker.FetchResult) *Classification {
	t.Helper()
	return c.Classify(context.Background(), result, Options{MetricLabel: "test", IgnoreHTML: true})
}

func requireWellFormed(t *testing.T, doc []byte) {
	t.Helper()

	dec := xml.NewDecoder(bytes.NewReader(doc))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return
		}
		require.NoError(t, err, string(doc))
	}
}

func TestClassifyUnusableResponses(t *testing.T) {
	c, storage := newTestClassifier(t, DefaultClassifierConfig())

	res := classify(t, c, nil)
	assert.True(t, res.Format.IsNone())

	res = classify(t, c, &networker.FetchResult{RequestURL: "http://example.org", Status: networker.StatusConnectFailed})
	assert.True(t, res.Format.IsNone())
	assert.Nil(t, res.Parsed)

	res = classify(t, c, fetched("http://example.org/bundle", http.StatusOK, "application/zip", []byte("PK\x03\x04")))
	assert.True(t, res.Format.IsNone())
	assert.Nil(t, res.Parsed)

	res = classify(t, c, fetched("http://example.org/missing", http.StatusNotFound, "text/html", []byte("<html>gone</html>")))
	assert.True(t, res.Format.IsNone())
	assert.Equal(t, "text/html", res.ContentType)

	assert.Zero(t, storage.Len())
}

func TestClassifyJSONFamily(t *testing.T) {
	c, _ := newTestClassifier(t, DefaultClassifierConfig())

	res := classify(t, c, fetched("http://example.org/point", http.StatusOK, "application/ld+json",
		[]byte(`{"type": "Point", "coordinates": [1, 2]}`)))

	require.Equal(t, data.FormatJSON, res.Format)
	parsed, ok := res.Parsed.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Point", parsed["type"])
	assert.Equal(t, "application/ld+json", res.ContentType)

	res = classify(t, c, fetched("http://example.org/broken-ld", http.StatusOK, "application/ld+json", []byte(`{"type": `)))
	assert.Equal(t, data.FormatRDF, res.Format)

	res = classify(t, c, fetched("http://example.org/broken", http.StatusOK, "application/json; charset=utf-8", []byte(`{"type": `)))
	assert.Equal(t, data.FormatText, res.Format)
	assert.Equal(t, "application/json", res.ContentType)
	assert.Equal(t, []byte(`{"type": `), res.Raw)

	res = classify(t, c, fetched("http://example.org/links", http.StatusOK, "application/linkset", []byte(`not json at all`)))
	assert.Equal(t, data.FormatJSON, res.Format)
	assert.Equal(t, []byte(`not json at all`), res.Parsed)
}

func TestClassifyXMLAndRDF(t *testing.T) {
	c, _ := newTestClassifier(t, DefaultClassifierConfig())

	namespaced := `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"><rdf:Description rdf:about="http://example.org/a"/></rdf:RDF>`
	res := classify(t, c, fetched("http://example.org/ns", http.StatusOK, "application/rdf+xml", []byte(namespaced)))
	assert.Equal(t, data.FormatRDF, res.Format)
	assert.Equal(t, "text/xml", res.ContentType)

	res = classify(t, c, fetched("http://example.org/bare", http.StatusOK, "application/xml", []byte(`<RDF><Description/></RDF>`)))
	assert.Equal(t, data.FormatRDF, res.Format)

	res = classify(t, c, fetched("http://example.org/record", http.StatusOK, "text/xml", []byte(`<record><id>1</id></record>`)))
	assert.Equal(t, data.FormatXML, res.Format)
	assert.Equal(t, []byte(`<record><id>1</id></record>`), res.Parsed)

	res = classify(t, c, fetched("http://example.org/feed", http.StatusOK, "application/atom+xml", []byte(`<feed xmlns="http://www.w3.org/2005/Atom"/>`)))
	assert.Equal(t, data.FormatXML, res.Format)
	assert.Equal(t, "text/xml", res.ContentType)
}

func TestClassifyTruncation(t *testing.T) {
	cfg := DefaultClassifierConfig()
	cfg.MaxContentSize = 32
	c, _ := newTestClassifier(t, cfg)

	body := []byte("line-one\nline-two\nline-three\nline-four\nline-five\n")
	res := classify(t, c, fetched("http://example.org/notes", http.StatusOK, "text/plain", body))

	assert.True(t, res.Truncated)
	assert.Equal(t, int64(len(body)), res.Size)
	assert.LessOrEqual(t, len(res.Raw), 32)
	assert.Equal(t, "line-one\nline-two\nline-three", string(res.Raw))
	assert.Equal(t, data.FormatText, res.Format)
}

// brokenReader hands out its data, then fails instead of reaching EOF.
type brokenReader struct {
	data []byte
}

func (r *brokenReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.ErrUnexpectedEOF
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestClassifyFailedReadIsTruncatedAndNotCached(t *testing.T) {
	c, storage := newTestClassifier(t, DefaultClassifierConfig())

	result := fetched("http://example.org/stream", http.StatusOK, "text/plain", nil)
	result.Response.Body = io.NopCloser(&brokenReader{data: []byte("line-one\nline-two\nline-th")})
	result.Response.ContentLength = 4096

	res := classify(t, c, result)

	assert.True(t, res.Truncated)
	assert.Equal(t, "line-one\nline-two", string(res.Raw))
	assert.Equal(t, int64(len("line-one\nline-two\nline-th")), res.Size)
	assert.Zero(t, storage.Len())
}

func TestClassifyTruncatedXMLStaysWellFormed(t *testing.T) {
	doc := `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description rdf:about="http://example.org/a">
    <title>first</title>
  </rdf:Description>
  <rdf:Description rdf:about="http://example.org/b">
    <title>second</title>
  </rdf:Description>
</rdf:RDF>
`
	cfg := DefaultClassifierConfig()
	cfg.MaxContentSize = int64(len(doc) / 2)
	c, _ := newTestClassifier(t, cfg)

	res := classify(t, c, fetched("http://example.org/graph", http.StatusOK, "application/rdf+xml", []byte(doc)))

	require.True(t, res.Truncated)
	assert.Equal(t, data.FormatRDF, res.Format)
	assert.Contains(t, string(res.Raw), "http://example.org/a")
	assert.True(t, bytes.HasSuffix(res.Raw, []byte("</rdf:RDF>")))
	assert.Equal(t, res.Raw, res.Parsed)
	requireWellFormed(t, res.Raw)
}

func TestClassifyEncodings(t *testing.T) {
	c, _ := newTestClassifier(t, DefaultClassifierConfig())

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	_, err := gz.Write([]byte(`{"name": "gz"}`))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	result := fetched("http://example.org/zipped", http.StatusOK, "application/json", compressed.Bytes())
	result.Response.Header.Set("Content-Encoding", "gzip")
	res := classify(t, c, result)
	require.Equal(t, data.FormatJSON, res.Format)
	assert.Equal(t, "gz", res.Parsed.(map[string]any)["name"])
	assert.Equal(t, int64(len(`{"name": "gz"}`)), res.Size)

	res = classify(t, c, fetched("http://example.org/menu", http.StatusOK, "text/plain; charset=iso-8859-1", []byte("caf\xe9 au lait")))
	assert.Equal(t, "café au lait", string(res.Raw))

	res = classify(t, c, fetched("http://example.org/mangled", http.StatusOK, "text/plain", []byte("ok \xff\xfe done")))
	assert.True(t, utf8.Valid(res.Raw))
	assert.Contains(t, string(res.Raw), "done")
}

func TestClassifyPlainTextGuess(t *testing.T) {
	c, _ := newTestClassifier(t, DefaultClassifierConfig())

	res := classify(t, c, fetched("http://example.org/data.ttl", http.StatusOK, "text/plain", []byte("<a> <b> <c> .")))
	assert.Equal(t, data.FormatRDF, res.Format)
	assert.Equal(t, "text/ttl", res.ContentType)

	res = classify(t, c, fetched("http://example.org/data.json", http.StatusOK, "text/plain", []byte(`{"a": 1}`)))
	assert.Equal(t, data.FormatJSON, res.Format)

	res = classify(t, c, fetched("http://example.org/data.trig", http.StatusOK, "text/plain", []byte("{ <a> <b> <c> . }")))
	assert.Equal(t, data.FormatRDF, res.Format)
	assert.Equal(t, "application/rdf+trig", res.ContentType)

	res = classify(t, c, fetched("http://example.org/readme", http.StatusOK, "text/plain", []byte("hello")))
	assert.Equal(t, data.FormatText, res.Format)
	assert.Equal(t, []byte("hello"), res.Parsed)
}

func TestClassifyHTML(t *testing.T) {
	c, _ := newTestClassifier(t, DefaultClassifierConfig())
	page := []byte("<!DOCTYPE html><html><head><title>x</title></head></html>")

	res := classify(t, c, fetched("http://example.org/page", http.StatusOK, "text/html; charset=utf-8", page))
	assert.Equal(t, data.FormatHTML, res.Format)
	assert.Nil(t, res.Parsed)
	assert.Equal(t, page, res.Raw)

	res = c.Classify(context.Background(), fetched("http://example.org/other", http.StatusOK, "text/html", page), Options{IgnoreHTML: false})
	assert.Equal(t, page, res.Parsed)

	res = classify(t, c, fetched("http://example.org/untyped", http.StatusOK, "", page))
	assert.Equal(t, data.FormatHTML, res.Format)
	assert.Equal(t, "text/html", res.ContentType)

	xhtml := []byte(`<html xmlns="http://www.w3.org/1999/xhtml"><body/></html>`)
	res = classify(t, c, fetched("http://example.org/xhtml", http.StatusOK, "application/xhtml+xml", xhtml))
	assert.Equal(t, data.FormatHTML, res.Format)
	assert.Equal(t, "application/xhtml+xml", res.ContentType)
}

func TestClassifyUntypedContent(t *testing.T) {
	c, _ := newTestClassifier(t, DefaultClassifierConfig())

	res := classify(t, c, fetched("http://example.org/record.xml", http.StatusOK, "", []byte(`<record/>`)))
	assert.Equal(t, data.FormatXML, res.Format)
	assert.Equal(t, "application/xml", res.ContentType)

	res = classify(t, c, fetched("http://example.org/api/record", http.StatusOK, "", []byte(`{"a": 1}`)))
	assert.Equal(t, data.FormatJSON, res.Format)
}

type failingSniffer struct{}

func (failingSniffer) Sniff([]byte) (string, error) {
	return "", errors.New("sniffer unavailable")
}

func TestClassifyFailingSnifferFallsBackToOctetStream(t *testing.T) {
	cfg := DefaultClassifierConfig()
	cfg.Sniffer = failingSniffer{}
	c, _ := newTestClassifier(t, cfg)

	res := classify(t, c, fetched("http://example.org/blob", http.StatusOK, "", []byte{0x00, 0x01, 0x02}))
	assert.Equal(t, "application/octet-stream", res.ContentType)
	assert.Equal(t, data.FormatText, res.Format)
}

type countingReader struct {
	reads int
}

func (r *countingReader) Read([]byte) (int, error) {
	r.reads++
	return 0, io.EOF
}

func TestClassifyCacheHitSkipsBody(t *testing.T) {
	c, storage := newTestClassifier(t, DefaultClassifierConfig())

	first := classify(t, c, fetched("http://example.org/cached", http.StatusOK, "application/json", []byte(`{"v": 1}`)))
	require.Equal(t, data.FormatJSON, first.Format)
	assert.False(t, first.FromCache)
	assert.Equal(t, 1, storage.Len())

	body := &countingReader{}
	again := fetched("http://example.org/cached", http.StatusOK, "application/json", nil)
	again.Response.Body = io.NopCloser(body)

	second := c.Classify(context.Background(), again, Options{MetricLabel: "other"})
	assert.True(t, second.FromCache)
	assert.Equal(t, data.FormatJSON, second.Format)
	assert.Equal(t, first.Raw, second.Raw)

	// only the drain on close touches the body
	assert.LessOrEqual(t, body.reads, 1)
}

func TestClassifyCustomStrategyOrder(t *testing.T) {
	cfg := DefaultClassifierConfig()
	cfg.Strategies = []Strategy{rdfStrategy{}, jsonStrategy{}}
	c, _ := newTestClassifier(t, cfg)

	res := classify(t, c, fetched("http://example.org/ld", http.StatusOK, "application/ld+json", []byte(`{"a": 1}`)))
	assert.Equal(t, data.FormatRDF, res.Format)
}

func TestParseLenientXML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		root  string
		rdf   bool
	}{
		{name: "closes open elements", input: "<a><b><c>text", root: "a"},
		{name: "skips stray end tags", input: "<a><b></x></b>", root: "a"},
		{name: "html entities", input: "<a>&nbsp;&copy;</a>", root: "a"},
		{name: "unquoted attribute", input: "<a href=x><b>1</b>", root: "a"},
		{name: "namespaced rdf", input: `<rdf:RDF xmlns:rdf="urn:x"><rdf:Description>`, root: "RDF", rdf: true},
		{name: "doctype kept", input: "<!DOCTYPE a><a/>", root: "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := parseLenientXML([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.root, doc.Root.Local)
			assert.Equal(t, tt.rdf, doc.IsRDF())
			requireWellFormed(t, doc.Serialized)
		})
	}

	_, err := parseLenientXML([]byte("just words"))
	assert.Error(t, err)
}

func TestHasHTMLEvidence(t *testing.T) {
	assert.True(t, hasHTMLEvidence([]byte("  <!doctype html><p>x")))
	assert.True(t, hasHTMLEvidence([]byte(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "x">`)))
	assert.True(t, hasHTMLEvidence([]byte("<?xml version=\"1.0\"?><HTML><body/></HTML>")))
	assert.False(t, hasHTMLEvidence([]byte("<rdf:RDF/>")))
	assert.False(t, hasHTMLEvidence([]byte(`{"html": true}`)))
}

func TestContentTypeHelpers(t *testing.T) {
	assert.Equal(t, "text/html", mediaTypeOf("Text/HTML; charset=UTF-8"))
	assert.Equal(t, "text/html", mediaTypeOf("text/html;;"))
	assert.Equal(t, "", mediaTypeOf(""))

	assert.Equal(t, "iso-8859-1", charsetOf("text/plain; charset=ISO-8859-1"))
	assert.Equal(t, "utf-8", charsetOf("text/plain"))
	assert.Equal(t, "utf-8", charsetOf(""))

	assert.Equal(t, []byte("a\nb"), cutAtLineBoundary([]byte("a\nb\nc")))
	assert.Equal(t, []byte("abc"), cutAtLineBoundary([]byte("abc")))
}

func TestGuessSerialization(t *testing.T) {
	guess, ok := guessSerialization("http://example.org/onto.owl?download=1")
	require.True(t, ok)
	assert.Equal(t, data.FormatXML, guess.Format)
	assert.Equal(t, "application/xml", guess.ContentType)

	guess, ok = guessSerialization("http://example.org/page.html")
	require.True(t, ok)
	assert.Equal(t, "application/xhtml+xml", guess.ContentType)
	assert.Equal(t, data.FormatRDF, guess.Format)

	_, ok = guessSerialization("http://example.org/readme")
	assert.False(t, ok)
	assert.True(t, strings.HasPrefix(typeByExtension("http://example.org/x.jsonld"), "application/ld+json"))
}
