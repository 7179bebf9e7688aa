package classifier

import (
	"bytes"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/html"
)

// sniffWindow bounds how much of the body is tokenized looking for HTML markers.
const sniffWindow = 64 << 10

type MimetypeSniffer struct{}

func (MimetypeSniffer) Sniff(body []byte) (string, error) {
	return mimetype.Detect(body).String(), nil
}

// mediaTypeOf returns the lower-cased media type of a Content-Type value without parameters.
func mediaTypeOf(contentType string) string {
	if contentType == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return mediaType
	}
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// charsetOf returns the charset parameter of a Content-Type value, utf-8 when absent.
func charsetOf(contentType string) string {
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		if label := strings.TrimSpace(params["charset"]); label != "" {
			return strings.ToLower(label)
		}
	}
	return "utf-8"
}

// hasHTMLEvidence reports whether the body starts like an HTML document: an html doctype or an <html> tag.
func hasHTMLEvidence(body []byte) bool {
	body = bytes.TrimSpace(body)
	if len(body) > sniffWindow {
		body = body[:sniffWindow]
	}

	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.DoctypeToken:
			fields := strings.Fields(string(z.Text()))
			if len(fields) > 0 && strings.EqualFold(fields[0], "html") {
				return true
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == "html" {
				return true
			}
		}
	}
}
