package classifier

import (
	"metadata-negotiator/internal/domain/data"
	"metadata-negotiator/internal/utils"
)

// extensionTypes maps URL path extensions to media types when a server sends no Content-Type.
var extensionTypes = map[string]string{
	"xml":    "application/xml",
	"json":   "application/json",
	"jsonld": "application/ld+json",
	"rdf":    "application/rdf+xml",
	"owl":    "application/rdf+xml",
	"ttl":    "text/turtle",
	"n3":     "text/n3",
	"nt":     "application/n-triples",
	"nq":     "application/n-quads",
	"trig":   "application/trig",
	"html":   "text/html",
	"htm":    "text/html",
	"xhtml":  "application/xhtml+xml",
	"atom":   "application/atom+xml",
	"txt":    "text/plain",
	"csv":    "text/csv",
	"pdf":    "application/pdf",
	"zip":    "application/zip",
	"gz":     "application/gzip",
}

func typeByExtension(rawURL string) string {
	return extensionTypes[utils.URLPathExtension(rawURL)]
}

// serializationSuffixes names the RDF serialization conventionally stored under a file suffix.
var serializationSuffixes = map[string]string{
	"rdf":      "xml",
	"rdfs":     "xml",
	"owl":      "xml",
	"xml":      "xml",
	"n3":       "n3",
	"ttl":      "turtle",
	"nt":       "nt",
	"ntriples": "nt",
	"trix":     "trix",
	"xhtml":    "rdfa",
	"html":     "rdfa",
	"svg":      "rdfa",
	"nq":       "nquads",
	"nquads":   "nquads",
	"trig":     "trig",
	"json":     "json-ld",
	"jsonld":   "json-ld",
	"json-ld":  "json-ld",
	"hext":     "hext",
}

var serializationTypes = map[string]string{
	"xml":     "application/xml",
	"json-ld": "application/ld+json",
	"turtle":  "text/ttl",
	"rdfa":    "application/xhtml+xml",
	"n3":      "text/rdf+n3",
	"nt":      "application/n-triples",
	"nquads":  "application/n-quads",
	"trix":    "text/xml",
}

type serializationGuess struct {
	Name        string
	ContentType string
	Format      data.Format
}

// guessSerialization infers what a text/plain answer really is from the URL suffix.
func guessSerialization(rawURL string) (serializationGuess, bool) {
	name, ok := serializationSuffixes[utils.URLPathExtension(rawURL)]
	if !ok {
		return serializationGuess{}, false
	}

	contentType, ok := serializationTypes[name]
	if !ok {
		contentType = "application/rdf+" + name
	}

	format := data.FormatRDF
	if name == "xml" {
		format = data.FormatXML
	}

	return serializationGuess{Name: name, ContentType: contentType, Format: format}, true
}
