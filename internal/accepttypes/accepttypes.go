package accepttypes

import "strings"

// AcceptType names one entry of the representation catalog.
type AcceptType string

const (
	DataciteJSON AcceptType = "datacite_json"
	DataciteXML  AcceptType = "datacite_xml"
	SchemaOrg    AcceptType = "schemaorg"
	HTML         AcceptType = "html"
	HTMLXML      AcceptType = "html_xml"
	XML          AcceptType = "xml"
	Linkset      AcceptType = "linkset"
	JSON         AcceptType = "json"
	JSONLD       AcceptType = "jsonld"
	Atom         AcceptType = "atom"
	RDFJSON      AcceptType = "rdfjson"
	NT           AcceptType = "nt"
	N3           AcceptType = "n3"
	RDFXML       AcceptType = "rdfxml"
	Turtle       AcceptType = "turtle"
	RDF          AcceptType = "rdf"
	Default      AcceptType = "default"
)

type entry struct {
	name  AcceptType
	value string
}

// catalog order is the order in which responses are matched against entries.
// linkset deliberately omits application/json, it made plain JSON answers look like linksets.
var catalog = []entry{
	{DataciteJSON, "application/vnd.datacite.datacite+json"},
	{DataciteXML, "application/vnd.datacite.datacite+xml"},
	{SchemaOrg, "application/vnd.schemaorg.ld+json, application/ld+json"},
	{HTML, "text/html, application/xhtml+xml"},
	{HTMLXML, "text/html, application/xhtml+xml, application/xml;q=0.5, text/xml;q=0.5, application/rdf+xml;q=0.5"},
	{XML, "application/xml, text/xml;q=0.5"},
	{Linkset, "application/linkset+json, application/linkset"},
	{JSON, "application/json, text/json;q=0.5"},
	{JSONLD, "application/ld+json"},
	{Atom, "application/atom+xml"},
	{RDFJSON, "application/rdf+json"},
	{NT, "text/n3, application/n-triples"},
	{N3, "text/n3, text/rdf+n3, application/rdf+n3"},
	{RDFXML, "application/rdf+xml, text/rdf;q=0.5, application/xml;q=0.1, text/xml;q=0.1"},
	{Turtle, "text/ttl, text/turtle, application/turtle, application/x-turtle;q=0.6, text/n3;q=0.3, text/rdf+n3;q=0.3, application/rdf+n3;q=0.3"},
	{RDF, "text/turtle, application/turtle, application/x-turtle;q=0.8, application/rdf+xml, text/n3;q=0.9, text/rdf+n3;q=0.9,application/ld+json"},
	{Default, "text/html, */*"},
}

var index = func() map[AcceptType]int {
	m := make(map[AcceptType]int, len(catalog))
	for i, e := range catalog {
		m[e.name] = i
	}
	return m
}()

// All returns the catalog names in matching order.
func All() []AcceptType {
	out := make([]AcceptType, 0, len(catalog))
	for _, e := range catalog {
		out = append(out, e.name)
	}
	return out
}

// Lookup resolves a catalog name.
func Lookup(name string) (AcceptType, bool) {
	at := AcceptType(strings.TrimSpace(strings.ToLower(name)))
	_, ok := index[at]
	return at, ok
}

// Value returns the weighted Accept header value of at. Unknown names fall back to Default.
func Value(at AcceptType) string {
	if i, ok := index[at]; ok {
		return catalog[i].value
	}
	return catalog[index[Default]].value
}

// Prepend puts mime in front of the value of at.
func Prepend(mime string, at AcceptType) string {
	mime = strings.TrimSpace(mime)
	if mime == "" {
		return Value(at)
	}
	return mime + "," + Value(at)
}

// Tokens returns the bare media types of one entry, weights stripped.
func Tokens(at AcceptType) []string {
	return splitTokens(Value(at))
}

// Contains reports whether mediaType is one of the bare tokens of at.
func Contains(at AcceptType, mediaType string) bool {
	for _, token := range Tokens(at) {
		if token == mediaType {
			return true
		}
	}
	return false
}

// List returns every distinct bare media type of the catalog, first-seen order.
func List() []string {
	seen := make(map[string]struct{})
	var out []string

	for _, e := range catalog {
		for _, token := range splitTokens(e.value) {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			out = append(out, token)
		}
	}

	return out
}

func splitTokens(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))

	for _, part := range parts {
		token, _, _ := strings.Cut(part, ";")
		token = strings.TrimSpace(token)
		if token != "" {
			out = append(out, token)
		}
	}

	return out
}
