package classifier

import (
	"encoding/json"
	"metadata-negotiator/internal/accepttypes"
	"metadata-negotiator/internal/domain/data"
	"strings"

	"go.uber.org/zap"
)

// Candidate is what a strategy looks at: a decoded body and its effective media type.
type Candidate struct {
	ContentType string
	Body        []byte
	Truncated   bool
	IgnoreHTML  bool
	Logger      *zap.SugaredLogger
}

// Match is a strategy verdict. Body replaces the candidate body when set.
type Match struct {
	Matched bool
	Format  data.Format
	Parsed  any
	Body    []byte
}

type Strategy interface {
	Name() string
	Match(c *Candidate) Match
}

// DefaultStrategies returns the cascade in matching order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		htmlStrategy{},
		xmlStrategy{},
		jsonStrategy{},
		rdfStrategy{},
		linksetStrategy{},
	}
}

func containsAny(mediaType string, types ...accepttypes.AcceptType) bool {
	for _, at := range types {
		if accepttypes.Contains(at, mediaType) {
			return true
		}
	}
	return false
}

type htmlStrategy struct{}

func (htmlStrategy) Name() string { return "html" }

func (htmlStrategy) Match(c *Candidate) Match {
	if !accepttypes.Contains(accepttypes.HTML, c.ContentType) {
		return Match{}
	}

	if c.IgnoreHTML {
		return Match{Matched: true, Format: data.FormatHTML}
	}
	return Match{Matched: true, Format: data.FormatHTML, Parsed: c.Body}
}

type xmlStrategy struct{}

func (xmlStrategy) Name() string { return "xml" }

func (xmlStrategy) Match(c *Candidate) Match {
	if !accepttypes.Contains(accepttypes.XML, c.ContentType) && !strings.HasSuffix(c.ContentType, "+xml") {
		return Match{}
	}

	doc, err := parseLenientXML(c.Body)
	if err != nil {
		c.Logger.Warnw("XML parsing failed, keeping raw content", "err", err)
		return Match{Matched: true, Format: data.FormatXML, Parsed: c.Body}
	}

	format := data.FormatXML
	if doc.IsRDF() {
		c.Logger.Infow("found RDF document by root tag", "root", qualified(doc.Root))
		format = data.FormatRDF
	}

	if c.Truncated {
		c.Logger.Infow("truncated XML document, keeping the partial tree", "root", qualified(doc.Root))
		return Match{Matched: true, Format: format, Parsed: doc.Serialized, Body: doc.Serialized}
	}
	return Match{Matched: true, Format: format, Parsed: c.Body}
}

type jsonStrategy struct{}

func (jsonStrategy) Name() string { return "json" }

func (jsonStrategy) Match(c *Candidate) Match {
	if !containsAny(c.ContentType, accepttypes.JSON, accepttypes.JSONLD, accepttypes.DataciteJSON, accepttypes.SchemaOrg) &&
		!strings.HasSuffix(c.ContentType, "+json") {
		return Match{}
	}

	var parsed any
	if err := json.Unmarshal(c.Body, &parsed); err != nil {
		c.Logger.Infow("retrieved response seems not to be valid JSON", "err", err)
		return Match{}
	}

	return Match{Matched: true, Format: data.FormatJSON, Parsed: parsed}
}

type rdfStrategy struct{}

func (rdfStrategy) Name() string { return "rdf" }

func (rdfStrategy) Match(c *Candidate) Match {
	if !containsAny(c.ContentType, accepttypes.NT, accepttypes.N3, accepttypes.RDF, accepttypes.RDFJSON, accepttypes.RDFXML, accepttypes.Turtle) {
		return Match{}
	}
	return Match{Matched: true, Format: data.FormatRDF, Parsed: c.Body}
}

type linksetStrategy struct{}

func (linksetStrategy) Name() string { return "linkset" }

func (linksetStrategy) Match(c *Candidate) Match {
	if !accepttypes.Contains(accepttypes.Linkset, c.ContentType) {
		return Match{}
	}
	return Match{Matched: true, Format: data.FormatJSON, Parsed: c.Body}
}
