package data

// Format is the closed category every classified response is reduced to.
type Format string

const (
	FormatNone Format = ""
	FormatHTML Format = "html"
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
	FormatRDF  Format = "rdf"
	FormatText Format = "text"
)

func (f Format) String() string {
	if f == FormatNone {
		return "none"
	}
	return string(f)
}

// IsNone reports whether no format could be assigned.
func (f Format) IsNone() bool {
	return f == FormatNone
}
