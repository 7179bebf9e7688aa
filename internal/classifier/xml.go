package classifier

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

var errNoRootElement = errors.New("no root element")

type xmlDocument struct {
	Root xml.Name
	// Serialized is a well-formed rendition of everything that could be read, open elements closed.
	Serialized []byte
}

func (d *xmlDocument) IsRDF() bool {
	return d.Root.Local == "RDF"
}

// parseLenientXML reads as much of body as the recovering decoder accepts.
// Truncated documents yield their partial tree.
func parseLenientXML(body []byte) (*xmlDocument, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	// the body is UTF-8 by now, whatever the prolog claims
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var (
		out      bytes.Buffer
		doc      xmlDocument
		stack    []string
		rootSeen bool
		readErr  error
	)

loop:
	for {
		tok, err := dec.RawToken()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = err
			}
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if rootSeen && len(stack) == 0 {
				break loop
			}
			if !rootSeen {
				rootSeen = true
				doc.Root = t.Name
			}
			writeStart(&out, t)
			stack = append(stack, qualified(t.Name))
		case xml.EndElement:
			name := qualified(t.Name)
			open := lastIndex(stack, name)
			if open < 0 {
				continue
			}
			for len(stack) > open {
				writeEnd(&out, stack[len(stack)-1])
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				break loop
			}
		case xml.CharData:
			if len(stack) > 0 {
				_ = xml.EscapeText(&out, t)
			}
		case xml.Comment:
			out.WriteString("<!--")
			out.WriteString(strings.ReplaceAll(string(t), "--", "- -"))
			out.WriteString("-->")
		case xml.ProcInst:
			if t.Target == "xml" || !isName(t.Target) {
				continue
			}
			out.WriteString("<?" + t.Target)
			if len(t.Inst) > 0 {
				out.WriteByte(' ')
				out.Write(bytes.ReplaceAll(t.Inst, []byte("?>"), []byte("? >")))
			}
			out.WriteString("?>")
		case xml.Directive:
			if !rootSeen {
				out.WriteString("<!")
				out.Write(t)
				out.WriteByte('>')
			}
		}
	}

	for len(stack) > 0 {
		writeEnd(&out, stack[len(stack)-1])
		stack = stack[:len(stack)-1]
	}

	if !rootSeen {
		if readErr != nil {
			return nil, readErr
		}
		return nil, errNoRootElement
	}

	doc.Serialized = out.Bytes()
	return &doc, nil
}

func qualified(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

func writeStart(out *bytes.Buffer, start xml.StartElement) {
	out.WriteByte('<')
	out.WriteString(qualified(start.Name))

	seen := make(map[string]struct{}, len(start.Attr))
	for _, attr := range start.Attr {
		name := qualified(attr.Name)
		if _, dup := seen[name]; dup || !isName(attr.Name.Local) {
			continue
		}
		seen[name] = struct{}{}

		out.WriteByte(' ')
		out.WriteString(name)
		out.WriteString(`="`)
		_ = xml.EscapeText(out, []byte(attr.Value))
		out.WriteByte('"')
	}

	out.WriteByte('>')
}

func writeEnd(out *bytes.Buffer, name string) {
	out.WriteString("</")
	out.WriteString(name)
	out.WriteByte('>')
}

func lastIndex(stack []string, name string) int {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == name {
			return i
		}
	}
	return -1
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == ':' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r > 0x7f:
		case i > 0 && (r == '-' || r == '.' || r >= '0' && r <= '9'):
		default:
			return false
		}
	}
	return true
}
