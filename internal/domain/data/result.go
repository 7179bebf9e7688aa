package data

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RedirectHop is one redirect target together with the status that led to it.
type RedirectHop struct {
	URL    string `json:"url"`
	Status int    `json:"status"`
}

type NegotiationResult struct {
	RequestURL    string        `json:"requestURL"`
	FinalURL      string        `json:"finalURL"`
	RedirectChain []RedirectHop `json:"redirectChain"`
	Status        int           `json:"status"`
	ContentType   string        `json:"contentType,omitempty"`
	Format        Format        `json:"format,omitempty"`
	// Body holds the decoded JSON structure for JSON responses, the raw bytes otherwise,
	// and nil when the body was discarded.
	Body      any    `json:"-"`
	RawBody   []byte `json:"-"`
	Truncated bool   `json:"truncated"`
	Size      int64  `json:"size"`
	FromCache bool   `json:"fromCache"`
}

// BodyBytes returns Body as raw bytes when it is not a decoded structure.
func (r *NegotiationResult) BodyBytes() ([]byte, bool) {
	b, ok := r.Body.([]byte)
	return b, ok
}

type parsedKind string

const (
	parsedNone parsedKind = "none"
	parsedRaw  parsedKind = "raw"
	parsedJSON parsedKind = "json"
)

// CacheEntry is the classified form of one response. Entries are never mutated once stored.
type CacheEntry struct {
	Format      Format
	Parsed      any
	Raw         []byte
	ContentType string
	Size        int64
	Truncated   bool
}

type cacheEntryWire struct {
	Format      Format          `json:"format"`
	ParsedKind  parsedKind      `json:"parsedKind"`
	Parsed      json.RawMessage `json:"parsed,omitempty"`
	Raw         []byte          `json:"raw"`
	ContentType string          `json:"contentType"`
	Size        int64           `json:"size"`
	Truncated   bool            `json:"truncated"`
}

func (e *CacheEntry) MarshalBinary() ([]byte, error) {
	wire := cacheEntryWire{
		Format:      e.Format,
		ParsedKind:  parsedNone,
		Raw:         e.Raw,
		ContentType: e.ContentType,
		Size:        e.Size,
		Truncated:   e.Truncated,
	}

	switch parsed := e.Parsed.(type) {
	case nil:
	case []byte:
		wire.ParsedKind = parsedRaw
	default:
		b, err := json.Marshal(parsed)
		if err != nil {
			return nil, fmt.Errorf("marshal parsed body: %w", err)
		}
		wire.ParsedKind = parsedJSON
		wire.Parsed = b
	}

	return json.Marshal(wire)
}

func (e *CacheEntry) UnmarshalBinary(b []byte) error {
	var wire cacheEntryWire
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}

	*e = CacheEntry{
		Format:      wire.Format,
		Raw:         wire.Raw,
		ContentType: wire.ContentType,
		Size:        wire.Size,
		Truncated:   wire.Truncated,
	}

	switch wire.ParsedKind {
	case parsedRaw:
		e.Parsed = wire.Raw
	case parsedJSON:
		var parsed any
		if err := json.Unmarshal(wire.Parsed, &parsed); err != nil {
			return fmt.Errorf("unmarshal parsed body: %w", err)
		}
		e.Parsed = parsed
	}

	return nil
}

// Clone returns a deep copy; the decoded JSON tree and the byte slices are not shared.
func (e *CacheEntry) Clone() *CacheEntry {
	clone := *e
	clone.Raw = bytes.Clone(e.Raw)

	switch parsed := e.Parsed.(type) {
	case nil:
	case []byte:
		clone.Parsed = bytes.Clone(parsed)
	default:
		clone.Parsed = cloneJSON(parsed)
	}

	return &clone
}

func cloneJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneJSON(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneJSON(item)
		}
		return out
	default:
		return t
	}
}
