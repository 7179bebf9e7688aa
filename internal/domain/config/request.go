package config

import (
	"metadata-negotiator/internal/accepttypes"
	"strings"
)

const (
	AuthSchemeBearer = "Bearer"
	AuthSchemeBasic  = "Basic"
)

type Auth struct {
	Token  string `json:"token"`
	Scheme string `json:"scheme"`
}

// Header returns the Authorization header value. Only Bearer and Basic are honored, anything else is sent as Bearer.
func (a *Auth) Header() string {
	if a == nil || a.Token == "" {
		return ""
	}

	scheme := AuthSchemeBearer
	if strings.EqualFold(a.Scheme, AuthSchemeBasic) {
		scheme = AuthSchemeBasic
	}

	return scheme + " " + a.Token
}

// Request asks for one representation of a URL.
type Request struct {
	ID          string                 `json:"id,omitempty"`
	URL         string                 `json:"url"`
	AcceptType  accepttypes.AcceptType `json:"acceptType"`
	ExtraAccept string                 `json:"extraAccept,omitempty"`
	MetricLabel string                 `json:"metricLabel"`
	IgnoreHTML  bool                   `json:"ignoreHTML"`
	Auth        *Auth                  `json:"auth,omitempty"`
}

func NewRequest(url string, acceptType accepttypes.AcceptType, metricLabel string) *Request {
	return &Request{
		URL:         url,
		AcceptType:  acceptType,
		MetricLabel: metricLabel,
		IgnoreHTML:  true,
	}
}

// AcceptValue is the Accept header sent for the request.
func (r *Request) AcceptValue() string {
	at := r.AcceptType
	if _, ok := accepttypes.Lookup(string(at)); !ok {
		at = accepttypes.Default
	}

	return accepttypes.Prepend(r.ExtraAccept, at)
}
