package processor

import "errors"

var (
	ErrMalformedRequest = errors.New("malformed negotiation request")
	ErrMissingURL       = errors.New("negotiation request without url")
)
