package negotiator

import (
	"context"
	"metadata-negotiator/internal/domain/config"
	"metadata-negotiator/internal/domain/data"
)

// Negotiator fetches one representation of a URL and reduces it to a format.
// Failures are reported through NegotiationResult.Status, never as errors.
type Negotiator interface {
	Negotiate(ctx context.Context, req *config.Request) *data.NegotiationResult
	Reset(ctx context.Context) error
}
