package processor

import (
	"encoding/json"
	"fmt"
	"metadata-negotiator/internal/domain/config"
	"metadata-negotiator/internal/domain/data"
	"strings"

	"github.com/google/uuid"
)

// ResultMessage is what gets published for every consumed request.
type ResultMessage struct {
	RequestID   string `json:"requestId"`
	MetricLabel string `json:"metricLabel"`
	AcceptType  string `json:"acceptType"`
	*data.NegotiationResult
	// Document carries decoded JSON bodies, Content every other kept body.
	Document any    `json:"document,omitempty"`
	Content  string `json:"content,omitempty"`
}

// DecodeRequest reads a request message. HTML bodies are dropped unless the message asks for them.
func DecodeRequest(msg []byte) (*config.Request, error) {
	req := &config.Request{IgnoreHTML: true}
	if err := json.Unmarshal(msg, req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return nil, ErrMissingURL
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	return req, nil
}

func NewResultMessage(req *config.Request, res *data.NegotiationResult) *ResultMessage {
	msg := &ResultMessage{
		RequestID:         req.ID,
		MetricLabel:       req.MetricLabel,
		AcceptType:        string(req.AcceptType),
		NegotiationResult: res,
	}

	if raw, ok := res.BodyBytes(); ok {
		msg.Content = string(raw)
	} else if res.Body != nil {
		msg.Document = res.Body
	}

	return msg
}
