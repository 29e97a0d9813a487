package errortrack

import (
	"context"
	"encoding/json"
	"time"

	"github.com/careline/message-dispatch/pkg/logger"
	"github.com/valyala/fasthttp"
)

// Sink receives unexpected failures. Implementations must be fire-and-forget
// safe: a broken sink never fails the caller.
type Sink interface {
	Notify(ctx context.Context, err error)
}

// Noop discards notifications. Used in dev and tests.
type Noop struct{}

func (Noop) Notify(ctx context.Context, err error) {}

type payload struct {
	Message    string `json:"message"`
	OccurredAt string `json:"occurred_at"`
}

// WebhookSink posts failures as JSON to a configured endpoint.
type WebhookSink struct {
	url    string
	client *fasthttp.Client
}

func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	return &WebhookSink{
		url: url,
		client: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
	}
}

func (s *WebhookSink) Notify(ctx context.Context, err error) {
	if err == nil || s.url == "" {
		return
	}

	body, mErr := json.Marshal(payload{
		Message:    err.Error(),
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})
	if mErr != nil {
		return
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if sendErr := s.client.Do(req, resp); sendErr != nil {
		logger.Warn("error tracker notification failed", "error", sendErr)
	}
}
