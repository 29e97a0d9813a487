package rules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

var ErrRuleFailed = errors.New("rule execution failed")

// Executor evaluates user-authored rule expressions against an entity. The
// expression language itself is an opaque, sandboxed capability owned by the
// external rule engine; only the I/O contract is fixed here.
type Executor interface {
	// ExecuteScheduleRule produces the date/time a message should go out.
	ExecuteScheduleRule(ctx context.Context, entityType string, entityID int64, rule string) (time.Time, error)
	// ExecuteMessageRule produces the rendered template parameters.
	ExecuteMessageRule(ctx context.Context, entityType string, entityID int64, rule string) ([]string, error)
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// HTTPExecutor delegates rule evaluation to the rules-engine service.
type HTTPExecutor struct {
	config Config
	http   *fasthttp.Client
}

func NewHTTPExecutor(config Config) *HTTPExecutor {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &HTTPExecutor{
		config: config,
		http: &fasthttp.Client{
			ReadTimeout:  config.Timeout,
			WriteTimeout: config.Timeout,
		},
	}
}

type evalRequest struct {
	EntityType string `json:"entity_type"`
	EntityID   int64  `json:"entity_id"`
	Rule       string `json:"rule"`
}

func (e *HTTPExecutor) ExecuteScheduleRule(ctx context.Context, entityType string, entityID int64, rule string) (time.Time, error) {
	var result struct {
		ScheduledAt time.Time `json:"scheduled_at"`
	}
	if err := e.eval(ctx, "/api/v1/rules/schedule", entityType, entityID, rule, &result); err != nil {
		return time.Time{}, err
	}
	if result.ScheduledAt.IsZero() {
		return time.Time{}, fmt.Errorf("%w: schedule rule returned no date", ErrRuleFailed)
	}
	return result.ScheduledAt, nil
}

func (e *HTTPExecutor) ExecuteMessageRule(ctx context.Context, entityType string, entityID int64, rule string) ([]string, error) {
	var result struct {
		Parameters []string `json:"parameters"`
	}
	if err := e.eval(ctx, "/api/v1/rules/message", entityType, entityID, rule, &result); err != nil {
		return nil, err
	}
	return result.Parameters, nil
}

func (e *HTTPExecutor) eval(ctx context.Context, path, entityType string, entityID int64, rule string, out interface{}) error {
	body, err := json.Marshal(evalRequest{EntityType: entityType, EntityID: entityID, Rule: rule})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(e.config.BaseURL + path)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(e.config.Timeout)
	}

	if err := e.http.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("rule engine request failed: %w", err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("%w: status %d, body: %s", ErrRuleFailed, resp.StatusCode(), resp.Body())
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to unmarshal rule engine response: %w", err)
	}
	return nil
}
