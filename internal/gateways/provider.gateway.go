package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/careline/message-dispatch/internal/auth"
	"github.com/careline/message-dispatch/pkg/logger"
	"github.com/careline/message-dispatch/pkg/prom"
	"github.com/valyala/fasthttp"
)

var (
	ErrContactNotFound = errors.New("provider contact not found")
	ErrCircuitOpen     = errors.New("provider circuit is open")
)

// SendAck is the provider's acknowledgement of an accepted message.
type SendAck struct {
	MessageID string    `json:"message_id"`
	Status    string    `json:"status"`
	SentAt    time.Time `json:"sent_at"`
}

// GroupContact is one member of a provider contact group.
type GroupContact struct {
	ID    string `json:"id"`
	Phone string `json:"phone"`
	Name  string `json:"name,omitempty"`
}

// Contact is the provider's record for an individual receiver.
type Contact struct {
	ID    string `json:"id"`
	Phone string `json:"phone"`
	Name  string `json:"name,omitempty"`
}

type Config struct {
	BaseURL                 string
	Timeout                 time.Duration
	MaxRetries              int
	RetryDelay              time.Duration
	MaxConns                int
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
}

// Client talks to the external chat provider. One shared client serves all
// tenants; the per-tenant API key travels in the auth context.
type Client struct {
	config           *Config
	http             *fasthttp.Client
	consecutiveFails atomic.Int32
	circuitOpenUntil atomic.Int64
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.BaseURL == "" {
		return nil, errors.New("provider base url is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.CircuitBreakerThreshold == 0 {
		config.CircuitBreakerThreshold = 5
	}
	if config.CircuitBreakerTimeout == 0 {
		config.CircuitBreakerTimeout = 60 * time.Second
	}

	client := &Client{
		config: config,
		http: &fasthttp.Client{
			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
		},
	}

	logger.Info("Provider client initialized", "base_url", config.BaseURL, "timeout", config.Timeout)

	return client, nil
}

type sendToContactRequest struct {
	TemplateID string   `json:"template_id"`
	ContactID  string   `json:"contact_id"`
	Parameters []string `json:"parameters"`
}

type sendToGroupRequest struct {
	TemplateID string   `json:"template_id"`
	GroupID    string   `json:"group_id"`
	Parameters []string `json:"parameters"`
}

// SendToContact delivers one templated message to an individual contact.
func (c *Client) SendToContact(ctx context.Context, templateID, externalContactID string, parameters []string) (*SendAck, error) {
	body, err := json.Marshal(sendToContactRequest{
		TemplateID: templateID,
		ContactID:  externalContactID,
		Parameters: parameters,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	response, err := c.doWithRetry(ctx, "send_to_contact", fasthttp.MethodPost, "/api/v1/messages/contact", body)
	if err != nil {
		return nil, err
	}

	var ack SendAck
	if err := json.Unmarshal(response, &ack); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &ack, nil
}

// SendToGroup delivers one templated message to every member of a provider
// contact group in a single call.
func (c *Client) SendToGroup(ctx context.Context, externalGroupID, templateID string, parameters []string) (*SendAck, error) {
	body, err := json.Marshal(sendToGroupRequest{
		TemplateID: templateID,
		GroupID:    externalGroupID,
		Parameters: parameters,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	response, err := c.doWithRetry(ctx, "send_to_group", fasthttp.MethodPost, "/api/v1/messages/group", body)
	if err != nil {
		return nil, err
	}

	var ack SendAck
	if err := json.Unmarshal(response, &ack); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &ack, nil
}

// GetContactGroupContacts fetches one page of a group's membership. A page
// shorter than pageSize signals the last page.
func (c *Client) GetContactGroupContacts(ctx context.Context, externalGroupID string, page, pageSize int) ([]GroupContact, error) {
	path := fmt.Sprintf("/api/v1/contact-groups/%s/contacts?page=%d&size=%d", externalGroupID, page, pageSize)
	response, err := c.doWithRetry(ctx, "get_group_contacts", fasthttp.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Contacts []GroupContact `json:"contacts"`
	}
	if err := json.Unmarshal(response, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return result.Contacts, nil
}

// GetContactByPhone resolves the provider's identifier for a phone number.
// The number is query-escaped so the + in E.164 numbers survives the trip.
func (c *Client) GetContactByPhone(ctx context.Context, phone string) (*Contact, error) {
	path := "/api/v1/contacts?phone=" + url.QueryEscape(phone)
	response, err := c.doWithRetry(ctx, "get_contact", fasthttp.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var contact Contact
	if err := json.Unmarshal(response, &contact); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if contact.ID == "" {
		return nil, ErrContactNotFound
	}
	return &contact, nil
}

func (c *Client) doWithRetry(ctx context.Context, operation, method, path string, body []byte) ([]byte, error) {
	if !c.available() {
		return nil, ErrCircuitOpen
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		startTime := time.Now()
		response, status, err := c.doRequest(ctx, method, path, body)
		prom.ObserveProviderCall(operation, time.Since(startTime).Seconds())

		if err != nil {
			c.recordFailure()
			logger.Warn("Provider request failed, retrying", "error", err, "operation", operation, "attempt", attempt+1)
			lastErr = err
			continue
		}

		c.consecutiveFails.Store(0)

		if status == fasthttp.StatusNotFound {
			return nil, ErrContactNotFound
		}
		return response, nil
	}

	return nil, fmt.Errorf("provider %s failed after %d attempts: %w", operation, c.config.MaxRetries+1, lastErr)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.BaseURL + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")

	// Tenant credentials travel in the auth context, never in client state.
	if uc, err := auth.UserContextFrom(ctx); err == nil {
		if uc.ProviderAPIKey != "" {
			req.Header.Set("Authorization", uc.ProviderAPIKey)
		}
		if uc.ProviderPhoneID != "" {
			req.Header.Set("X-Phone-Id", uc.ProviderPhoneID)
		}
	}

	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}

	statusCode := resp.StatusCode()
	if statusCode == fasthttp.StatusNotFound {
		return nil, statusCode, nil
	}
	if statusCode != fasthttp.StatusOK && statusCode != fasthttp.StatusAccepted && statusCode != fasthttp.StatusCreated {
		return nil, statusCode, fmt.Errorf("unexpected status code: %d, body: %s", statusCode, resp.Body())
	}

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())

	return result, statusCode, nil
}

func (c *Client) available() bool {
	openUntil := c.circuitOpenUntil.Load()
	if openUntil == 0 {
		return true
	}
	if time.Now().Unix() > openUntil {
		c.circuitOpenUntil.Store(0)
		return true
	}
	return false
}

func (c *Client) recordFailure() {
	fails := c.consecutiveFails.Add(1)
	if fails >= int32(c.config.CircuitBreakerThreshold) {
		openUntil := time.Now().Add(c.config.CircuitBreakerTimeout).Unix()
		c.circuitOpenUntil.Store(openUntil)
		logger.Warn("Provider circuit breaker opened", "consecutive_fails", fails, "timeout", c.config.CircuitBreakerTimeout)
	}
}
