// Package gateway implements the HTTP client for the external payment
// microservice. A charge is a two-phase protocol: create a payment record,
// then process it. The full sequence is retried with linear backoff.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrUnavailable is returned when every retry attempt against the payment
// service has failed.
var ErrUnavailable = errors.New("payment service unavailable after multiple retries")

// maxAttempts is the total number of create+process sequences tried per
// charge.
const maxAttempts = 3

// Payment method codes understood by the payment service.
const (
	MethodCodeCreditCard = 0
	MethodCodeCash       = 5
)

// ChargeRequest describes a single charge against the payment service.
type ChargeRequest struct {
	UserID uuid.UUID
	// CourseID is the first line's course, sent for reference and logging
	// only.
	CourseID    uuid.UUID
	Amount      decimal.Decimal
	MethodCode  int
	Description string
	// Token identifies the payment instrument (e.g. "visa-1234" or a
	// terminal token).
	Token string
	// AdditionalData carries method-specific details such as card expiry or
	// terminal id.
	AdditionalData map[string]string
}

type createRequest struct {
	UserID        uuid.UUID       `json:"userId"`
	CourseID      uuid.UUID       `json:"courseId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod int             `json:"paymentMethod"`
	Description   string          `json:"description"`
}

type createResponse struct {
	ID     uuid.UUID       `json:"id"`
	UserID uuid.UUID       `json:"userId"`
	Amount decimal.Decimal `json:"amount"`
	Status int             `json:"status"`
}

type processRequest struct {
	PaymentID          uuid.UUID         `json:"paymentId"`
	PaymentMethodToken string            `json:"paymentMethodToken"`
	AdditionalData     map[string]string `json:"additionalData"`
}

// Client calls the payment service with a bounded retry policy.
type Client struct {
	baseURL string
	http    *http.Client
	sleep   func(time.Duration)
	metrics *metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Use it to install an
// instrumented transport or tighter timeouts.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithSleep replaces the backoff sleep function. Intended for tests.
func WithSleep(sleep func(time.Duration)) Option {
	return func(cl *Client) { cl.sleep = sleep }
}

// NewClient creates a Client for the payment service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		sleep:   time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Charge runs the create+process sequence against the payment service. Up to
// three full sequences are attempted; between attempts the client waits
// attempt-index seconds (1s after the first failure, 2s after the second).
// Each attempt creates a fresh payment record — a payment id is never reused
// across attempts. When every attempt fails, Charge returns ErrUnavailable.
func (c *Client) Charge(ctx context.Context, req ChargeRequest) error {
	lg := zctx.From(ctx)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := c.chargeOnce(ctx, req)
		if err == nil {
			c.metrics.recordAttempt(ctx, attempt, true)
			return nil
		}
		c.metrics.recordAttempt(ctx, attempt, false)

		lg.Warn("Payment attempt failed",
			zap.Int("attempt", attempt),
			zap.Stringer("user_id", req.UserID),
			zap.Error(err),
		)

		if attempt < maxAttempts {
			c.sleep(time.Duration(attempt) * time.Second)
		}
	}

	return ErrUnavailable
}

// chargeOnce runs a single create+process sequence.
func (c *Client) chargeOnce(ctx context.Context, req ChargeRequest) error {
	created, err := c.create(ctx, createRequest{
		UserID:        req.UserID,
		CourseID:      req.CourseID,
		Amount:        req.Amount,
		Currency:      "USD",
		PaymentMethod: req.MethodCode,
		Description:   req.Description,
	})
	if err != nil {
		return errors.Wrap(err, "create payment")
	}

	err = c.process(ctx, processRequest{
		PaymentID:          created.ID,
		PaymentMethodToken: req.Token,
		AdditionalData:     req.AdditionalData,
	})
	if err != nil {
		return errors.Wrapf(err, "process payment %s", created.ID)
	}
	return nil
}

func (c *Client) create(ctx context.Context, req createRequest) (*createResponse, error) {
	var resp createResponse
	url := c.baseURL + "/api/payments"
	if err := c.post(ctx, url, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) process(ctx context.Context, req processRequest) error {
	url := fmt.Sprintf("%s/api/payments/%s/process", c.baseURL, req.PaymentID)
	return c.post(ctx, url, req, nil)
}

// post sends a JSON POST and decodes the response body into out when out is
// non-nil. A non-2xx status is an error.
func (c *Client) post(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "send request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(err, "decode response")
		}
	}
	return nil
}
