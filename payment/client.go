package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/velmart/storefront-api/models"
)

// Status is the authoritative payment state of a checkout session as reported
// by the gateway.
type Status string

const (
	StatusPaid              Status = "paid"
	StatusUnpaid            Status = "unpaid"
	StatusNoPaymentRequired Status = "no_payment_required"
)

// SessionIDPlaceholder is substituted by the gateway when it redirects the
// customer back to the success URL.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

// Session is a hosted checkout session: the customer is sent to CheckoutURL
// and the gateway redirects back when done.
type Session struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"url"`
}

// Gateway is the narrow contract the checkout flow needs from the payment
// provider. Redirects from the client are never trusted; GetSessionStatus is
// the authoritative check and is safe to repeat.
type Gateway interface {
	CreateSession(ctx context.Context, order models.Order, customerEmail string) (*Session, error)
	GetSessionStatus(ctx context.Context, sessionID string) (Status, error)
}

var ErrGateway = errors.New("payment gateway error")

type lineItem struct {
	Name       string `json:"name"`
	UnitAmount int64  `json:"unit_amount"` // minor currency units
	Quantity   int    `json:"quantity"`
}

type createSessionRequest struct {
	LineItems     []lineItem        `json:"line_items"`
	Mode          string            `json:"mode"`
	Currency      string            `json:"currency"`
	CustomerEmail string            `json:"customer_email,omitempty"`
	SuccessURL    string            `json:"success_url"`
	CancelURL     string            `json:"cancel_url"`
	Metadata      map[string]string `json:"metadata"`
}

type gatewayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type createSessionResponse struct {
	ID    string        `json:"id"`
	URL   string        `json:"url"`
	Error *gatewayError `json:"error,omitempty"`
}

type sessionStatusResponse struct {
	ID            string        `json:"id"`
	PaymentStatus Status        `json:"payment_status"`
	Error         *gatewayError `json:"error,omitempty"`
}

// Client talks to the hosted-checkout gateway over HTTP/JSON. Calls run
// through a circuit breaker with bounded retries; the HTTP client carries an
// explicit timeout.
type Client struct {
	apiURL     string
	secretKey  string
	currency   string
	publicURL  string // base URL of this application, for redirect endpoints
	httpClient *http.Client
	breaker    *Breaker
	log        *zap.Logger
}

// NewClientFromEnv builds a Client from PAYMENT_API_URL, PAYMENT_SECRET_KEY,
// PAYMENT_CURRENCY and PUBLIC_BASE_URL.
func NewClientFromEnv(log *zap.Logger) (*Client, error) {
	apiURL := os.Getenv("PAYMENT_API_URL")
	secretKey := os.Getenv("PAYMENT_SECRET_KEY")
	publicURL := os.Getenv("PUBLIC_BASE_URL")
	if apiURL == "" || secretKey == "" || publicURL == "" {
		return nil, errors.New("payment gateway configuration missing")
	}
	currency := os.Getenv("PAYMENT_CURRENCY")
	if currency == "" {
		currency = "usd"
	}
	return &Client{
		apiURL:     apiURL,
		secretKey:  secretKey,
		currency:   currency,
		publicURL:  publicURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    NewBreaker(5, 30*time.Second),
		log:        log,
	}, nil
}

// CreateSession opens a hosted checkout session for the order's lines. The
// success URL carries the order reference plus the gateway's session-id
// placeholder; the cancel URL carries the reference only.
func (c *Client) CreateSession(ctx context.Context, order models.Order, customerEmail string) (*Session, error) {
	if len(order.Items) == 0 {
		return nil, fmt.Errorf("%w: order %s has no line items", ErrGateway, order.Reference)
	}

	items := make([]lineItem, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, lineItem{
			Name:       it.ProductName,
			UnitAmount: minorUnits(it.Price),
			Quantity:   it.Quantity,
		})
	}

	reqBody := createSessionRequest{
		LineItems:     items,
		Mode:          "payment",
		Currency:      c.currency,
		CustomerEmail: customerEmail,
		SuccessURL: fmt.Sprintf("%s/checkout/success?reference=%s&session_id=%s",
			c.publicURL, url.QueryEscape(order.Reference), SessionIDPlaceholder),
		CancelURL: fmt.Sprintf("%s/checkout/cancel?reference=%s",
			c.publicURL, url.QueryEscape(order.Reference)),
		Metadata: map[string]string{
			"order_reference": order.Reference,
			"order_id":        fmt.Sprintf("%d", order.ID),
		},
	}

	var resp createSessionResponse
	if err := c.post(ctx, c.apiURL+"/v1/checkout/sessions", reqBody, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		c.log.Error("gateway rejected session creation",
			zap.String("order_reference", order.Reference),
			zap.String("gateway_code", resp.Error.Code),
			zap.String("gateway_message", resp.Error.Message))
		return nil, fmt.Errorf("%w: session creation rejected", ErrGateway)
	}
	if resp.ID == "" || resp.URL == "" {
		return nil, fmt.Errorf("%w: gateway returned empty session", ErrGateway)
	}
	return &Session{ID: resp.ID, CheckoutURL: resp.URL}, nil
}

// GetSessionStatus re-queries the gateway for the authoritative payment state
// of a session. Idempotent and safe to repeat.
func (c *Client) GetSessionStatus(ctx context.Context, sessionID string) (Status, error) {
	var resp sessionStatusResponse
	endpoint := c.apiURL + "/v1/checkout/sessions/" + url.PathEscape(sessionID)
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		c.log.Error("gateway rejected session lookup",
			zap.String("session_id", sessionID),
			zap.String("gateway_code", resp.Error.Code),
			zap.String("gateway_message", resp.Error.Message))
		return "", fmt.Errorf("%w: session lookup rejected", ErrGateway)
	}
	switch resp.PaymentStatus {
	case StatusPaid, StatusUnpaid, StatusNoPaymentRequired:
		return resp.PaymentStatus, nil
	default:
		return "", fmt.Errorf("%w: unknown payment status %q", ErrGateway, resp.PaymentStatus)
	}
}

func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode gateway request: %w", err)
	}
	return c.do(ctx, http.MethodPost, endpoint, payload, out)
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, nil, out)
}

// do runs one gateway call through the breaker with up to three attempts and
// exponential backoff. Only transport errors and 5xx responses are retried.
func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte, out any) error {
	const attempts = 3
	backoff := 250 * time.Millisecond

	return c.breaker.Execute(ctx, func() error {
		var lastErr error
		for i := 0; i < attempts; i++ {
			if i > 0 {
				select {
				case <-time.After(backoff):
					backoff *= 2
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			err := c.doOnce(ctx, method, endpoint, payload, out)
			if err == nil {
				return nil
			}
			lastErr = err
			if !retryable(err) {
				return err
			}
			c.log.Warn("gateway call failed, retrying",
				zap.String("endpoint", endpoint), zap.Int("attempt", i+1), zap.Error(err))
		}
		return lastErr
	})
}

type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

func (c *Client) doOnce(ctx context.Context, method, endpoint string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &transientError{fmt.Errorf("%w: %v", ErrGateway, err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &transientError{fmt.Errorf("%w: read response: %v", ErrGateway, err)}
	}
	if resp.StatusCode >= 500 {
		return &transientError{fmt.Errorf("%w: status %d", ErrGateway, resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		// 4xx bodies carry a structured error payload; let the caller log it.
		if jsonErr := json.Unmarshal(raw, out); jsonErr == nil {
			return nil
		}
		return fmt.Errorf("%w: status %d", ErrGateway, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: parse response: %v", ErrGateway, err)
	}
	return nil
}

// minorUnits converts a decimal price to integer minor currency units
// (e.g. 10.00 -> 1000).
func minorUnits(price decimal.Decimal) int64 {
	return price.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
