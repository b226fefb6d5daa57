package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/velmart/storefront-api/models"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return &Client{
		apiURL:     srv.URL,
		secretKey:  "sk_test",
		currency:   "usd",
		publicURL:  "https://shop.example.com",
		httpClient: srv.Client(),
		breaker:    NewBreaker(5, time.Minute),
		log:        zaptest.NewLogger(t),
	}
}

func testOrder() models.Order {
	return models.Order{
		ID:        3,
		Reference: "ORD-abc",
		Items: []models.OrderItem{
			{ProductName: "Mug", Price: decimal.RequireFromString("10.00"), Quantity: 2},
		},
	}
}

func TestCreateSession(t *testing.T) {
	var got createSessionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk_test" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(createSessionResponse{
			ID:  "cs_123",
			URL: "https://pay.example.com/cs_123",
		})
	}))
	defer srv.Close()

	session, err := newTestClient(t, srv).CreateSession(context.Background(), testOrder(), "customer@example.com")
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	if session.ID != "cs_123" || session.CheckoutURL != "https://pay.example.com/cs_123" {
		t.Errorf("session = %+v", session)
	}

	if len(got.LineItems) != 1 {
		t.Fatalf("gateway saw %d line items, want 1", len(got.LineItems))
	}
	if got.LineItems[0].UnitAmount != 1000 {
		t.Errorf("unit amount = %d minor units, want 1000", got.LineItems[0].UnitAmount)
	}
	if got.Metadata["order_reference"] != "ORD-abc" {
		t.Errorf("metadata order_reference = %q", got.Metadata["order_reference"])
	}
	// The success URL must carry the reference and the literal placeholder the
	// gateway substitutes on redirect.
	if !strings.Contains(got.SuccessURL, "reference=ORD-abc") ||
		!strings.Contains(got.SuccessURL, "session_id="+SessionIDPlaceholder) {
		t.Errorf("success URL = %q", got.SuccessURL)
	}
	if !strings.HasPrefix(got.CancelURL, "https://shop.example.com/checkout/cancel") {
		t.Errorf("cancel URL = %q", got.CancelURL)
	}
}

func TestCreateSessionGatewayRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(createSessionResponse{
			Error: &gatewayError{Code: "invalid_currency", Message: "unsupported currency"},
		})
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).CreateSession(context.Background(), testOrder(), "")
	if !errors.Is(err, ErrGateway) {
		t.Fatalf("error = %v, want ErrGateway", err)
	}
}

func TestCreateSessionNoLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("gateway must not be called for an order with no lines")
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).CreateSession(context.Background(), models.Order{Reference: "ORD-x"}, "")
	if !errors.Is(err, ErrGateway) {
		t.Fatalf("error = %v, want ErrGateway", err)
	}
}

func TestGetSessionStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions/cs_123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(sessionStatusResponse{ID: "cs_123", PaymentStatus: StatusPaid})
	}))
	defer srv.Close()

	status, err := newTestClient(t, srv).GetSessionStatus(context.Background(), "cs_123")
	if err != nil {
		t.Fatalf("GetSessionStatus returned error: %v", err)
	}
	if status != StatusPaid {
		t.Errorf("status = %q, want paid", status)
	}
}

func TestGetSessionStatusUnknownValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(sessionStatusResponse{ID: "cs_123", PaymentStatus: "maybe"})
	}))
	defer srv.Close()

	if _, err := newTestClient(t, srv).GetSessionStatus(context.Background(), "cs_123"); !errors.Is(err, ErrGateway) {
		t.Fatalf("error = %v, want ErrGateway", err)
	}
}

func TestServerErrorsAreRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(sessionStatusResponse{ID: "cs_123", PaymentStatus: StatusUnpaid})
	}))
	defer srv.Close()

	status, err := newTestClient(t, srv).GetSessionStatus(context.Background(), "cs_123")
	if err != nil {
		t.Fatalf("GetSessionStatus returned error: %v", err)
	}
	if status != StatusUnpaid {
		t.Errorf("status = %q, want unpaid", status)
	}
	if calls != 3 {
		t.Errorf("gateway saw %d calls, want 3", calls)
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	client.breaker = NewBreaker(2, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := client.GetSessionStatus(context.Background(), "cs_123"); err == nil {
			t.Fatal("call against a failing gateway should error")
		}
	}
	if client.breaker.CurrentState() != StateOpen {
		t.Fatalf("breaker state = %v, want open", client.breaker.CurrentState())
	}

	before := calls
	if _, err := client.GetSessionStatus(context.Background(), "cs_123"); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("error = %v, want ErrCircuitOpen", err)
	}
	if calls != before {
		t.Error("open breaker must not reach the gateway")
	}
}

func TestMinorUnits(t *testing.T) {
	cases := []struct {
		price string
		want  int64
	}{
		{"10.00", 1000},
		{"0.99", 99},
		{"19.995", 2000},
		{"0", 0},
	}
	for _, tc := range cases {
		if got := minorUnits(decimal.RequireFromString(tc.price)); got != tc.want {
			t.Errorf("minorUnits(%s) = %d, want %d", tc.price, got, tc.want)
		}
	}
}
