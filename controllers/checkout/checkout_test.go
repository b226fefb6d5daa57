package checkoutControllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/velmart/storefront-api/models"
	"github.com/velmart/storefront-api/payment"
	"github.com/velmart/storefront-api/services"
)

type stubGateway struct {
	status    payment.Status
	statusErr error
	session   *payment.Session
	createErr error
}

func (g *stubGateway) CreateSession(ctx context.Context, order models.Order, email string) (*payment.Session, error) {
	return g.session, g.createErr
}

func (g *stubGateway) GetSessionStatus(ctx context.Context, sessionID string) (payment.Status, error) {
	return g.status, g.statusErr
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open gorm: %v", err)
	}
	return db, mock
}

func TestCheckoutRequestValidate(t *testing.T) {
	long := strings.Repeat("x", 256)

	cases := []struct {
		name       string
		req        CheckoutRequest
		wantFields []string
	}{
		{"empty request defaults", CheckoutRequest{}, nil},
		{"card accepted", CheckoutRequest{PaymentMethod: "card"}, nil},
		{"unknown method", CheckoutRequest{PaymentMethod: "cheque"}, []string{"payment_method"}},
		{"shipping too long", CheckoutRequest{ShippingAddress: long}, []string{"shipping_address"}},
		{"both addresses too long", CheckoutRequest{ShippingAddress: long, BillingAddress: long},
			[]string{"shipping_address", "billing_address"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := tc.req.Validate()
			if len(errs) != len(tc.wantFields) {
				t.Fatalf("got %d field errors %+v, want %d", len(errs), errs, len(tc.wantFields))
			}
			for i, f := range tc.wantFields {
				if errs[i].Field != f {
					t.Errorf("error %d is on %q, want %q", i, errs[i].Field, f)
				}
			}
		})
	}
}

func TestCheckoutRequestValidateDefaultsPaymentMethod(t *testing.T) {
	req := CheckoutRequest{}
	if errs := req.Validate(); len(errs) != 0 {
		t.Fatalf("unexpected field errors: %+v", errs)
	}
	if req.PaymentMethod != "card" {
		t.Errorf("PaymentMethod = %q, want card", req.PaymentMethod)
	}
}

func TestCheckoutRejectsInvalidInputBeforeWorkflow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock := newMockDB(t)
	log := zaptest.NewLogger(t)
	orders := services.NewOrderService(db, log, nil)

	router := gin.New()
	router.POST("/checkout", func(c *gin.Context) {
		c.Set("user_id", "user-1")
		Checkout(db, orders, &stubGateway{}, log)(c)
	})

	body := strings.NewReader(`{"payment_method":"cheque"}`)
	req := httptest.NewRequest(http.MethodPost, "/checkout", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	// Nothing touched the database.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCheckoutRequiresAuthentication(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, _ := newMockDB(t)
	log := zaptest.NewLogger(t)
	orders := services.NewOrderService(db, log, nil)

	router := gin.New()
	router.POST("/checkout", Checkout(db, orders, &stubGateway{}, log))

	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestSuccessRequiresConfirmationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, _ := newMockDB(t)
	log := zaptest.NewLogger(t)
	orders := services.NewOrderService(db, log, nil)

	router := gin.New()
	router.GET("/checkout/success", Success(orders, &stubGateway{}, log))

	for _, query := range []string{"", "?reference=ORD-abc", "?session_id=cs_123"} {
		req := httptest.NewRequest(http.MethodGet, "/checkout/success"+query, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("query %q: status = %d, want 400", query, w.Code)
		}
	}
}

func TestSuccessDoesNotFinalizeUnpaidSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock := newMockDB(t)
	log := zaptest.NewLogger(t)
	orders := services.NewOrderService(db, log, nil)

	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE reference = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "reference", "user_id", "status", "payment_status"}).
			AddRow(3, "ORD-abc", "user-1", "pending", "pending"))
	mock.ExpectQuery(`SELECT \* FROM "order_items"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "product_name", "price", "quantity"}).
			AddRow(1, 3, 1, "Mug", "10.00", 2))

	// The gateway says the customer never paid, redirect or not.
	router := gin.New()
	router.GET("/checkout/success", Success(orders, &stubGateway{status: payment.StatusUnpaid}, log))

	req := httptest.NewRequest(http.MethodGet, "/checkout/success?reference=ORD-abc&session_id=cs_123", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	// No finalization queries ran.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSuccessRejectsMismatchedSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock := newMockDB(t)
	log := zaptest.NewLogger(t)
	orders := services.NewOrderService(db, log, nil)

	// The order was opened against a different gateway session.
	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE reference = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "reference", "user_id", "status", "payment_status", "payment_ref"}).
			AddRow(3, "ORD-abc", "user-1", "pending", "pending", "cs_expected"))
	mock.ExpectQuery(`SELECT \* FROM "order_items"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "product_name", "price", "quantity"}).
			AddRow(1, 3, 1, "Mug", "10.00", 2))

	router := gin.New()
	router.GET("/checkout/success", Success(orders, &stubGateway{status: payment.StatusPaid}, log))

	req := httptest.NewRequest(http.MethodGet, "/checkout/success?reference=ORD-abc&session_id=cs_other", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	// A paid but foreign session must never finalize this order.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSuccessReportsUnfinalizableOrder(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock := newMockDB(t)
	log := zaptest.NewLogger(t)
	orders := services.NewOrderService(db, log, nil)

	cancelledRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "reference", "user_id", "status", "payment_status", "payment_ref"}).
			AddRow(3, "ORD-abc", "user-1", "cancelled", "pending", "cs_123")
	}

	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE reference = \$1`).
		WillReturnRows(cancelledRows())
	mock.ExpectQuery(`SELECT \* FROM "order_items"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "product_name", "price", "quantity"}).
			AddRow(1, 3, 1, "Mug", "10.00", 2))
	// FinalizeOrder re-loads, locks and refuses.
	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE reference = \$1`).
		WillReturnRows(cancelledRows())
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE reference = \$1 .* FOR UPDATE`).
		WillReturnRows(cancelledRows())
	mock.ExpectRollback()

	router := gin.New()
	router.GET("/checkout/success", Success(orders, &stubGateway{status: payment.StatusPaid}, log))

	req := httptest.NewRequest(http.MethodGet, "/checkout/success?reference=ORD-abc&session_id=cs_123", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCancelKeepsOrderPending(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/checkout/cancel", Cancel())

	req := httptest.NewRequest(http.MethodGet, "/checkout/cancel?reference=ORD-abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ORD-abc") {
		t.Errorf("body %q should echo the reference", w.Body.String())
	}
}
