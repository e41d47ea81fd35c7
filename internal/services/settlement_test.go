package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/khelmart/khelmart/internal/cache"
	"github.com/khelmart/khelmart/internal/email"
	"github.com/khelmart/khelmart/internal/models"
)

type fakeSettlementStore struct {
	order      *models.Order
	getErr     error
	markErr    error
	getCalled  bool
	markCalled bool
}

func (f *fakeSettlementStore) GetByID(_ context.Context, orderID uuid.UUID) (*models.Order, error) {
	f.getCalled = true
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.order == nil || f.order.ID != orderID {
		return nil, pgx.ErrNoRows
	}
	return f.order, nil
}

func (f *fakeSettlementStore) MarkPaid(_ context.Context, _ uuid.UUID) error {
	f.markCalled = true
	return f.markErr
}

type fakeCache struct {
	entries map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]string{}}
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	value, ok := f.entries[key]
	if !ok {
		return "", cache.ErrNotFound
	}
	return value, nil
}

func (f *fakeCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.entries[key] = value
	return nil
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	delete(f.entries, key)
	return nil
}

func (f *fakeCache) Close() error { return nil }

type fakeEmailSender struct {
	sent []*email.Email
	err  error
}

func (f *fakeEmailSender) SendEmail(_ context.Context, msg *email.Email) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func pendingOrder() *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		OrderNumber:   "ORD-1756300000000-A1B2C3",
		TotalAmount:   1798,
		Status:        models.OrderPending,
		PaymentStatus: models.PaymentPending,
		ShippingAddress: models.Address{
			FullName: "Rahul Sharma",
			City:     "Bengaluru",
		},
		Items: []models.OrderItem{
			{ProductID: uuid.New(), Quantity: 2, Price: 899, ProductName: "Premium Football"},
		},
		CreatedAt: time.Now(),
	}
}

func TestVerifyPaymentRejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		sessionID string
		orderID   string
	}{
		{name: "missing session id", sessionID: "", orderID: uuid.NewString()},
		{name: "missing order id", sessionID: "cs_test_abc", orderID: ""},
		{name: "order id is not a uuid", sessionID: "cs_test_abc", orderID: "not-a-uuid"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := &fakeSettlementStore{}
			payments := &fakePayments{}
			svc := NewSettlementService(store, payments, nil, nil, testLogger())

			_, err := svc.VerifyPayment(context.Background(), tc.sessionID, tc.orderID)
			if !errors.Is(err, ErrInvalidVerificationRequest) {
				t.Fatalf("VerifyPayment() error = %v, want %v", err, ErrInvalidVerificationRequest)
			}
			if payments.getSessionID != "" {
				t.Fatal("provider should not be queried for a rejected request")
			}
		})
	}
}

func TestVerifyPaymentOrderNotFound(t *testing.T) {
	t.Parallel()

	svc := NewSettlementService(&fakeSettlementStore{}, &fakePayments{}, nil, nil, testLogger())
	_, err := svc.VerifyPayment(context.Background(), "cs_test_abc", uuid.NewString())
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("VerifyPayment() error = %v, want %v", err, ErrOrderNotFound)
	}
}

func TestVerifyPaymentSettlesPaidSession(t *testing.T) {
	t.Parallel()

	order := pendingOrder()
	store := &fakeSettlementStore{order: order}
	payments := &fakePayments{
		getSession: &stripeapi.CheckoutSession{
			ID:              "cs_test_abc",
			PaymentStatus:   stripeapi.CheckoutSessionPaymentStatusPaid,
			CustomerDetails: &stripeapi.CheckoutSessionCustomerDetails{Email: "buyer@example.com"},
		},
	}
	sender := &fakeEmailSender{}
	svc := NewSettlementService(store, payments, nil, sender, testLogger())

	result, err := svc.VerifyPayment(context.Background(), "cs_test_abc", order.ID.String())
	if err != nil {
		t.Fatalf("VerifyPayment() error = %v", err)
	}
	if !result.Success || result.PaymentStatus != "paid" || result.OrderStatus != "confirmed" {
		t.Fatalf("VerifyPayment() = %+v", result)
	}
	if !store.markCalled {
		t.Fatal("order was not marked paid")
	}
	if payments.getSessionID != "cs_test_abc" {
		t.Fatalf("provider queried with %q", payments.getSessionID)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != "buyer@example.com" {
		t.Fatalf("email to = %q", msg.To)
	}
	if msg.Subject == "" || msg.Text == "" || msg.HTML == "" {
		t.Fatal("confirmation email is missing content")
	}
}

func TestVerifyPaymentUnsettledSession(t *testing.T) {
	t.Parallel()

	order := pendingOrder()
	store := &fakeSettlementStore{order: order}
	payments := &fakePayments{
		getSession: &stripeapi.CheckoutSession{
			ID:            "cs_test_abc",
			PaymentStatus: stripeapi.CheckoutSessionPaymentStatusUnpaid,
		},
	}
	svc := NewSettlementService(store, payments, nil, nil, testLogger())

	result, err := svc.VerifyPayment(context.Background(), "cs_test_abc", order.ID.String())
	if err != nil {
		t.Fatalf("VerifyPayment() error = %v", err)
	}
	if result.Success {
		t.Fatal("unsettled session reported as success")
	}
	if result.PaymentStatus != "unpaid" {
		t.Fatalf("payment status = %q, want provider status echoed", result.PaymentStatus)
	}
	if store.markCalled {
		t.Fatal("order must not change state for an unsettled session")
	}
}

func TestVerifyPaymentShortCircuitsSettledOrder(t *testing.T) {
	t.Parallel()

	order := pendingOrder()
	order.Status = models.OrderConfirmed
	order.PaymentStatus = models.PaymentPaid

	store := &fakeSettlementStore{order: order}
	payments := &fakePayments{}
	svc := NewSettlementService(store, payments, nil, nil, testLogger())

	result, err := svc.VerifyPayment(context.Background(), "cs_test_abc", order.ID.String())
	if err != nil {
		t.Fatalf("VerifyPayment() error = %v", err)
	}
	if !result.Success || result.PaymentStatus != "paid" || result.OrderStatus != "confirmed" {
		t.Fatalf("VerifyPayment() = %+v", result)
	}
	if payments.getSessionID != "" {
		t.Fatal("provider should not be queried for an already settled order")
	}
	if store.markCalled {
		t.Fatal("MarkPaid should not run twice")
	}
}

func TestVerifyPaymentUsesSettledSessionCache(t *testing.T) {
	t.Parallel()

	order := pendingOrder()
	store := &fakeSettlementStore{order: order}
	payments := &fakePayments{}
	cacheProvider := newFakeCache()
	cacheProvider.entries[cache.SettledSessionKey("cs_test_abc")] = order.ID.String()

	svc := NewSettlementService(store, payments, cacheProvider, nil, testLogger())

	result, err := svc.VerifyPayment(context.Background(), "cs_test_abc", order.ID.String())
	if err != nil {
		t.Fatalf("VerifyPayment() error = %v", err)
	}
	if !result.Success || result.PaymentStatus != "paid" || result.OrderStatus != "confirmed" {
		t.Fatalf("VerifyPayment() = %+v", result)
	}
	if store.getCalled {
		t.Fatal("store should not be queried for a cached settled session")
	}
	if payments.getSessionID != "" {
		t.Fatal("provider should not be queried for a cached settled session")
	}
	if store.markCalled {
		t.Fatal("MarkPaid should not run for a cached settled session")
	}
}

func TestVerifyPaymentRecordsSettledSession(t *testing.T) {
	t.Parallel()

	order := pendingOrder()
	store := &fakeSettlementStore{order: order}
	payments := &fakePayments{
		getSession: &stripeapi.CheckoutSession{
			ID:            "cs_test_abc",
			PaymentStatus: stripeapi.CheckoutSessionPaymentStatusPaid,
		},
	}
	cacheProvider := newFakeCache()
	svc := NewSettlementService(store, payments, cacheProvider, nil, testLogger())

	if _, err := svc.VerifyPayment(context.Background(), "cs_test_abc", order.ID.String()); err != nil {
		t.Fatalf("VerifyPayment() error = %v", err)
	}
	if got := cacheProvider.entries[cache.SettledSessionKey("cs_test_abc")]; got != order.ID.String() {
		t.Fatalf("settled session mark = %q, want %q", got, order.ID.String())
	}

	// A second verification for the same redirect settles from the cache.
	store.getCalled = false
	payments.getSessionID = ""
	result, err := svc.VerifyPayment(context.Background(), "cs_test_abc", order.ID.String())
	if err != nil {
		t.Fatalf("VerifyPayment() error = %v", err)
	}
	if !result.Success || store.getCalled || payments.getSessionID != "" {
		t.Fatalf("repeat verification hit the store or provider, result = %+v", result)
	}
}

func TestVerifyPaymentIgnoresStaleSettledSessionMark(t *testing.T) {
	t.Parallel()

	order := pendingOrder()
	store := &fakeSettlementStore{order: order}
	payments := &fakePayments{
		getSession: &stripeapi.CheckoutSession{
			ID:            "cs_test_abc",
			PaymentStatus: stripeapi.CheckoutSessionPaymentStatusPaid,
		},
	}
	cacheProvider := newFakeCache()
	// Mark points at a different order: the cache must not settle it.
	cacheProvider.entries[cache.SettledSessionKey("cs_test_abc")] = uuid.NewString()

	svc := NewSettlementService(store, payments, cacheProvider, nil, testLogger())

	result, err := svc.VerifyPayment(context.Background(), "cs_test_abc", order.ID.String())
	if err != nil {
		t.Fatalf("VerifyPayment() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("VerifyPayment() = %+v", result)
	}
	if !store.getCalled || payments.getSessionID != "cs_test_abc" {
		t.Fatal("a mismatched cache mark must fall through to the full verification")
	}
}

func TestVerifyPaymentProviderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		getErr  error
		wantErr error
	}{
		{name: "provider rejection", getErr: errors.New("no such session"), wantErr: ErrPaymentProvider},
		{name: "provider timeout", getErr: context.DeadlineExceeded, wantErr: ErrPaymentProviderTimeout},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			order := pendingOrder()
			store := &fakeSettlementStore{order: order}
			svc := NewSettlementService(store, &fakePayments{getErr: tc.getErr}, nil, nil, testLogger())

			_, err := svc.VerifyPayment(context.Background(), "cs_test_abc", order.ID.String())
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("VerifyPayment() error = %v, want %v", err, tc.wantErr)
			}
			if store.markCalled {
				t.Fatal("order must not change state when the provider call fails")
			}
		})
	}
}

func TestVerifyPaymentEmailFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	order := pendingOrder()
	store := &fakeSettlementStore{order: order}
	payments := &fakePayments{
		getSession: &stripeapi.CheckoutSession{
			ID:            "cs_test_abc",
			PaymentStatus: stripeapi.CheckoutSessionPaymentStatusPaid,
			CustomerEmail: "buyer@example.com",
		},
	}
	sender := &fakeEmailSender{err: errors.New("smtp down")}
	svc := NewSettlementService(store, payments, nil, sender, testLogger())

	result, err := svc.VerifyPayment(context.Background(), "cs_test_abc", order.ID.String())
	if err != nil {
		t.Fatalf("VerifyPayment() error = %v", err)
	}
	if !result.Success {
		t.Fatal("settlement should succeed even when the email send fails")
	}
}
