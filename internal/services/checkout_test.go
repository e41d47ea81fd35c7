package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/khelmart/khelmart/internal/auth"
	"github.com/khelmart/khelmart/internal/db"
	"github.com/khelmart/khelmart/internal/models"
	"github.com/khelmart/khelmart/internal/stripe"
)

// The real payment client must keep satisfying the service-side contract.
var _ paymentClient = (*stripe.Client)(nil)

type fakeOrderStore struct {
	createErr error
	attachErr error

	createdOrder *models.Order
	createdItems []models.OrderItem
	attachedID   uuid.UUID
	attachedSess string
}

func (f *fakeOrderStore) CreateWithItems(_ context.Context, order *models.Order, items []models.OrderItem) error {
	if f.createErr != nil {
		return f.createErr
	}
	order.ID = uuid.New()
	f.createdOrder = order
	f.createdItems = items
	return nil
}

func (f *fakeOrderStore) AttachStripeSession(_ context.Context, orderID uuid.UUID, sessionID string) error {
	if f.attachErr != nil {
		return f.attachErr
	}
	f.attachedID = orderID
	f.attachedSess = sessionID
	return nil
}

type fakePayments struct {
	customerID  string
	customerErr error
	session     *stripeapi.CheckoutSession
	createErr   error
	getSession  *stripeapi.CheckoutSession
	getErr      error

	createParams *stripe.CheckoutSessionParams
	getSessionID string
}

func (f *fakePayments) FindCustomerByEmail(_ context.Context, _ string) (string, error) {
	return f.customerID, f.customerErr
}

func (f *fakePayments) CreateCheckoutSession(_ context.Context, params stripe.CheckoutSessionParams) (*stripeapi.CheckoutSession, error) {
	f.createParams = &params
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.session, nil
}

func (f *fakePayments) GetCheckoutSession(_ context.Context, sessionID string) (*stripeapi.CheckoutSession, error) {
	f.getSessionID = sessionID
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getSession, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testIdentity() auth.Identity {
	return auth.Identity{UserID: uuid.New(), Email: "buyer@example.com"}
}

func validAddress() *AddressInput {
	return &AddressInput{
		FullName:     "Rahul Sharma",
		AddressLine1: "12 MG Road",
		City:         "Bengaluru",
		State:        "Karnataka",
		PostalCode:   "560001",
		Country:      "IN",
		Phone:        "+919876543210",
	}
}

func validRequest() CheckoutRequest {
	return CheckoutRequest{
		Items: []CheckoutItem{
			{ProductID: uuid.NewString(), Quantity: 2, Price: 899, Name: "Premium Football"},
		},
		ShippingAddress: validAddress(),
	}
}

func TestCreateCheckoutValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*CheckoutRequest)
		wantErr error
	}{
		{
			name:    "empty cart",
			mutate:  func(r *CheckoutRequest) { r.Items = nil },
			wantErr: ErrEmptyCart,
		},
		{
			name:    "missing shipping address",
			mutate:  func(r *CheckoutRequest) { r.ShippingAddress = nil },
			wantErr: ErrInvalidAddress,
		},
		{
			name:    "missing city",
			mutate:  func(r *CheckoutRequest) { r.ShippingAddress.City = "" },
			wantErr: ErrInvalidAddress,
		},
		{
			name: "bad billing address",
			mutate: func(r *CheckoutRequest) {
				r.BillingAddress = &AddressInput{FullName: "Only A Name"}
			},
			wantErr: ErrInvalidAddress,
		},
		{
			name:    "zero quantity",
			mutate:  func(r *CheckoutRequest) { r.Items[0].Quantity = 0 },
			wantErr: ErrInvalidItems,
		},
		{
			name:    "negative price",
			mutate:  func(r *CheckoutRequest) { r.Items[0].Price = -1 },
			wantErr: ErrInvalidItems,
		},
		{
			name:    "product id is not a uuid",
			mutate:  func(r *CheckoutRequest) { r.Items[0].ProductID = "p1" },
			wantErr: ErrInvalidItems,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := &fakeOrderStore{}
			payments := &fakePayments{}
			svc := NewCheckoutService(store, payments, "https://khelmart.example", testLogger())

			req := validRequest()
			tc.mutate(&req)

			_, err := svc.CreateCheckout(context.Background(), testIdentity(), req, "")
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("CreateCheckout() error = %v, want %v", err, tc.wantErr)
			}
			if store.createdOrder != nil {
				t.Fatal("order was persisted for an invalid request")
			}
			if payments.createParams != nil {
				t.Fatal("payment session was created for an invalid request")
			}
		})
	}
}

func TestCreateCheckoutUnauthenticated(t *testing.T) {
	t.Parallel()

	svc := NewCheckoutService(&fakeOrderStore{}, &fakePayments{}, "https://khelmart.example", testLogger())
	_, err := svc.CreateCheckout(context.Background(), auth.Identity{}, validRequest(), "")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("CreateCheckout() error = %v, want %v", err, ErrUnauthenticated)
	}
}

func TestCreateCheckoutSuccess(t *testing.T) {
	t.Parallel()

	store := &fakeOrderStore{}
	payments := &fakePayments{
		customerID: "cus_123",
		session:    &stripeapi.CheckoutSession{ID: "cs_test_abc", URL: "https://checkout.example/cs_test_abc"},
	}
	svc := NewCheckoutService(store, payments, "https://khelmart.example", testLogger())

	identity := testIdentity()
	productID := uuid.NewString()
	req := CheckoutRequest{
		Items: []CheckoutItem{
			{ProductID: productID, Quantity: 2, Price: 899, Name: "Premium Football"},
			{ProductID: uuid.NewString(), Quantity: 1, Price: 1299.50, Name: "Cricket Bat"},
		},
		ShippingAddress: validAddress(),
	}

	result, err := svc.CreateCheckout(context.Background(), identity, req, "")
	if err != nil {
		t.Fatalf("CreateCheckout() error = %v", err)
	}
	if result.URL != "https://checkout.example/cs_test_abc" {
		t.Fatalf("result URL = %q", result.URL)
	}

	order := store.createdOrder
	if order == nil {
		t.Fatal("order was not persisted")
	}
	if got, want := order.TotalAmount, 2*899+1299.50; got != want {
		t.Fatalf("total amount = %v, want %v", got, want)
	}
	if order.Status != models.OrderPending || order.PaymentStatus != models.PaymentPending {
		t.Fatalf("new order status = %s/%s, want pending/pending", order.Status, order.PaymentStatus)
	}
	if order.ShippingAddress.City != "Bengaluru" {
		t.Fatalf("shipping city = %q", order.ShippingAddress.City)
	}
	if order.BillingAddress != order.ShippingAddress {
		t.Fatal("billing address should default to shipping address")
	}

	if len(store.createdItems) != 2 {
		t.Fatalf("persisted %d items, want 2", len(store.createdItems))
	}
	if got := store.createdItems[0]; got.ProductID.String() != productID || got.Quantity != 2 || got.Price != 899 {
		t.Fatalf("first line item = %+v", got)
	}

	params := payments.createParams
	if params == nil {
		t.Fatal("payment session was not created")
	}
	if params.CustomerID != "cus_123" {
		t.Fatalf("customer id = %q", params.CustomerID)
	}
	if params.OrderID != order.ID {
		t.Fatalf("session order id = %s, want %s", params.OrderID, order.ID)
	}
	if got := params.Items[0]; got.Name != "Premium Football" || got.UnitPrice != 899 || got.Quantity != 2 {
		t.Fatalf("session line item = %+v", got)
	}
	wantSuccess := "https://khelmart.example/order-success?session_id={CHECKOUT_SESSION_ID}&order_id=" + order.ID.String()
	if params.SuccessURL != wantSuccess {
		t.Fatalf("success URL = %q, want %q", params.SuccessURL, wantSuccess)
	}
	if params.CancelURL != "https://khelmart.example/cart" {
		t.Fatalf("cancel URL = %q", params.CancelURL)
	}

	if store.attachedID != order.ID || store.attachedSess != "cs_test_abc" {
		t.Fatalf("session attach = (%s, %q)", store.attachedID, store.attachedSess)
	}
}

func TestCreateCheckoutUsesCallerOrigin(t *testing.T) {
	t.Parallel()

	payments := &fakePayments{session: &stripeapi.CheckoutSession{ID: "cs_1", URL: "https://checkout.example/cs_1"}}
	svc := NewCheckoutService(&fakeOrderStore{}, payments, "https://khelmart.example", testLogger())

	tests := []struct {
		name       string
		origin     string
		wantCancel string
	}{
		{name: "valid origin wins", origin: "https://preview.khelmart.example/", wantCancel: "https://preview.khelmart.example/cart"},
		{name: "empty origin falls back", origin: "", wantCancel: "https://khelmart.example/cart"},
		{name: "relative origin falls back", origin: "/somewhere", wantCancel: "https://khelmart.example/cart"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateCheckout(context.Background(), testIdentity(), validRequest(), tc.origin)
			if err != nil {
				t.Fatalf("CreateCheckout() error = %v", err)
			}
			if payments.createParams.CancelURL != tc.wantCancel {
				t.Fatalf("cancel URL = %q, want %q", payments.createParams.CancelURL, tc.wantCancel)
			}
		})
	}
}

func TestCreateCheckoutCustomerLookupFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	payments := &fakePayments{
		customerErr: errors.New("provider hiccup"),
		session:     &stripeapi.CheckoutSession{ID: "cs_2", URL: "https://checkout.example/cs_2"},
	}
	svc := NewCheckoutService(&fakeOrderStore{}, payments, "https://khelmart.example", testLogger())

	_, err := svc.CreateCheckout(context.Background(), testIdentity(), validRequest(), "")
	if err != nil {
		t.Fatalf("CreateCheckout() error = %v", err)
	}
	if payments.createParams.CustomerID != "" {
		t.Fatalf("customer id = %q, want empty", payments.createParams.CustomerID)
	}
	if payments.createParams.CustomerEmail != "buyer@example.com" {
		t.Fatalf("customer email = %q", payments.createParams.CustomerEmail)
	}
}

func TestCreateCheckoutProviderFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		createErr error
		wantErr   error
	}{
		{name: "provider rejection", createErr: errors.New("card network down"), wantErr: ErrPaymentProvider},
		{name: "provider timeout", createErr: context.DeadlineExceeded, wantErr: ErrPaymentProviderTimeout},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := &fakeOrderStore{}
			payments := &fakePayments{createErr: tc.createErr}
			svc := NewCheckoutService(store, payments, "https://khelmart.example", testLogger())

			_, err := svc.CreateCheckout(context.Background(), testIdentity(), validRequest(), "")
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("CreateCheckout() error = %v, want %v", err, tc.wantErr)
			}
			// The pending order stays so the buyer can retry.
			if store.createdOrder == nil {
				t.Fatal("pending order should have been persisted before the provider call")
			}
			if store.attachedSess != "" {
				t.Fatal("no session should be attached after a provider failure")
			}
		})
	}
}

func TestCreateCheckoutDuplicateOrderNumber(t *testing.T) {
	t.Parallel()

	store := &fakeOrderStore{createErr: db.ErrDuplicateOrderNumber}
	svc := NewCheckoutService(store, &fakePayments{}, "https://khelmart.example", testLogger())

	_, err := svc.CreateCheckout(context.Background(), testIdentity(), validRequest(), "")
	if !errors.Is(err, ErrDuplicateOrderNumber) {
		t.Fatalf("CreateCheckout() error = %v, want %v", err, ErrDuplicateOrderNumber)
	}
}

func TestGenerateOrderNumber(t *testing.T) {
	t.Parallel()

	pattern := regexp.MustCompile(`^ORD-\d+-[A-Z0-9]{6}$`)

	seen := make(map[string]struct{}, 10000)
	for range 10000 {
		number := GenerateOrderNumber()
		if !pattern.MatchString(number) {
			t.Fatalf("order number %q does not match %s", number, pattern)
		}
		if _, dup := seen[number]; dup {
			t.Fatalf("duplicate order number %q", number)
		}
		seen[number] = struct{}{}
	}
}
