package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/khelmart/khelmart/internal/auth"
	"github.com/khelmart/khelmart/internal/db"
	"github.com/khelmart/khelmart/internal/logging"
	"github.com/khelmart/khelmart/internal/models"
	"github.com/khelmart/khelmart/internal/observability"
	"github.com/khelmart/khelmart/internal/stripe"
)

// CheckoutItem is one cart entry in a checkout request. Price is the
// cart-reported unit price and is snapshotted verbatim onto the line item.
type CheckoutItem struct {
	ProductID string  `json:"product_id" validate:"required,uuid"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	Price     float64 `json:"price" validate:"required,gt=0"`
	Name      string  `json:"name" validate:"required"`
}

// AddressInput is the caller-supplied shipping or billing address.
type AddressInput struct {
	FullName     string `json:"full_name" validate:"required"`
	AddressLine1 string `json:"address_line_1" validate:"required"`
	AddressLine2 string `json:"address_line_2"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	PostalCode   string `json:"postal_code" validate:"required"`
	Country      string `json:"country" validate:"required"`
	Phone        string `json:"phone" validate:"required"`
}

// CheckoutRequest is the payload submitted by the storefront after cart
// review. Billing address defaults to the shipping address.
type CheckoutRequest struct {
	Items           []CheckoutItem `json:"items"`
	ShippingAddress *AddressInput  `json:"shipping_address"`
	BillingAddress  *AddressInput  `json:"billing_address,omitempty"`
}

// CheckoutResult is returned to the storefront so it can redirect the buyer
// to the hosted payment page.
type CheckoutResult struct {
	URL     string    `json:"url"`
	OrderID uuid.UUID `json:"order_id"`
}

type checkoutOrderStore interface {
	CreateWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error
	AttachStripeSession(ctx context.Context, orderID uuid.UUID, sessionID string) error
}

type paymentClient interface {
	FindCustomerByEmail(ctx context.Context, email string) (string, error)
	CreateCheckoutSession(ctx context.Context, params stripe.CheckoutSessionParams) (*stripeapi.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*stripeapi.CheckoutSession, error)
}

// CheckoutService runs the order checkout pipeline: it persists a pending
// order with its line-item snapshot, then bridges the items to a hosted
// payment session.
type CheckoutService struct {
	orderStore    checkoutOrderStore
	payments      paymentClient
	storefrontURL string
	validate      *validator.Validate
	logger        *slog.Logger
}

func NewCheckoutService(orderStore checkoutOrderStore, payments paymentClient, storefrontURL string, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		orderStore:    orderStore,
		payments:      payments,
		storefrontURL: strings.TrimRight(strings.TrimSpace(storefrontURL), "/"),
		validate:      validator.New(),
		logger:        logger,
	}
}

func (s *CheckoutService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// CreateCheckout validates the request, persists the order and its line
// items, and creates the hosted payment session. Origin, when non-empty, is
// the storefront origin redirect targets are built against.
func (s *CheckoutService) CreateCheckout(ctx context.Context, identity auth.Identity, req CheckoutRequest, origin string) (CheckoutResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.checkout.create",
		sentry.WithOpName("service.checkout"),
		sentry.WithDescription("CreateCheckout"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	meter.SetAttributes(attribute.String("component", "checkout"))
	recordFailure := func(reason string) {
		meter.Count("checkout.failed", 1, sentry.WithAttributes(
			attribute.String("reason", reason),
		))
	}
	meter.Count("checkout.received", 1)

	if identity.UserID == uuid.Nil {
		recordFailure("unauthenticated")
		return CheckoutResult{}, ErrUnauthenticated
	}
	if err := s.validateRequest(req); err != nil {
		recordFailure(failureReason(err))
		return CheckoutResult{}, err
	}

	totalAmount := 0.0
	for _, item := range req.Items {
		totalAmount += item.Price * float64(item.Quantity)
	}

	billing := req.BillingAddress
	if billing == nil {
		billing = req.ShippingAddress
	}

	order := &models.Order{
		UserID:          identity.UserID,
		OrderNumber:     GenerateOrderNumber(),
		TotalAmount:     totalAmount,
		ShippingAddress: addressFromInput(req.ShippingAddress),
		BillingAddress:  addressFromInput(billing),
		Status:          models.OrderPending,
		PaymentStatus:   models.PaymentPending,
	}

	items := make([]models.OrderItem, len(req.Items))
	for i, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			recordFailure("invalid_items")
			return CheckoutResult{}, fmt.Errorf("%w: bad product id %q", ErrInvalidItems, item.ProductID)
		}
		items[i] = models.OrderItem{
			ProductID: productID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}

	if err := s.orderStore.CreateWithItems(ctx, order, items); err != nil {
		if errors.Is(err, db.ErrDuplicateOrderNumber) {
			recordFailure("duplicate_order_number")
			return CheckoutResult{}, fmt.Errorf("%w: %s", ErrDuplicateOrderNumber, order.OrderNumber)
		}
		recordFailure("order_create_failed")
		logger.Error("failed to create order", "error", err, "user_id", identity.UserID, "order_number", order.OrderNumber)
		return CheckoutResult{}, fmt.Errorf("%w: %v", ErrDataStore, err)
	}
	meter.Count("checkout.order_created", 1)
	logger.Info("order created", "order_id", order.ID, "order_number", order.OrderNumber, "total_amount", order.TotalAmount, "user_id", identity.UserID)

	session, err := s.createPaymentSession(ctx, identity, order.ID, req.Items, origin)
	if err != nil {
		// The pending order is deliberately left in place: the buyer can
		// retry and the order is reconcilable from the logged ids.
		recordFailure(failureReason(err))
		logger.Error("failed to create payment session", "error", err, "order_id", order.ID, "user_id", identity.UserID)
		return CheckoutResult{}, err
	}

	if err := s.orderStore.AttachStripeSession(ctx, order.ID, session.ID); err != nil {
		recordFailure("session_attach_failed")
		logger.Error("failed to attach session to order", "error", err, "order_id", order.ID, "session_id", session.ID)
		return CheckoutResult{}, fmt.Errorf("%w: %v", ErrDataStore, err)
	}

	meter.Count("checkout.session_created", 1)
	logger.Info("checkout session created", "order_id", order.ID, "session_id", session.ID)

	return CheckoutResult{URL: session.URL, OrderID: order.ID}, nil
}

func (s *CheckoutService) validateRequest(req CheckoutRequest) error {
	if len(req.Items) == 0 {
		return ErrEmptyCart
	}
	if req.ShippingAddress == nil {
		return ErrInvalidAddress
	}
	if err := s.validate.Struct(req.ShippingAddress); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if req.BillingAddress != nil {
		if err := s.validate.Struct(req.BillingAddress); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
		}
	}
	for i := range req.Items {
		if err := s.validate.Struct(req.Items[i]); err != nil {
			return fmt.Errorf("%w: item %d: %v", ErrInvalidItems, i, err)
		}
	}
	return nil
}

func (s *CheckoutService) createPaymentSession(ctx context.Context, identity auth.Identity, orderID uuid.UUID, items []CheckoutItem, origin string) (*stripeapi.CheckoutSession, error) {
	customerID := ""
	if identity.Email != "" {
		found, err := s.payments.FindCustomerByEmail(ctx, identity.Email)
		if err != nil {
			// Customer reuse is an optimization; session creation works
			// without it.
			s.loggerFromContext(ctx).Warn("customer lookup failed", "error", err, "order_id", orderID)
		} else {
			customerID = found
		}
	}

	lineItems := make([]stripe.LineItem, len(items))
	for i, item := range items {
		lineItems[i] = stripe.LineItem{
			Name:      item.Name,
			UnitPrice: item.Price,
			Quantity:  int64(item.Quantity),
		}
	}

	base := s.redirectBase(origin)
	session, err := s.payments.CreateCheckoutSession(ctx, stripe.CheckoutSessionParams{
		OrderID:       orderID,
		UserID:        identity.UserID,
		CustomerID:    customerID,
		CustomerEmail: identity.Email,
		Items:         lineItems,
		SuccessURL:    fmt.Sprintf("%s/order-success?session_id={CHECKOUT_SESSION_ID}&order_id=%s", base, orderID),
		CancelURL:     base + "/cart",
	})
	if err != nil {
		return nil, classifyProviderError(err)
	}
	return session, nil
}

// redirectBase picks the origin the buyer is sent back to. The caller's
// request origin wins when it is a well-formed absolute URL; otherwise the
// configured storefront URL is used.
func (s *CheckoutService) redirectBase(origin string) string {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin != "" {
		if parsed, err := url.Parse(origin); err == nil && parsed.Scheme != "" && parsed.Host != "" {
			return origin
		}
	}
	return s.storefrontURL
}

func addressFromInput(input *AddressInput) models.Address {
	if input == nil {
		return models.Address{}
	}
	return models.Address{
		FullName:     input.FullName,
		AddressLine1: input.AddressLine1,
		AddressLine2: input.AddressLine2,
		City:         input.City,
		State:        input.State,
		PostalCode:   input.PostalCode,
		Country:      input.Country,
		Phone:        input.Phone,
	}
}

func classifyProviderError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrPaymentProviderTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrPaymentProvider, err)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrInvalidAddress):
		return "invalid_address"
	case errors.Is(err, ErrInvalidItems):
		return "invalid_items"
	case errors.Is(err, ErrPaymentProviderTimeout):
		return "provider_timeout"
	case errors.Is(err, ErrPaymentProvider):
		return "provider_rejected"
	default:
		return "internal"
	}
}

const orderNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateOrderNumber returns a human-readable order number of the form
// ORD-<epoch-millis>-<6 random base36 chars>. Uniqueness is enforced by the
// orders table constraint; collisions at this entropy are negligible.
func GenerateOrderNumber() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err == nil {
		for i, b := range buf {
			buf[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
		}
	} else {
		// crypto/rand only fails when the platform's entropy source is
		// broken; fall back to a time-derived suffix.
		now := time.Now().UnixNano()
		for i := range buf {
			buf[i] = orderNumberAlphabet[now%36]
			now /= 36
		}
	}
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), buf)
}
