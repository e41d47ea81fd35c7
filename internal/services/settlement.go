package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/khelmart/khelmart/internal/cache"
	"github.com/khelmart/khelmart/internal/db"
	"github.com/khelmart/khelmart/internal/email"
	"github.com/khelmart/khelmart/internal/logging"
	"github.com/khelmart/khelmart/internal/models"
	"github.com/khelmart/khelmart/internal/observability"
)

// settledSessionTTL is how long a settled session id is remembered so repeat
// verification calls skip the provider round trip.
const settledSessionTTL = 24 * time.Hour

const paidProviderStatus = "paid"

type settlementOrderStore interface {
	GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID) error
}

// VerifyResult reports the reconciled settlement state back to the
// storefront. PaymentStatus echoes the provider's raw status when the
// session has not settled.
type VerifyResult struct {
	Success       bool   `json:"success"`
	PaymentStatus string `json:"payment_status"`
	OrderStatus   string `json:"order_status,omitempty"`
}

// SettlementService reconciles an order's stored status with the payment
// provider's authoritative settlement state, exactly once per settlement.
type SettlementService struct {
	orderStore    settlementOrderStore
	payments      paymentClient
	cacheProvider cache.Provider
	emailSender   email.Provider
	logger        *slog.Logger
}

func NewSettlementService(orderStore settlementOrderStore, payments paymentClient, cacheProvider cache.Provider, emailSender email.Provider, logger *slog.Logger) *SettlementService {
	if emailSender == nil {
		emailSender = email.NoopProvider{}
	}
	return &SettlementService{
		orderStore:    orderStore,
		payments:      payments,
		cacheProvider: cacheProvider,
		emailSender:   emailSender,
		logger:        logger,
	}
}

func (s *SettlementService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// VerifyPayment re-queries the provider for the session's settlement state
// and reconciles the order. Both ids arrive via the buyer's redirect and are
// untrusted. The operation is idempotent: verifying an already-paid order
// re-asserts the same state.
func (s *SettlementService) VerifyPayment(ctx context.Context, sessionID, orderID string) (VerifyResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.settlement.verify",
		sentry.WithOpName("service.settlement"),
		sentry.WithDescription("VerifyPayment"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	meter.SetAttributes(attribute.String("component", "settlement"))
	meter.Count("settlement.verify.received", 1)

	if sessionID == "" || orderID == "" {
		meter.Count("settlement.verify.rejected", 1, sentry.WithAttributes(attribute.String("reason", "missing_ids")))
		return VerifyResult{}, ErrInvalidVerificationRequest
	}
	orderUUID, err := uuid.Parse(orderID)
	if err != nil {
		meter.Count("settlement.verify.rejected", 1, sentry.WithAttributes(attribute.String("reason", "bad_order_id")))
		return VerifyResult{}, fmt.Errorf("%w: order id is not valid", ErrInvalidVerificationRequest)
	}

	// A session that already settled for this order needs no store or
	// provider round trip; success-page reloads hit this path.
	if s.cacheProvider != nil {
		settledOrderID, err := s.cacheProvider.Get(ctx, cache.SettledSessionKey(sessionID))
		if err == nil && settledOrderID == orderID {
			meter.Count("settlement.verify.short_circuit", 1)
			return VerifyResult{
				Success:       true,
				PaymentStatus: string(models.PaymentPaid),
				OrderStatus:   string(models.OrderConfirmed),
			}, nil
		}
		if err != nil && !errors.Is(err, cache.ErrNotFound) {
			logger.Warn("settled-session cache read failed", "error", err, "session_id", sessionID)
		}
	}

	order, err := s.orderStore.GetByID(ctx, orderUUID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VerifyResult{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		logger.Error("failed to load order for verification", "error", err, "order_id", orderID, "session_id", sessionID)
		return VerifyResult{}, fmt.Errorf("%w: %v", ErrDataStore, err)
	}

	// Already reconciled: re-assert the final state without another provider
	// round trip.
	if order.Status == models.OrderConfirmed && order.PaymentStatus == models.PaymentPaid {
		meter.Count("settlement.verify.short_circuit", 1)
		return VerifyResult{
			Success:       true,
			PaymentStatus: string(models.PaymentPaid),
			OrderStatus:   string(models.OrderConfirmed),
		}, nil
	}

	session, err := s.payments.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		logger.Error("failed to retrieve payment session", "error", err, "order_id", orderID, "session_id", sessionID, "user_id", order.UserID)
		return VerifyResult{}, classifyProviderError(err)
	}

	providerStatus := string(session.PaymentStatus)
	logger.Info("provider settlement status", "session_id", sessionID, "order_id", orderID, "payment_status", providerStatus)

	if providerStatus != paidProviderStatus {
		meter.Count("settlement.verify.unsettled", 1, sentry.WithAttributes(attribute.String("provider_status", providerStatus)))
		return VerifyResult{Success: false, PaymentStatus: providerStatus}, nil
	}

	if err := s.orderStore.MarkPaid(ctx, orderUUID); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return VerifyResult{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		case errors.Is(err, db.ErrInvalidStatusTransition):
			logger.Warn("order cannot transition to paid", "error", err, "order_id", orderID, "session_id", sessionID)
			return VerifyResult{}, fmt.Errorf("%w: %v", ErrDataStore, err)
		default:
			logger.Error("failed to mark order paid", "error", err, "order_id", orderID, "session_id", sessionID, "user_id", order.UserID)
			return VerifyResult{}, fmt.Errorf("%w: %v", ErrDataStore, err)
		}
	}
	meter.Count("settlement.verify.settled", 1)
	logger.Info("order payment verified", "order_id", orderID, "session_id", sessionID, "user_id", order.UserID)

	if s.cacheProvider != nil {
		if err := s.cacheProvider.Set(ctx, cache.SettledSessionKey(sessionID), orderID, settledSessionTTL); err != nil {
			logger.Warn("failed to mark session as settled in cache", "error", err, "session_id", sessionID)
		}
	}

	s.sendConfirmationEmail(ctx, order, sessionCustomerEmail(session))

	return VerifyResult{
		Success:       true,
		PaymentStatus: string(models.PaymentPaid),
		OrderStatus:   string(models.OrderConfirmed),
	}, nil
}

func (s *SettlementService) sendConfirmationEmail(ctx context.Context, order *models.Order, customerEmail string) {
	logger := s.loggerFromContext(ctx)

	to := customerEmail
	if to == "" {
		logger.Info("no customer email on session, skipping confirmation email", "order_id", order.ID)
		return
	}

	lines := make([]email.OrderLine, len(order.Items))
	for i, item := range order.Items {
		name := item.ProductName
		if name == "" {
			name = "Item"
		}
		lines[i] = email.OrderLine{
			Name:      name,
			Quantity:  item.Quantity,
			UnitPrice: formatRupees(item.Price),
		}
	}

	subject, text, html, err := email.RenderOrderConfirmation(email.OrderInfo{
		OrderNumber:  order.OrderNumber,
		CustomerName: order.ShippingAddress.FullName,
		Items:        lines,
		Total:        formatRupees(order.TotalAmount),
		OrderDate:    order.CreatedAt.Format("2 Jan 2006"),
	})
	if err != nil {
		logger.Error("failed to render confirmation email", "error", err, "order_id", order.ID)
		return
	}

	if err := s.emailSender.SendEmail(ctx, &email.Email{To: to, Subject: subject, Text: text, HTML: html}); err != nil {
		// Settlement already succeeded; email failure is log-only.
		logger.Error("failed to send confirmation email", "error", err, "order_id", order.ID)
	}
}

func sessionCustomerEmail(session *stripeapi.CheckoutSession) string {
	if session == nil {
		return ""
	}
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		return session.CustomerDetails.Email
	}
	return session.CustomerEmail
}

func formatRupees(amount float64) string {
	return fmt.Sprintf("₹%.2f", amount)
}
