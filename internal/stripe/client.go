// Package stripe wraps the hosted payment provider used for checkout.
package stripe

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
)

// Client handles checkout-session operations against Stripe.
type Client struct {
	client         *stripe.Client
	currency       string
	requestTimeout time.Duration
}

func NewClient(secretKey, currency string, requestTimeout time.Duration) *Client {
	if requestTimeout <= 0 {
		requestTimeout = 20 * time.Second
	}
	return &Client{
		client:         stripe.NewClient(secretKey),
		currency:       currency,
		requestTimeout: requestTimeout,
	}
}

// LineItem is one product entry on a hosted payment session. UnitPrice is the
// major-unit decimal price captured at checkout time.
type LineItem struct {
	Name      string
	UnitPrice float64
	Quantity  int64
}

// CheckoutSessionParams holds parameters for creating a hosted payment session.
type CheckoutSessionParams struct {
	OrderID       uuid.UUID
	UserID        uuid.UUID
	CustomerID    string
	CustomerEmail string
	Items         []LineItem
	SuccessURL    string
	CancelURL     string
}

// MinorUnits converts a major-unit decimal price to the provider's integer
// minor-unit encoding (rupees to paisa for INR).
func MinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}

// FindCustomerByEmail returns the id of an existing customer with the given
// email, or empty if none exists yet.
func (c *Client) FindCustomerByEmail(ctx context.Context, email string) (string, error) {
	if ctx == nil {
		return "", fmt.Errorf("context is required")
	}
	if email == "" {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	params := &stripe.CustomerListParams{
		Email: stripe.String(email),
	}
	params.Limit = stripe.Int64(1)

	for customer, err := range c.client.V1Customers.List(ctx, params) {
		if err != nil {
			return "", fmt.Errorf("failed to list customers: %w", err)
		}
		return customer.ID, nil
	}
	return "", nil
}

// CreateCheckoutSession creates a hosted payment session for an order. The
// order and user ids travel as opaque metadata so settlement can be
// correlated later.
func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}

	lineItems := make([]*stripe.CheckoutSessionCreateLineItemParams, 0, len(params.Items))
	for _, item := range params.Items {
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency: stripe.String(c.currency),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				UnitAmount: stripe.Int64(MinorUnits(item.UnitPrice)),
			},
			Quantity: stripe.Int64(quantity),
		})
	}

	sessionParams := &stripe.CheckoutSessionCreateParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		Metadata: map[string]string{
			"order_id": params.OrderID.String(),
			"user_id":  params.UserID.String(),
		},
		ShippingAddressCollection: &stripe.CheckoutSessionCreateShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice([]string{"IN"}),
		},
	}

	// Reuse the existing customer record when one matched the buyer's email;
	// otherwise let Stripe create one from the email at session time.
	if params.CustomerID != "" {
		sessionParams.Customer = stripe.String(params.CustomerID)
	} else if params.CustomerEmail != "" {
		sessionParams.CustomerEmail = stripe.String(params.CustomerEmail)
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	sess, err := c.client.V1CheckoutSessions.Create(ctx, sessionParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return sess, nil
}

// GetCheckoutSession retrieves a session's current settlement state.
func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	sess, err := c.client.V1CheckoutSessions.Retrieve(ctx, sessionID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve checkout session: %w", err)
	}
	return sess, nil
}
