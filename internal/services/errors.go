package services

import "errors"

// Checkout pipeline error taxonomy. Handlers map these to HTTP status codes;
// the raw messages are logged but never shown verbatim to buyers.
var (
	ErrUnauthenticated            = errors.New("caller is not authenticated")
	ErrEmptyCart                  = errors.New("no items provided for checkout")
	ErrInvalidAddress             = errors.New("shipping address is missing or incomplete")
	ErrInvalidItems               = errors.New("checkout items are invalid")
	ErrDuplicateOrderNumber       = errors.New("order number already exists")
	ErrPaymentProvider            = errors.New("payment provider rejected the request")
	ErrPaymentProviderTimeout     = errors.New("payment provider request timed out")
	ErrInvalidVerificationRequest = errors.New("session id and order id are required")
	ErrDataStore                  = errors.New("data store operation failed")
	ErrOrderNotFound              = errors.New("order not found")
	ErrNotFound                   = errors.New("record not found")
	ErrForbidden                  = errors.New("caller is not allowed to perform this action")
)
