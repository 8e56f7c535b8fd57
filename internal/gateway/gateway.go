// Package gateway talks to the payment provider: it creates hosted
// checkout sessions and verifies the provider's webhook notifications.
package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Event types acted upon by the payment service.  Anything else is
// acknowledged and ignored.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
)

// ErrInvalidSignature is returned by ParseWebhook when the payload
// cannot be authenticated.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// LineItem is one priced row of a checkout session.
type LineItem struct {
	Name        string
	Description string
	Amount      decimal.Decimal
	Quantity    int64
}

// CheckoutRequest describes a hosted checkout session.
type CheckoutRequest struct {
	Items         []LineItem
	Currency      string
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	Metadata      map[string]string
}

// CheckoutSession is the provider's reply to CreateCheckoutSession.
type CheckoutSession struct {
	ID  string
	URL string
}

// Event is a verified webhook notification.  SessionID and Metadata
// are set for checkout session events only.
type Event struct {
	ID        string
	Type      string
	SessionID string
	Metadata  map[string]string
}

// Gateway is the payment provider.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
	Name() string
}

// AmountInMinorUnits converts a two-decimal amount to the provider's
// smallest currency unit.
func AmountInMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
