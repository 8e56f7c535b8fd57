package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeGateway implements Gateway using Stripe Checkout.
type StripeGateway struct {
	config *StripeGatewayConfig
}

// StripeGatewayConfig holds configuration for Stripe gateway
type StripeGatewayConfig struct {
	SecretKey     string
	WebhookSecret string
}

// NewStripeGateway creates a new Stripe gateway
func NewStripeGateway(config *StripeGatewayConfig) (*StripeGateway, error) {
	if config == nil {
		return nil, fmt.Errorf("stripe config is required")
	}
	if config.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}
	if config.WebhookSecret == "" {
		return nil, fmt.Errorf("stripe webhook secret is required")
	}

	// Set Stripe API key globally
	stripe.Key = config.SecretKey

	return &StripeGateway{config: config}, nil
}

// CreateCheckoutSession creates a hosted payment page for req.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, fmt.Errorf("checkout request needs at least one line item")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		Metadata:   make(map[string]string, len(req.Metadata)),
	}
	for k, v := range req.Metadata {
		params.Metadata[k] = v
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	currency := strings.ToLower(req.Currency)
	for _, item := range req.Items {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Description != "" {
			product.Description = stripe.String(item.Description)
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(AmountInMinorUnits(item.Amount)),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*Event, error) {
	return parseSignedEvent(payload, signature, g.config.WebhookSecret)
}

// Name returns the gateway name
func (g *StripeGateway) Name() string {
	return "stripe"
}

// parseSignedEvent verifies payload against secret using Stripe's
// signature scheme and extracts the checkout session fields.
func parseSignedEvent(payload []byte, signature, secret string) (*Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	if !strings.HasPrefix(out.Type, "checkout.session.") || ev.Data == nil {
		return out, nil
	}
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	out.SessionID = cs.ID
	out.Metadata = cs.Metadata
	return out, nil
}
