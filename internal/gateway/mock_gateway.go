package gateway

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MockGateway stands in for Stripe when no secret key is configured.
// Sessions are never paid; webhooks are still verified with the
// configured signing secret, so signed test payloads drive the flow.
type MockGateway struct {
	WebhookSecret string
}

// NewMockGateway creates a mock gateway
func NewMockGateway(webhookSecret string) *MockGateway {
	return &MockGateway{WebhookSecret: webhookSecret}
}

// CreateCheckoutSession returns a fake session that redirects straight
// to the success URL.
func (g *MockGateway) CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, fmt.Errorf("checkout request needs at least one line item")
	}
	id := "cs_mock_" + uuid.NewString()
	redirect := req.SuccessURL
	if u, err := url.Parse(req.SuccessURL); err == nil && u.Scheme != "" {
		q := u.Query()
		q.Set("session_id", id)
		u.RawQuery = q.Encode()
		redirect = u.String()
	}
	logrus.WithFields(logrus.Fields{"session_id": id, "items": len(req.Items)}).Info("mock checkout session created")
	return &CheckoutSession{ID: id, URL: redirect}, nil
}

func (g *MockGateway) ParseWebhook(payload []byte, signature string) (*Event, error) {
	return parseSignedEvent(payload, signature, g.WebhookSecret)
}

// Name returns the gateway name
func (g *MockGateway) Name() string {
	return "mock"
}
