package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testSecret = "whsec_test"

func signedEvent(t *testing.T, eventType string, object map[string]any) ([]byte, string) {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	payload := []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","type":%q,"api_version":%q,"data":{"object":%s}}`,
		eventType, stripe.APIVersion, raw))
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func TestParseSignedEvent_CheckoutCompleted(t *testing.T) {
	payload, sig := signedEvent(t, EventCheckoutCompleted, map[string]any{
		"id": "cs_123", "object": "checkout.session",
		"metadata": map[string]string{"booking_ids": "4,5"},
	})

	ev, err := parseSignedEvent(payload, sig, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, EventCheckoutCompleted, ev.Type)
	assert.Equal(t, "cs_123", ev.SessionID)
	assert.Equal(t, "4,5", ev.Metadata["booking_ids"])
}

func TestParseSignedEvent_OtherTypeHasNoSession(t *testing.T) {
	payload, sig := signedEvent(t, "payment_intent.created", map[string]any{"id": "pi_1", "object": "payment_intent"})

	ev, err := parseSignedEvent(payload, sig, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "payment_intent.created", ev.Type)
	assert.Empty(t, ev.SessionID)
}

func TestParseSignedEvent_RejectsBadSignature(t *testing.T) {
	payload, _ := signedEvent(t, EventCheckoutCompleted, map[string]any{"id": "cs_1"})

	_, err := parseSignedEvent(payload, "t=1,v1=deadbeef", testSecret)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, sig := signedEvent(t, EventCheckoutCompleted, map[string]any{"id": "cs_1"})
	_, err = parseSignedEvent(payload, sig, "whsec_other")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestAmountInMinorUnits(t *testing.T) {
	assert.Equal(t, int64(20000), AmountInMinorUnits(decimal.RequireFromString("200")))
	assert.Equal(t, int64(1999), AmountInMinorUnits(decimal.RequireFromString("19.99")))
	assert.Equal(t, int64(5), AmountInMinorUnits(decimal.RequireFromString("0.045")))
}

func TestMockGateway_CreateCheckoutSession(t *testing.T) {
	gw := NewMockGateway(testSecret)

	_, err := gw.CreateCheckoutSession(context.Background(), &CheckoutRequest{})
	assert.Error(t, err)

	s, err := gw.CreateCheckoutSession(context.Background(), &CheckoutRequest{
		Items:      []LineItem{{Name: "Adult ticket", Amount: decimal.NewFromInt(25), Quantity: 1}},
		SuccessURL: "https://zoo.example/success",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s.ID, "cs_mock_"))
	assert.Equal(t, "https://zoo.example/success?session_id="+s.ID, s.URL)
}

func TestNewStripeGatewayRequiresSecrets(t *testing.T) {
	_, err := NewStripeGateway(nil)
	assert.Error(t, err)
	_, err = NewStripeGateway(&StripeGatewayConfig{SecretKey: "sk_test"})
	assert.Error(t, err)
}
