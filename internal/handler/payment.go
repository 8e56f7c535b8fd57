package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/zoo-booking/internal/gateway"
	"github.com/iliyamo/zoo-booking/internal/service"
)

// maxWebhookBody bounds the webhook payload read into memory.
const maxWebhookBody = 64 << 10

// PaymentAPI is the part of service.PaymentService used over HTTP.
type PaymentAPI interface {
	Checkout(ctx context.Context, p service.Principal, in service.CheckoutInput) (*gateway.CheckoutSession, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*service.WebhookResult, error)
}

// PaymentHandler serves checkout and the payment provider webhook.
type PaymentHandler struct {
	Payments PaymentAPI
}

func NewPaymentHandler(payments PaymentAPI) *PaymentHandler {
	if payments == nil {
		panic("nil service passed to NewPaymentHandler")
	}
	return &PaymentHandler{Payments: payments}
}

type checkoutReq struct {
	BookingIDs []uint64 `json:"booking_ids"`
	SuccessURL string   `json:"success_url"`
	CancelURL  string   `json:"cancel_url"`
}

// Checkout handles POST /v1/checkout.
func (h *PaymentHandler) Checkout(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return unauthorized(c)
	}
	var req checkoutReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if len(req.BookingIDs) == 0 {
		return badRequest(c, "booking_ids required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	session, err := h.Payments.Checkout(ctx, p, service.CheckoutInput{
		BookingIDs: req.BookingIDs,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"session_id": session.ID, "url": session.URL})
}

// Webhook handles POST /v1/stripe/webhook.  The raw body is verified
// against the Stripe-Signature header before anything is applied.
// Unhandled event types are acknowledged with 200.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return badRequest(c, "unreadable body")
	}
	signature := c.Request().Header.Get("Stripe-Signature")
	if signature == "" {
		return badRequest(c, "missing signature")
	}
	res, err := h.Payments.HandleWebhook(c.Request().Context(), payload, signature)
	if err != nil {
		if service.IsSignatureError(err) {
			logrus.WithField("remote_ip", c.RealIP()).Warn("webhook signature rejected")
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true, "result": res})
}
