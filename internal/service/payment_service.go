package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/zoo-booking/internal/gateway"
	"github.com/iliyamo/zoo-booking/internal/metrics"
	"github.com/iliyamo/zoo-booking/internal/model"
)

// Metadata keys written on checkout sessions.
const (
	MetaBookingIDs = "booking_ids"
	MetaBookingID  = "booking_id"
	MetaUserID     = "user_id"
)

// Outcome is what a webhook notification did.
type Outcome string

const (
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeIgnored   Outcome = "ignored"
)

// WebhookResult summarises a handled notification.
type WebhookResult struct {
	EventID   string   `json:"event_id"`
	EventType string   `json:"event_type"`
	Outcome   Outcome  `json:"outcome"`
	Changed   []uint64 `json:"changed,omitempty"`
	Skipped   []uint64 `json:"skipped,omitempty"`
}

// CheckoutInput is the input of PaymentService.Checkout.
type CheckoutInput struct {
	BookingIDs    []uint64
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
}

// PaymentService connects bookings to the payment gateway.
type PaymentService struct {
	bookings *BookingService
	gw       gateway.Gateway
	currency string
}

// NewPaymentService wires the service.  currency is an ISO 4217 code.
func NewPaymentService(bookings *BookingService, gw gateway.Gateway, currency string) *PaymentService {
	return &PaymentService{bookings: bookings, gw: gw, currency: strings.ToLower(currency)}
}

// Checkout opens one payment session covering every booking in
// in.BookingIDs and attaches the session id to them.
func (s *PaymentService) Checkout(ctx context.Context, p Principal, in CheckoutInput) (*gateway.CheckoutSession, error) {
	if in.SuccessURL == "" || in.CancelURL == "" {
		return nil, invalidf("success_url and cancel_url are required")
	}
	bookings, err := s.bookings.PrepareCheckout(ctx, p, in.BookingIDs)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(bookings))
	bookingIDs := make([]uint64, 0, len(bookings))
	items := make([]gateway.LineItem, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, strconv.FormatUint(b.ID, 10))
		bookingIDs = append(bookingIDs, b.ID)
		items = append(items, lineItem(b))
	}
	email := in.CustomerEmail
	if email == "" && bookings[0].UserEmail != nil {
		email = *bookings[0].UserEmail
	}
	req := &gateway.CheckoutRequest{
		Items:         items,
		Currency:      s.currency,
		SuccessURL:    in.SuccessURL,
		CancelURL:     in.CancelURL,
		CustomerEmail: email,
		Metadata: map[string]string{
			MetaBookingIDs: strings.Join(ids, ","),
			MetaUserID:     strconv.FormatUint(p.UserID, 10),
		},
	}
	session, err := s.gw.CreateCheckoutSession(ctx, req)
	if err != nil {
		logrus.WithError(err).WithField("gateway", s.gw.Name()).Error("create checkout session failed")
		return nil, fmt.Errorf("%w: %v", ErrUpstreamPayment, err)
	}
	if err := s.bookings.AttachPaymentSession(ctx, bookingIDs, session.ID); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"session_id": session.ID, "booking_ids": req.Metadata[MetaBookingIDs], "user_id": p.UserID,
	}).Info("checkout session created")
	return session, nil
}

// lineItem prices a booking as a single row at its frozen total.
func lineItem(b *model.Booking) gateway.LineItem {
	item := gateway.LineItem{Amount: b.TotalPrice, Quantity: 1}
	switch b.BookingType {
	case model.BookingTypeTicket:
		name := "Ticket"
		if b.TicketType != nil {
			name = *b.TicketType + " ticket"
		}
		item.Name = fmt.Sprintf("%s x%d", name, b.Quantity)
	case model.BookingTypeHotel:
		name := "Hotel stay"
		if b.HotelName != nil && b.RoomTypeName != nil {
			name = *b.HotelName + " - " + *b.RoomTypeName
		}
		item.Name = name
		if b.CheckIn != nil && b.CheckOut != nil {
			item.Description = fmt.Sprintf("%s to %s, %d room(s)", b.CheckIn, b.CheckOut, b.Quantity)
		}
	}
	return item
}

// HandleWebhook verifies and applies a payment notification.  Payloads
// that fail verification return gateway.ErrInvalidSignature and change
// nothing.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	ev, err := s.gw.ParseWebhook(payload, signature)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		return nil, err
	}
	res, err := s.apply(ctx, ev)
	outcome := "error"
	if err == nil {
		outcome = string(res.Outcome)
	}
	metrics.WebhookEvents.WithLabelValues(ev.Type, outcome).Inc()
	return res, err
}

func (s *PaymentService) apply(ctx context.Context, ev *gateway.Event) (*WebhookResult, error) {
	res := &WebhookResult{EventID: ev.ID, EventType: ev.Type, Outcome: OutcomeIgnored}
	var to model.BookingStatus
	switch ev.Type {
	case gateway.EventCheckoutCompleted:
		to, res.Outcome = model.StatusConfirmed, OutcomeConfirmed
	case gateway.EventCheckoutExpired:
		to, res.Outcome = model.StatusCancelled, OutcomeCancelled
	default:
		logrus.WithFields(logrus.Fields{"event_id": ev.ID, "type": ev.Type}).Debug("webhook event ignored")
		return res, nil
	}

	ids, err := BookingIDsFromMetadata(ev.Metadata)
	if err != nil {
		// the event is authentic, so a retry would carry the same metadata
		logrus.WithError(err).WithFields(logrus.Fields{
			"event_id": ev.ID, "session_id": ev.SessionID,
		}).Warn("webhook metadata unreadable, event ignored")
		res.Outcome = OutcomeIgnored
		return res, nil
	}
	applied, err := s.bookings.ApplyPayment(ctx, ids, ev.SessionID, to)
	if err != nil {
		return nil, err
	}
	for _, b := range applied.Changed {
		res.Changed = append(res.Changed, b.ID)
	}
	res.Skipped = applied.Skipped
	if len(res.Changed) == 0 && len(res.Skipped) == 0 {
		logrus.WithFields(logrus.Fields{"event_id": ev.ID, "session_id": ev.SessionID}).Warn("webhook referenced no bookings")
	}
	return res, nil
}

// BookingIDsFromMetadata reads booking_ids (comma separated) and falls
// back to booking_id.  No keys yields a nil slice.
func BookingIDsFromMetadata(meta map[string]string) ([]uint64, error) {
	raw := strings.TrimSpace(meta[MetaBookingIDs])
	if raw == "" {
		raw = strings.TrimSpace(meta[MetaBookingID])
	}
	if raw == "" {
		return nil, nil
	}
	var ids []uint64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, invalidf("invalid booking id %q in session metadata", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// IsSignatureError reports whether err came from webhook verification.
func IsSignatureError(err error) bool {
	return errors.Is(err, gateway.ErrInvalidSignature)
}
