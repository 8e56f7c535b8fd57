package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/zoo-booking/internal/metrics"
	"github.com/iliyamo/zoo-booking/internal/model"
	"github.com/iliyamo/zoo-booking/internal/queue"
	"github.com/iliyamo/zoo-booking/internal/repository"
)

// EventPublisher receives committed status changes.
type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, ev queue.BookingStatusChangedEvent) error
}

const publishTimeout = 3 * time.Second

// Reasons recorded on status change events.
const (
	ReasonUserCancel      = "user_cancel"
	ReasonAdminCancel     = "admin_cancel"
	ReasonAdminUpdate     = "admin_update"
	ReasonPaymentComplete = "payment_completed"
	ReasonPaymentExpired  = "payment_expired"
)

// CreateRequest is the input of BookingService.Create.  Quantity is nil
// when the client omitted it.
type CreateRequest struct {
	BookingType model.BookingType
	TicketID    *uint64
	RoomTypeID  *uint64
	CheckIn     *model.Date
	CheckOut    *model.Date
	Quantity    *int
}

// BookingService owns every booking state change.
type BookingService struct {
	store   repository.BookingStore
	catalog repository.Catalog
	events  EventPublisher
}

// NewBookingService wires the service.  events may be nil.
func NewBookingService(store repository.BookingStore, catalog repository.Catalog, events EventPublisher) *BookingService {
	return &BookingService{store: store, catalog: catalog, events: events}
}

// Availability returns the number of rooms of roomTypeID that are free
// for every night of [checkIn, checkOut).
func (s *BookingService) Availability(ctx context.Context, hotelID, roomTypeID uint64, checkIn, checkOut model.Date) (int, error) {
	if !checkIn.Before(checkOut.Time) {
		return 0, invalidf("check_out must be after check_in")
	}
	rt, err := s.catalog.GetRoomType(ctx, roomTypeID)
	if err != nil {
		return 0, mapRepoErr(err, "room type")
	}
	if hotelID != 0 && rt.HotelID != hotelID {
		return 0, fmt.Errorf("room type: %w", ErrNotFound)
	}
	occupied, err := s.store.OccupiedRooms(ctx, roomTypeID, checkIn, checkOut)
	if err != nil {
		return 0, fmt.Errorf("count occupied rooms: %w", err)
	}
	return freeRooms(rt.TotalRooms, occupied), nil
}

func freeRooms(total, occupied int) int {
	if n := total - occupied; n > 0 {
		return n
	}
	return 0
}

// Create validates req, checks capacity for hotel stays, freezes the
// price and stores a pending booking owned by p.  For hotel bookings
// the capacity check and the insert run in one transaction under the
// room type lock.
func (s *BookingService) Create(ctx context.Context, p Principal, req CreateRequest) (*model.Booking, error) {
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity < 1 {
		return nil, s.reject("validation", invalidf("quantity must be at least 1"))
	}

	var (
		b   *model.Booking
		err error
	)
	switch req.BookingType {
	case model.BookingTypeTicket:
		b, err = s.createTicket(ctx, p, req, quantity)
	case model.BookingTypeHotel:
		b, err = s.createHotel(ctx, p, req, quantity)
	default:
		err = invalidf("booking_type must be %q or %q", model.BookingTypeTicket, model.BookingTypeHotel)
	}
	if err != nil {
		return nil, s.reject(rejectReason(err), err)
	}

	metrics.BookingsCreated.WithLabelValues(string(b.BookingType)).Inc()
	logrus.WithFields(logrus.Fields{
		"booking_id": b.ID, "user_id": b.UserID, "type": b.BookingType, "total_price": b.TotalPrice.StringFixed(2),
	}).Info("booking created")
	return b, nil
}

func (s *BookingService) createTicket(ctx context.Context, p Principal, req CreateRequest, quantity int) (*model.Booking, error) {
	if req.TicketID == nil {
		return nil, invalidf("ticket_id is required for ticket bookings")
	}
	if req.RoomTypeID != nil || req.CheckIn != nil || req.CheckOut != nil {
		return nil, invalidf("ticket bookings take no room_type_id, check_in or check_out")
	}
	t, err := s.catalog.GetTicket(ctx, *req.TicketID)
	if err != nil {
		return nil, mapRepoErr(err, "ticket")
	}
	total, err := TicketPrice(t.Price, quantity)
	if err != nil {
		return nil, err
	}
	ticketID := t.ID
	b := &model.Booking{
		UserID:      p.UserID,
		BookingType: model.BookingTypeTicket,
		TicketID:    &ticketID,
		Quantity:    quantity,
		Status:      model.StatusPending,
		TotalPrice:  total,
	}
	err = s.store.WithTx(ctx, func(tx repository.BookingTx) error {
		return tx.InsertBooking(ctx, b)
	})
	if err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	return b, nil
}

func (s *BookingService) createHotel(ctx context.Context, p Principal, req CreateRequest, quantity int) (*model.Booking, error) {
	if req.RoomTypeID == nil {
		return nil, invalidf("room_type_id is required for hotel bookings")
	}
	if req.TicketID != nil {
		return nil, invalidf("hotel bookings take no ticket_id")
	}
	if req.CheckIn == nil || req.CheckOut == nil {
		return nil, invalidf("check_in and check_out are required for hotel bookings")
	}
	checkIn, checkOut := *req.CheckIn, *req.CheckOut
	nights := Nights(checkIn, checkOut)
	if nights < 1 {
		return nil, invalidf("check_out must be after check_in")
	}

	var b *model.Booking
	err := s.store.WithTx(ctx, func(tx repository.BookingTx) error {
		rt, err := tx.LockRoomType(ctx, *req.RoomTypeID)
		if err != nil {
			return mapRepoErr(err, "room type")
		}
		occupied, err := tx.OccupiedRooms(ctx, rt.ID, checkIn, checkOut)
		if err != nil {
			return fmt.Errorf("count occupied rooms: %w", err)
		}
		if free := freeRooms(rt.TotalRooms, occupied); free < quantity {
			return &CapacityError{Available: free, Requested: quantity}
		}
		total, err := HotelPrice(rt.PricePerNight, nights, quantity)
		if err != nil {
			return err
		}
		roomTypeID := rt.ID
		b = &model.Booking{
			UserID:      p.UserID,
			BookingType: model.BookingTypeHotel,
			RoomTypeID:  &roomTypeID,
			CheckIn:     &checkIn,
			CheckOut:    &checkOut,
			Quantity:    quantity,
			Status:      model.StatusPending,
			TotalPrice:  total,
		}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Get returns a booking the caller may read.
func (s *BookingService) Get(ctx context.Context, p Principal, id uint64) (*model.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "booking")
	}
	if !p.CanAccess(b) {
		return nil, ErrForbidden
	}
	return b, nil
}

// ListMine returns the caller's bookings, newest first.
func (s *BookingService) ListMine(ctx context.Context, p Principal) ([]*model.Booking, error) {
	return s.store.ListByUser(ctx, p.UserID)
}

// ListAll returns every booking.  Admin only; callers enforce the role.
func (s *BookingService) ListAll(ctx context.Context) ([]*model.Booking, error) {
	return s.store.ListAll(ctx)
}

// Delete removes a booking outright.  Admin only.
func (s *BookingService) Delete(ctx context.Context, id uint64) error {
	return mapRepoErr(s.store.DeleteBooking(ctx, id), "booking")
}

// Cancel moves a pending or confirmed booking to cancelled, releasing
// its capacity.  Cancelling a cancelled or completed booking is an
// InvalidState error and changes nothing.
func (s *BookingService) Cancel(ctx context.Context, p Principal, id uint64) (*model.Booking, error) {
	var before, after *model.Booking
	err := s.store.WithTx(ctx, func(tx repository.BookingTx) error {
		b, err := tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return mapRepoErr(err, "booking")
		}
		if !p.CanAccess(b) {
			return ErrForbidden
		}
		if b.Status.Terminal() {
			return &StateError{Status: string(b.Status)}
		}
		changed, err := tx.UpdateStatus(ctx, id, model.SourcesOf(model.StatusCancelled), model.StatusCancelled)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if !changed {
			return &StateError{Status: string(b.Status)}
		}
		before = b
		after, err = tx.GetBookingForUpdate(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	reason := ReasonUserCancel
	if p.IsAdmin() && before.UserID != p.UserID {
		reason = ReasonAdminCancel
	}
	s.statusChanged(ctx, before.Status, after, reason)
	return after, nil
}

// SetStatus applies an admin status change.  Only the lifecycle's legal
// steps are accepted.
func (s *BookingService) SetStatus(ctx context.Context, id uint64, to model.BookingStatus) (*model.Booking, error) {
	if !to.Valid() {
		return nil, invalidf("unknown status %q", to)
	}
	var from model.BookingStatus
	var after *model.Booking
	err := s.store.WithTx(ctx, func(tx repository.BookingTx) error {
		b, err := tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return mapRepoErr(err, "booking")
		}
		if !model.CanTransition(b.Status, to) {
			return &StateError{Status: string(b.Status), Want: string(to)}
		}
		changed, err := tx.UpdateStatus(ctx, id, []model.BookingStatus{b.Status}, to)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if !changed {
			return &StateError{Status: string(b.Status), Want: string(to)}
		}
		from = b.Status
		after, err = tx.GetBookingForUpdate(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.statusChanged(ctx, from, after, ReasonAdminUpdate)
	return after, nil
}

// PrepareCheckout loads the bookings to be paid together.  Every
// booking must exist, belong to p and still be pending.
func (s *BookingService) PrepareCheckout(ctx context.Context, p Principal, ids []uint64) ([]*model.Booking, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, invalidf("booking_ids must not be empty")
	}
	out := make([]*model.Booking, 0, len(ids))
	for _, id := range ids {
		b, err := s.store.GetBooking(ctx, id)
		if err != nil {
			return nil, mapRepoErr(err, fmt.Sprintf("booking %d", id))
		}
		if b.UserID != p.UserID {
			return nil, ErrForbidden
		}
		if b.Status != model.StatusPending {
			return nil, &StateError{Status: string(b.Status), Want: string(model.StatusConfirmed)}
		}
		out = append(out, b)
	}
	return out, nil
}

// AttachPaymentSession records sessionID on every booking in ids.
func (s *BookingService) AttachPaymentSession(ctx context.Context, ids []uint64, sessionID string) error {
	return s.store.WithTx(ctx, func(tx repository.BookingTx) error {
		for _, id := range ids {
			if err := tx.SetPaymentSession(ctx, id, sessionID); err != nil {
				return fmt.Errorf("attach session to booking %d: %w", id, err)
			}
		}
		return nil
	})
}

// PaymentResult is the effect of one payment notification.
type PaymentResult struct {
	Changed []*model.Booking
	// Skipped lists referenced bookings whose status did not allow the
	// change, such as a booking cancelled before the payment settled, or
	// whose checkout was replaced by a newer session.
	Skipped []uint64
}

// ApplyPayment moves the referenced pending bookings to to (confirmed
// or cancelled) in one transaction.  Bookings in any other status are
// left alone, so stale or duplicate notifications never reopen a
// cancelled booking.  When ids is empty the bookings are found by
// sessionID.  A non-empty sessionID must match the session currently
// recorded on a booking; notifications for a superseded checkout are
// skipped.
func (s *BookingService) ApplyPayment(ctx context.Context, ids []uint64, sessionID string, to model.BookingStatus) (*PaymentResult, error) {
	if to != model.StatusConfirmed && to != model.StatusCancelled {
		return nil, invalidf("payment cannot move bookings to %q", to)
	}
	reason := ReasonPaymentComplete
	if to == model.StatusCancelled {
		reason = ReasonPaymentExpired
	}

	res := &PaymentResult{}
	err := s.store.WithTx(ctx, func(tx repository.BookingTx) error {
		res.Changed, res.Skipped = nil, nil
		targets, err := s.lockPaymentTargets(ctx, tx, dedupe(ids), sessionID)
		if err != nil {
			return err
		}
		for _, b := range targets {
			if sessionID != "" && (b.PaymentSessionID == nil || *b.PaymentSessionID != sessionID) {
				res.Skipped = append(res.Skipped, b.ID)
				continue
			}
			changed, err := tx.UpdateStatus(ctx, b.ID, []model.BookingStatus{model.StatusPending}, to)
			if err != nil {
				return fmt.Errorf("update booking %d: %w", b.ID, err)
			}
			if !changed {
				res.Skipped = append(res.Skipped, b.ID)
				continue
			}
			updated, err := tx.GetBookingForUpdate(ctx, b.ID)
			if err != nil {
				return err
			}
			res.Changed = append(res.Changed, updated)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, b := range res.Changed {
		s.statusChanged(ctx, model.StatusPending, b, reason)
	}
	if len(res.Skipped) > 0 {
		logrus.WithFields(logrus.Fields{
			"session_id": sessionID, "skipped": res.Skipped, "target": to,
		}).Warn("payment notification left bookings unchanged")
	}
	return res, nil
}

func (s *BookingService) lockPaymentTargets(ctx context.Context, tx repository.BookingTx, ids []uint64, sessionID string) ([]*model.Booking, error) {
	if len(ids) == 0 {
		if sessionID == "" {
			return nil, nil
		}
		return tx.LockBookingsBySession(ctx, sessionID)
	}
	out := make([]*model.Booking, 0, len(ids))
	for _, id := range ids {
		b, err := tx.GetBookingForUpdate(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			logrus.WithField("booking_id", id).Warn("payment notification references unknown booking")
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// statusChanged records a committed transition and publishes it.
// Publishing failures never fail the operation.
func (s *BookingService) statusChanged(ctx context.Context, from model.BookingStatus, b *model.Booking, reason string) {
	metrics.BookingTransitions.WithLabelValues(string(from), string(b.Status)).Inc()
	log := logrus.WithFields(logrus.Fields{
		"booking_id": b.ID, "from": from, "to": b.Status, "reason": reason,
	})
	log.Info("booking status changed")
	if s.events == nil {
		return
	}
	ev := queue.BookingStatusChangedEvent{
		EventID:        uuid.NewString(),
		BookingID:      b.ID,
		UserID:         b.UserID,
		BookingType:    string(b.BookingType),
		PreviousStatus: string(from),
		Status:         string(b.Status),
		TotalPrice:     b.TotalPrice.StringFixed(2),
		Reason:         reason,
		OccurredAt:     time.Now().UTC(),
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.PublishStatusChanged(pctx, ev); err != nil {
		log.WithError(err).Warn("publish status change failed")
	}
}

func (s *BookingService) reject(reason string, err error) error {
	if reason != "" {
		metrics.BookingRejections.WithLabelValues(reason).Inc()
	}
	return err
}

func rejectReason(err error) string {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity"
	}
	return ""
}

// mapRepoErr translates repository sentinels into service errors.
func mapRepoErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
