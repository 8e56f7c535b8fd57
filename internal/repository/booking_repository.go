package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/zoo-booking/internal/model"
)

// BookingRepo implements BookingStore on MySQL.  Transactions run at
// READ COMMITTED; capacity checks rely on the room type row lock taken
// by LockRoomType rather than on the isolation level.
type BookingRepo struct {
	db *sqlx.DB
}

// NewBookingRepo returns a BookingRepo bound to db.
func NewBookingRepo(db *sqlx.DB) *BookingRepo { return &BookingRepo{db: db} }

// bookingSelect reads a booking together with its display fields.
const bookingSelect = `SELECT b.id, b.user_id, b.booking_type, b.ticket_id, b.room_type_id,
       b.check_in, b.check_out, b.quantity, b.status, b.total_price, b.payment_session_id,
       b.created_at, b.updated_at,
       u.email AS user_email, u.name AS user_name, t.type AS ticket_type,
       h.name AS hotel_name, rt.name AS room_type_name
  FROM bookings b
  LEFT JOIN users u ON u.id = b.user_id
  LEFT JOIN tickets t ON t.id = b.ticket_id
  LEFT JOIN room_types rt ON rt.id = b.room_type_id
  LEFT JOIN hotels h ON h.id = rt.hotel_id`

const occupiedQuery = `SELECT COALESCE(SUM(quantity), 0) FROM bookings
 WHERE room_type_id = ? AND status IN ('pending','confirmed')
   AND check_in < ? AND check_out > ?`

// GetBooking returns a single booking or ErrNotFound.
func (r *BookingRepo) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	var b model.Booking
	if err := r.db.GetContext(ctx, &b, bookingSelect+` WHERE b.id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// ListByUser returns the user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]*model.Booking, error) {
	out := []*model.Booking{}
	err := r.db.SelectContext(ctx, &out, bookingSelect+` WHERE b.user_id = ? ORDER BY b.created_at DESC, b.id DESC`, userID)
	return out, err
}

// ListAll returns every booking, newest first.
func (r *BookingRepo) ListAll(ctx context.Context) ([]*model.Booking, error) {
	out := []*model.Booking{}
	err := r.db.SelectContext(ctx, &out, bookingSelect+` ORDER BY b.created_at DESC, b.id DESC`)
	return out, err
}

// OccupiedRooms sums overlapping pending/confirmed bookings without
// taking any lock.  The value is advisory; Create recomputes it under
// the room type lock.
func (r *BookingRepo) OccupiedRooms(ctx context.Context, roomTypeID uint64, checkIn, checkOut model.Date) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, occupiedQuery, roomTypeID, checkOut, checkIn)
	return n, err
}

// DeleteBooking removes a booking regardless of its status.
func (r *BookingRepo) DeleteBooking(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// WithTx runs fn inside a READ COMMITTED transaction.
func (r *BookingRepo) WithTx(ctx context.Context, fn func(tx BookingTx) error) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&bookingTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

type bookingTx struct {
	tx *sqlx.Tx
}

func (t *bookingTx) LockRoomType(ctx context.Context, id uint64) (*model.RoomType, error) {
	var rt model.RoomType
	err := t.tx.GetContext(ctx, &rt,
		`SELECT id, hotel_id, name, description, price_per_night, total_rooms
		   FROM room_types WHERE id = ? FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rt, nil
}

func (t *bookingTx) OccupiedRooms(ctx context.Context, roomTypeID uint64, checkIn, checkOut model.Date) (int, error) {
	var n int
	err := t.tx.GetContext(ctx, &n, occupiedQuery, roomTypeID, checkOut, checkIn)
	return n, err
}

func (t *bookingTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings
	  (user_id, booking_type, ticket_id, room_type_id, check_in, check_out, quantity, status, total_price)
	  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, q,
		b.UserID, b.BookingType, b.TicketID, b.RoomTypeID, b.CheckIn, b.CheckOut,
		b.Quantity, b.Status, b.TotalPrice.StringFixed(2))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	// read back timestamps and display fields inside the same tx
	return t.tx.GetContext(ctx, b, bookingSelect+` WHERE b.id = ?`, id)
}

// GetBookingForUpdate locks the bookings row alone, then reads the
// joined view without extending the lock to users, tickets or hotels.
func (t *bookingTx) GetBookingForUpdate(ctx context.Context, id uint64) (*model.Booking, error) {
	var locked uint64
	if err := t.tx.GetContext(ctx, &locked, `SELECT id FROM bookings WHERE id = ? FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var b model.Booking
	if err := t.tx.GetContext(ctx, &b, bookingSelect+` WHERE b.id = ?`, locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (t *bookingTx) LockBookingsBySession(ctx context.Context, sessionID string) ([]*model.Booking, error) {
	var ids []uint64
	err := t.tx.SelectContext(ctx, &ids, `SELECT id FROM bookings WHERE payment_session_id = ? ORDER BY id FOR UPDATE`, sessionID)
	if err != nil {
		return nil, err
	}
	out := []*model.Booking{}
	if len(ids) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In(bookingSelect+` WHERE b.id IN (?) ORDER BY b.id`, ids)
	if err != nil {
		return nil, err
	}
	err = t.tx.SelectContext(ctx, &out, t.tx.Rebind(q), args...)
	return out, err
}

func (t *bookingTx) UpdateStatus(ctx context.Context, id uint64, from []model.BookingStatus, to model.BookingStatus) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	q, args, err := sqlx.In(`UPDATE bookings SET status = ? WHERE id = ? AND status IN (?)`, to, id, from)
	if err != nil {
		return false, err
	}
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(q), args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *bookingTx) SetPaymentSession(ctx context.Context, id uint64, sessionID string) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE bookings SET payment_session_id = ? WHERE id = ?`, sessionID, id)
	return err
}

var _ BookingStore = (*BookingRepo)(nil)
