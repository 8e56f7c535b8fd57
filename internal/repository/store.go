package repository

import (
	"context"

	"github.com/iliyamo/zoo-booking/internal/model"
)

// Catalog is the read side of the ticket and room type catalog used by
// the booking engine.
type Catalog interface {
	GetTicket(ctx context.Context, id uint64) (*model.Ticket, error)
	GetRoomType(ctx context.Context, id uint64) (*model.RoomType, error)
}

// BookingStore is durable storage for bookings.  Reads outside WithTx
// see committed data only; every write the booking engine performs
// goes through WithTx.
type BookingStore interface {
	GetBooking(ctx context.Context, id uint64) (*model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]*model.Booking, error)
	ListAll(ctx context.Context) ([]*model.Booking, error)
	OccupiedRooms(ctx context.Context, roomTypeID uint64, checkIn, checkOut model.Date) (int, error)
	DeleteBooking(ctx context.Context, id uint64) error

	// WithTx runs fn in a single transaction.  The transaction is
	// committed when fn returns nil and rolled back otherwise.
	WithTx(ctx context.Context, fn func(tx BookingTx) error) error
}

// BookingTx is the set of operations available inside WithTx.
type BookingTx interface {
	// LockRoomType reads the room type row and holds an exclusive lock
	// on it until the transaction ends.  Concurrent creators for the
	// same room type serialize on this lock.
	LockRoomType(ctx context.Context, id uint64) (*model.RoomType, error)

	// OccupiedRooms sums the quantity of pending and confirmed bookings
	// of the room type whose [check_in, check_out) overlaps the range.
	OccupiedRooms(ctx context.Context, roomTypeID uint64, checkIn, checkOut model.Date) (int, error)

	// InsertBooking stores b and refreshes it from the database,
	// including the generated ID, timestamps and display fields.
	InsertBooking(ctx context.Context, b *model.Booking) error

	GetBookingForUpdate(ctx context.Context, id uint64) (*model.Booking, error)
	LockBookingsBySession(ctx context.Context, sessionID string) ([]*model.Booking, error)

	// UpdateStatus moves the booking to status to when its current
	// status is one of from.  It reports whether a row changed.
	UpdateStatus(ctx context.Context, id uint64, from []model.BookingStatus, to model.BookingStatus) (bool, error)

	SetPaymentSession(ctx context.Context, id uint64, sessionID string) error
}
