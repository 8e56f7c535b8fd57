package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingType distinguishes ticket purchases from hotel stays.
type BookingType string

const (
	BookingTypeTicket BookingType = "ticket"
	BookingTypeHotel  BookingType = "hotel"
)

// Valid reports whether t is a known booking type.
func (t BookingType) Valid() bool {
	return t == BookingTypeTicket || t == BookingTypeHotel
}

// BookingStatus is the lifecycle state of a booking.
//
//  pending   → confirmed | cancelled
//  confirmed → cancelled | completed
//  cancelled, completed are terminal.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s BookingStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// HoldsCapacity reports whether a hotel booking in status s occupies
// rooms for its date range.
func (s BookingStatus) HoldsCapacity() bool {
	return s == StatusPending || s == StatusConfirmed
}

// CanTransition reports whether from → to is a legal lifecycle step.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SourcesOf returns every status that may legally transition to to.
func SourcesOf(to BookingStatus) []BookingStatus {
	var out []BookingStatus
	for from, nexts := range transitions {
		for _, next := range nexts {
			if next == to {
				out = append(out, from)
			}
		}
	}
	return out
}

// Booking is a reservation for either a ticket purchase or a hotel
// stay.  Exactly one of TicketID and RoomTypeID is set, matching
// BookingType.  Hotel bookings always carry CheckIn < CheckOut.
// TotalPrice is computed once at creation and never recomputed.
//
// The trailing display fields are resolved by join when the booking
// is read back and are not stored on the bookings row.
type Booking struct {
	ID               uint64          `db:"id" json:"id"`
	UserID           uint64          `db:"user_id" json:"user_id"`
	BookingType      BookingType     `db:"booking_type" json:"booking_type"`
	TicketID         *uint64         `db:"ticket_id" json:"ticket_id"`
	RoomTypeID       *uint64         `db:"room_type_id" json:"room_type_id"`
	CheckIn          *Date           `db:"check_in" json:"check_in"`
	CheckOut         *Date           `db:"check_out" json:"check_out"`
	Quantity         int             `db:"quantity" json:"quantity"`
	Status           BookingStatus   `db:"status" json:"status"`
	TotalPrice       decimal.Decimal `db:"total_price" json:"total_price"`
	PaymentSessionID *string         `db:"payment_session_id" json:"payment_session_id"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`

	UserEmail    *string `db:"user_email" json:"user_email,omitempty"`
	UserName     *string `db:"user_name" json:"user_name,omitempty"`
	TicketType   *string `db:"ticket_type" json:"ticket_type,omitempty"`
	HotelName    *string `db:"hotel_name" json:"hotel_name,omitempty"`
	RoomTypeName *string `db:"room_type_name" json:"room_type_name,omitempty"`
}
