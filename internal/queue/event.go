// Package queue defines the booking event payload and the RabbitMQ
// publisher and consumer that carry it.
package queue

import "time"

// Queue names. Each status change is routed to the queue of its new
// status.
const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingCancelled = "booking.cancelled"
)

// BookingStatusChangedEvent is published after a booking's status
// change has been committed.  It carries enough for the consumer to
// write an audit line without reading the database.
type BookingStatusChangedEvent struct {
	EventID        string    `json:"event_id"`
	BookingID      uint64    `json:"booking_id"`
	UserID         uint64    `json:"user_id"`
	BookingType    string    `json:"booking_type"`
	PreviousStatus string    `json:"previous_status"`
	Status         string    `json:"status"`
	TotalPrice     string    `json:"total_price"`
	Reason         string    `json:"reason"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// QueueFor returns the queue an event with the given status is routed
// to, or "" when no consumer is interested in it.
func QueueFor(status string) string {
	switch status {
	case "confirmed":
		return QueueBookingConfirmed
	case "cancelled":
		return QueueBookingCancelled
	}
	return ""
}
