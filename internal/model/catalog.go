package model

import "github.com/shopspring/decimal"

// Ticket is a zoo admission ticket type.  Tickets have no capacity
// limit; only admins may edit the price or description.
//
// Fields:
//  ID          – tickets.id
//  Type        – display name of the ticket type (Adult, Child, ...).
//  Price       – unit price.
//  Description – optional free text.
type Ticket struct {
	ID          uint64          `db:"id" json:"id"`
	Type        string          `db:"type" json:"type"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Description *string         `db:"description" json:"description"`
}

// Hotel groups a set of room types.  RoomTypes is populated only by
// the catalog queries that load them together.
type Hotel struct {
	ID          uint64     `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Description *string    `db:"description" json:"description"`
	ImageURL    *string    `db:"image_url" json:"image_url"`
	RoomTypes   []RoomType `db:"-" json:"room_types,omitempty"`
}

// RoomType is a class of hotel room with a fixed nightly price and a
// fixed number of physical rooms.  TotalRooms is the ceiling for the
// number of rooms of this type occupied on any night.
type RoomType struct {
	ID            uint64          `db:"id" json:"id"`
	HotelID       uint64          `db:"hotel_id" json:"hotel_id"`
	Name          string          `db:"name" json:"name"`
	Description   *string         `db:"description" json:"description"`
	PricePerNight decimal.Decimal `db:"price_per_night" json:"price_per_night"`
	TotalRooms    int             `db:"total_rooms" json:"total_rooms"`
}
