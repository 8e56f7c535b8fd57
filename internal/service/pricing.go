package service

import (
	"github.com/shopspring/decimal"

	"github.com/iliyamo/zoo-booking/internal/model"
)

// Nights is the number of nights between check-in and check-out,
// rounded up to whole days.
func Nights(checkIn, checkOut model.Date) int {
	return checkIn.DaysUntil(checkOut)
}

// TicketPrice is unit × quantity.
func TicketPrice(unit decimal.Decimal, quantity int) (decimal.Decimal, error) {
	if quantity < 1 {
		return decimal.Zero, invalidf("quantity must be at least 1")
	}
	return unit.Mul(decimal.NewFromInt(int64(quantity))).Round(2), nil
}

// HotelPrice is nights × pricePerNight × quantity.
func HotelPrice(pricePerNight decimal.Decimal, nights, quantity int) (decimal.Decimal, error) {
	if nights < 1 {
		return decimal.Zero, invalidf("check_out must be after check_in")
	}
	if quantity < 1 {
		return decimal.Zero, invalidf("quantity must be at least 1")
	}
	return pricePerNight.
		Mul(decimal.NewFromInt(int64(nights))).
		Mul(decimal.NewFromInt(int64(quantity))).
		Round(2), nil
}
