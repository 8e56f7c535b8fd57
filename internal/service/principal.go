package service

import "github.com/iliyamo/zoo-booking/internal/model"

// Principal is the authenticated caller of a booking operation.
type Principal struct {
	UserID uint64
	Role   string
}

// IsAdmin reports whether the caller holds the ADMIN role.
func (p Principal) IsAdmin() bool { return p.Role == model.RoleAdmin }

// CanAccess reports whether the caller may read or cancel b.
func (p Principal) CanAccess(b *model.Booking) bool {
	return p.IsAdmin() || b.UserID == p.UserID
}
