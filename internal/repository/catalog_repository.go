package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/zoo-booking/internal/model"
)

// CatalogRepo reads and edits tickets, hotels and room types.
type CatalogRepo struct {
	db *sqlx.DB
}

// NewCatalogRepo returns a CatalogRepo bound to db.
func NewCatalogRepo(db *sqlx.DB) *CatalogRepo { return &CatalogRepo{db: db} }

const (
	ticketColumns   = `id, type, price, description`
	hotelColumns    = `id, name, description, image_url`
	roomTypeColumns = `id, hotel_id, name, description, price_per_night, total_rooms`
)

// ListTickets returns all ticket types ordered by id.
func (r *CatalogRepo) ListTickets(ctx context.Context) ([]model.Ticket, error) {
	out := []model.Ticket{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+ticketColumns+` FROM tickets ORDER BY id`)
	return out, err
}

// GetTicket returns the ticket type or ErrNotFound.
func (r *CatalogRepo) GetTicket(ctx context.Context, id uint64) (*model.Ticket, error) {
	var t model.Ticket
	if err := r.db.GetContext(ctx, &t, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// CreateTicket inserts t and sets its ID.
func (r *CatalogRepo) CreateTicket(ctx context.Context, t *model.Ticket) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO tickets (type, price, description) VALUES (?, ?, ?)`,
		t.Type, t.Price.StringFixed(2), t.Description)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// UpdateTicket overwrites type, price and description.  Existing
// bookings keep the total price computed when they were created.
func (r *CatalogRepo) UpdateTicket(ctx context.Context, t *model.Ticket) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET type = ?, price = ?, description = ? WHERE id = ?`,
		t.Type, t.Price.StringFixed(2), t.Description, t.ID)
	if err != nil {
		return err
	}
	return expectRow(ctx, r.db, res, `SELECT COUNT(*) FROM tickets WHERE id = ?`, t.ID)
}

// DeleteTicket removes a ticket type.  ErrConflict is returned while
// bookings still reference it.
func (r *CatalogRepo) DeleteTicket(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, id)
	if err != nil {
		if isMySQLError(err, mysqlRowIsReferenced) {
			return ErrConflict
		}
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

// ListHotels returns every hotel with its room types attached.
func (r *CatalogRepo) ListHotels(ctx context.Context) ([]model.Hotel, error) {
	hotels := []model.Hotel{}
	if err := r.db.SelectContext(ctx, &hotels, `SELECT `+hotelColumns+` FROM hotels ORDER BY id`); err != nil {
		return nil, err
	}
	var rooms []model.RoomType
	if err := r.db.SelectContext(ctx, &rooms, `SELECT `+roomTypeColumns+` FROM room_types ORDER BY hotel_id, id`); err != nil {
		return nil, err
	}
	byHotel := make(map[uint64][]model.RoomType, len(hotels))
	for _, rt := range rooms {
		byHotel[rt.HotelID] = append(byHotel[rt.HotelID], rt)
	}
	for i := range hotels {
		hotels[i].RoomTypes = byHotel[hotels[i].ID]
		if hotels[i].RoomTypes == nil {
			hotels[i].RoomTypes = []model.RoomType{}
		}
	}
	return hotels, nil
}

// GetHotel returns a single hotel with its room types.
func (r *CatalogRepo) GetHotel(ctx context.Context, id uint64) (*model.Hotel, error) {
	var h model.Hotel
	if err := r.db.GetContext(ctx, &h, `SELECT `+hotelColumns+` FROM hotels WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rooms, err := r.ListRoomTypes(ctx, id)
	if err != nil {
		return nil, err
	}
	h.RoomTypes = rooms
	return &h, nil
}

// ListRoomTypes returns the room types of a hotel.
func (r *CatalogRepo) ListRoomTypes(ctx context.Context, hotelID uint64) ([]model.RoomType, error) {
	out := []model.RoomType{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT `+roomTypeColumns+` FROM room_types WHERE hotel_id = ? ORDER BY id`, hotelID)
	return out, err
}

// GetRoomType returns the room type or ErrNotFound.
func (r *CatalogRepo) GetRoomType(ctx context.Context, id uint64) (*model.RoomType, error) {
	var rt model.RoomType
	if err := r.db.GetContext(ctx, &rt, `SELECT `+roomTypeColumns+` FROM room_types WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rt, nil
}

// UpdateRoomType overwrites the editable fields of a room type.
// Lowering TotalRooms below current occupancy is allowed; it only
// affects bookings created afterwards.
func (r *CatalogRepo) UpdateRoomType(ctx context.Context, rt *model.RoomType) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE room_types SET name = ?, description = ?, price_per_night = ?, total_rooms = ? WHERE id = ?`,
		rt.Name, rt.Description, rt.PricePerNight.StringFixed(2), rt.TotalRooms, rt.ID)
	if err != nil {
		return err
	}
	return expectRow(ctx, r.db, res, `SELECT COUNT(*) FROM room_types WHERE id = ?`, rt.ID)
}

// expectRow turns a zero-row UPDATE into ErrNotFound.  MySQL reports
// zero affected rows when the values are unchanged, so a miss is
// confirmed with existsQuery.
func expectRow(ctx context.Context, db *sqlx.DB, res sql.Result, existsQuery string, id uint64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var count int
	if err := db.GetContext(ctx, &count, existsQuery, id); err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Catalog = (*CatalogRepo)(nil)
