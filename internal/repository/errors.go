// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a delete or update cannot be
// performed because of dependent records, such as deleting a
// ticket type that existing bookings still reference. Handlers
// should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned by UserRepo when the email is taken.
var ErrEmailExists = errors.New("email already exists")

const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
)

func isMySQLError(err error, code uint16) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == code
}
