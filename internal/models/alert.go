package models

import (
	"time"

	"github.com/google/uuid"
)

// PanicAlert records a dispatched panic alert. Coordinates are nil when
// the caller's device had no fix.
type PanicAlert struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	UserID    uuid.UUID `db:"user_id"    json:"-"`
	Latitude  *float64  `db:"latitude"   json:"latitude"`
	Longitude *float64  `db:"longitude"  json:"longitude"`
	Status    string    `db:"status"     json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PanicRequest is the payload for POST /panic-alert.
type PanicRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}
