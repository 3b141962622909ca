package models

import (
	"time"

	"github.com/google/uuid"
)

// TrustedContact is a phone number notified when its owner raises a
// panic alert.
type TrustedContact struct {
	ID          uuid.UUID `db:"id"           json:"id"`
	UserID      uuid.UUID `db:"user_id"      json:"-"`
	Name        string    `db:"name"         json:"name"`
	PhoneNumber string    `db:"phone_number" json:"phone_number"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
}

// ContactCreateRequest is the payload for POST /settings/contacts.
type ContactCreateRequest struct {
	Name        string `binding:"required" json:"name"`
	PhoneNumber string `binding:"required" json:"phone_number"`
}

// ProfileUpdateRequest is the payload for PUT /settings/profile.
type ProfileUpdateRequest struct {
	DefaultPhone string `binding:"required" json:"default_phone"`
}
