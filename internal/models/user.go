// Package models defines the persisted entities and request/response
// payloads shared by the API handlers and repositories.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered SafeRoute account.
type User struct {
	ID           uuid.UUID `db:"id"            json:"id"`
	Email        string    `db:"email"         json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	DefaultPhone *string   `db:"default_phone" json:"default_phone"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"    json:"updated_at"`
}

// RegisterRequest is the payload for POST /register.
type RegisterRequest struct {
	Email    string `binding:"required" json:"email"`
	Password string `binding:"required" json:"password"`
	Phone    string `json:"phone"`
}

// LoginRequest is the payload for POST /login.
type LoginRequest struct {
	Email    string `binding:"required" json:"email"`
	Password string `binding:"required" json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

// UserInfo is the user payload embedded in API responses.
type UserInfo struct {
	ID              uuid.UUID        `json:"id"`
	Email           string           `json:"email"`
	DefaultPhone    *string          `json:"default_phone"`
	TrustedContacts []TrustedContact `json:"trusted_contacts"`
}

// Info builds the API payload for a user and their contacts.
func (u *User) Info(contacts []TrustedContact) UserInfo {
	if contacts == nil {
		contacts = []TrustedContact{}
	}
	return UserInfo{
		ID:              u.ID,
		Email:           u.Email,
		DefaultPhone:    u.DefaultPhone,
		TrustedContacts: contacts,
	}
}
