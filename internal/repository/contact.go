package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/saferoute-nyc/saferoute/internal/models"
)

// ContactRepository provides database operations for trusted contacts.
type ContactRepository struct {
	db *sqlx.DB
}

// NewContactRepository creates a new contact repository.
func NewContactRepository(db *sqlx.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// ListByUser retrieves all trusted contacts for a user, oldest first.
func (r *ContactRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.TrustedContact, error) {
	contacts := []models.TrustedContact{}
	query := `
		SELECT id, user_id, name, phone_number, created_at
		FROM trusted_contacts
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	err := r.db.SelectContext(ctx, &contacts, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	return contacts, nil
}

// Create inserts a new trusted contact.
func (r *ContactRepository) Create(ctx context.Context, contact *models.TrustedContact) error {
	query := `
		INSERT INTO trusted_contacts (id, user_id, name, phone_number, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	contact.CreatedAt = time.Now()

	_, err := r.db.ExecContext(
		ctx, query,
		contact.ID, contact.UserID, contact.Name, contact.PhoneNumber, contact.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return models.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create contact: %w", err)
	}

	return nil
}

// Delete removes a contact owned by the given user.
func (r *ContactRepository) Delete(ctx context.Context, userID, contactID uuid.UUID) error {
	query := `DELETE FROM trusted_contacts WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, contactID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return models.ErrNotFound
	}

	return nil
}

// PhoneExists reports whether the user already has a contact with the
// given phone number.
func (r *ContactRepository) PhoneExists(ctx context.Context, userID uuid.UUID, phone string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM trusted_contacts WHERE user_id = $1 AND phone_number = $2)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, phone); err != nil {
		return false, fmt.Errorf("failed to check contact phone: %w", err)
	}

	return exists, nil
}
