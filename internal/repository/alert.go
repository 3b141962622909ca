package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/saferoute-nyc/saferoute/internal/models"
)

// AlertRepository provides database operations for panic alerts.
type AlertRepository struct {
	db *sqlx.DB
}

// NewAlertRepository creates a new alert repository.
func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts a new panic alert.
func (r *AlertRepository) Create(ctx context.Context, alert *models.PanicAlert) error {
	query := `
		INSERT INTO panic_alerts (id, user_id, latitude, longitude, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	alert.CreatedAt = time.Now()

	_, err := r.db.ExecContext(
		ctx, query,
		alert.ID, alert.UserID, alert.Latitude, alert.Longitude, alert.Status, alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

// CountByUser returns the number of alerts raised by the user.
func (r *AlertRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM panic_alerts WHERE user_id = $1`

	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	return count, nil
}
