package repository_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/saferoute-nyc/saferoute/internal/models"
	"github.com/saferoute-nyc/saferoute/internal/repository"
)

func newAlertRepo(t *testing.T) (*repository.AlertRepository, sqlmock.Sqlmock, func()) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	db := sqlx.NewDb(mockDB, "postgres")
	repo := repository.NewAlertRepository(db)

	return repo, mock, func() { mockDB.Close() }
}

func TestAlertRepository_Create(t *testing.T) {
	repo, mock, cleanup := newAlertRepo(t)
	defer cleanup()

	ctx := context.Background()
	lat, lng := 40.719, -73.996
	alert := &models.PanicAlert{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Latitude:  &lat,
		Longitude: &lng,
		Status:    "sent",
	}

	mock.ExpectExec("INSERT INTO panic_alerts").
		WithArgs(
			alert.ID,
			alert.UserID,
			lat,
			lng,
			"sent",
			sqlmock.AnyArg(), // created_at
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(ctx, alert); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if alert.CreatedAt.IsZero() {
		t.Error("Create() did not stamp created_at")
	}

	expectationsMet(t, mock)
}

func TestAlertRepository_Create_NoCoordinates(t *testing.T) {
	repo, mock, cleanup := newAlertRepo(t)
	defer cleanup()

	ctx := context.Background()
	alert := &models.PanicAlert{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Status: "simulated",
	}

	mock.ExpectExec("INSERT INTO panic_alerts").
		WithArgs(
			alert.ID,
			alert.UserID,
			nil,
			nil,
			"simulated",
			sqlmock.AnyArg(), // created_at
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(ctx, alert); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	expectationsMet(t, mock)
}

func TestAlertRepository_CountByUser(t *testing.T) {
	repo, mock, cleanup := newAlertRepo(t)
	defer cleanup()

	ctx := context.Background()
	userID := uuid.New()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountByUser(ctx, userID)
	if err != nil {
		t.Fatalf("CountByUser() error = %v", err)
	}
	if count != 3 {
		t.Errorf("CountByUser() = %d, want 3", count)
	}

	expectationsMet(t, mock)
}
