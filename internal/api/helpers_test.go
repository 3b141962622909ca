package api_test

// Shared mocks and request helpers for the handler tests.

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/saferoute-nyc/saferoute/internal/auth"
	"github.com/saferoute-nyc/saferoute/internal/geocode"
	"github.com/saferoute-nyc/saferoute/internal/models"
	"github.com/saferoute-nyc/saferoute/internal/notify"
	"github.com/saferoute-nyc/saferoute/internal/planner"
	"github.com/saferoute-nyc/saferoute/internal/snapshot"
)

type mockUsers struct {
	createFunc      func(user *models.User) error
	getByEmailFunc  func(email string) (*models.User, error)
	getByIDFunc     func(id uuid.UUID) (*models.User, error)
	updatePhoneFunc func(userID uuid.UUID, phone string) error
	emailExistsFunc func(email string) (bool, error)
}

func (m *mockUsers) Create(_ context.Context, user *models.User) error {
	if m.createFunc != nil {
		return m.createFunc(user)
	}
	return nil
}

func (m *mockUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if m.getByEmailFunc != nil {
		return m.getByEmailFunc(email)
	}
	return nil, models.ErrNotFound
}

func (m *mockUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(id)
	}
	return nil, models.ErrNotFound
}

func (m *mockUsers) UpdatePhone(_ context.Context, userID uuid.UUID, phone string) error {
	if m.updatePhoneFunc != nil {
		return m.updatePhoneFunc(userID, phone)
	}
	return nil
}

func (m *mockUsers) EmailExists(_ context.Context, email string) (bool, error) {
	if m.emailExistsFunc != nil {
		return m.emailExistsFunc(email)
	}
	return false, nil
}

type mockContacts struct {
	listFunc        func(userID uuid.UUID) ([]models.TrustedContact, error)
	createFunc      func(contact *models.TrustedContact) error
	deleteFunc      func(userID, contactID uuid.UUID) error
	phoneExistsFunc func(userID uuid.UUID, phone string) (bool, error)
}

func (m *mockContacts) ListByUser(_ context.Context, userID uuid.UUID) ([]models.TrustedContact, error) {
	if m.listFunc != nil {
		return m.listFunc(userID)
	}
	return []models.TrustedContact{}, nil
}

func (m *mockContacts) Create(_ context.Context, contact *models.TrustedContact) error {
	if m.createFunc != nil {
		return m.createFunc(contact)
	}
	return nil
}

func (m *mockContacts) Delete(_ context.Context, userID, contactID uuid.UUID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(userID, contactID)
	}
	return nil
}

func (m *mockContacts) PhoneExists(_ context.Context, userID uuid.UUID, phone string) (bool, error) {
	if m.phoneExistsFunc != nil {
		return m.phoneExistsFunc(userID, phone)
	}
	return false, nil
}

type mockAlerts struct {
	createFunc func(alert *models.PanicAlert) error
}

func (m *mockAlerts) Create(_ context.Context, alert *models.PanicAlert) error {
	if m.createFunc != nil {
		return m.createFunc(alert)
	}
	return nil
}

type mockNotifier struct {
	sendFunc func(to []string, lat, lng *float64) (string, error)
}

func (m *mockNotifier) SendPanicAlert(_ context.Context, to []string, lat, lng *float64) (string, error) {
	if m.sendFunc != nil {
		return m.sendFunc(to, lat, lng)
	}
	return notify.StatusSimulated, nil
}

type mockPlanner struct {
	computeFunc func(start, end planner.LatLng) *planner.Result
}

func (m *mockPlanner) ComputeRoutes(_ context.Context, start, end planner.LatLng) *planner.Result {
	if m.computeFunc != nil {
		return m.computeFunc(start, end)
	}
	return &planner.Result{Warnings: []string{}}
}

type mockSnapshot struct {
	heatmap snapshot.Collection
	count   int
}

func (m *mockSnapshot) Heatmap() snapshot.Collection { return m.heatmap }

func (m *mockSnapshot) PolygonCount() int { return m.count }

type mockGeocoder struct {
	forwardFunc func(query string, limit int, proximity *orb.Point) ([]geocode.Place, error)
	reverseFunc func(lng, lat float64) (*geocode.Place, error)
}

func (m *mockGeocoder) Forward(_ context.Context, query string, limit int, proximity *orb.Point) ([]geocode.Place, error) {
	if m.forwardFunc != nil {
		return m.forwardFunc(query, limit, proximity)
	}
	return []geocode.Place{}, nil
}

func (m *mockGeocoder) Reverse(_ context.Context, lng, lat float64) (*geocode.Place, error) {
	if m.reverseFunc != nil {
		return m.reverseFunc(lng, lat)
	}
	return nil, nil
}

// testJWT returns a manager for minting and validating tokens in tests.
func testJWT() *auth.JWTManager {
	return auth.NewJWTManager("test-secret", time.Hour)
}

// bearerToken mints an Authorization header value for userID.
func bearerToken(t *testing.T, jwt *auth.JWTManager, userID uuid.UUID) string {
	t.Helper()

	token, err := jwt.GenerateToken(userID)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return "Bearer " + token
}

// newJSONRequest builds a request with a JSON body. A nil body sends no body.
func newJSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequestWithContext(t.Context(), method, target, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return req
}

// decodeBody unmarshals the recorded response body into out.
func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()

	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}
