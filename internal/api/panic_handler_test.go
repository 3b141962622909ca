package api_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/saferoute-nyc/saferoute/internal/api"
	"github.com/saferoute-nyc/saferoute/internal/logger"
	"github.com/saferoute-nyc/saferoute/internal/models"
	"github.com/saferoute-nyc/saferoute/internal/notify"
)

func setupPanicRouter(t *testing.T, users *mockUsers, contacts *mockContacts, alerts *mockAlerts, notifier *mockNotifier) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	handler := api.NewPanicHandler(users, contacts, alerts, notifier, logger.NewNop())

	router := gin.New()
	group := router.Group("/")
	group.Use(api.RequireAuth(testJWT()))
	group.POST("/panic-alert", handler.Trigger)

	return router
}

func twoContacts() *mockContacts {
	return &mockContacts{
		listFunc: func(uuid.UUID) ([]models.TrustedContact, error) {
			return []models.TrustedContact{
				{ID: uuid.New(), Name: "Mom", PhoneNumber: "+15550101"},
				{ID: uuid.New(), Name: "Sam", PhoneNumber: "+15550102"},
			}, nil
		},
	}
}

func TestPanicHandler_Trigger_WithLocation(t *testing.T) {
	userID := uuid.New()

	var sentTo []string
	var sentLat, sentLng *float64
	notifier := &mockNotifier{
		sendFunc: func(to []string, lat, lng *float64) (string, error) {
			sentTo, sentLat, sentLng = to, lat, lng
			return notify.StatusSent, nil
		},
	}
	var recorded *models.PanicAlert
	alerts := &mockAlerts{
		createFunc: func(alert *models.PanicAlert) error {
			recorded = alert
			return nil
		},
	}
	router := setupPanicRouter(t, &mockUsers{}, twoContacts(), alerts, notifier)

	body := map[string]float64{"lat": 40.719, "lng": -73.996}

	w := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPost, "/panic-alert", body)
	req.Header.Set("Authorization", bearerToken(t, testJWT(), userID))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	if len(sentTo) != 2 || sentTo[0] != "+15550101" || sentTo[1] != "+15550102" {
		t.Errorf("notified %v, want both trusted contacts", sentTo)
	}
	if sentLat == nil || *sentLat != 40.719 || sentLng == nil || *sentLng != -73.996 {
		t.Errorf("notified location = %v,%v, want the request coordinates", sentLat, sentLng)
	}

	if recorded == nil {
		t.Fatal("alert was not recorded")
	}
	if recorded.UserID != userID || recorded.Status != notify.StatusSent {
		t.Errorf("recorded alert = %+v, want user %s with status sent", recorded, userID)
	}
	if recorded.Latitude == nil || *recorded.Latitude != 40.719 {
		t.Errorf("recorded latitude = %v, want 40.719", recorded.Latitude)
	}

	var resp struct {
		Status    string             `json:"status"`
		Timestamp string             `json:"timestamp"`
		Coords    map[string]float64 `json:"coords"`
	}
	decodeBody(t, w, &resp)

	if resp.Status != notify.StatusSent {
		t.Errorf("status = %q, want %q", resp.Status, notify.StatusSent)
	}
	if resp.Timestamp == "" {
		t.Error("timestamp missing from response")
	}
	if resp.Coords["lat"] != 40.719 || resp.Coords["lng"] != -73.996 {
		t.Errorf("coords = %v, want the request coordinates", resp.Coords)
	}
}

func TestPanicHandler_Trigger_NoBody(t *testing.T) {
	var sentLat, sentLng *float64
	notifier := &mockNotifier{
		sendFunc: func(_ []string, lat, lng *float64) (string, error) {
			sentLat, sentLng = lat, lng
			return notify.StatusSimulated, nil
		},
	}
	router := setupPanicRouter(t, &mockUsers{}, twoContacts(), &mockAlerts{}, notifier)

	w := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPost, "/panic-alert", nil)
	req.Header.Set("Authorization", bearerToken(t, testJWT(), uuid.New()))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if sentLat != nil || sentLng != nil {
		t.Errorf("notified location = %v,%v, want none", sentLat, sentLng)
	}

	var resp struct {
		Status string `json:"status"`
		Coords any    `json:"coords"`
	}
	decodeBody(t, w, &resp)

	if resp.Status != notify.StatusSimulated {
		t.Errorf("status = %q, want %q", resp.Status, notify.StatusSimulated)
	}
	if resp.Coords != nil {
		t.Errorf("coords = %v, want null", resp.Coords)
	}
}

func TestPanicHandler_Trigger_FallsBackToProfilePhone(t *testing.T) {
	phone := "+15550100"
	users := &mockUsers{
		getByIDFunc: func(id uuid.UUID) (*models.User, error) {
			return &models.User{ID: id, Email: "ada@example.com", DefaultPhone: &phone}, nil
		},
	}

	var sentTo []string
	notifier := &mockNotifier{
		sendFunc: func(to []string, _, _ *float64) (string, error) {
			sentTo = to
			return notify.StatusSent, nil
		},
	}
	router := setupPanicRouter(t, users, &mockContacts{}, &mockAlerts{}, notifier)

	w := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPost, "/panic-alert", nil)
	req.Header.Set("Authorization", bearerToken(t, testJWT(), uuid.New()))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if len(sentTo) != 1 || sentTo[0] != phone {
		t.Errorf("notified %v, want the profile phone", sentTo)
	}
}

func TestPanicHandler_Trigger_NoDestinations(t *testing.T) {
	router := setupPanicRouter(t, &mockUsers{}, &mockContacts{}, &mockAlerts{}, &mockNotifier{})

	w := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPost, "/panic-alert", nil)
	req.Header.Set("Authorization", bearerToken(t, testJWT(), uuid.New()))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestPanicHandler_Trigger_TotalFailureStillReports(t *testing.T) {
	notifier := &mockNotifier{
		sendFunc: func(to []string, _, _ *float64) (string, error) {
			return notify.StatusFailed, errors.New("all 2 panic notifications failed")
		},
	}
	var recorded *models.PanicAlert
	alerts := &mockAlerts{
		createFunc: func(alert *models.PanicAlert) error {
			recorded = alert
			return nil
		},
	}
	router := setupPanicRouter(t, &mockUsers{}, twoContacts(), alerts, notifier)

	w := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPost, "/panic-alert", nil)
	req.Header.Set("Authorization", bearerToken(t, testJWT(), uuid.New()))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Status string `json:"status"`
	}
	decodeBody(t, w, &resp)

	if resp.Status != notify.StatusFailed {
		t.Errorf("status = %q, want %q", resp.Status, notify.StatusFailed)
	}
	if recorded == nil || recorded.Status != notify.StatusFailed {
		t.Errorf("recorded alert = %+v, want status failed", recorded)
	}
}

func TestPanicHandler_Trigger_RecordFailureDoesNotFail(t *testing.T) {
	alerts := &mockAlerts{
		createFunc: func(*models.PanicAlert) error { return errors.New("insert failed") },
	}
	router := setupPanicRouter(t, &mockUsers{}, twoContacts(), alerts, &mockNotifier{})

	w := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPost, "/panic-alert", nil)
	req.Header.Set("Authorization", bearerToken(t, testJWT(), uuid.New()))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestPanicHandler_Trigger_RequiresAuth(t *testing.T) {
	router := setupPanicRouter(t, &mockUsers{}, twoContacts(), &mockAlerts{}, &mockNotifier{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newJSONRequest(t, http.MethodPost, "/panic-alert", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
