package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/saferoute-nyc/saferoute/internal/api"
	"github.com/saferoute-nyc/saferoute/internal/logger"
	"github.com/saferoute-nyc/saferoute/internal/models"
)

func setupSettingsRouter(t *testing.T, users *mockUsers, contacts *mockContacts) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	handler := api.NewSettingsHandler(users, contacts, logger.NewNop())

	router := gin.New()
	group := router.Group("/")
	group.Use(api.RequireAuth(testJWT()))
	group.GET("/settings/contacts", handler.ListContacts)
	group.POST("/settings/contacts", handler.AddContact)
	group.DELETE("/settings/contacts/:id", handler.DeleteContact)
	group.PUT("/settings/profile", handler.UpdateProfile)

	return router
}

func TestSettingsHandler_ListContacts(t *testing.T) {
	userID := uuid.New()

	var queried uuid.UUID
	contacts := &mockContacts{
		listFunc: func(id uuid.UUID) ([]models.TrustedContact, error) {
			queried = id
			return []models.TrustedContact{
				{ID: uuid.New(), Name: "Mom", PhoneNumber: "+15550101"},
				{ID: uuid.New(), Name: "Sam", PhoneNumber: "+15550102"},
			}, nil
		},
	}
	router := setupSettingsRouter(t, &mockUsers{}, contacts)

	w := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodGet, "/settings/contacts", nil)
	req.Header.Set("Authorization", bearerToken(t, testJWT(), userID))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if queried != userID {
		t.Errorf("listed contacts for %s, want the token's user %s", queried, userID)
	}

	var resp struct {
		Contacts []models.TrustedContact `json:"contacts"`
	}
	decodeBody(t, w, &resp)

	if len(resp.Contacts) != 2 {
		t.Errorf("contacts = %d, want 2", len(resp.Contacts))
	}
}

func TestSettingsHandler_ListContacts_NoToken(t *testing.T) {
	router := setupSettingsRouter(t, &mockUsers{}, &mockContacts{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newJSONRequest(t, http.MethodGet, "/settings/contacts", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestSettingsHandler_AddContact(t *testing.T) {
	userID := uuid.New()

	var created *models.TrustedContact
	contacts := &mockContacts{
		createFunc: func(contact *models.TrustedContact) error {
			created = contact
			return nil
		},
	}
	router := setupSettingsRouter(t, &mockUsers{}, contacts)

	body := map[string]string{"name": "Mom", "phone_number": " +15550101 "}

	w := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPost, "/settings/contacts", body)
	req.Header.Set("Authorization", bearerToken(t, testJWT(), userID))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d, body: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	if created == nil {
		t.Fatal("contact was not persisted")
	}
	if created.UserID != userID {
		t.Errorf("contact owner = %s, want %s", created.UserID, userID)
	}
	if created.PhoneNumber != "+15550101" {
		t.Errorf("stored phone = %q, want trimmed +15550101", created.PhoneNumber)
	}
}

func TestSettingsHandler_AddContact_DuplicatePhone(t *testing.T) {
	contacts := &mockContacts{
		phoneExistsFunc: func(uuid.UUID, string) (bool, error) { return true, nil },
	}
	router := setupSettingsRouter(t, &mockUsers{}, contacts)

	body := map[string]string{"name": "Mom", "phone_number": "+15550101"}

	w := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPost, "/settings/contacts", body)
	req.Header.Set("Authorization", bearerToken(t, testJWT(), uuid.New()))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestSettingsHandler_AddContact_MissingPhone(t *testing.T) {
	router := setupSettingsRouter(t, &mockUsers{}, &mockContacts{})

	w := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPost, "/settings/contacts", map[string]string{"name": "Mom"})
	req.Header.Set("Authorization", bearerToken(t, testJWT(), uuid.New()))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestSettingsHandler_DeleteContact(t *testing.T) {
	userID := uuid.New()
	contactID := uuid.New()

	var gotUser, gotContact uuid.UUID
	contacts := &mockContacts{
		deleteFunc: func(userID, contactID uuid.UUID) error {
			gotUser, gotContact = userID, contactID
			return nil
		},
	}
	router := setupSettingsRouter(t, &mockUsers{}, contacts)

	w := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodDelete, "/settings/contacts/"+contactID.String(), nil)
	req.Header.Set("Authorization", bearerToken(t, testJWT(), userID))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if gotUser != userID || gotContact != contactID {
		t.Errorf("deleted %s for %s, want %s for %s", gotContact, gotUser, contactID, userID)
	}
}

func TestSettingsHandler_DeleteContact_Unknown(t *testing.T) {
	contacts := &mockContacts{
		deleteFunc: func(uuid.UUID, uuid.UUID) error { return models.ErrNotFound },
	}
	router := setupSettingsRouter(t, &mockUsers{}, contacts)

	w := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodDelete, "/settings/contacts/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", bearerToken(t, testJWT(), uuid.New()))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestSettingsHandler_DeleteContact_BadID(t *testing.T) {
	router := setupSettingsRouter(t, &mockUsers{}, &mockContacts{})

	w := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodDelete, "/settings/contacts/not-a-uuid", nil)
	req.Header.Set("Authorization", bearerToken(t, testJWT(), uuid.New()))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestSettingsHandler_UpdateProfile(t *testing.T) {
	userID := uuid.New()
	phone := "+15550199"

	var updatedTo string
	users := &mockUsers{
		updatePhoneFunc: func(_ uuid.UUID, newPhone string) error {
			updatedTo = newPhone
			return nil
		},
		getByIDFunc: func(id uuid.UUID) (*models.User, error) {
			return &models.User{ID: id, Email: "ada@example.com", DefaultPhone: &phone}, nil
		},
	}
	router := setupSettingsRouter(t, users, &mockContacts{})

	w := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPut, "/settings/profile", map[string]string{"default_phone": phone})
	req.Header.Set("Authorization", bearerToken(t, testJWT(), userID))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if updatedTo != phone {
		t.Errorf("updated phone = %q, want %q", updatedTo, phone)
	}

	var resp struct {
		User models.UserInfo `json:"user"`
	}
	decodeBody(t, w, &resp)

	if resp.User.DefaultPhone == nil || *resp.User.DefaultPhone != phone {
		t.Errorf("response phone = %v, want %q", resp.User.DefaultPhone, phone)
	}
	if resp.User.TrustedContacts == nil {
		t.Error("trusted_contacts missing from response")
	}
}

func TestSettingsHandler_UpdateProfile_MissingPhone(t *testing.T) {
	router := setupSettingsRouter(t, &mockUsers{}, &mockContacts{})

	w := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPut, "/settings/profile", map[string]string{})
	req.Header.Set("Authorization", bearerToken(t, testJWT(), uuid.New()))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
