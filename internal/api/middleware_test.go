package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/saferoute-nyc/saferoute/internal/api"
	"github.com/saferoute-nyc/saferoute/internal/auth"
)

// whoami echoes the user ID RequireAuth stored in the context.
func whoami(c *gin.Context) {
	v, ok := c.Get("user_id")
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user_id not set"})
		return
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user_id has wrong type"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": id.String()})
}

func setupAuthedRouter(t *testing.T, jwt *auth.JWTManager) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	router := gin.New()
	group := router.Group("/")
	group.Use(api.RequireAuth(jwt))
	group.GET("/whoami", whoami)

	return router
}

func TestRequireAuth_ValidToken(t *testing.T) {
	jwt := testJWT()
	userID := uuid.New()
	router := setupAuthedRouter(t, jwt)

	w := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", bearerToken(t, jwt, userID))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		UserID string `json:"user_id"`
	}
	decodeBody(t, w, &resp)

	if resp.UserID != userID.String() {
		t.Errorf("user_id = %q, want %q", resp.UserID, userID)
	}
}

func TestRequireAuth_Rejections(t *testing.T) {
	jwt := testJWT()
	router := setupAuthedRouter(t, jwt)

	otherSecret := auth.NewJWTManager("other-secret", time.Hour)
	expired := auth.NewJWTManager("test-secret", -time.Hour)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Token abc123"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not.a.jwt"},
		{"wrong secret", bearerToken(t, otherSecret, uuid.New())},
		{"expired token", bearerToken(t, expired, uuid.New())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := newJSONRequest(t, http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			router.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(api.CORSMiddleware())
	router.POST("/safe-route", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, err := http.NewRequestWithContext(t.Context(), http.MethodOptions, "/safe-route", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow-origin = %q, want *", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, Authorization" {
		t.Errorf("allow-headers = %q", got)
	}
}
