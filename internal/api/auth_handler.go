package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/saferoute-nyc/saferoute/internal/auth"
	"github.com/saferoute-nyc/saferoute/internal/logger"
	"github.com/saferoute-nyc/saferoute/internal/models"
)

// UserStore is the user persistence surface the handlers use.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdatePhone(ctx context.Context, userID uuid.UUID, phone string) error
	EmailExists(ctx context.Context, email string) (bool, error)
}

// AuthHandler serves account registration and login.
type AuthHandler struct {
	users    UserStore
	contacts ContactStore
	jwt      *auth.JWTManager
	log      logger.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(users UserStore, contacts ContactStore, jwt *auth.JWTManager, log logger.Logger) *AuthHandler {
	return &AuthHandler{users: users, contacts: contacts, jwt: jwt, log: log}
}

// Register handles POST /register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := h.users.EmailExists(c.Request.Context(), email)
	if err != nil {
		h.log.Error("Failed to check email", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}
	if exists {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.log.Error("Failed to hash password", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		user.DefaultPhone = &phone
	}

	if err := h.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		h.log.Error("Failed to create user", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	token, err := h.jwt.GenerateToken(user.ID)
	if err != nil {
		h.log.Error("Failed to generate token",
			logger.String("email", email),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	h.log.Info("User registered", logger.String("email", email))

	c.JSON(http.StatusOK, models.AuthResponse{
		Token: token,
		User:  user.Info(nil),
	})
}

// Login handles POST /login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := h.users.GetByEmail(c.Request.Context(), email)
	if err != nil {
		h.log.Warn("Login attempt failed - user not found",
			logger.String("email", email),
		)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		h.log.Warn("Login attempt failed - invalid password",
			logger.String("email", email),
		)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.jwt.GenerateToken(user.ID)
	if err != nil {
		h.log.Error("Failed to generate token",
			logger.String("email", email),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	contacts, err := h.contacts.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Error("Failed to load contacts", logger.Error(err))
		contacts = nil
	}

	h.log.Info("User logged in", logger.String("email", email))

	c.JSON(http.StatusOK, models.AuthResponse{
		Token: token,
		User:  user.Info(contacts),
	})
}
