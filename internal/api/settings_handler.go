package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/saferoute-nyc/saferoute/internal/logger"
	"github.com/saferoute-nyc/saferoute/internal/models"
)

// ContactStore is the trusted-contact persistence surface the handlers use.
type ContactStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.TrustedContact, error)
	Create(ctx context.Context, contact *models.TrustedContact) error
	Delete(ctx context.Context, userID, contactID uuid.UUID) error
	PhoneExists(ctx context.Context, userID uuid.UUID, phone string) (bool, error)
}

// SettingsHandler serves trusted-contact and profile management.
type SettingsHandler struct {
	users    UserStore
	contacts ContactStore
	log      logger.Logger
}

// NewSettingsHandler creates a settings handler.
func NewSettingsHandler(users UserStore, contacts ContactStore, log logger.Logger) *SettingsHandler {
	return &SettingsHandler{users: users, contacts: contacts, log: log}
}

// ListContacts handles GET /settings/contacts.
func (h *SettingsHandler) ListContacts(c *gin.Context) {
	userID := currentUserID(c)

	contacts, err := h.contacts.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("Failed to list contacts",
			logger.String("user_id", userID.String()),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list contacts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

// AddContact handles POST /settings/contacts.
func (h *SettingsHandler) AddContact(c *gin.Context) {
	userID := currentUserID(c)

	var req models.ContactCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and phone_number are required"})
		return
	}

	phone := strings.TrimSpace(req.PhoneNumber)

	exists, err := h.contacts.PhoneExists(c.Request.Context(), userID, phone)
	if err != nil {
		h.log.Error("Failed to check contact phone",
			logger.String("user_id", userID.String()),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create contact"})
		return
	}
	if exists {
		c.JSON(http.StatusConflict, gin.H{"error": "contact with this phone number already exists"})
		return
	}

	contact := &models.TrustedContact{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        strings.TrimSpace(req.Name),
		PhoneNumber: phone,
	}

	if err := h.contacts.Create(c.Request.Context(), contact); err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "contact with this phone number already exists"})
			return
		}
		h.log.Error("Failed to create contact",
			logger.String("user_id", userID.String()),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create contact"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"contact": contact})
}

// DeleteContact handles DELETE /settings/contacts/:id.
func (h *SettingsHandler) DeleteContact(c *gin.Context) {
	userID := currentUserID(c)

	contactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contact id"})
		return
	}

	if err := h.contacts.Delete(c.Request.Context(), userID, contactID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "contact not found"})
			return
		}
		h.log.Error("Failed to delete contact",
			logger.String("user_id", userID.String()),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete contact"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// UpdateProfile handles PUT /settings/profile.
func (h *SettingsHandler) UpdateProfile(c *gin.Context) {
	userID := currentUserID(c)

	var req models.ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "default_phone is required"})
		return
	}

	phone := strings.TrimSpace(req.DefaultPhone)
	if err := h.users.UpdatePhone(c.Request.Context(), userID, phone); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.log.Error("Failed to update profile",
			logger.String("user_id", userID.String()),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("Failed to reload user",
			logger.String("user_id", userID.String()),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}

	contacts, err := h.contacts.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("Failed to load contacts",
			logger.String("user_id", userID.String()),
			logger.Error(err),
		)
		contacts = nil
	}

	c.JSON(http.StatusOK, gin.H{"user": user.Info(contacts)})
}
