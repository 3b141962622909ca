package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/saferoute-nyc/saferoute/internal/logger"
	"github.com/saferoute-nyc/saferoute/internal/models"
	"github.com/saferoute-nyc/saferoute/internal/notify"
)

// AlertStore records dispatched panic alerts.
type AlertStore interface {
	Create(ctx context.Context, alert *models.PanicAlert) error
}

// PanicHandler serves the panic alert endpoint.
type PanicHandler struct {
	users    UserStore
	contacts ContactStore
	alerts   AlertStore
	notifier notify.Notifier
	log      logger.Logger
}

// NewPanicHandler creates a panic handler.
func NewPanicHandler(
	users UserStore,
	contacts ContactStore,
	alerts AlertStore,
	notifier notify.Notifier,
	log logger.Logger,
) *PanicHandler {
	return &PanicHandler{
		users:    users,
		contacts: contacts,
		alerts:   alerts,
		notifier: notifier,
		log:      log,
	}
}

// Trigger handles POST /panic-alert. The body is optional: a panic press
// may carry no location fix.
func (h *PanicHandler) Trigger(c *gin.Context) {
	userID := currentUserID(c)

	var req models.PanicRequest
	_ = c.ShouldBindJSON(&req)

	contacts, err := h.contacts.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("Failed to load contacts",
			logger.String("user_id", userID.String()),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load contacts"})
		return
	}

	numbers := make([]string, 0, len(contacts))
	for _, contact := range contacts {
		numbers = append(numbers, contact.PhoneNumber)
	}
	if len(numbers) == 0 {
		// Fall back to the account's own phone when no contacts are saved.
		user, err := h.users.GetByID(c.Request.Context(), userID)
		if err == nil && user.DefaultPhone != nil && *user.DefaultPhone != "" {
			numbers = append(numbers, *user.DefaultPhone)
		}
	}
	if len(numbers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no trusted contacts configured"})
		return
	}

	status, err := h.notifier.SendPanicAlert(c.Request.Context(), numbers, req.Lat, req.Lng)
	if err != nil {
		h.log.Error("Panic alert dispatch failed",
			logger.String("user_id", userID.String()),
			logger.Error(err),
		)
	}

	alert := &models.PanicAlert{
		ID:        uuid.New(),
		UserID:    userID,
		Latitude:  req.Lat,
		Longitude: req.Lng,
		Status:    status,
	}
	if err := h.alerts.Create(c.Request.Context(), alert); err != nil {
		// The messages already went out; only log the bookkeeping failure.
		h.log.Error("Failed to record panic alert",
			logger.String("user_id", userID.String()),
			logger.Error(err),
		)
	}

	resp := gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"coords":    nil,
	}
	if req.Lat != nil && req.Lng != nil {
		resp["coords"] = gin.H{"lat": *req.Lat, "lng": *req.Lng}
	}

	c.JSON(http.StatusOK, resp)
}
