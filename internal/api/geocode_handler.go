package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"

	"github.com/saferoute-nyc/saferoute/internal/geocode"
	"github.com/saferoute-nyc/saferoute/internal/logger"
)

// minQueryLength is the shortest forward-geocode query the API accepts.
const minQueryLength = 3

// Geocoder resolves place names and coordinates.
type Geocoder interface {
	Forward(ctx context.Context, query string, limit int, proximity *orb.Point) ([]geocode.Place, error)
	Reverse(ctx context.Context, lng, lat float64) (*geocode.Place, error)
}

// GeocodeHandler serves forward and reverse geocoding.
type GeocodeHandler struct {
	geocoder Geocoder
	log      logger.Logger
}

// NewGeocodeHandler creates a geocode handler.
func NewGeocodeHandler(geocoder Geocoder, log logger.Logger) *GeocodeHandler {
	return &GeocodeHandler{geocoder: geocoder, log: log}
}

// Search handles GET /geocode/search.
func (h *GeocodeHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if len(query) < minQueryLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query must be at least 3 characters"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	places, err := h.geocoder.Forward(c.Request.Context(), query, limit, parseProximity(c.Query("proximity")))
	if err != nil {
		if errors.Is(err, geocode.ErrNoToken) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "geocoding is not configured"})
			return
		}
		h.log.Error("Forward geocoding failed",
			logger.String("query", query),
			logger.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "geocoding failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": places})
}

// Reverse handles GET /geocode/reverse.
func (h *GeocodeHandler) Reverse(c *gin.Context) {
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	if errLng != nil || errLat != nil || math.Abs(lat) > 90 || math.Abs(lng) > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid lng and lat are required"})
		return
	}

	place, err := h.geocoder.Reverse(c.Request.Context(), lng, lat)
	if err != nil {
		if errors.Is(err, geocode.ErrNoToken) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "geocoding is not configured"})
			return
		}
		h.log.Error("Reverse geocoding failed", logger.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "geocoding failed"})
		return
	}
	if place == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no address found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": place})
}

// parseProximity reads an optional "lng,lat" bias. Malformed values are
// ignored rather than rejected.
func parseProximity(raw string) *orb.Point {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return nil
	}

	lng, errLng := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLng != nil || errLat != nil {
		return nil
	}

	return &orb.Point{lng, lat}
}
