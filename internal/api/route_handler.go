package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saferoute-nyc/saferoute/internal/logger"
	"github.com/saferoute-nyc/saferoute/internal/planner"
	"github.com/saferoute-nyc/saferoute/internal/snapshot"
)

// RoutePlanner computes the route pair for one trip.
type RoutePlanner interface {
	ComputeRoutes(ctx context.Context, start, end planner.LatLng) *planner.Result
}

// RiskSnapshot serves the processed crime artifacts.
type RiskSnapshot interface {
	Heatmap() snapshot.Collection
	PolygonCount() int
}

// RouteHandler serves route computation and the crime heatmap.
type RouteHandler struct {
	planner RoutePlanner
	store   RiskSnapshot
	log     logger.Logger
}

// NewRouteHandler creates a route handler.
func NewRouteHandler(p RoutePlanner, store RiskSnapshot, log logger.Logger) *RouteHandler {
	return &RouteHandler{planner: p, store: store, log: log}
}

// coordinate is a request coordinate. Pointer fields distinguish a missing
// value from a legitimate zero.
type coordinate struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

func (p *coordinate) latLng() planner.LatLng {
	return planner.LatLng{Lat: *p.Lat, Lng: *p.Lng}
}

type safeRouteRequest struct {
	Start *coordinate `json:"start" binding:"required"`
	End   *coordinate `json:"end" binding:"required"`
}

type safeRouteResponse struct {
	*planner.Result
	Start planner.LatLng `json:"start"`
	End   planner.LatLng `json:"end"`
}

// SafeRoute handles POST /safe-route.
func (h *RouteHandler) SafeRoute(c *gin.Context) {
	var req safeRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start and end coordinates are required"})
		return
	}

	start, end := req.Start.latLng(), req.End.latLng()
	result := h.planner.ComputeRoutes(c.Request.Context(), start, end)

	c.JSON(http.StatusOK, safeRouteResponse{
		Result: result,
		Start:  start,
		End:    end,
	})
}

// CrimeHeatmap handles GET /crime-heatmap. The processed heatmap is served
// exactly as the generator wrote it.
func (h *RouteHandler) CrimeHeatmap(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Heatmap())
}
