// Package api is the SafeRoute HTTP surface: route planning, the crime
// heatmap, accounts, trusted contacts, panic alerts and geocoding.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/saferoute-nyc/saferoute/internal/auth"
	"github.com/saferoute-nyc/saferoute/internal/config"
	"github.com/saferoute-nyc/saferoute/internal/logger"
	"github.com/saferoute-nyc/saferoute/internal/notify"
	"github.com/saferoute-nyc/saferoute/internal/telemetry"
)

// healthPingTimeout bounds the dependency pings in the health check.
const healthPingTimeout = 2 * time.Second

// Deps carries everything the HTTP layer depends on. DB and Redis may be
// nil; the health endpoint reports them as disabled.
type Deps struct {
	Planner  RoutePlanner
	Store    RiskSnapshot
	Users    UserStore
	Contacts ContactStore
	Alerts   AlertStore
	Geocoder Geocoder
	Notifier notify.Notifier
	JWT      *auth.JWTManager
	DB       *sqlx.DB
	Redis    *redis.Client
	Metrics  *telemetry.Provider
	Log      logger.Logger
}

// Server is the SafeRoute HTTP API.
type Server struct {
	cfg    *config.Config
	deps   Deps
	router *gin.Engine
}

// NewServer wires the gin router with middleware and all routes.
func NewServer(cfg *config.Config, deps Deps) *Server {
	if !cfg.Service.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{cfg: cfg, deps: deps}

	s.router = gin.New()
	s.router.Use(RecoveryMiddleware(deps.Log))
	s.router.Use(CORSMiddleware())
	s.router.Use(LoggerMiddleware(deps.Log, deps.Metrics))
	s.registerRoutes()

	return s
}

// Router exposes the underlying gin engine.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) registerRoutes() {
	routes := NewRouteHandler(s.deps.Planner, s.deps.Store, s.deps.Log)
	accounts := NewAuthHandler(s.deps.Users, s.deps.Contacts, s.deps.JWT, s.deps.Log)
	settings := NewSettingsHandler(s.deps.Users, s.deps.Contacts, s.deps.Log)
	panics := NewPanicHandler(s.deps.Users, s.deps.Contacts, s.deps.Alerts, s.deps.Notifier, s.deps.Log)
	geocoding := NewGeocodeHandler(s.deps.Geocoder, s.deps.Log)

	s.router.GET("/health", s.health)
	s.router.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))

	s.router.POST("/safe-route", routes.SafeRoute)
	s.router.GET("/crime-heatmap", routes.CrimeHeatmap)

	s.router.POST("/register", accounts.Register)
	s.router.POST("/login", accounts.Login)

	s.router.GET("/geocode/search", geocoding.Search)
	s.router.GET("/geocode/reverse", geocoding.Reverse)

	protected := s.router.Group("/")
	protected.Use(RequireAuth(s.deps.JWT))
	{
		protected.GET("/settings/contacts", settings.ListContacts)
		protected.POST("/settings/contacts", settings.AddContact)
		protected.DELETE("/settings/contacts/:id", settings.DeleteContact)
		protected.PUT("/settings/profile", settings.UpdateProfile)
		protected.POST("/panic-alert", panics.Trigger)
	}
}

// health handles GET /health.
func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()

	health := gin.H{
		"status":          "ok",
		"service":         s.cfg.Service.Name,
		"version":         s.cfg.Service.Version,
		"polygons_loaded": s.deps.Store.PolygonCount(),
	}

	switch {
	case s.deps.DB == nil:
		health["database"] = "disabled"
	case s.deps.DB.PingContext(ctx) != nil:
		health["database"] = "unavailable"
		health["status"] = "degraded"
	default:
		health["database"] = "ok"
	}

	switch {
	case s.deps.Redis == nil:
		health["redis"] = "disabled"
	case s.deps.Redis.Ping(ctx).Err() != nil:
		health["redis"] = "unavailable"
	default:
		health["redis"] = "ok"
	}

	c.JSON(http.StatusOK, health)
}
