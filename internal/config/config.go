package config

import (
	"fmt"
	"time"
)

// Default configuration values.
const (
	defaultServiceName  = "saferoute-api"
	defaultServicePort  = 5000
	defaultVersion      = "0.1.0"
	defaultLoggingLevel = "info"
	defaultLoggingFmt   = "json"

	defaultDBHost    = "localhost"
	defaultDBPort    = 5432
	defaultDBName    = "saferoute"
	defaultDBUser    = "postgres"
	defaultDBSSLMode = "disable"

	defaultJWTExpiryH = 24

	defaultDirectionsBaseURL = "https://api.openrouteservice.org/v2/directions/foot-walking/geojson"
	defaultDirectionsTimeout = 15 * time.Second
	defaultDirectionsRetries = 3
	defaultDirectionsBackoff = time.Second

	defaultGeocodingBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"
	defaultGeocodingTimeout = 10 * time.Second
	defaultGeocodeCacheTTL  = 24 * time.Hour

	defaultDatasetPath  = "data/raw/nyc_crime_sample.geojson"
	defaultHeatmapPath  = "data/processed/crime_heatmap.geojson"
	defaultPolygonsPath = "data/processed/risk_polygons.geojson"
)

// Config holds the API service configuration.
type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	JWT        JWTConfig        `yaml:"jwt"`
	Directions DirectionsConfig `yaml:"directions"`
	Geocoding  GeocodingConfig  `yaml:"geocoding"`
	SMS        SMSConfig        `yaml:"sms"`
	Data       DataConfig       `yaml:"data"`
	Logging    LoggingConfig    `yaml:"logging"`
	Profiling  ProfilingConfig  `yaml:"profiling"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `env:"PORT"      yaml:"port"`
	Debug   bool   `env:"APP_DEBUG" yaml:"debug"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host     string `env:"POSTGRES_HOST"     yaml:"host"`
	Port     int    `env:"POSTGRES_PORT"     yaml:"port"`
	User     string `env:"POSTGRES_USER"     yaml:"user"`
	Password string `env:"POSTGRES_PASSWORD" yaml:"password"`
	Database string `env:"POSTGRES_DB"       yaml:"database"`
	SSLMode  string `env:"POSTGRES_SSLMODE"  yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// RedisConfig holds the optional redis cache configuration.
// An empty Addr disables the geocoding cache.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"     yaml:"addr"`
	Password string `env:"REDIS_PASSWORD" yaml:"password"`
	DB       int    `env:"REDIS_DB"       yaml:"db"`
}

// JWTConfig holds token signing configuration.
type JWTConfig struct {
	Secret string        `env:"JWT_SECRET" yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// DirectionsConfig holds the walking-directions engine configuration.
type DirectionsConfig struct {
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `env:"ORS_API_KEY" yaml:"api_key"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxAttempts   int           `yaml:"max_attempts"`
	BackoffFactor time.Duration `yaml:"backoff_factor"`
}

// GeocodingConfig holds the Mapbox geocoder configuration.
type GeocodingConfig struct {
	BaseURL     string `yaml:"base_url"`
	AccessToken string `env:"MAPBOX_ACCESS_TOKEN" yaml:"access_token"`
	// TokenFallback is consulted when AccessToken is empty.
	TokenFallback string        `env:"MAPBOX_TOKEN" yaml:"-"`
	Timeout       time.Duration `yaml:"timeout"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
}

// Token returns the configured Mapbox token, preferring MAPBOX_ACCESS_TOKEN.
func (g *GeocodingConfig) Token() string {
	if g.AccessToken != "" {
		return g.AccessToken
	}
	return g.TokenFallback
}

// SMSConfig holds the panic-alert SMS provider configuration.
type SMSConfig struct {
	Provider   string `yaml:"provider"`
	AccountSID string `env:"TWILIO_ACCOUNT_SID" yaml:"account_sid"`
	AuthToken  string `env:"TWILIO_AUTH_TOKEN"  yaml:"auth_token"`
	FromNumber string `env:"TWILIO_FROM_NUMBER" yaml:"from_number"`
}

// DataConfig holds the snapshot file locations.
type DataConfig struct {
	DatasetPath  string `env:"DATASET_PATH"  yaml:"dataset_path"`
	HeatmapPath  string `env:"HEATMAP_PATH"  yaml:"heatmap_path"`
	PolygonsPath string `env:"POLYGONS_PATH" yaml:"polygons_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

// ProfilingConfig holds the optional Pyroscope configuration.
type ProfilingConfig struct {
	Enabled       bool   `env:"PROFILING_ENABLED" yaml:"enabled"`
	ServerAddress string `env:"PYROSCOPE_SERVER"  yaml:"server_address"`
}

// LoadAPI loads the API service configuration from the specified path.
func LoadAPI(path string) (*Config, error) {
	return LoadWithDefaults[Config](path, setDefaults)
}

func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setDatabaseDefaults(&cfg.Database)
	setJWTDefaults(&cfg.JWT)
	setDirectionsDefaults(&cfg.Directions)
	setGeocodingDefaults(&cfg.Geocoding)
	setSMSDefaults(&cfg.SMS)
	setDataDefaults(&cfg.Data)
	setLoggingDefaults(&cfg.Logging)
}

func setServiceDefaults(svc *ServiceConfig) {
	if svc.Name == "" {
		svc.Name = defaultServiceName
	}
	if svc.Version == "" {
		svc.Version = defaultVersion
	}
	if svc.Port == 0 {
		svc.Port = defaultServicePort
	}
}

func setDatabaseDefaults(db *DatabaseConfig) {
	if db.Host == "" {
		db.Host = defaultDBHost
	}
	if db.Port == 0 {
		db.Port = defaultDBPort
	}
	if db.User == "" {
		db.User = defaultDBUser
	}
	if db.Database == "" {
		db.Database = defaultDBName
	}
	if db.SSLMode == "" {
		db.SSLMode = defaultDBSSLMode
	}
}

func setJWTDefaults(jwt *JWTConfig) {
	if jwt.Expiry == 0 {
		jwt.Expiry = defaultJWTExpiryH * time.Hour
	}
}

func setDirectionsDefaults(d *DirectionsConfig) {
	if d.BaseURL == "" {
		d.BaseURL = defaultDirectionsBaseURL
	}
	if d.Timeout == 0 {
		d.Timeout = defaultDirectionsTimeout
	}
	if d.MaxAttempts == 0 {
		d.MaxAttempts = defaultDirectionsRetries
	}
	if d.BackoffFactor == 0 {
		d.BackoffFactor = defaultDirectionsBackoff
	}
}

func setGeocodingDefaults(g *GeocodingConfig) {
	if g.BaseURL == "" {
		g.BaseURL = defaultGeocodingBaseURL
	}
	if g.Timeout == 0 {
		g.Timeout = defaultGeocodingTimeout
	}
	if g.CacheTTL == 0 {
		g.CacheTTL = defaultGeocodeCacheTTL
	}
}

func setSMSDefaults(s *SMSConfig) {
	if s.Provider == "" {
		s.Provider = "log"
	}
}

func setDataDefaults(d *DataConfig) {
	if d.DatasetPath == "" {
		d.DatasetPath = defaultDatasetPath
	}
	if d.HeatmapPath == "" {
		d.HeatmapPath = defaultHeatmapPath
	}
	if d.PolygonsPath == "" {
		d.PolygonsPath = defaultPolygonsPath
	}
}

func setLoggingDefaults(log *LoggingConfig) {
	if log.Level == "" {
		log.Level = defaultLoggingLevel
	}
	if log.Format == "" {
		log.Format = defaultLoggingFmt
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Service.Port <= 0 || c.Service.Port > 65535 {
		return &ValidationError{
			Field:   "service.port",
			Message: fmt.Sprintf("must be between 1 and 65535, got %d", c.Service.Port),
		}
	}
	if c.JWT.Secret == "" {
		return &ValidationError{
			Field:   "jwt.secret",
			Message: "is required",
		}
	}
	if c.SMS.Provider != "log" && c.SMS.Provider != "twilio" {
		return &ValidationError{
			Field:   "sms.provider",
			Message: fmt.Sprintf("must be log or twilio, got %q", c.SMS.Provider),
		}
	}
	return nil
}
