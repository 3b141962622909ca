package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/saferoute-nyc/saferoute/internal/config"
)

type sampleConfig struct {
	Name  string        `env:"SAMPLE_NAME"  yaml:"name"`
	Port  int           `env:"SAMPLE_PORT"  yaml:"port"`
	Debug bool          `env:"SAMPLE_DEBUG" yaml:"debug"`
	Ratio float64       `env:"SAMPLE_RATIO" yaml:"ratio"`
	Wait  time.Duration `env:"SAMPLE_WAIT"  yaml:"wait"`
	Tags  []string      `env:"SAMPLE_TAGS"  yaml:"tags"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "name: from-file\nport: 5000\nratio: 0.5\n")

	t.Setenv("SAMPLE_NAME", "from-env")
	t.Setenv("SAMPLE_PORT", "8080")
	t.Setenv("SAMPLE_DEBUG", "yes")
	t.Setenv("SAMPLE_RATIO", "0.75")
	t.Setenv("SAMPLE_WAIT", "30s")
	t.Setenv("SAMPLE_TAGS", "a, b,c")

	cfg, err := config.Load[sampleConfig](path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Name != "from-env" {
		t.Errorf("Name = %q, want from-env", cfg.Name)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true for \"yes\"")
	}
	if cfg.Ratio != 0.75 {
		t.Errorf("Ratio = %v, want 0.75", cfg.Ratio)
	}
	if cfg.Wait != 30*time.Second {
		t.Errorf("Wait = %v, want 30s", cfg.Wait)
	}
	if len(cfg.Tags) != 3 || cfg.Tags[1] != "b" {
		t.Errorf("Tags = %v, want trimmed [a b c]", cfg.Tags)
	}
}

func TestLoad_UnsetEnvKeepsFileValue(t *testing.T) {
	path := writeConfig(t, "name: from-file\nport: 5000\n")

	cfg, err := config.Load[sampleConfig](path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Name != "from-file" {
		t.Errorf("Name = %q, want from-file", cfg.Name)
	}
	if cfg.Port != 5000 {
		t.Errorf("Port = %d, want 5000", cfg.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := config.Load[sampleConfig]("does-not-exist.yml"); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadAPI_Defaults(t *testing.T) {
	path := writeConfig(t, "jwt:\n  secret: test-secret\n")

	cfg, err := config.LoadAPI(path)
	if err != nil {
		t.Fatalf("LoadAPI() error = %v", err)
	}

	if cfg.Service.Name != "saferoute-api" {
		t.Errorf("Service.Name = %q, want saferoute-api", cfg.Service.Name)
	}
	if cfg.Service.Port != 5000 {
		t.Errorf("Service.Port = %d, want 5000", cfg.Service.Port)
	}
	if cfg.Database.Host != "localhost" || cfg.Database.Port != 5432 {
		t.Errorf("Database = %s:%d, want localhost:5432", cfg.Database.Host, cfg.Database.Port)
	}
	if cfg.JWT.Expiry != 24*time.Hour {
		t.Errorf("JWT.Expiry = %v, want 24h", cfg.JWT.Expiry)
	}
	if cfg.Directions.Timeout != 15*time.Second || cfg.Directions.MaxAttempts != 3 {
		t.Errorf("Directions = (%v, %d attempts), want (15s, 3 attempts)",
			cfg.Directions.Timeout, cfg.Directions.MaxAttempts)
	}
	if cfg.Geocoding.CacheTTL != 24*time.Hour {
		t.Errorf("Geocoding.CacheTTL = %v, want 24h", cfg.Geocoding.CacheTTL)
	}
	if cfg.SMS.Provider != "log" {
		t.Errorf("SMS.Provider = %q, want log", cfg.SMS.Provider)
	}
	if cfg.Data.PolygonsPath != "data/processed/risk_polygons.geojson" {
		t.Errorf("Data.PolygonsPath = %q, want the processed default", cfg.Data.PolygonsPath)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = (%s, %s), want (info, json)", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadAPI_FileValuesWinOverDefaults(t *testing.T) {
	path := writeConfig(t, `
service:
  name: custom-api
  port: 8080
jwt:
  secret: test-secret
sms:
  provider: twilio
`)

	cfg, err := config.LoadAPI(path)
	if err != nil {
		t.Fatalf("LoadAPI() error = %v", err)
	}

	if cfg.Service.Name != "custom-api" {
		t.Errorf("Service.Name = %q, want custom-api", cfg.Service.Name)
	}
	if cfg.Service.Port != 8080 {
		t.Errorf("Service.Port = %d, want 8080", cfg.Service.Port)
	}
	if cfg.SMS.Provider != "twilio" {
		t.Errorf("SMS.Provider = %q, want twilio", cfg.SMS.Provider)
	}
}

func TestGetConfigPath(t *testing.T) {
	if got := config.GetConfigPath("config.yml"); got != "config.yml" {
		t.Errorf("GetConfigPath() = %q, want the default", got)
	}

	t.Setenv("CONFIG_PATH", "/etc/saferoute/config.yml")
	if got := config.GetConfigPath("config.yml"); got != "/etc/saferoute/config.yml" {
		t.Errorf("GetConfigPath() = %q, want the env value", got)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		cfg := &config.Config{}
		cfg.Service.Port = 5000
		cfg.JWT.Secret = "secret"
		cfg.SMS.Provider = "log"
		return cfg
	}

	tests := []struct {
		name      string
		mutate    func(*config.Config)
		wantField string
	}{
		{"valid", func(*config.Config) {}, ""},
		{"zero port", func(c *config.Config) { c.Service.Port = 0 }, "service.port"},
		{"port too large", func(c *config.Config) { c.Service.Port = 70000 }, "service.port"},
		{"missing jwt secret", func(c *config.Config) { c.JWT.Secret = "" }, "jwt.secret"},
		{"unknown sms provider", func(c *config.Config) { c.SMS.Provider = "carrier-pigeon" }, "sms.provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			var vErr *config.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if vErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", vErr.Field, tt.wantField)
			}
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	db := config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "saferoute",
		Password: "hunter2",
		Database: "saferoute",
		SSLMode:  "require",
	}

	want := "host=db.internal port=5433 user=saferoute password=hunter2 dbname=saferoute sslmode=require"
	if got := db.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
