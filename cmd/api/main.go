// The saferoute API server: risk-aware walking routes, accounts, trusted
// contacts, panic alerts and geocoding for the SafeRoute map client.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saferoute-nyc/saferoute/internal/api"
	"github.com/saferoute-nyc/saferoute/internal/auth"
	"github.com/saferoute-nyc/saferoute/internal/config"
	"github.com/saferoute-nyc/saferoute/internal/database"
	"github.com/saferoute-nyc/saferoute/internal/directions"
	"github.com/saferoute-nyc/saferoute/internal/geocode"
	"github.com/saferoute-nyc/saferoute/internal/logger"
	"github.com/saferoute-nyc/saferoute/internal/notify"
	"github.com/saferoute-nyc/saferoute/internal/planner"
	"github.com/saferoute-nyc/saferoute/internal/profiling"
	"github.com/saferoute-nyc/saferoute/internal/repository"
	"github.com/saferoute-nyc/saferoute/internal/server"
	"github.com/saferoute-nyc/saferoute/internal/snapshot"
	"github.com/saferoute-nyc/saferoute/internal/telemetry"
)

const redisPingTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := config.GetConfigPath("config.yml")
	cfg, err := config.LoadAPI(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting SafeRoute API",
		logger.String("name", cfg.Service.Name),
		logger.String("version", cfg.Service.Version),
		logger.Int("port", cfg.Service.Port),
		logger.Bool("debug", cfg.Service.Debug),
	)

	profiler, err := profiling.Start(cfg.Profiling, cfg.Service.Name)
	if err != nil {
		log.Warn("Continuous profiling unavailable", logger.Error(err))
	}
	defer func() { _ = profiler.Stop() }()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Error("Failed to connect to database", logger.Error(err))
		return 1
	}
	defer func() { _ = db.Close() }()

	if err := database.RunMigrations(db, database.DefaultMigrationsPath, log); err != nil {
		log.Error("Failed to run migrations", logger.Error(err))
		return 1
	}

	metrics := telemetry.NewProvider()

	redisClient, cache := connectRedis(cfg, log)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	store := snapshot.Load(cfg.Data, log)
	log.Info("Risk snapshot loaded", logger.Int("polygons", store.PolygonCount()))

	engine := directions.NewClient(cfg.Directions, log)
	if !engine.Configured() {
		log.Warn("No routing API key configured, routes fall back to straight lines")
	}

	apiServer := api.NewServer(cfg, api.Deps{
		Planner:  planner.New(engine, store, log, metrics),
		Store:    store,
		Users:    repository.NewUserRepository(db),
		Contacts: repository.NewContactRepository(db),
		Alerts:   repository.NewAlertRepository(db),
		Geocoder: geocode.NewClient(cfg.Geocoding, cache, log, metrics),
		Notifier: notify.New(cfg.SMS, log, metrics),
		JWT:      auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry),
		DB:       db,
		Redis:    redisClient,
		Metrics:  metrics,
		Log:      log,
	})

	srv := server.New(server.Config{
		Address: fmt.Sprintf(":%d", cfg.Service.Port),
	}, apiServer.Router())

	if err := server.RunWithGracefulShutdown(context.Background(), srv, log); err != nil {
		log.Error("Server error", logger.Error(err))
		return 1
	}

	return 0
}

// connectRedis dials redis when configured. An unreachable server disables
// geocode caching instead of blocking startup.
func connectRedis(cfg *config.Config, log logger.Logger) (*redis.Client, geocode.Cache) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unavailable, geocode caching disabled",
			logger.String("addr", cfg.Redis.Addr),
			logger.Error(err),
		)
		_ = client.Close()
		return nil, nil
	}

	log.Info("Connected to redis", logger.String("addr", cfg.Redis.Addr))
	return client, geocode.NewRedisCache(client, cfg.Geocoding.CacheTTL, log)
}
