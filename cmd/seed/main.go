// Command seed creates the demo accounts used for manual testing and
// local development. Accounts that already exist are left untouched, so
// the command is safe to run repeatedly.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/saferoute-nyc/saferoute/internal/auth"
	"github.com/saferoute-nyc/saferoute/internal/config"
	"github.com/saferoute-nyc/saferoute/internal/database"
	"github.com/saferoute-nyc/saferoute/internal/logger"
	"github.com/saferoute-nyc/saferoute/internal/models"
	"github.com/saferoute-nyc/saferoute/internal/repository"
)

type demoAccount struct {
	email    string
	password string
	phone    string
}

var demoAccounts = []demoAccount{
	{email: "demo@sferoute.app", password: "password123", phone: "+15555555555"},
	{email: "test@example.com", password: "test123", phone: "+15555555556"},
}

func main() {
	var configPath string

	flag.StringVar(&configPath, "config", config.GetConfigPath("config.yml"), "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadAPI(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err = cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Error("Failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("Failed to close database", logger.Error(closeErr))
		}
	}()

	if err = database.RunMigrations(db, database.DefaultMigrationsPath, log); err != nil {
		log.Error("Failed to run migrations", logger.Error(err))
		os.Exit(1)
	}

	users := repository.NewUserRepository(db)
	ctx := context.Background()

	for _, account := range demoAccounts {
		exists, existsErr := users.EmailExists(ctx, account.email)
		if existsErr != nil {
			log.Error("Failed to check if user exists", logger.Error(existsErr))
			os.Exit(1)
		}
		if exists {
			fmt.Printf("User '%s' already exists. Skipping creation.\n", account.email)
			continue
		}

		hash, hashErr := auth.HashPassword(account.password)
		if hashErr != nil {
			log.Error("Failed to hash password", logger.Error(hashErr))
			os.Exit(1)
		}

		phone := account.phone
		user := &models.User{
			ID:           uuid.New(),
			Email:        account.email,
			PasswordHash: hash,
			DefaultPhone: &phone,
		}
		if createErr := users.Create(ctx, user); createErr != nil {
			log.Error("Failed to create user", logger.Error(createErr))
			os.Exit(1)
		}

		fmt.Printf("Created demo user:\n")
		fmt.Printf("  Email: %s\n", account.email)
		fmt.Printf("  Password: %s\n", account.password)
		fmt.Printf("  ID: %s\n", user.ID.String())
	}
}
